// Package mesh implements the coordinator: agent registry, task queue,
// weighted router, and governance monitors.
package mesh

import (
	"time"

	"github.com/google/uuid"
)

// AgentStatus represents the lifecycle state of a registered agent.
type AgentStatus string

const (
	AgentIdle        AgentStatus = "idle"
	AgentActive      AgentStatus = "active"
	AgentBusy        AgentStatus = "busy"
	AgentError       AgentStatus = "error"
	AgentMaintenance AgentStatus = "maintenance"
)

// String returns the string representation of the agent status.
func (s AgentStatus) String() string {
	return string(s)
}

// IsValid reports whether s is one of the defined statuses.
func (s AgentStatus) IsValid() bool {
	switch s {
	case AgentIdle, AgentActive, AgentBusy, AgentError, AgentMaintenance:
		return true
	}
	return false
}

// heartbeatGrace is the staleness window past which an agent is excluded
// from routing candidates regardless of its declared status.
const heartbeatGrace = 2 * time.Minute

// Agent is a worker process declaring capabilities and accepting routed
// tasks.
type Agent struct {
	AgentID  string   `json:"agent_id" validate:"required"`
	Name     string   `json:"name" validate:"required,min=1,max=255"`
	Capabilities []string `json:"capabilities" validate:"required,min=1"`

	Status             AgentStatus `json:"status"`
	MaxConcurrentTasks int         `json:"max_concurrent_tasks"`
	CurrentTasks       int         `json:"current_tasks"`

	PriorityTier      int     `json:"priority_tier"`
	CostPerToken      float64 `json:"cost_per_token"`
	SLAResponseSeconds float64 `json:"sla_response_seconds"`

	TotalTasks      int64         `json:"total_tasks"`
	CompletedTasks  int64         `json:"completed_tasks"`
	FailedTasks     int64         `json:"failed_tasks"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	TokensUsed      int64         `json:"tokens_used"`
	CostIncurred    float64       `json:"cost_incurred"`
	LastActivity    time.Time     `json:"last_activity"`

	TransportEndpoint string    `json:"transport_endpoint"`
	HealthCheckURL    string    `json:"health_check_url"`
	LastHeartbeat     time.Time `json:"last_heartbeat"`
}

// IsAvailable reports whether the agent can accept a new task: idle, under
// its concurrency cap, and its heartbeat is within the grace window.
func (a *Agent) IsAvailable(now time.Time) bool {
	if a.Status != AgentIdle {
		return false
	}
	if a.CurrentTasks >= a.MaxConcurrentTasks {
		return false
	}
	return now.Sub(a.LastHeartbeat) <= heartbeatGrace
}

// Load returns the agent's fractional utilization, 0 when it has no
// concurrency cap configured.
func (a *Agent) Load() float64 {
	if a.MaxConcurrentTasks == 0 {
		return 0
	}
	return float64(a.CurrentTasks) / float64(a.MaxConcurrentTasks)
}

// SuccessRate returns completed/total, defaulting to 1.0 (100%) for an
// agent that has not yet completed or failed any task.
func (a *Agent) SuccessRate() float64 {
	if a.TotalTasks == 0 {
		return 1.0
	}
	return float64(a.CompletedTasks) / float64(a.TotalTasks)
}

// HasCapabilities reports whether a covers every capability in required
// (set inclusion, not equality).
func (a *Agent) HasCapabilities(required []string) bool {
	have := make(map[string]struct{}, len(a.Capabilities))
	for _, c := range a.Capabilities {
		have[c] = struct{}{}
	}
	for _, c := range required {
		if _, ok := have[c]; !ok {
			return false
		}
	}
	return true
}

// Priority is the urgency tier a submitted task declares.
type Priority string

const (
	PriorityLow       Priority = "low"
	PriorityNormal    Priority = "normal"
	PriorityHigh      Priority = "high"
	PriorityCritical  Priority = "critical"
	PriorityEmergency Priority = "emergency"
)

// IsValid reports whether p is one of the defined priorities.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical, PriorityEmergency:
		return true
	}
	return false
}

// TaskStatus tracks which of the three task buckets (Pending, Active,
// Completed) a task currently occupies.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskActive    TaskStatus = "active"
	TaskCompleted TaskStatus = "completed"
)

// Task is a unit of work with typed capability requirements, priority,
// deadline, and budget.
type Task struct {
	TaskID               uuid.UUID              `json:"task_id"`
	TaskType             string                 `json:"task_type" validate:"required"`
	Priority             Priority               `json:"priority"`
	CapabilitiesRequired []string               `json:"capabilities_required" validate:"required,min=1"`
	Payload              map[string]interface{} `json:"payload"`
	CreatedAt            time.Time              `json:"created_at"`
	Deadline             *time.Time             `json:"deadline,omitempty"`
	MaxCost              *float64               `json:"max_cost,omitempty"`
	RequesterID          string                 `json:"requester_id"`

	Status        TaskStatus `json:"status"`
	AssignedAgent string     `json:"assigned_agent,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`

	Result map[string]interface{} `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// IsOverdue reports whether the task's deadline has elapsed without a
// terminal outcome.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.Deadline == nil {
		return false
	}
	if t.Status == TaskCompleted {
		return false
	}
	return now.After(*t.Deadline)
}

// ExecutionTime returns completed_at - started_at, or zero if the task has
// not finished.
func (t *Task) ExecutionTime() time.Duration {
	if t.StartedAt == nil || t.CompletedAt == nil {
		return 0
	}
	return t.CompletedAt.Sub(*t.StartedAt)
}

// TimeRemaining returns the duration until the task's deadline, or a very
// large value when no deadline is set.
func (t *Task) TimeRemaining(now time.Time) time.Duration {
	if t.Deadline == nil {
		return time.Duration(1<<62 - 1)
	}
	return t.Deadline.Sub(now)
}

// SkillTier classifies a skill's place in the progressive selection order.
type SkillTier string

const (
	SkillTierCore      SkillTier = "core"
	SkillTierExtended  SkillTier = "extended"
	SkillTierFallback  SkillTier = "fallback"
	SkillTierDiscovery SkillTier = "discovery"
)

// Skill is a named prompt/handler artifact loaded on demand.
type Skill struct {
	Name                string    `json:"skill_name"`
	Tier                SkillTier `json:"tier"`
	Locator             string    `json:"locator"`
	Purpose             string    `json:"purpose"`
	EstimatedTokens     int       `json:"estimated_tokens"`
	ConfidenceThreshold float64   `json:"confidence_threshold"`
	Priority            int       `json:"priority"`
}

// UsageRecord captures one task's token consumption for the cost tracker.
type UsageRecord struct {
	TaskID     string    `json:"task_id"`
	Tokens     int       `json:"tokens"`
	TaskType   string    `json:"task_type"`
	UserID     string    `json:"user_id"`
	Model      string    `json:"model"`
	Approach   string    `json:"approach"`
	SkillName  string    `json:"skill_name,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Cost       float64   `json:"cost"`
}

// MeshStatus is the aggregate snapshot returned by get_mesh_status.
type MeshStatus struct {
	AgentsByStatus     map[AgentStatus]int `json:"agents_by_status"`
	ActiveTasks        int                 `json:"active_tasks"`
	CompletedToday     int64               `json:"completed_today"`
	FailedToday        int64               `json:"failed_today"`
	AvgResponseTime    time.Duration       `json:"avg_response_time"`
	CurrentHourCost    float64             `json:"current_hour_cost"`
	TotalAgents        int                 `json:"total_agents"`
}

// AgentDetails is the response to get_agent_details: the agent snapshot
// plus its recent completed tasks and a performance trend series.
type AgentDetails struct {
	Agent          Agent         `json:"agent"`
	RecentTasks    []Task        `json:"recent_tasks"`
	ResponseTrend  []time.Duration `json:"response_trend"`
}
