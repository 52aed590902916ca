package mesh

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/clock"
	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/observability"
)

// structValidator validates Agent/Task fields against the `validate`
// struct tags declared in types.go (mirrors pkg/agents/service.go's use of
// the same library). A single *validator.Validate is safe for concurrent
// use and caches its struct reflection, so it's shared across calls.
var structValidator = validator.New()

// AdapterResult is what an executor adapter returns on success.
type AdapterResult struct {
	Result     map[string]interface{}
	TokensUsed int
}

// Adapter translates a routed task into a tool call, skill invocation, or
// HTTP call. Adapters must respect task.Deadline and return
// KindDeadlineExceeded if it elapses mid-execution; they must never mutate
// coordinator state directly.
type Adapter interface {
	Execute(ctx context.Context, task *Task, agent *Agent) (*AdapterResult, error)
}

// Budget holds the cost ceilings the cost monitor and submit_task enforce.
type Budget struct {
	MaxTotalCostPerHour        float64
	EmergencyShutdownThreshold float64
}

// Quota holds the per-requester hourly task cap.
type Quota struct {
	MaxTasksPerUserPerHour int
}

// Retention controls how long completed-task history is kept in memory.
type Retention struct {
	TaskHistory time.Duration
}

// Options configures a Coordinator at construction time.
type Options struct {
	Weights   RoutingWeights
	Budget    Budget
	Quota     Quota
	Retention Retention
	Hooks     Hooks
	Clock     clock.Clock
	Logger    observability.Logger
	Metrics   observability.MetricsClient

	SkillsAdapter  Adapter
	ToolAdapter    Adapter
	GenericAdapter Adapter
}

// Coordinator is the mesh's single-writer actor: agent registry, task
// queue, router, executor dispatch, and governance state all live behind
// one mutex. Routing and adapter execution run concurrently; they report
// outcomes back through completeTask/failTask rather than mutating this
// state directly.
type Coordinator struct {
	mu             sync.Mutex
	agents         map[string]*Agent
	activeTasks    map[string]*Task
	completedTasks map[string]*Task
	history        []*Task

	// userTaskCounts buckets submissions by requester and clock hour for
	// quota enforcement.
	userTaskCounts map[string]map[int64]int

	weights   RoutingWeights
	budget    Budget
	quota     Quota
	retention Retention
	hooks     Hooks
	clock     clock.Clock
	logger    observability.Logger
	metrics   observability.MetricsClient

	skillsAdapter  Adapter
	toolAdapter    Adapter
	genericAdapter Adapter
}

// New constructs a Coordinator. Unset Options fall back to sane defaults
// (no-op hooks, the real clock, a noop logger/metrics client).
func New(opts Options) *Coordinator {
	if opts.Hooks == nil {
		opts.Hooks = NoopHooks{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewNoopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewNoOpMetricsClient()
	}

	return &Coordinator{
		agents:         make(map[string]*Agent),
		activeTasks:    make(map[string]*Task),
		completedTasks: make(map[string]*Task),
		userTaskCounts: make(map[string]map[int64]int),
		weights:        opts.Weights,
		budget:         opts.Budget,
		quota:          opts.Quota,
		retention:      opts.Retention,
		hooks:          opts.Hooks,
		clock:          opts.Clock,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
		skillsAdapter:  opts.SkillsAdapter,
		toolAdapter:    opts.ToolAdapter,
		genericAdapter: opts.GenericAdapter,
	}
}

// RegisterAgent validates the agent, probes its health, and installs it
// into the registry with zeroed counters.
func (c *Coordinator) RegisterAgent(ctx context.Context, agent *Agent) error {
	if err := validateAgent(agent); err != nil {
		return WrapError(KindValidation, "register_agent", err)
	}

	agent.LastHeartbeat = c.clock.Now()
	if agent.Status == "" {
		agent.Status = AgentIdle
	}

	c.mu.Lock()
	c.agents[agent.AgentID] = agent
	c.mu.Unlock()

	c.logger.Info("agent registered", map[string]interface{}{
		"agent_id": agent.AgentID,
		"name":     agent.Name,
	})
	c.metrics.RecordEvent("coordinator", "agent_registered")

	return nil
}

func validateAgent(agent *Agent) error {
	return structValidator.Struct(agent)
}

// DeregisterAgent removes an agent from the registry.
func (c *Coordinator) DeregisterAgent(agentID string) {
	c.mu.Lock()
	delete(c.agents, agentID)
	c.mu.Unlock()
}

func validateTask(task *Task) error {
	return structValidator.Struct(task)
}

// SubmitTask validates the task, enforces the requester's hourly quota and
// current-hour budget fit, enqueues it, and triggers routing. Routing runs
// synchronously up to the point of assignment; adapter execution is
// dispatched to its own goroutine so SubmitTask never blocks on it.
func (c *Coordinator) SubmitTask(ctx context.Context, task *Task) (string, error) {
	if err := validateTask(task); err != nil {
		return "", WrapError(KindValidation, "submit_task", err)
	}

	if task.TaskID == uuid.Nil {
		task.TaskID = uuid.New()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = c.clock.Now()
	}
	if !task.Priority.IsValid() {
		task.Priority = PriorityNormal
	}
	task.Status = TaskPending

	now := c.clock.Now()

	c.mu.Lock()
	if !c.checkQuotaLocked(task.RequesterID, now) {
		c.mu.Unlock()
		return "", NewError(KindQuota, "submit_task", "requester exceeded hourly task quota")
	}

	estimatedCost := 1.0
	if task.MaxCost != nil {
		estimatedCost = *task.MaxCost
	}
	currentHourCost := c.currentHourCostLocked()
	if currentHourCost+estimatedCost > c.budget.MaxTotalCostPerHour {
		c.mu.Unlock()
		return "", NewError(KindBudget, "submit_task", "task would breach current-hour budget")
	}

	c.recordQuotaLocked(task.RequesterID, now)
	c.activeTasks[task.TaskID.String()] = task
	c.mu.Unlock()

	c.logger.Info("task submitted", map[string]interface{}{
		"task_id":  task.TaskID.String(),
		"priority": string(task.Priority),
	})

	c.routeTask(ctx, task)

	return task.TaskID.String(), nil
}

func (c *Coordinator) checkQuotaLocked(requesterID string, now time.Time) bool {
	if c.quota.MaxTasksPerUserPerHour <= 0 {
		return true
	}
	bucket := now.Truncate(time.Hour).Unix()
	return c.userTaskCounts[requesterID][bucket] < c.quota.MaxTasksPerUserPerHour
}

func (c *Coordinator) recordQuotaLocked(requesterID string, now time.Time) {
	bucket := now.Truncate(time.Hour).Unix()
	if c.userTaskCounts[requesterID] == nil {
		c.userTaskCounts[requesterID] = make(map[int64]int)
	}
	c.userTaskCounts[requesterID][bucket]++
}

// currentHourCostLocked approximates current-hour spend the way the
// source does: each agent's lifetime average cost per task, scaled by its
// in-flight count. This is a rolling approximation, not an integrated
// ledger, and under-estimates bursty spend; callers needing an exact
// figure should integrate actual per-task costs as they complete.
func (c *Coordinator) currentHourCostLocked() float64 {
	var total float64
	for _, agent := range c.agents {
		if agent.TotalTasks == 0 {
			continue
		}
		avgCostPerTask := agent.CostIncurred / float64(agent.TotalTasks)
		total += avgCostPerTask * float64(agent.CurrentTasks)
	}
	return total
}

// routeTask filters and scores candidates, assigns the winner, and
// dispatches execution asynchronously. No candidates is recorded as a
// terminal failure, not retried from the coordinator.
func (c *Coordinator) routeTask(ctx context.Context, task *Task) {
	now := c.clock.Now()

	c.mu.Lock()
	agentSnapshot := make([]*Agent, 0, len(c.agents))
	for _, a := range c.agents {
		agentSnapshot = append(agentSnapshot, a)
	}
	candidates := filterCandidates(agentSnapshot, task, now)
	if len(candidates) == 0 {
		c.mu.Unlock()
		c.handleNoCandidates(task)
		return
	}

	chosen := selectAgent(candidates, task, c.weights, agentSnapshot)
	if chosen == nil {
		c.mu.Unlock()
		c.handleNoCandidates(task)
		return
	}

	task.AssignedAgent = chosen.AgentID
	task.StartedAt = &now
	task.Status = TaskActive
	chosen.CurrentTasks++
	if chosen.CurrentTasks >= chosen.MaxConcurrentTasks {
		chosen.Status = AgentBusy
	} else {
		chosen.Status = AgentActive
	}
	c.mu.Unlock()

	c.logger.Info("task assigned", map[string]interface{}{
		"task_id":  task.TaskID.String(),
		"agent_id": chosen.AgentID,
	})

	go c.executeTask(ctx, task, chosen)
}

func (c *Coordinator) handleNoCandidates(task *Task) {
	now := c.clock.Now()
	task.Error = "No capable agents available"
	task.CompletedAt = &now
	task.Status = TaskCompleted

	c.mu.Lock()
	delete(c.activeTasks, task.TaskID.String())
	c.completedTasks[task.TaskID.String()] = task
	c.history = append(c.history, task)
	c.mu.Unlock()

	c.logger.Warn("task has no capable agents", map[string]interface{}{
		"task_id": task.TaskID.String(),
	})
}

// adapterFor picks an executor by the agent-name convention: "jorge_"
// prefixed agents use the skills adapter, "mcp_" prefixed agents use the
// tool-invocation adapter, everything else uses the generic HTTP adapter.
func (c *Coordinator) adapterFor(agent *Agent) Adapter {
	switch {
	case strings.HasPrefix(agent.Name, "jorge_"):
		return c.skillsAdapter
	case strings.HasPrefix(agent.Name, "mcp_"):
		return c.toolAdapter
	default:
		return c.genericAdapter
	}
}

func (c *Coordinator) executeTask(ctx context.Context, task *Task, agent *Agent) {
	execCtx := ctx
	var cancel context.CancelFunc
	if task.Deadline != nil {
		execCtx, cancel = context.WithDeadline(ctx, *task.Deadline)
		defer cancel()
	}

	adapter := c.adapterFor(agent)
	if adapter == nil {
		c.failTask(task, agent, WrapError(KindTransportError, "execute_task", fmt.Errorf("no adapter configured for agent %s", agent.Name)))
		return
	}

	start := c.clock.Now()
	result, err := adapter.Execute(execCtx, task, agent)
	duration := c.clock.Now().Sub(start)

	if err != nil {
		if execCtx.Err() != nil {
			err = WrapError(KindDeadlineExceeded, "execute_task", execCtx.Err())
		}
		c.failTask(task, agent, err)
		return
	}

	c.completeTask(task, agent, result, duration)
}

// completeTask and failTask are the only places that apply an execution
// outcome to coordinator state; adapters never touch agents/tasks maps
// directly.
func (c *Coordinator) completeTask(task *Task, agent *Agent, result *AdapterResult, duration time.Duration) {
	now := c.clock.Now()

	c.mu.Lock()
	task.CompletedAt = &now
	task.Status = TaskCompleted
	if result != nil {
		task.Result = result.Result
	}

	agent.TotalTasks++
	agent.CompletedTasks++
	agent.LastActivity = now
	updateAverageResponseTime(agent, duration)
	if result != nil {
		agent.TokensUsed += int64(result.TokensUsed)
	}

	agent.CurrentTasks--
	if agent.CurrentTasks <= 0 {
		agent.CurrentTasks = 0
		if agent.Status != AgentMaintenance && agent.Status != AgentError {
			agent.Status = AgentIdle
		}
	}

	delete(c.activeTasks, task.TaskID.String())
	c.completedTasks[task.TaskID.String()] = task
	c.history = append(c.history, task)
	c.mu.Unlock()

	c.logger.Info("task completed", map[string]interface{}{
		"task_id":  task.TaskID.String(),
		"agent_id": agent.AgentID,
	})
	c.metrics.RecordOperation("coordinator", "execute_task", true, duration.Seconds(), map[string]string{
		"agent_id": agent.AgentID,
	})
}

func (c *Coordinator) failTask(task *Task, agent *Agent, err error) {
	now := c.clock.Now()

	c.mu.Lock()
	task.Error = err.Error()
	task.CompletedAt = &now
	task.Status = TaskCompleted

	if agent != nil {
		agent.TotalTasks++
		agent.FailedTasks++
		agent.LastActivity = now
		agent.CurrentTasks--
		if agent.CurrentTasks <= 0 {
			agent.CurrentTasks = 0
			if agent.Status != AgentMaintenance && agent.Status != AgentError {
				agent.Status = AgentIdle
			}
		}
	}

	delete(c.activeTasks, task.TaskID.String())
	c.completedTasks[task.TaskID.String()] = task
	c.history = append(c.history, task)
	c.mu.Unlock()

	c.logger.Error("task failed", map[string]interface{}{
		"task_id": task.TaskID.String(),
		"error":   err.Error(),
	})
	labels := map[string]string{"agent_id": ""}
	if agent != nil {
		labels["agent_id"] = agent.AgentID
	}
	c.metrics.RecordOperation("coordinator", "execute_task", false, 0, labels)
}

// updateAverageResponseTime applies a running mean over total_tasks,
// matching the source's incremental-average update.
func updateAverageResponseTime(agent *Agent, duration time.Duration) {
	if agent.AvgResponseTime == 0 {
		agent.AvgResponseTime = duration
		return
	}
	n := agent.TotalTasks
	agent.AvgResponseTime = time.Duration((int64(agent.AvgResponseTime)*(n-1) + int64(duration)) / n)
}

// GetMeshStatus returns a snapshot of agent counts, task totals, aggregate
// performance, and cost.
func (c *Coordinator) GetMeshStatus() MeshStatus {
	now := c.clock.Now()
	today := now.Truncate(24 * time.Hour)

	c.mu.Lock()
	defer c.mu.Unlock()

	status := MeshStatus{
		AgentsByStatus: make(map[AgentStatus]int),
		ActiveTasks:    len(c.activeTasks),
		TotalAgents:    len(c.agents),
	}

	var totalResponse time.Duration
	var respondingAgents int
	for _, a := range c.agents {
		status.AgentsByStatus[a.Status]++
		if a.AvgResponseTime > 0 {
			totalResponse += a.AvgResponseTime
			respondingAgents++
		}
	}
	if respondingAgents > 0 {
		status.AvgResponseTime = totalResponse / time.Duration(respondingAgents)
	}

	for _, t := range c.completedTasks {
		if t.CompletedAt != nil && !t.CompletedAt.Before(today) {
			if t.Error == "" {
				status.CompletedToday++
			} else {
				status.FailedToday++
			}
		}
	}

	status.CurrentHourCost = c.currentHourCostLocked()

	return status
}

// GetAgentDetails returns an agent's snapshot plus its last 10 completed
// tasks and their execution times (newest first), or nil if the agent is
// not registered.
func (c *Coordinator) GetAgentDetails(agentID string) *AgentDetails {
	c.mu.Lock()
	defer c.mu.Unlock()

	agent, ok := c.agents[agentID]
	if !ok {
		return nil
	}

	var recent []Task
	var trend []time.Duration
	for i := len(c.history) - 1; i >= 0 && len(recent) < 10; i-- {
		if c.history[i].AssignedAgent == agentID {
			recent = append(recent, *c.history[i])
			trend = append(trend, c.history[i].ExecutionTime())
		}
	}

	return &AgentDetails{
		Agent:         *agent,
		RecentTasks:   recent,
		ResponseTrend: trend,
	}
}

// HealthCheck probes every agent and returns a per-agent status report.
func (c *Coordinator) HealthCheck(probe func(agent *Agent) bool) map[string]AgentStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	report := make(map[string]AgentStatus, len(c.agents))
	for id, agent := range c.agents {
		if probe != nil && !probe(agent) {
			agent.Status = AgentError
		} else {
			agent.LastHeartbeat = c.clock.Now()
		}
		report[id] = agent.Status
	}
	return report
}

// EmergencyShutdown cancels every active task with reason recorded as its
// error, forces every agent to Maintenance, and zeroes in-flight counters.
func (c *Coordinator) EmergencyShutdown(ctx context.Context, reason string) {
	now := c.clock.Now()

	c.mu.Lock()
	for _, task := range c.activeTasks {
		task.Error = fmt.Sprintf("Emergency shutdown: %s", reason)
		task.CompletedAt = &now
		task.Status = TaskCompleted
		c.completedTasks[task.TaskID.String()] = task
		c.history = append(c.history, task)
	}
	c.activeTasks = make(map[string]*Task)

	for _, agent := range c.agents {
		agent.Status = AgentMaintenance
		agent.CurrentTasks = 0
	}
	c.mu.Unlock()

	c.logger.Error("emergency shutdown", map[string]interface{}{
		"reason": reason,
	})

	if err := c.hooks.EmergencyAlert(ctx, reason); err != nil {
		c.logger.Error("emergency alert hook failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// CleanupHistory drops completed-task history entries older than the
// configured retention window.
func (c *Coordinator) CleanupHistory() {
	cutoff := c.clock.Now().Add(-c.retention.TaskHistory)

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.history[:0]
	for _, t := range c.history {
		if t.CreatedAt.After(cutoff) {
			kept = append(kept, t)
		}
	}
	c.history = kept
}

// snapshotAgents returns a copy of the agent slice for read-only use by
// the background monitors, taken under the coordinator's lock.
func (c *Coordinator) snapshotAgents() []*Agent {
	c.mu.Lock()
	defer c.mu.Unlock()
	agents := make([]*Agent, 0, len(c.agents))
	for _, a := range c.agents {
		agents = append(agents, a)
	}
	return agents
}
