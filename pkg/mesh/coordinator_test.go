package mesh

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/clock"
)

func defaultWeights() RoutingWeights {
	return RoutingWeights{Performance: 0.40, Availability: 0.25, CostEfficiency: 0.20, ResponseTime: 0.15}
}

// stubAdapter returns a canned result or error, recording every task it saw.
type stubAdapter struct {
	result *AdapterResult
	err    error
	calls  []string
}

func (s *stubAdapter) Execute(ctx context.Context, task *Task, agent *Agent) (*AdapterResult, error) {
	s.calls = append(s.calls, task.TaskID.String())
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTestCoordinator(t *testing.T, fc *clock.Fake, generic Adapter) *Coordinator {
	t.Helper()
	return New(Options{
		Weights:        defaultWeights(),
		Budget:         Budget{MaxTotalCostPerHour: 50, EmergencyShutdownThreshold: 100},
		Quota:          Quota{MaxTasksPerUserPerHour: 20},
		Retention:      Retention{TaskHistory: 24 * time.Hour},
		Clock:          fc,
		GenericAdapter: generic,
	})
}

func newAgent(id string, caps ...string) *Agent {
	return &Agent{
		AgentID:            id,
		Name:               id,
		Capabilities:       caps,
		Status:             AgentIdle,
		MaxConcurrentTasks: 5,
		CostPerToken:       0.001,
		SLAResponseSeconds: 60,
	}
}

// waitForCompletion polls until the task leaves activeTasks or the
// deadline passes; adapter execution is dispatched on its own goroutine.
func waitForCompletion(t *testing.T, c *Coordinator, taskID string) *Task {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		task, done := c.completedTasks[taskID]
		c.mu.Unlock()
		if done {
			return task
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("task %s did not complete in time", taskID)
	return nil
}

func TestCoordinator_HappyRouting(t *testing.T) {
	fc := clock.NewFake(time.Now())
	adapter := &stubAdapter{result: &AdapterResult{Result: map[string]interface{}{"ok": true}}}
	c := newTestCoordinator(t, fc, adapter)

	agent := newAgent("A", "lead_qualification")
	require.NoError(t, c.RegisterAgent(context.Background(), agent))

	maxCost := 1.0
	taskID, err := c.SubmitTask(context.Background(), &Task{
		TaskType:             "qualify",
		Priority:             PriorityNormal,
		CapabilitiesRequired: []string{"lead_qualification"},
		MaxCost:              &maxCost,
		RequesterID:          "user-1",
	})
	require.NoError(t, err)

	completed := waitForCompletion(t, c, taskID)
	assert.Equal(t, "A", completed.AssignedAgent)
	assert.Empty(t, completed.Error)

	details := c.GetAgentDetails("A")
	require.NotNil(t, details)
	assert.Equal(t, int64(1), details.Agent.CompletedTasks)
	assert.Equal(t, AgentIdle, details.Agent.Status)
}

func TestCoordinator_CapabilityMismatchYieldsNoCandidates(t *testing.T) {
	fc := clock.NewFake(time.Now())
	c := newTestCoordinator(t, fc, &stubAdapter{})

	agent := newAgent("B", "property_matching")
	require.NoError(t, c.RegisterAgent(context.Background(), agent))

	taskID, err := c.SubmitTask(context.Background(), &Task{
		TaskType:             "qualify",
		CapabilitiesRequired: []string{"lead_qualification"},
		RequesterID:          "user-1",
	})
	require.NoError(t, err)

	completed := waitForCompletion(t, c, taskID)
	assert.Equal(t, "No capable agents available", completed.Error)
	assert.Equal(t, 0, agent.CurrentTasks)
}

func TestCoordinator_PriorityBoostTieBreak(t *testing.T) {
	fc := clock.NewFake(time.Now())
	adapter := &stubAdapter{result: &AdapterResult{}}
	c := newTestCoordinator(t, fc, adapter)

	a1 := newAgent("A1", "x")
	a2 := newAgent("A2", "x")
	require.NoError(t, c.RegisterAgent(context.Background(), a1))
	require.NoError(t, c.RegisterAgent(context.Background(), a2))

	taskID, err := c.SubmitTask(context.Background(), &Task{
		TaskType:             "t",
		Priority:             PriorityEmergency,
		CapabilitiesRequired: []string{"x"},
		RequesterID:          "user-1",
	})
	require.NoError(t, err)

	completed := waitForCompletion(t, c, taskID)
	assert.Equal(t, "A1", completed.AssignedAgent)
}

func TestCoordinator_BudgetRejectsOverBudgetSubmission(t *testing.T) {
	fc := clock.NewFake(time.Now())
	c := newTestCoordinator(t, fc, &stubAdapter{})
	c.budget = Budget{MaxTotalCostPerHour: 10, EmergencyShutdownThreshold: 100}

	tooExpensive := 50.0
	_, err := c.SubmitTask(context.Background(), &Task{
		TaskType:             "t",
		CapabilitiesRequired: []string{"x"},
		MaxCost:              &tooExpensive,
		RequesterID:          "user-1",
	})

	require.Error(t, err)
	assert.True(t, Is(err, KindBudget))
}

func TestCoordinator_QuotaEnforcement(t *testing.T) {
	fc := clock.NewFake(time.Now())
	c := newTestCoordinator(t, fc, &stubAdapter{})
	c.quota = Quota{MaxTasksPerUserPerHour: 1}

	agent := newAgent("A", "x")
	require.NoError(t, c.RegisterAgent(context.Background(), agent))

	_, err := c.SubmitTask(context.Background(), &Task{
		TaskType: "t", CapabilitiesRequired: []string{"x"}, RequesterID: "user-1",
	})
	require.NoError(t, err)

	_, err = c.SubmitTask(context.Background(), &Task{
		TaskType: "t", CapabilitiesRequired: []string{"x"}, RequesterID: "user-1",
	})
	require.Error(t, err)
	assert.True(t, Is(err, KindQuota))
}

func TestCoordinator_EmergencyShutdownClearsActiveTasksAndAgents(t *testing.T) {
	fc := clock.NewFake(time.Now())
	c := newTestCoordinator(t, fc, &stubAdapter{})

	agent := newAgent("A", "x")
	require.NoError(t, c.RegisterAgent(context.Background(), agent))

	c.mu.Lock()
	c.activeTasks["pending-task"] = &Task{TaskID: uuid.New(), Status: TaskActive, CreatedAt: fc.Now()}
	c.mu.Unlock()

	c.EmergencyShutdown(context.Background(), "budget exceeded")

	status := c.GetMeshStatus()
	assert.Equal(t, 0, status.ActiveTasks)
	assert.Equal(t, AgentMaintenance, agent.Status)
	assert.Equal(t, 0, agent.CurrentTasks)
}

func TestCoordinator_AdapterFailureReleasesAgentSlot(t *testing.T) {
	fc := clock.NewFake(time.Now())
	adapter := &stubAdapter{err: errors.New("boom")}
	c := newTestCoordinator(t, fc, adapter)

	agent := newAgent("A", "x")
	require.NoError(t, c.RegisterAgent(context.Background(), agent))

	taskID, err := c.SubmitTask(context.Background(), &Task{
		TaskType: "t", CapabilitiesRequired: []string{"x"}, RequesterID: "user-1",
	})
	require.NoError(t, err)

	completed := waitForCompletion(t, c, taskID)
	assert.Contains(t, completed.Error, "boom")
	assert.Equal(t, 0, agent.CurrentTasks)
	assert.Equal(t, AgentIdle, agent.Status)
}
