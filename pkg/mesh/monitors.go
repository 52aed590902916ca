package mesh

import (
	"context"
	"fmt"
	"time"
)

// AgentProbe performs a liveness check against one agent's health-check
// address. The core ships no concrete transport for this; a deployment
// supplies one (typically an HTTP GET against agent.HealthCheckURL).
type AgentProbe func(ctx context.Context, agent *Agent) error

// StartHealthMonitor probes every agent on the configured interval and
// flips unhealthy agents to Error. It runs until ctx is canceled.
func (c *Coordinator) StartHealthMonitor(ctx context.Context, interval MonitorIntervals, probe AgentProbe) {
	ticker := c.clock.NewTicker(interval.Health)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			c.runHealthCheck(ctx, probe)
		}
	}
}

func (c *Coordinator) runHealthCheck(ctx context.Context, probe AgentProbe) {
	for _, agent := range c.snapshotAgents() {
		var err error
		if probe != nil {
			err = probe(ctx, agent)
		}

		c.mu.Lock()
		if err != nil {
			agent.Status = AgentError
			c.logger.Warn("agent failed health check", map[string]interface{}{
				"agent_id": agent.AgentID,
				"error":    err.Error(),
			})
		} else {
			agent.LastHeartbeat = c.clock.Now()
		}
		c.mu.Unlock()
	}
}

// StartCostMonitor reads current-hour cost on the configured interval; it
// triggers emergency shutdown past the shutdown threshold, and the
// activity-reduction hook past the budget ceiling.
func (c *Coordinator) StartCostMonitor(ctx context.Context, interval MonitorIntervals) {
	ticker := c.clock.NewTicker(interval.Cost)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			c.runCostCheck(ctx)
		}
	}
}

func (c *Coordinator) runCostCheck(ctx context.Context) {
	c.mu.Lock()
	currentCost := c.currentHourCostLocked()
	c.mu.Unlock()

	switch {
	case currentCost > c.budget.EmergencyShutdownThreshold:
		c.EmergencyShutdown(ctx, fmt.Sprintf("Cost threshold exceeded: $%.2f", currentCost))
	case currentCost > c.budget.MaxTotalCostPerHour:
		c.logger.Warn("budget alert", map[string]interface{}{
			"current_hour_cost": currentCost,
		})
		if err := c.hooks.ReduceActivity(ctx); err != nil {
			c.logger.Error("activity reduction hook failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

// StartPerformanceMonitor watches queue wait and load imbalance on the
// configured interval, invoking the auto-scale and rebalance hooks when
// thresholds are crossed.
func (c *Coordinator) StartPerformanceMonitor(ctx context.Context, interval MonitorIntervals) {
	ticker := c.clock.NewTicker(interval.Performance)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			c.runPerformanceCheck(ctx)
		}
	}
}

const (
	queueWaitThresholdSeconds = 30.0
	loadImbalanceThreshold    = 0.3
)

func (c *Coordinator) runPerformanceCheck(ctx context.Context) {
	agents := c.snapshotAgents()
	if len(agents) == 0 {
		return
	}

	var minLoad, maxLoad float64
	minLoad = 1.0
	for i, a := range agents {
		load := a.Load()
		if i == 0 || load < minLoad {
			minLoad = load
		}
		if load > maxLoad {
			maxLoad = load
		}
	}

	if maxLoad-minLoad > loadImbalanceThreshold {
		if err := c.hooks.Rebalance(ctx); err != nil {
			c.logger.Error("rebalance hook failed", map[string]interface{}{"error": err.Error()})
		}
	}

	if c.averageQueueWaitSeconds() > queueWaitThresholdSeconds {
		if err := c.hooks.AutoScale(ctx); err != nil {
			c.logger.Error("auto-scale hook failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

// averageQueueWaitSeconds approximates time-to-assignment for pending
// tasks still sitting in activeTasks without an assigned agent.
func (c *Coordinator) averageQueueWaitSeconds() float64 {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	var total float64
	var count int
	for _, t := range c.activeTasks {
		if t.AssignedAgent == "" {
			total += now.Sub(t.CreatedAt).Seconds()
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// StartCleanupMonitor drops history entries older than the retention
// window on the configured interval.
func (c *Coordinator) StartCleanupMonitor(ctx context.Context, interval MonitorIntervals) {
	ticker := c.clock.NewTicker(interval.Cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			c.CleanupHistory()
		}
	}
}

// MonitorIntervals is the subset of config.MonitorIntervals the monitors
// need; defined here rather than importing pkg/config to keep this
// package free of a dependency on the config schema's shape.
type MonitorIntervals struct {
	Health      time.Duration
	Cost        time.Duration
	Performance time.Duration
	Cleanup     time.Duration
}
