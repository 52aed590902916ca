package mesh

import "context"

// Hooks are the governance capability interfaces the background monitors
// invoke on threshold breach. The core ships no-op defaults; a deployment
// wires in real auto-scaling, rebalancing, and alerting behavior.
type Hooks interface {
	AutoScale(ctx context.Context) error
	Rebalance(ctx context.Context) error
	ReduceActivity(ctx context.Context) error
	EmergencyAlert(ctx context.Context, reason string) error
}

// NoopHooks implements Hooks with no-ops, suitable for a deployment that
// has not wired a scaling or alerting backend yet.
type NoopHooks struct{}

func (NoopHooks) AutoScale(ctx context.Context) error           { return nil }
func (NoopHooks) Rebalance(ctx context.Context) error           { return nil }
func (NoopHooks) ReduceActivity(ctx context.Context) error      { return nil }
func (NoopHooks) EmergencyAlert(ctx context.Context, reason string) error { return nil }
