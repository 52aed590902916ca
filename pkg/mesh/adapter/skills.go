// Package adapter implements the three executor adapters the
// coordinator dispatches by agent-name convention: a skills adapter
// for jorge_-prefixed agents, a tool-invocation adapter for
// mcp_-prefixed agents, and a generic HTTP adapter for everything
// else.
package adapter

import (
	"context"

	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/mesh"
	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/skills"
)

// UsageRecorder is the subset of the token tracker's surface this
// adapter needs, declared locally so the adapter package doesn't
// depend on pkg/tokentracker's KV-backed implementation.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, taskID string, tokens int, taskType, userID, model, approach, skillName string, confidence *float64) error
}

// SkillExecutor is the subset of *skills.Manager this adapter calls.
type SkillExecutor interface {
	ExecuteSkill(ctx context.Context, skillName string, execContext map[string]interface{}) skills.ExecutionResult
}

// SkillsAdapter routes a task into the Progressive Skills Manager's
// execute_skill, then records the resulting token usage against the
// "mesh_coordinated" approach.
type SkillsAdapter struct {
	Manager SkillExecutor
	Usage   UsageRecorder
	Model   string
}

func (a *SkillsAdapter) Execute(ctx context.Context, task *mesh.Task, agent *mesh.Agent) (*mesh.AdapterResult, error) {
	result := a.Manager.ExecuteSkill(ctx, task.TaskType, task.Payload)

	if a.Usage != nil {
		confidence := result.Confidence
		if err := a.Usage.RecordUsage(ctx, task.TaskID.String(), result.TokensEstimated, task.TaskType, task.RequesterID, a.Model, "mesh_coordinated", result.SkillUsed, &confidence); err != nil {
			return nil, mesh.WrapError(mesh.KindToolError, "skills_adapter.record_usage", err)
		}
	}

	return &mesh.AdapterResult{
		Result: map[string]interface{}{
			"skill_used":       result.SkillUsed,
			"response_content": result.ResponseContent,
			"confidence":       result.Confidence,
			"ok":               result.OK,
			"error":            result.Error,
		},
		TokensUsed: result.TokensEstimated,
	}, nil
}
