package adapter

import (
	"context"
	"strings"

	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/mesh"
)

// ToolPort is the subset of toolport.Port this adapter calls.
type ToolPort interface {
	CallTool(ctx context.Context, server, tool string, args map[string]interface{}) (map[string]interface{}, error)
}

// ToolInvocationAdapter dispatches a task to a remote tool addressed
// by the agent's transport endpoint, formatted "server:tool".
type ToolInvocationAdapter struct {
	Port ToolPort
}

func (a *ToolInvocationAdapter) Execute(ctx context.Context, task *mesh.Task, agent *mesh.Agent) (*mesh.AdapterResult, error) {
	server, tool, ok := splitEndpoint(agent.TransportEndpoint)
	if !ok {
		return nil, mesh.NewError(mesh.KindValidation, "tool_invocation_adapter.execute",
			"agent transport endpoint must be \"server:tool\": "+agent.TransportEndpoint)
	}

	result, err := a.Port.CallTool(ctx, server, tool, task.Payload)
	if err != nil {
		if ctx.Err() != nil {
			return nil, mesh.WrapError(mesh.KindDeadlineExceeded, "tool_invocation_adapter.execute", ctx.Err())
		}
		return nil, mesh.WrapError(mesh.KindToolError, "tool_invocation_adapter.execute", err)
	}

	tokensUsed := 0
	if v, ok := result["tokens_used"].(float64); ok {
		tokensUsed = int(v)
	}

	return &mesh.AdapterResult{Result: result, TokensUsed: tokensUsed}, nil
}

func splitEndpoint(endpoint string) (server, tool string, ok bool) {
	idx := strings.IndexByte(endpoint, ':')
	if idx < 0 {
		return "", "", false
	}
	return endpoint[:idx], endpoint[idx+1:], true
}
