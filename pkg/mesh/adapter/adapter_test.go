package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/mesh"
	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/skills"
)

type stubExecutor struct {
	result skills.ExecutionResult
}

func (s *stubExecutor) ExecuteSkill(ctx context.Context, skillName string, execContext map[string]interface{}) skills.ExecutionResult {
	return s.result
}

type stubUsage struct {
	calls int
	err   error
}

func (s *stubUsage) RecordUsage(ctx context.Context, taskID string, tokens int, taskType, userID, model, approach, skillName string, confidence *float64) error {
	s.calls++
	return s.err
}

func TestSkillsAdapter_RecordsUsageAfterExecution(t *testing.T) {
	executor := &stubExecutor{result: skills.ExecutionResult{SkillUsed: "jorge_stall_breaker", Confidence: 0.9, TokensEstimated: 169, OK: true}}
	usage := &stubUsage{}
	a := &SkillsAdapter{Manager: executor, Usage: usage, Model: "claude-3-sonnet"}

	task := &mesh.Task{TaskID: uuid.New(), TaskType: "qualify", Payload: map[string]interface{}{}, RequesterID: "user-1"}
	agent := &mesh.Agent{AgentID: "jorge_bot"}

	result, err := a.Execute(context.Background(), task, agent)
	require.NoError(t, err)
	assert.Equal(t, 169, result.TokensUsed)
	assert.Equal(t, 1, usage.calls)
	assert.Equal(t, true, result.Result["ok"])
}

type stubToolPort struct {
	result map[string]interface{}
	err    error
}

func (s *stubToolPort) CallTool(ctx context.Context, server, tool string, args map[string]interface{}) (map[string]interface{}, error) {
	return s.result, s.err
}

func TestToolInvocationAdapter_ParsesServerToolEndpoint(t *testing.T) {
	port := &stubToolPort{result: map[string]interface{}{"ok": true}}
	a := &ToolInvocationAdapter{Port: port}

	task := &mesh.Task{TaskID: uuid.New(), Payload: map[string]interface{}{}}
	agent := &mesh.Agent{AgentID: "mcp_github", TransportEndpoint: "github:create_issue"}

	result, err := a.Execute(context.Background(), task, agent)
	require.NoError(t, err)
	assert.Equal(t, true, result.Result["ok"])
}

func TestToolInvocationAdapter_MalformedEndpointIsValidationError(t *testing.T) {
	a := &ToolInvocationAdapter{Port: &stubToolPort{}}
	task := &mesh.Task{TaskID: uuid.New()}
	agent := &mesh.Agent{AgentID: "mcp_github", TransportEndpoint: "no-colon-here"}

	_, err := a.Execute(context.Background(), task, agent)
	require.Error(t, err)
	assert.True(t, mesh.Is(err, mesh.KindValidation))
}

func TestGenericAdapter_PostsPayloadAndParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "qualify", body["task_type"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": "ok", "tokens_used": float64(42)})
	}))
	defer server.Close()

	a := &GenericAdapter{}
	task := &mesh.Task{TaskID: uuid.New(), Payload: map[string]interface{}{"task_type": "qualify"}}
	agent := &mesh.Agent{AgentID: "generic_bot", TransportEndpoint: server.URL}

	result, err := a.Execute(context.Background(), task, agent)
	require.NoError(t, err)
	assert.Equal(t, 42, result.TokensUsed)
}

func TestGenericAdapter_ClientErrorIsNotRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	a := &GenericAdapter{MaxRetries: 3}
	task := &mesh.Task{TaskID: uuid.New(), Payload: map[string]interface{}{}}
	agent := &mesh.Agent{AgentID: "generic_bot", TransportEndpoint: server.URL}

	_, err := a.Execute(context.Background(), task, agent)
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}
