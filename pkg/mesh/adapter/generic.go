package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/mesh"
)

// GenericAdapter posts a task's payload to an agent's HTTP endpoint
// and parses the JSON reply, retrying transient failures with
// exponential backoff (grounded on the teacher's
// pkg/adapters/resilience.Retry pattern).
type GenericAdapter struct {
	Client *http.Client

	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (a *GenericAdapter) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return http.DefaultClient
}

func (a *GenericAdapter) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if a.InitialInterval > 0 {
		b.InitialInterval = a.InitialInterval
	}
	if a.MaxInterval > 0 {
		b.MaxInterval = a.MaxInterval
	}

	maxRetries := a.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx)
}

func (a *GenericAdapter) Execute(ctx context.Context, task *mesh.Task, agent *mesh.Agent) (*mesh.AdapterResult, error) {
	body, err := json.Marshal(task.Payload)
	if err != nil {
		return nil, mesh.WrapError(mesh.KindValidation, "generic_adapter.execute", err)
	}

	var result map[string]interface{}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, agent.TransportEndpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.client().Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("agent endpoint returned status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("agent endpoint returned status %d", resp.StatusCode))
		}

		return json.NewDecoder(resp.Body).Decode(&result)
	}

	if err := backoff.Retry(op, a.backOff(ctx)); err != nil {
		if ctx.Err() != nil {
			return nil, mesh.WrapError(mesh.KindDeadlineExceeded, "generic_adapter.execute", ctx.Err())
		}
		return nil, mesh.WrapError(mesh.KindTransportError, "generic_adapter.execute", err)
	}

	tokensUsed := 0
	if v, ok := result["tokens_used"].(float64); ok {
		tokensUsed = int(v)
	}

	return &mesh.AdapterResult{Result: result, TokensUsed: tokensUsed}, nil
}
