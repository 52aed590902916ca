package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/config"
	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/mesh"
)

func TestHttpHealthProbe_EmptyURLIsHealthy(t *testing.T) {
	err := httpHealthProbe(context.Background(), &mesh.Agent{})
	assert.NoError(t, err)
}

func TestHttpHealthProbe_2xxIsHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := httpHealthProbe(context.Background(), &mesh.Agent{HealthCheckURL: server.URL})
	assert.NoError(t, err)
}

func TestHttpHealthProbe_5xxIsUnhealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := httpHealthProbe(context.Background(), &mesh.Agent{HealthCheckURL: server.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Service Unavailable")
}

func TestHttpHealthProbe_UnreachableURLIsUnhealthy(t *testing.T) {
	err := httpHealthProbe(context.Background(), &mesh.Agent{HealthCheckURL: "http://127.0.0.1:1"})
	assert.Error(t, err)
}

func TestNewLogger_SelectsByEnvironment(t *testing.T) {
	prod := &config.Config{Environment: "production"}
	assert.NotNil(t, newLogger(prod))

	dev := &config.Config{Environment: "dev"}
	assert.NotNil(t, newLogger(dev))
}
