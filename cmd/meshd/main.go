package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/config"
	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/health"
	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/kv"
	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/mesh"
	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/mesh/adapter"
	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/observability"
	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/skills"
	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/tokentracker"
	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/toolport"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		panic("meshd: failed to load configuration: " + err.Error())
	}

	logger := newLogger(cfg)
	metrics := observability.NewMetricsClientWithOptions(observability.MetricsOptions{
		Namespace: "mesh",
	})

	store := newKVStore(cfg, logger)
	defer store.Close()

	llm := newToolPort(cfg, logger)
	defer llm.Close()

	tracker := tokentracker.New(tokentracker.Config{
		Store:     store,
		Pricing:   cfg.Pricing,
		Retention: cfg.Retention,
		Logger:    logger,
		Metrics:   metrics,
	})

	skillsManager, err := skills.NewManager(skills.Config{
		SkillsPath:       "configs/skills",
		RegistryPath:     cfg.Skills.RegistryPath,
		ContentCacheSize: cfg.Skills.ContentCacheSize,
		LLM:              llm,
		UsageRecorder:    tracker,
		Logger:           logger,
		Metrics:          metrics,
	})
	if err != nil {
		panic("meshd: failed to initialize skills manager: " + err.Error())
	}

	coordinator := mesh.New(mesh.Options{
		Weights: mesh.RoutingWeights{
			Performance:    cfg.Routing.Performance,
			Availability:   cfg.Routing.Availability,
			CostEfficiency: cfg.Routing.CostEfficiency,
			ResponseTime:   cfg.Routing.ResponseTime,
		},
		Budget: mesh.Budget{
			MaxTotalCostPerHour:        cfg.Budget.MaxTotalCostPerHour,
			EmergencyShutdownThreshold: cfg.Budget.EmergencyShutdownThreshold,
		},
		Quota: mesh.Quota{MaxTasksPerUserPerHour: cfg.Quota.MaxTasksPerUserPerHour},
		Retention: mesh.Retention{
			TaskHistory: cfg.Retention.TaskHistory,
		},
		Logger:  logger,
		Metrics: metrics,

		SkillsAdapter: &adapter.SkillsAdapter{
			Manager: skillsManager,
			Usage:   tracker,
			Model:   "claude-3-sonnet",
		},
		ToolAdapter:    &adapter.ToolInvocationAdapter{Port: llm},
		GenericAdapter: &adapter.GenericAdapter{},
	})

	monitorIntervals := mesh.MonitorIntervals{
		Health:      cfg.Monitors.Health,
		Cost:        cfg.Monitors.Cost,
		Performance: cfg.Monitors.Performance,
		Cleanup:     cfg.Monitors.Cleanup,
	}

	go coordinator.StartHealthMonitor(ctx, monitorIntervals, httpHealthProbe)
	go coordinator.StartCostMonitor(ctx, monitorIntervals)
	go coordinator.StartPerformanceMonitor(ctx, monitorIntervals)
	go coordinator.StartCleanupMonitor(ctx, monitorIntervals)

	checker := health.NewHealthChecker(logger, metrics)
	checker.RegisterCheck("kv", health.NewKVHealthCheck("kv", store))
	checker.StartBackgroundChecks(ctx)

	router := gin.New()
	router.Use(gin.Recovery())
	checker.RegisterRoutes(router)

	opsServer := &http.Server{
		Addr:    cfg.Ops.ListenAddress,
		Handler: router,
	}

	go func() {
		logger.Info("starting ops server", map[string]interface{}{"address": cfg.Ops.ListenAddress})
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops server stopped unexpectedly", map[string]interface{}{"error": err.Error()})
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("received shutdown signal", nil)

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", map[string]interface{}{"error": err.Error()})
	}

	logger.Info("meshd stopped gracefully", nil)
}

func newLogger(cfg *config.Config) observability.Logger {
	if cfg.IsProduction() {
		return observability.NewStandardLogger("meshd")
	}
	return observability.NewDevelopmentLogger("meshd")
}

func newKVStore(cfg *config.Config, logger observability.Logger) kv.Store {
	store, err := kv.NewRedisStore(kv.RedisConfig{
		Address:      cfg.KV.Address,
		Password:     cfg.KV.Password,
		Database:     cfg.KV.Database,
		DialTimeout:  cfg.KV.DialTimeout,
		ReadTimeout:  cfg.KV.ReadTimeout,
		WriteTimeout: cfg.KV.WriteTimeout,
		PoolSize:     cfg.KV.PoolSize,
		UseTLS:       cfg.KV.UseTLS,
	})
	if err != nil {
		logger.Warn("redis unavailable, falling back to in-memory store", map[string]interface{}{"error": err.Error()})
		return kv.NewMemoryStore()
	}
	return store
}

func newToolPort(cfg *config.Config, logger observability.Logger) toolport.Port {
	url := os.Getenv("MESH_TOOL_WS_URL")
	if url == "" {
		logger.Info("no tool websocket url configured, using http tool port", nil)
		return toolport.NewHTTPPort(os.Getenv("MESH_TOOL_HTTP_URL"), os.Getenv("MESH_TOOL_API_KEY"))
	}

	dialCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	port, err := toolport.DialWS(dialCtx, url, os.Getenv("MESH_TOOL_API_KEY"))
	if err != nil {
		logger.Warn("failed to dial tool websocket, falling back to http tool port", map[string]interface{}{"error": err.Error()})
		return toolport.NewHTTPPort(os.Getenv("MESH_TOOL_HTTP_URL"), os.Getenv("MESH_TOOL_API_KEY"))
	}
	return port
}

// httpHealthProbe is the default AgentProbe: a GET against the agent's
// health-check URL with a short deadline, treating any non-2xx status as
// unhealthy.
func httpHealthProbe(ctx context.Context, agent *mesh.Agent) error {
	if agent.HealthCheckURL == "" {
		return nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, agent.HealthCheckURL, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return &probeError{status: resp.StatusCode}
	}
	return nil
}

type probeError struct {
	status int
}

func (e *probeError) Error() string {
	return "health probe returned status " + http.StatusText(e.status)
}
