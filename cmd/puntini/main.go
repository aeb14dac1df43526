package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ogghst/puntini/internal/application/orchestrator"
	"github.com/ogghst/puntini/internal/application/tools"
	"github.com/ogghst/puntini/internal/application/workers"
	"github.com/ogghst/puntini/internal/config"
	"github.com/ogghst/puntini/internal/ports"
	eventsmemory "github.com/ogghst/puntini/pkg/adapters/events/memory"
	eventsredis "github.com/ogghst/puntini/pkg/adapters/events/redis"
	graphmemory "github.com/ogghst/puntini/pkg/adapters/graph/memory"
	graphneo4j "github.com/ogghst/puntini/pkg/adapters/graph/neo4j"
	"github.com/ogghst/puntini/pkg/adapters/llm"
	"github.com/ogghst/puntini/pkg/adapters/metrics/nop"
	"github.com/ogghst/puntini/pkg/adapters/metrics/prometheus"
	"github.com/ogghst/puntini/pkg/adapters/resolver"
	statememory "github.com/ogghst/puntini/pkg/adapters/state/memory"
	stateredis "github.com/ogghst/puntini/pkg/adapters/state/redis"
	"github.com/ogghst/puntini/pkg/api/http"
	"github.com/ogghst/puntini/pkg/api/websocket"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting puntini",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	ctx := context.Background()

	// Redis client, shared by the state and event adapters when selected.
	var redisClient *goredis.Client
	if cfg.StateBackend == "redis" || cfg.EventBackend == "redis" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	var metricsCollector ports.MetricsCollector
	if cfg.MetricsEnabled {
		metricsCollector = prometheus.NewCollector()
	} else {
		metricsCollector = nop.NewCollector()
	}

	var graphStore ports.GraphStore
	switch cfg.GraphBackend {
	case "neo4j":
		graphStore, err = graphneo4j.NewGraphStore(ctx, graphneo4j.Config{
			URI:      cfg.Neo4j.URI,
			Username: cfg.Neo4j.Username,
			Password: cfg.Neo4j.Password,
			Database: cfg.Neo4j.Database,
		}, logger)
		if err != nil {
			logger.Fatal("failed to connect to Neo4j", zap.Error(err))
		}
		logger.Info("connected to Neo4j", zap.String("uri", cfg.Neo4j.URI))
	default:
		graphStore = graphmemory.NewGraphStore()
	}

	var stateStore ports.StateStore
	switch cfg.StateBackend {
	case "redis":
		stateStore = stateredis.NewStateStore(redisClient, cfg.Execution.CheckpointTTL, logger)
	default:
		stateStore = statememory.NewStateStore()
	}

	var eventBus ports.EventBus
	switch cfg.EventBackend {
	case "redis":
		eventBus = eventsredis.NewStreamsEventBus(
			redisClient,
			"puntini-workers",
			fmt.Sprintf("puntini-%d", os.Getpid()),
			logger,
		)
	default:
		eventBus = eventsmemory.NewEventBus()
	}

	planner, err := llm.NewPlanner(&llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		Metrics:  metricsCollector,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("failed to create planner client", zap.Error(err))
	}

	entityResolver := resolver.New("", logger)
	executor := tools.NewExecutor(graphStore, metricsCollector, logger)

	workerPool := workers.NewPool(
		cfg.Workers.PoolSize,
		cfg.Workers.QueueDepth,
		metricsCollector,
		logger,
		cfg.Workers.HealthCheckInterval,
	)
	if err := workerPool.Start(); err != nil {
		logger.Fatal("failed to start worker pool", zap.Error(err))
	}

	orchestratorMgr := orchestrator.NewManager(
		planner,
		entityResolver,
		executor,
		graphStore,
		stateStore,
		eventBus,
		metricsCollector,
		workerPool,
		logger,
		orchestrator.Options{
			MaxRetries:    cfg.Execution.MaxRetries,
			StepLimit:     cfg.Execution.StepLimit,
			BackoffBase:   cfg.Execution.BackoffBase,
			CheckpointTTL: cfg.Execution.CheckpointTTL,
		},
	)

	httpServer := http.NewServer(&http.Config{
		Port:           cfg.HTTPPort,
		Orchestrator:   orchestratorMgr,
		Graph:          graphStore,
		MetricsEnabled: cfg.MetricsEnabled,
		Logger:         logger,
	})

	wsHandler := websocket.NewHandler(eventBus, logger)
	httpServer.SetupWebSocket(wsHandler)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	logger.Info("puntini started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.String("graph_backend", cfg.GraphBackend),
		zap.String("state_backend", cfg.StateBackend),
		zap.Int("worker_pool_size", cfg.Workers.PoolSize))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := orchestratorMgr.Shutdown(shutdownCtx); err != nil {
		logger.Error("orchestrator shutdown error", zap.Error(err))
	}

	if err := workerPool.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker pool shutdown error", zap.Error(err))
	}

	if err := eventBus.Close(); err != nil {
		logger.Error("event bus close error", zap.Error(err))
	}

	if err := graphStore.Close(shutdownCtx); err != nil {
		logger.Error("graph store close error", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("puntini shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
