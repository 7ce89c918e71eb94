package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transient-filter/internal/config"
	"transient-filter/internal/discovery"
	"transient-filter/internal/observability"
	"transient-filter/internal/pipeline"
	"transient-filter/internal/schema"
	"transient-filter/internal/storage"
	chstore "transient-filter/internal/storage/clickhouse"
	"transient-filter/internal/storage/memory"
	"transient-filter/internal/storage/migrations"
	pgstore "transient-filter/internal/storage/postgres"
	redisstore "transient-filter/internal/storage/redis"
	"transient-filter/internal/stream"
	"transient-filter/internal/stream/stub"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "YAML config file (optional)")
	source := flag.String("source", "kafka", "Alert source: kafka, firehose, or stub")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse/Redis")
	dryRun := flag.Bool("dry-run", false, "Decide without publishing candidates")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[filter] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}

	// Start metrics server if enabled
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to signal main goroutine completion
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = run(ctx, logger, cfg, *source, *useMemory, *dryRun)

	// Signal completion to shutdown handler
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// run wires the stores, the alert source, and the publisher, then drives the
// pipeline until the context is cancelled or the source drains.
func run(ctx context.Context, logger *log.Logger, cfg *config.Config, source string, useMemory, dryRun bool) error {
	// Create stores (use interfaces)
	var seen storage.SeenCache = memory.NewSeenCache()
	var candidates storage.CandidateStore = memory.NewCandidateStore()
	var archive storage.AlertArchiveStore = memory.NewAlertArchiveStore()
	var decisions storage.DecisionStore = memory.NewDecisionStore()

	if !useMemory {
		if cfg.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required (use --use-memory for in-memory storage)")
		}

		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool.Pool); err != nil {
			return fmt.Errorf("run postgres migrations: %w", err)
		}
		candidates = pgstore.NewCandidateStore(pool)
		archive = pgstore.NewAlertArchiveStore(pool)

		if cfg.ClickhouseDSN != "" {
			conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
			if err != nil {
				return fmt.Errorf("run clickhouse migrations: %w", err)
			}
			defer conn.Close()
			decisions = chstore.NewDecisionStore(conn)
		} else {
			logger.Println("CLICKHOUSE_DSN not set, keeping decisions in memory")
		}

		if cfg.RedisAddr != "" {
			client, err := redisstore.NewClient(ctx, cfg.RedisAddr)
			if err != nil {
				return fmt.Errorf("connect to redis: %w", err)
			}
			defer client.Close()
			seen = redisstore.NewSeenCache(client, cfg.SeenTTL)
		} else {
			logger.Println("REDIS_ADDR not set, dedupe is process-local")
		}
	}

	alertSource, err := buildSource(ctx, logger, cfg, source)
	if err != nil {
		return err
	}
	defer alertSource.Close()

	var publisher stream.Publisher
	switch {
	case dryRun:
		logger.Println("Dry run: candidates will not be published")
	case len(cfg.Kafka.Brokers) == 0:
		logger.Println("KAFKA_BROKERS not set, candidates will not be published")
	default:
		intra, inter := config.ChannelTopics(cfg.Survey, cfg.TestID)
		kafkaPublisher, err := stream.NewKafkaPublisher(stream.PublisherOptions{
			Brokers:    cfg.Kafka.Brokers,
			IntraTopic: intra,
			InterTopic: inter,
			Logger:     logger,
		})
		if err != nil {
			return fmt.Errorf("create publisher: %w", err)
		}
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	engine, err := discovery.NewEngine(cfg.EngineConfig())
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	runner, err := pipeline.NewRunner(pipeline.RunnerOptions{
		Source:     alertSource,
		Engine:     engine,
		Publisher:  publisher,
		SeenCache:  seen,
		Candidates: candidates,
		Archive:    archive,
		Decisions:  decisions,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	logger.Printf("Filtering %s alerts from %s source", cfg.Survey, source)
	runErr := runner.Run(ctx)

	stats := runner.Stats()
	logger.Printf("Run finished: %d processed, %d duplicates, %d malformed, %d candidates, %d published",
		stats.Processed, stats.Duplicates, stats.Malformed, stats.Candidates, stats.Published)

	return runErr
}

// buildSource creates the alert source selected by --source.
func buildSource(ctx context.Context, logger *log.Logger, cfg *config.Config, source string) (stream.AlertSource, error) {
	switch source {
	case "kafka":
		if len(cfg.Kafka.Brokers) == 0 {
			return nil, fmt.Errorf("KAFKA_BROKERS is required for the kafka source")
		}
		mapper, err := schema.ForSurvey(cfg.Survey)
		if err != nil {
			return nil, err
		}
		return stream.NewKafkaSource(stream.KafkaSourceOptions{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.ResolvedAlertsTopic(),
			GroupID: cfg.Kafka.GroupID,
			Mapper:  mapper,
			Logger:  logger,
		})
	case "firehose":
		if cfg.WSEndpoint == "" {
			return nil, fmt.Errorf("WS_ENDPOINT is required for the firehose source")
		}
		return stream.NewFirehoseSource(ctx, cfg.WSEndpoint, cfg.Survey, nil, logger)
	case "stub":
		return stub.NewSource(stub.SourceOptions{Survey: cfg.Survey, Logger: logger}), nil
	default:
		return nil, fmt.Errorf("unknown source: %s (expected kafka, firehose, or stub)", source)
	}
}
