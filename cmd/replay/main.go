package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"transient-filter/internal/config"
	"transient-filter/internal/discovery"
	"transient-filter/internal/domain"
	"transient-filter/internal/replay"
	"transient-filter/internal/storage"
	chstore "transient-filter/internal/storage/clickhouse"
	"transient-filter/internal/storage/memory"
	pgstore "transient-filter/internal/storage/postgres"
)

func main() {
	// Parse flags
	survey := flag.String("survey", "", "Survey whose archive to replay (default from config)")
	startNight := flag.Int("start-night", 0, "First night bucket, inclusive (required)")
	endNight := flag.Int("end-night", 0, "Last night bucket, inclusive (required)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (default from config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string, omit to replay without comparison")
	configPath := flag.String("config", "", "YAML config file for engine thresholds (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	// Setup structured logger
	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	// Validate required flags
	if *startNight == 0 || *endNight == 0 {
		logger.Fatal("--start-night and --end-night are required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	if *survey == "" {
		*survey = cfg.Survey
	}
	if *postgresDSN == "" {
		*postgresDSN = cfg.PostgresDSN
	}
	if *clickhouseDSN == "" {
		*clickhouseDSN = cfg.ClickhouseDSN
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Create stores
	var archive storage.AlertArchiveStore = memory.NewAlertArchiveStore()
	var decisions storage.DecisionStore

	if !*useMemory {
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
		}
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()
		archive = pgstore.NewAlertArchiveStore(pool)

		if *clickhouseDSN != "" {
			conn, err := chstore.NewConn(ctx, *clickhouseDSN)
			if err != nil {
				logger.Fatalf("connect to clickhouse: %v", err)
			}
			defer conn.Close()
			decisions = chstore.NewDecisionStore(conn)
		} else {
			logger.Println("No ClickHouse DSN, replaying without comparison")
		}
	}

	// Create engine with the configured thresholds
	engine, err := discovery.NewEngine(cfg.EngineConfig())
	if err != nil {
		logger.Fatalf("create engine: %v", err)
	}

	verifier, err := replay.NewVerifier(replay.VerifierOptions{
		Archive:   archive,
		Decisions: decisions,
		Engine:    engine,
	})
	if err != nil {
		logger.Fatalf("create verifier: %v", err)
	}

	logger.Printf("Replaying %s nights %d-%d", *survey, *startNight, *endNight)
	report, err := verifier.Run(ctx, *survey, *startNight, *endNight)
	if err != nil {
		logger.Fatalf("replay failed: %v", err)
	}

	// Output summary
	if *outputJSON {
		output, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("\n=== Replay Summary ===\n")
		fmt.Printf("Survey:           %s\n", report.Survey)
		fmt.Printf("Nights:           %d-%d\n", report.StartNight, report.EndNight)
		fmt.Printf("Alerts Replayed:  %d\n", report.Total)
		fmt.Printf("Candidates:       %d\n", report.Candidates)
		fmt.Printf("Malformed:        %d\n", report.Malformed)
		fmt.Printf("Intra-Night:      %d\n", report.ByOutcome[domain.OutcomeIntraNight])
		fmt.Printf("Inter-Night:      %d\n", report.ByOutcome[domain.OutcomeInterNight])
		fmt.Printf("No Discovery:     %d\n", report.ByOutcome[domain.OutcomeNoDiscovery])
		if decisions != nil {
			fmt.Printf("Compared:         %d\n", report.Compared)
			fmt.Printf("Matched:          %d\n", report.Matched)
			fmt.Printf("Divergent:        %d\n", report.Divergent)
			fmt.Printf("Missing Rows:     %d\n", report.MissingRows)
		}

		for _, result := range report.Results {
			if result.Match {
				continue
			}
			for _, d := range result.Divergences {
				fmt.Printf("alert=%d object=%s field=%s stored=%v replayed=%v\n",
					result.AlertID, result.ObjectID, d.Field, d.Stored, d.Replayed)
			}
		}
	}

	// Non-zero exit keeps drift visible to CI and cron wrappers
	if report.Divergent > 0 {
		os.Exit(1)
	}
}
