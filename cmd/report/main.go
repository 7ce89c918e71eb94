package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"transient-filter/internal/config"
	"transient-filter/internal/reporting"
	"transient-filter/internal/storage"
	chstore "transient-filter/internal/storage/clickhouse"
	"transient-filter/internal/storage/memory"
	pgstore "transient-filter/internal/storage/postgres"
)

func main() {
	// Parse flags
	survey := flag.String("survey", "", "Survey to report on (default from config)")
	startNight := flag.Int("start-night", 0, "First night bucket, inclusive (required)")
	endNight := flag.Int("end-night", 0, "Last night bucket, inclusive (required)")
	outputDir := flag.String("output-dir", "docs", "Output directory for generated files")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (default from config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (default from config)")
	configPath := flag.String("config", "", "YAML config file (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of database")
	fixedClock := flag.String("fixed-clock", "", "RFC3339 generation timestamp for deterministic output")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
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

	// Validate flags
	if *startNight == 0 || *endNight == 0 {
		fmt.Fprintln(os.Stderr, "Error: --start-night and --end-night are required")
		os.Exit(1)
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn and --clickhouse-dsn are required when not using --use-memory")
		os.Exit(1)
	}

	// Create stores based on mode
	var candidates storage.CandidateStore = memory.NewCandidateStore()
	var decisions storage.DecisionStore = memory.NewDecisionStore()

	if !*useMemory {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
			os.Exit(1)
		}
		defer pool.Close()
		candidates = pgstore.NewCandidateStore(pool)

		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to clickhouse: %v\n", err)
			os.Exit(1)
		}
		defer conn.Close()
		decisions = chstore.NewDecisionStore(conn)
	}

	// Create generator, with a fixed clock when deterministic output is wanted
	generator := reporting.NewGenerator(candidates, decisions)
	if *fixedClock != "" {
		t, err := time.Parse(time.RFC3339, *fixedClock)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing --fixed-clock: %v\n", err)
			os.Exit(1)
		}
		generator = generator.WithClock(func() time.Time { return t })
	}

	report, err := generator.Generate(ctx, *survey, *startNight, *endNight)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	if err := reporting.WriteFiles(*outputDir, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Discovery report generated successfully:")
	fmt.Printf("  - %s/%s\n", *outputDir, reporting.MarkdownFile)
	fmt.Printf("  - %s/%s\n", *outputDir, reporting.NightsCSVFile)
	fmt.Printf("  - %s/%s\n", *outputDir, reporting.ObjectsCSVFile)
}
