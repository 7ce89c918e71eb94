package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"transient-filter/internal/config"
	"transient-filter/internal/storage"
	"transient-filter/internal/storage/memory"
	pgstore "transient-filter/internal/storage/postgres"
	"transient-filter/internal/sweep"
)

func main() {
	// Parse flags
	survey := flag.String("survey", "", "Survey whose archive to sweep (default from config)")
	startNight := flag.Int("start-night", 0, "First night bucket, inclusive (required)")
	endNight := flag.Int("end-night", 0, "Last night bucket, inclusive (required)")

	// Grid dimensions; empty dimensions keep the configured value
	sigmas := flag.String("sigmas", "", "Comma-separated clip thresholds, e.g. 2,2.5,3")
	cropRadii := flag.String("crop-radii", "", "Comma-separated second-pass crop radii, e.g. 8,12,16")
	detectionPixels := flag.String("detection-pixels", "", "Comma-separated detection pixel caps, e.g. 3,5,8")
	cleanPixels := flag.String("clean-pixels", "", "Comma-separated clean pixel floors, e.g. 1,3")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (default from config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")

	// Output
	configPath := flag.String("config", "", "YAML config file for base thresholds (optional)")
	output := flag.String("output", "", "Write the markdown report to this file instead of stdout")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[sweep] ", log.LstdFlags)

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
	}

	// Build the grid
	grid, err := buildGrid(*sigmas, *cropRadii, *detectionPixels, *cleanPixels)
	if err != nil {
		logger.Fatalf("parse grid: %v", err)
	}

	variants, err := grid.Variants(cfg.ClippingConfig())
	if err != nil {
		logger.Fatalf("expand grid: %v", err)
	}

	runner, err := sweep.NewRunner(sweep.RunnerOptions{
		Archive: archive,
		Engine:  cfg.EngineConfig(),
		Logger:  logger,
	})
	if err != nil {
		logger.Fatalf("create runner: %v", err)
	}

	logger.Printf("Sweeping %s nights %d-%d with %d variants", *survey, *startNight, *endNight, len(variants))
	result, err := runner.Run(ctx, *survey, *startNight, *endNight, variants)
	if err != nil {
		logger.Fatalf("sweep failed: %v", err)
	}

	markdown := sweep.RenderMarkdown(result)
	if *output != "" {
		if err := os.WriteFile(*output, []byte(markdown), 0644); err != nil {
			logger.Fatalf("write report: %v", err)
		}
		logger.Printf("Sweep report written to %s", *output)
	} else {
		fmt.Print(markdown)
	}
}

// buildGrid parses the comma-separated dimension flags into a sweep grid.
func buildGrid(sigmas, cropRadii, detectionPixels, cleanPixels string) (sweep.Grid, error) {
	var grid sweep.Grid
	var err error

	if grid.Sigmas, err = parseFloats(sigmas); err != nil {
		return sweep.Grid{}, fmt.Errorf("sigmas: %w", err)
	}
	if grid.CropRadii, err = parseInts(cropRadii); err != nil {
		return sweep.Grid{}, fmt.Errorf("crop-radii: %w", err)
	}
	if grid.DetectionPixels, err = parseInts(detectionPixels); err != nil {
		return sweep.Grid{}, fmt.Errorf("detection-pixels: %w", err)
	}
	if grid.CleanPixels, err = parseInts(cleanPixels); err != nil {
		return sweep.Grid{}, fmt.Errorf("clean-pixels: %w", err)
	}

	return grid, nil
}

// parseFloats parses a comma-separated list of floats. Empty input is an
// empty dimension, not an error.
func parseFloats(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", part, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseInts parses a comma-separated list of integers. Empty input is an
// empty dimension, not an error.
func parseInts(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", part, err)
		}
		out = append(out, v)
	}
	return out, nil
}
