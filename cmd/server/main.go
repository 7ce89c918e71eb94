// Package main provides the unified filter service that runs all components
// together:
// - Filtering (continuous): alert stream, discovery decisions, channel publish
// - Reporting (scheduled): DISCOVERY_REPORT.md, CSVs
// - HTTP: health, Prometheus metrics, status, candidate/decision lookups
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"transient-filter/internal/config"
	"transient-filter/internal/discovery"
	"transient-filter/internal/domain"
	"transient-filter/internal/mjd"
	"transient-filter/internal/observability"
	"transient-filter/internal/pipeline"
	"transient-filter/internal/reporting"
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

// Server holds all components of the unified service.
type Server struct {
	// Configuration
	cfg            *config.Config
	source         string
	useMemory      bool
	dryRun         bool
	outputDir      string
	reportInterval time.Duration
	reportWindow   int

	// Stores
	stores *allStores

	// Components
	runner *pipeline.Runner
	logger *log.Logger

	// State
	mu            sync.Mutex
	lastReportRun time.Time
	reportRunning bool
	filterStarted time.Time

	// Stats
	reportRuns int
}

// allStores holds all storage implementations.
type allStores struct {
	seen       storage.SeenCache
	candidates storage.CandidateStore
	archive    storage.AlertArchiveStore
	decisions  storage.DecisionStore
}

func main() {
	// Parse flags
	configPath := flag.String("config", "", "YAML config file (optional)")
	source := flag.String("source", "kafka", "Alert source: kafka, firehose, or stub")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse/Redis")
	dryRun := flag.Bool("dry-run", false, "Decide without publishing candidates")
	outputDir := flag.String("output-dir", "output", "Output directory for reports")
	reportInterval := flag.Duration("report-interval", 6*time.Hour, "Report generation interval")
	reportWindow := flag.Int("report-window", 30, "How many nights back each report covers")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanup, err := createStores(ctx, logger, cfg, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Create server
	server := &Server{
		cfg:            cfg,
		source:         *source,
		useMemory:      *useMemory,
		dryRun:         *dryRun,
		outputDir:      *outputDir,
		reportInterval: *reportInterval,
		reportWindow:   *reportWindow,
		stores:         stores,
		logger:         logger,
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

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

	// Start HTTP server
	go server.startHTTPServer(cfg.MetricsAddr)

	// Run the unified server
	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates all required stores.
func createStores(ctx context.Context, logger *log.Logger, cfg *config.Config, useMemory bool) (*allStores, func(), error) {
	stores := &allStores{
		seen:       memory.NewSeenCache(),
		candidates: memory.NewCandidateStore(),
		archive:    memory.NewAlertArchiveStore(),
		decisions:  memory.NewDecisionStore(),
	}
	if useMemory {
		return stores, func() {}, nil
	}

	if cfg.PostgresDSN == "" {
		return nil, nil, fmt.Errorf("POSTGRES_DSN is required (use --use-memory for in-memory storage)")
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool.Pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}
	stores.candidates = pgstore.NewCandidateStore(pool)
	stores.archive = pgstore.NewAlertArchiveStore(pool)

	// ClickHouse (analytics warehouse, optional)
	var conn *chstore.Conn
	if cfg.ClickhouseDSN != "" {
		conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		stores.decisions = chstore.NewDecisionStore(conn)
	} else {
		logger.Println("CLICKHOUSE_DSN not set, keeping decisions in memory")
	}

	// Redis (shared dedupe, optional)
	var client *redisstore.Client
	if cfg.RedisAddr != "" {
		client, err = redisstore.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			if conn != nil {
				conn.Close()
			}
			pool.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		stores.seen = redisstore.NewSeenCache(client, cfg.SeenTTL)
	} else {
		logger.Println("REDIS_ADDR not set, dedupe is process-local")
	}

	cleanup := func() {
		if client != nil {
			client.Close()
		}
		if conn != nil {
			conn.Close()
		}
		pool.Close()
	}

	return stores, cleanup, nil
}

// Run starts the unified server with all components.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting unified server...")

	// Create error channel for goroutines
	errCh := make(chan error, 2)

	// Start filtering in background
	go func() {
		err := s.runFilter(ctx)
		if err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("filter: %w", err)
		}
	}()

	// Start report scheduler in background
	go func() {
		err := s.runReportScheduler(ctx)
		if err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("report scheduler: %w", err)
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runFilter runs continuous alert filtering.
func (s *Server) runFilter(ctx context.Context) error {
	s.logger.Println("Starting filter...")

	alertSource, err := buildSource(ctx, s.logger, s.cfg, s.source)
	if err != nil {
		return err
	}
	defer alertSource.Close()

	var publisher stream.Publisher
	switch {
	case s.dryRun:
		s.logger.Println("Dry run: candidates will not be published")
	case len(s.cfg.Kafka.Brokers) == 0:
		s.logger.Println("KAFKA_BROKERS not set, candidates will not be published")
	default:
		intra, inter := config.ChannelTopics(s.cfg.Survey, s.cfg.TestID)
		kafkaPublisher, err := stream.NewKafkaPublisher(stream.PublisherOptions{
			Brokers:    s.cfg.Kafka.Brokers,
			IntraTopic: intra,
			InterTopic: inter,
			Logger:     s.logger,
		})
		if err != nil {
			return fmt.Errorf("create publisher: %w", err)
		}
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	engine, err := discovery.NewEngine(s.cfg.EngineConfig())
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	runner, err := pipeline.NewRunner(pipeline.RunnerOptions{
		Source:     alertSource,
		Engine:     engine,
		Publisher:  publisher,
		SeenCache:  s.stores.seen,
		Candidates: s.stores.candidates,
		Archive:    s.stores.archive,
		Decisions:  s.stores.decisions,
		Logger:     log.New(os.Stdout, "[filter] ", log.LstdFlags|log.Lshortfile),
	})
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	s.mu.Lock()
	s.runner = runner
	s.filterStarted = time.Now()
	s.mu.Unlock()

	s.logger.Printf("Filtering %s alerts from %s source", s.cfg.Survey, s.source)
	return runner.Run(ctx)
}

// runReportScheduler runs report generation on schedule.
func (s *Server) runReportScheduler(ctx context.Context) error {
	s.logger.Printf("Starting report scheduler (interval: %v)...", s.reportInterval)

	// Give the filter a head start so the first report has decisions
	time.Sleep(1 * time.Minute)

	// Run immediately after the warmup
	s.runReport(ctx)

	ticker := time.NewTicker(s.reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runReport(ctx)
		}
	}
}

// runReport generates reports.
func (s *Server) runReport(ctx context.Context) {
	s.mu.Lock()
	if s.reportRunning {
		s.mu.Unlock()
		s.logger.Println("Report generation already running, skipping...")
		return
	}
	s.reportRunning = true
	runner := s.runner
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.reportRunning = false
		s.lastReportRun = time.Now()
		s.reportRuns++
		s.mu.Unlock()
	}()

	s.logger.Println("Generating report...")
	start := time.Now()

	now := time.Now().UTC()
	endNight := mjd.FromDate(now.Year(), now.Month(), now.Day())
	startNight := endNight - s.reportWindow

	generator := reporting.NewGenerator(s.stores.candidates, s.stores.decisions)
	report, err := generator.Generate(ctx, s.cfg.Survey, startNight, endNight)
	if err != nil {
		s.logger.Printf("Report generation error: %v", err)
		observability.RecordReportRun("error", time.Since(start).Seconds())
		return
	}

	if runner != nil {
		stats := runner.Stats()
		report.Runtime = &reporting.RuntimeCounts{
			Processed:  stats.Processed,
			Duplicates: stats.Duplicates,
			Malformed:  stats.Malformed,
			Published:  stats.Published,
		}
	}

	if err := reporting.WriteFiles(s.outputDir, report); err != nil {
		s.logger.Printf("Report write error: %v", err)
		observability.RecordReportRun("error", time.Since(start).Seconds())
		return
	}

	s.logger.Printf("Report generated in %v to %s/", time.Since(start), s.outputDir)
	observability.RecordReportRun("success", time.Since(start).Seconds())
}

// startHTTPServer starts the HTTP server for health/metrics/status/lookups.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	// Lookup endpoints
	mux.HandleFunc("/api/candidates", s.handleCandidates)
	mux.HandleFunc("/api/decisions", s.handleDecisions)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status        string         `json:"status"`
	Survey        string         `json:"survey"`
	Uptime        string         `json:"uptime"`
	FilterStarted time.Time      `json:"filter_started"`
	LastReportRun time.Time      `json:"last_report_run,omitempty"`
	ReportRuns    int            `json:"report_runs"`
	ReportRunning bool           `json:"report_running"`
	Pipeline      pipeline.Stats `json:"pipeline"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats pipeline.Stats
	if s.runner != nil {
		stats = s.runner.Stats()
	}

	resp := StatusResponse{
		Status:        "running",
		Survey:        s.cfg.Survey,
		Uptime:        time.Since(s.filterStarted).String(),
		FilterStarted: s.filterStarted,
		LastReportRun: s.lastReportRun,
		ReportRuns:    s.reportRuns,
		ReportRunning: s.reportRunning,
		Pipeline:      stats,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// CandidatesResponse is the JSON response for /api/candidates.
type CandidatesResponse struct {
	Count      int                          `json:"count"`
	Candidates []*domain.DiscoveryCandidate `json:"candidates"`
}

// handleCandidates returns candidates since a night bucket as JSON.
func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	sinceParam := r.URL.Query().Get("since_night")
	if sinceParam == "" {
		http.Error(w, "since_night is required", http.StatusBadRequest)
		return
	}
	sinceNight, err := strconv.Atoi(sinceParam)
	if err != nil {
		http.Error(w, "since_night must be an integer", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	endNight := mjd.FromDate(now.Year(), now.Month(), now.Day())

	list, err := s.stores.candidates.GetByNightRange(r.Context(), sinceNight, endNight)
	if err != nil {
		s.logger.Printf("Candidate lookup error: %v", err)
		http.Error(w, "candidate lookup failed", http.StatusInternalServerError)
		return
	}

	// The night-range read spans all surveys; keep only this instance's.
	candidates := make([]*domain.DiscoveryCandidate, 0, len(list))
	for _, c := range list {
		if c.Survey == s.cfg.Survey {
			candidates = append(candidates, c)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(CandidatesResponse{
		Count:      len(candidates),
		Candidates: candidates,
	})
}

// DecisionsResponse is the JSON response for /api/decisions.
type DecisionsResponse struct {
	Count     int                      `json:"count"`
	Decisions []*domain.DecisionRecord `json:"decisions"`
}

// handleDecisions returns all decisions for an object as JSON.
func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	objectID := r.URL.Query().Get("object_id")
	if objectID == "" {
		http.Error(w, "object_id is required", http.StatusBadRequest)
		return
	}

	decisions, err := s.stores.decisions.GetByObject(r.Context(), s.cfg.Survey, objectID)
	if err != nil {
		s.logger.Printf("Decision lookup error: %v", err)
		http.Error(w, "decision lookup failed", http.StatusInternalServerError)
		return
	}
	if decisions == nil {
		decisions = make([]*domain.DecisionRecord, 0)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(DecisionsResponse{
		Count:     len(decisions),
		Decisions: decisions,
	})
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
