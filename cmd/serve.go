package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/meetscribe/scribe-api/api"
	"github.com/meetscribe/scribe-api/api/types"
	"github.com/meetscribe/scribe-api/internal/database"
	"github.com/meetscribe/scribe-api/internal/services/alignment"
	"github.com/meetscribe/scribe-api/internal/services/diarization"
	"github.com/meetscribe/scribe-api/internal/services/jobs"
	"github.com/meetscribe/scribe-api/internal/services/pipeline"
	"github.com/meetscribe/scribe-api/internal/services/progress"
	"github.com/meetscribe/scribe-api/internal/services/resilience"
	"github.com/meetscribe/scribe-api/internal/services/transcription"
	"github.com/meetscribe/scribe-api/internal/services/transcripts"
	"github.com/meetscribe/scribe-api/internal/services/workers"
	"github.com/meetscribe/scribe-api/pkg/config"
)

var (
	serverHost string
	serverPort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the Scribe API server with the configured settings.

The server accepts transcription sessions, processes them through the
background worker pool, and serves transcripts and progress updates.

Example:
  scribe-api serve
  scribe-api serve --port 9090
  scribe-api serve --host 0.0.0.0 --port 8080`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server flags
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (overrides config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Use config values if flags not provided
	if serverHost == "" {
		serverHost = cfg.Server.Host
	}
	if serverPort == 0 {
		serverPort = cfg.Server.Port
	}

	db, err := database.InitializeWithMigrations()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("[WARN] Failed to close database: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := buildDependencies(ctx, cfg, db)

	if err := deps.WorkerPool.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	startJobCleanup(ctx, deps.JobService, cfg.Processing.JobRetentionDays)

	srv := api.NewServer(fmt.Sprintf("%s:%d", serverHost, serverPort))
	srv.SetDatabase(db)
	srv.SetDependencies(deps)
	if err := srv.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	// Channel to listen for interrupt signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Channel to receive server errors
	serverErr := make(chan error, 1)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("server error: %w", err)
		}
	}()

	log.Printf("[INFO] Scribe API listening at %s:%d", serverHost, serverPort)

	// Wait for interrupt signal or server error
	select {
	case <-stop:
		fmt.Println("\nShutting down server...")
	case err := <-serverErr:
		fmt.Fprintf(os.Stderr, "\n%v\n", err)
		fmt.Println("Shutting down server...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Server forced to shutdown: %v\n", err)
		return err
	}

	cancel()
	deps.WorkerPool.Stop()
	deps.ProgressTracker.Shutdown()

	fmt.Println("Server gracefully stopped")
	return nil
}

// buildDependencies wires the processing stack: resilience guards, remote
// service clients, the pipeline, the progress tracker, the job queue and
// the worker pool.
func buildDependencies(ctx context.Context, cfg *config.Config, db *database.DB) *types.Dependencies {
	retry := resilience.NewRetryExecutor(resilience.RetryConfig{
		MaxAttempts: cfg.Resilience.Retry.MaxAttempts,
		BaseDelay:   cfg.Resilience.Retry.BaseDelay,
		MaxDelay:    cfg.Resilience.Retry.MaxDelay,
	})
	breakerCfg := resilience.BreakerConfig{
		FailureThreshold: cfg.Resilience.Breaker.FailureThreshold,
		SuccessThreshold: cfg.Resilience.Breaker.SuccessThreshold,
		OpenTimeout:      cfg.Resilience.Breaker.OpenTimeout,
	}
	transcriptionBreaker := resilience.NewCircuitBreaker(transcription.ServiceName, breakerCfg)
	diarizationBreaker := resilience.NewCircuitBreaker(diarization.ServiceName, breakerCfg)

	coordinator := pipeline.NewStageCoordinator(
		retry,
		transcriptionBreaker, diarizationBreaker,
		newServiceLimiter(cfg.Transcription), newServiceLimiter(cfg.Diarization),
	)

	transcriber := transcription.NewClient(transcription.Config{
		BaseURL:  cfg.Transcription.BaseURL,
		Timeout:  cfg.Transcription.Timeout,
		Language: cfg.Transcription.Language,
	})
	diarizer := diarization.NewClient(diarization.Config{
		BaseURL: cfg.Diarization.BaseURL,
		Timeout: cfg.Diarization.Timeout,
	})

	aligner := alignment.NewEngine(alignment.Config{
		OverlapThreshold:   cfg.Alignment.OverlapThreshold,
		UseNearestFallback: cfg.Alignment.UseNearestFallback,
		MaxGapSeconds:      cfg.Alignment.MaxGapSeconds,
	})

	tracker := progress.NewTracker(progress.TrackerConfig{
		SessionTTL:    cfg.Progress.SessionTTL,
		SweepInterval: cfg.Progress.SweepInterval,
	})
	tracker.Start(ctx)

	pipe := pipeline.NewPipeline(coordinator, transcriber, diarizer, aligner, tracker, progress.NewCalculator())

	jobService := jobs.NewService(jobs.NewRepository(db.DB))
	transcriptService := transcripts.NewService(transcripts.NewRepository(db.DB))

	pool := workers.NewWorkerPool(jobService, cfg.Processing.Workers, cfg.Processing.PollInterval)
	pool.RegisterProcessor(workers.NewPipelineProcessor(jobService, pipe, transcriptService, tracker))

	return &types.Dependencies{
		DB:                db,
		JobService:        jobService,
		TranscriptService: transcriptService,
		ProgressTracker:   tracker,
		WorkerPool:        pool,
	}
}

// newServiceLimiter builds the outbound limiter for one remote service.
// A non-positive rate disables limiting.
func newServiceLimiter(cfg config.RemoteServiceConfig) *rate.Limiter {
	if cfg.RateLimit <= 0 {
		return nil
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
}

// startJobCleanup prunes finished jobs past the retention window once an
// hour until the context is cancelled.
func startJobCleanup(ctx context.Context, jobService jobs.Service, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := jobService.CleanupOldJobs(ctx, retentionDays)
				if err != nil {
					log.Printf("[WARN] Job cleanup failed: %v", err)
				} else if deleted > 0 {
					log.Printf("[INFO] Job cleanup removed %d old jobs", deleted)
				}
			}
		}
	}()
}
