package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/veralend/loandocs/internal/bootstrap"
	"github.com/veralend/loandocs/internal/config"
	"github.com/veralend/loandocs/internal/core/domain"
	"github.com/veralend/loandocs/internal/observability/logging"
	"github.com/veralend/loandocs/internal/observability/metrics"
)

const serviceName = "loandocs-worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsHandler(workerMetrics),
	}
	go func() {
		logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("worker metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	runner := &syncRunner{app: app, metrics: workerMetrics, logger: logger}

	go runner.pollMailboxes(ctx, time.Duration(cfg.MailPollIntervalSeconds)*time.Second)

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeSyncRequests(ctx, func(handlerCtx context.Context, loanID string, channel domain.SourceChannel) error {
		syncCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()
		return runner.run(syncCtx, loanID, channel)
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

type syncRunner struct {
	app     *bootstrap.App
	metrics *metrics.WorkerMetrics
	logger  *slog.Logger
}

func (r *syncRunner) run(ctx context.Context, loanID string, channel domain.SourceChannel) error {
	r.metrics.StartSync()
	start := time.Now()

	var err error
	switch channel {
	case domain.SourceDrive:
		var result domain.DriveSyncResult
		result, err = r.app.DriveSync.SyncFromFolder(ctx, loanID, "")
		r.metrics.RecordDocumentsCreated(serviceName, string(channel), result.Created)
		r.metrics.RecordDuplicatesSkipped(serviceName, string(channel), result.Skipped)
	case domain.SourceGmail:
		var result domain.MailboxSyncResult
		result, err = r.app.MailboxSync.SyncFromMailbox(ctx, loanID)
		r.metrics.RecordDocumentsCreated(serviceName, string(channel), result.DocumentsCreated)
		r.metrics.RecordAttachmentFailures(serviceName, result.AttachmentFailures)
	default:
		err = fmt.Errorf("unknown sync channel %q", channel)
	}

	r.metrics.FinishSync(serviceName, string(channel), syncStatus(err), time.Since(start))
	switch {
	case domain.IsKind(err, domain.ErrSyncInProgress):
		r.logger.Info("sync skipped, loan already syncing", "loan_id", loanID, "channel", channel)
		return nil
	case err != nil:
		r.logger.Error("sync failed", "loan_id", loanID, "channel", channel, "error", err)
		return err
	}
	r.logger.Info("sync completed", "loan_id", loanID, "channel", channel, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func syncStatus(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrSyncInProgress):
		return metrics.SyncStatusSkipped
	case err != nil:
		return metrics.SyncStatusError
	}
	return metrics.SyncStatusSuccess
}

// pollMailboxes periodically rescans the mailbox for every known loan. A loan
// already syncing is skipped by the per-loan gate and retried next round.
func (r *syncRunner) pollMailboxes(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := r.pollOnce(ctx)
			r.metrics.RecordPollRun(serviceName, err)
			if err != nil {
				r.logger.Error("mailbox poll round failed", "error", err)
			}
		}
	}
}

func (r *syncRunner) pollOnce(ctx context.Context) error {
	loans, err := r.app.Loans.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list loans: %w", err)
	}

	for _, loan := range loans {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := r.run(ctx, loan.ID, domain.SourceGmail); err != nil {
			r.logger.Warn("poll sync failed", "loan_id", loan.ID, "error", err)
		}
	}
	return nil
}

func metricsHandler(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}
