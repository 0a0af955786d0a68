package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/veralend/loandocs/internal/config"
	"github.com/veralend/loandocs/internal/core/catalog"
	"github.com/veralend/loandocs/internal/core/ports"
	"github.com/veralend/loandocs/internal/core/usecase"
	"github.com/veralend/loandocs/internal/infrastructure/contentsniff"
	"github.com/veralend/loandocs/internal/infrastructure/drive"
	"github.com/veralend/loandocs/internal/infrastructure/gmail"
	"github.com/veralend/loandocs/internal/infrastructure/queue/nats"
	"github.com/veralend/loandocs/internal/infrastructure/repository/postgres"
	"github.com/veralend/loandocs/internal/infrastructure/resilience"
	"github.com/veralend/loandocs/internal/infrastructure/storage/localfs"
	"github.com/veralend/loandocs/internal/infrastructure/storage/miniostore"
)

type App struct {
	Config config.Config

	Catalog *catalog.Catalog
	Loans   ports.LoanRepository
	Docs    ports.DocumentRepository
	Queue   ports.SyncQueue

	DriveSync   ports.DriveSyncer
	MailboxSync ports.MailboxSyncer
	Uploader    ports.DocumentUploader
	Checklist   ports.ChecklistService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	loans := postgres.NewLoanRepository(db)
	if err := loans.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	docs := postgres.NewDocumentRepository(db)

	storage, err := newObjectStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		return nil, fmt.Errorf("init sync queue: %w", err)
	}

	cat := catalog.New()
	if cfg.CatalogPath != "" {
		if err := cat.LoadFile(cfg.CatalogPath); err != nil {
			return nil, fmt.Errorf("load funder catalog: %w", err)
		}
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	driveClient := drive.New(cfg.DriveBaseURL, cfg.DriveAPIToken, executor)
	gmailClient := gmail.New(cfg.GmailBaseURL, cfg.GmailAPIToken, executor)
	sniffer := contentsniff.New()

	gate := usecase.NewSyncGate()
	driveSync := usecase.NewDriveSyncUseCase(gate, driveClient, loans, docs, sniffer, logger)
	mailboxSync := usecase.NewMailboxSyncUseCase(gate, gmailClient, loans, docs, storage, sniffer, usecase.MailboxSyncOptions{
		Query:            cfg.GmailQuery,
		MaxMessages:      cfg.GmailMaxResults,
		ThreadFanout:     cfg.ThreadFanout,
		ThreadFetchRate:  rate.Limit(cfg.ThreadFetchRPS),
		AllowedMimeTypes: splitMimeTypes(cfg.AllowedMime),
	}, logger)
	uploader := usecase.NewUploadUseCase(loans, docs, storage, sniffer)
	checklist := usecase.NewChecklistUseCase(cat, loans, docs)

	return &App{
		Config: cfg,

		Catalog: cat,
		Loans:   loans,
		Docs:    docs,
		Queue:   queue,

		DriveSync:   driveSync,
		MailboxSync: mailboxSync,
		Uploader:    uploader,
		Checklist:   checklist,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func newObjectStorage(ctx context.Context, cfg config.Config) (ports.ObjectStorage, error) {
	switch cfg.StorageBackend {
	case "minio":
		store, err := miniostore.New(miniostore.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "local", "":
		return localfs.New(cfg.StoragePath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func splitMimeTypes(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
