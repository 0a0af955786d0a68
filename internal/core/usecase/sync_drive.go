package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/veralend/loandocs/internal/core/classify"
	"github.com/veralend/loandocs/internal/core/dedup"
	"github.com/veralend/loandocs/internal/core/domain"
	"github.com/veralend/loandocs/internal/core/ports"
)

// maxSniffBytes caps how much of a file is read for the content hint.
const maxSniffBytes = 1 << 20

type DriveSyncUseCase struct {
	gate    *SyncGate
	drive   ports.DriveClient
	loans   ports.LoanRepository
	docs    ports.DocumentRepository
	sniffer ports.ContentSniffer
	logger  *slog.Logger
}

func NewDriveSyncUseCase(
	gate *SyncGate,
	drive ports.DriveClient,
	loans ports.LoanRepository,
	docs ports.DocumentRepository,
	sniffer ports.ContentSniffer,
	logger *slog.Logger,
) *DriveSyncUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &DriveSyncUseCase{
		gate:    gate,
		drive:   drive,
		loans:   loans,
		docs:    docs,
		sniffer: sniffer,
		logger:  logger,
	}
}

// SyncFromFolder reconciles the folder tree against the loan's document set.
// Re-running with no new upstream files creates nothing: source ref equality
// is the exact fast path, the name/size heuristic catches cross-channel
// copies. On upstream failure mid-walk, everything ingested so far is kept
// and the partial counts are returned alongside the error.
func (uc *DriveSyncUseCase) SyncFromFolder(ctx context.Context, loanID, folderID string) (domain.DriveSyncResult, error) {
	var result domain.DriveSyncResult

	release, err := uc.gate.Acquire(loanID)
	if err != nil {
		return result, err
	}
	defer release()

	loan, err := uc.loans.GetByID(ctx, loanID)
	if err != nil {
		return result, fmt.Errorf("load loan: %w", err)
	}
	if folderID == "" {
		folderID = loan.DriveFolderID
	}
	if folderID == "" {
		return result, domain.WrapError(domain.ErrInvalidInput, "drive sync", fmt.Errorf("loan %s has no drive folder", loanID))
	}

	existing, err := uc.docs.ListByLoan(ctx, loanID, true)
	if err != nil {
		return result, fmt.Errorf("list existing documents: %w", err)
	}

	err = uc.walkFolder(ctx, loanID, folderID, &result, &existing)
	return result, err
}

// walkFolder lists depth-first. A cloud store's parent/child graph is a DAG,
// so there is no cycle risk.
func (uc *DriveSyncUseCase) walkFolder(
	ctx context.Context,
	loanID, rootID string,
	result *domain.DriveSyncResult,
	existing *[]domain.Document,
) error {
	stack := []string{rootID}

	for len(stack) > 0 {
		folderID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := uc.drive.ListFolder(ctx, folderID)
		if err != nil {
			return domain.WrapError(domain.ErrUpstreamUnavailable, "list drive folder", err)
		}

		for _, entry := range entries {
			if entry.IsFolder {
				stack = append(stack, entry.ID)
				continue
			}
			if err := uc.ingestEntry(ctx, loanID, entry, result, existing); err != nil {
				return err
			}
		}
	}
	return nil
}

func (uc *DriveSyncUseCase) ingestEntry(
	ctx context.Context,
	loanID string,
	entry ports.DriveEntry,
	result *domain.DriveSyncResult,
	existing *[]domain.Document,
) error {
	candidate := domain.Candidate{
		SourceChannel: domain.SourceDrive,
		SourceRef:     entry.ID,
		Name:          entry.Name,
		MimeType:      entry.MimeType,
		SizeBytes:     entry.SizeBytes,
	}

	if dedup.IsDuplicate(*existing, candidate) {
		if prior := findBySourceRef(*existing, entry.ID); prior != nil && metadataChanged(prior, entry) {
			if err := uc.docs.UpdateMetadata(ctx, loanID, prior.ID, entry.Name, entry.SizeBytes); err != nil {
				return fmt.Errorf("update document metadata: %w", err)
			}
			prior.Name = entry.Name
			prior.SizeBytes = entry.SizeBytes
			result.Updated++
			return nil
		}
		result.Skipped++
		return nil
	}

	category := classify.Classify(entry.Name)
	if category == domain.CategoryOther {
		category = uc.contentHint(ctx, entry, category)
	}

	now := time.Now().UTC()
	doc := domain.Document{
		ID:            uuid.NewString(),
		LoanID:        loanID,
		SourceChannel: domain.SourceDrive,
		SourceRef:     entry.ID,
		Name:          entry.Name,
		MimeType:      entry.MimeType,
		SizeBytes:     entry.SizeBytes,
		Category:      category,
		ObservedAt:    entry.ModifiedTime,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if doc.ObservedAt.IsZero() {
		doc.ObservedAt = now
	}

	if err := uc.docs.Create(ctx, &doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	*existing = append(*existing, doc)
	result.Created++
	return nil
}

// contentHint downloads a PDF and re-runs the keyword table over its first
// page of text. Best-effort: any failure keeps the filename verdict.
func (uc *DriveSyncUseCase) contentHint(ctx context.Context, entry ports.DriveEntry, fallback domain.Category) domain.Category {
	if uc.sniffer == nil || !strings.Contains(strings.ToLower(entry.MimeType), "pdf") {
		return fallback
	}

	body, err := uc.drive.DownloadFile(ctx, entry.ID)
	if err != nil {
		uc.logger.Debug("content hint download failed", "file_id", entry.ID, "error", err)
		return fallback
	}
	defer body.Close()

	raw, err := io.ReadAll(io.LimitReader(body, maxSniffBytes))
	if err != nil {
		return fallback
	}
	text, err := uc.sniffer.TextPreview(entry.MimeType, raw)
	if err != nil || text == "" {
		return fallback
	}
	if hinted := classify.ClassifyText(text); hinted != domain.CategoryOther {
		return hinted
	}
	return fallback
}

func findBySourceRef(docs []domain.Document, sourceRef string) *domain.Document {
	for i := range docs {
		if docs[i].SourceRef == sourceRef {
			return &docs[i]
		}
	}
	return nil
}

func metadataChanged(doc *domain.Document, entry ports.DriveEntry) bool {
	if doc.Name != entry.Name {
		return true
	}
	return entry.SizeBytes > 0 && doc.SizeBytes > 0 && doc.SizeBytes != entry.SizeBytes
}
