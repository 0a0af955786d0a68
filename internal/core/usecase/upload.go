package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/veralend/loandocs/internal/core/classify"
	"github.com/veralend/loandocs/internal/core/dedup"
	"github.com/veralend/loandocs/internal/core/domain"
	"github.com/veralend/loandocs/internal/core/ports"
)

type UploadUseCase struct {
	loans   ports.LoanRepository
	docs    ports.DocumentRepository
	storage ports.ObjectStorage
	sniffer ports.ContentSniffer
}

func NewUploadUseCase(
	loans ports.LoanRepository,
	docs ports.DocumentRepository,
	storage ports.ObjectStorage,
	sniffer ports.ContentSniffer,
) *UploadUseCase {
	return &UploadUseCase{
		loans:   loans,
		docs:    docs,
		storage: storage,
		sniffer: sniffer,
	}
}

// Upload ingests a directly uploaded file. Relevance is implicit (the user
// targeted this loan), dedup still applies: re-uploading an already-ingested
// file returns the existing document untouched. An explicit category
// overrides classification.
func (uc *UploadUseCase) Upload(
	ctx context.Context,
	loanID, filename, mimeType string,
	category domain.Category,
	body io.Reader,
) (*domain.Document, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("filename is required"))
	}
	if _, err := uc.loans.GetByID(ctx, loanID); err != nil {
		return nil, fmt.Errorf("load loan: %w", err)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read upload body: %w", err)
	}

	existing, err := uc.docs.ListByLoan(ctx, loanID, true)
	if err != nil {
		return nil, fmt.Errorf("list existing documents: %w", err)
	}

	candidate := domain.Candidate{
		SourceChannel: domain.SourceUpload,
		SourceRef:     "upload:" + uuid.NewString(),
		Name:          filename,
		MimeType:      mimeType,
		SizeBytes:     int64(len(raw)),
	}
	if dedup.IsDuplicate(existing, candidate) {
		if prior := findByNormalizedName(existing, filename); prior != nil {
			return prior, nil
		}
	}

	if category == "" || !category.Valid() {
		category = classify.Classify(filename)
		if category == domain.CategoryOther && uc.sniffer != nil {
			if text, err := uc.sniffer.TextPreview(mimeType, raw); err == nil && text != "" {
				if hinted := classify.ClassifyText(text); hinted != domain.CategoryOther {
					category = hinted
				}
			}
		}
	}

	docID := uuid.NewString()
	storageKey := fmt.Sprintf("%s/%s_%s", loanID, docID, sanitizeFilename(filename))
	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(raw), int64(len(raw)), mimeType); err != nil {
		return nil, fmt.Errorf("save upload to object storage: %w", err)
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:            docID,
		LoanID:        loanID,
		SourceChannel: domain.SourceUpload,
		SourceRef:     candidate.SourceRef,
		Name:          filename,
		MimeType:      mimeType,
		SizeBytes:     int64(len(raw)),
		StorageKey:    storageKey,
		Category:      category,
		ObservedAt:    now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

func findByNormalizedName(docs []domain.Document, name string) *domain.Document {
	normalized := dedup.NormalizeName(name)
	for i := range docs {
		if dedup.NormalizeName(docs[i].Name) == normalized {
			return &docs[i]
		}
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
