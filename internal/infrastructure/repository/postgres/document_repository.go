package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/veralend/loandocs/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO loan_documents (
	id, loan_id, source_channel, source_ref, name, mime_type, size_bytes, storage_key, category, deleted, observed_at, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`,
		doc.ID, doc.LoanID, string(doc.SourceChannel), doc.SourceRef, doc.Name, doc.MimeType,
		doc.SizeBytes, doc.StorageKey, string(doc.Category), doc.Deleted, doc.ObservedAt, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, loanID, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, loan_id, source_channel, source_ref, name, mime_type, size_bytes, storage_key, category, deleted, observed_at, created_at, updated_at
FROM loan_documents
WHERE loan_id = $1 AND id = $2
`, loanID, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "document.get", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get document by id: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) ListByLoan(ctx context.Context, loanID string, includeDeleted bool) ([]domain.Document, error) {
	query := `
SELECT id, loan_id, source_channel, source_ref, name, mime_type, size_bytes, storage_key, category, deleted, observed_at, created_at, updated_at
FROM loan_documents
WHERE loan_id = $1
`
	if !includeDeleted {
		query += "AND deleted = FALSE\n"
	}
	query += "ORDER BY observed_at DESC"

	rows, err := r.db.QueryContext(ctx, query, loanID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (r *DocumentRepository) UpdateMetadata(ctx context.Context, loanID, id, name string, sizeBytes int64) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE loan_documents
SET name = $3, size_bytes = $4, observed_at = $5, updated_at = $5
WHERE loan_id = $1 AND id = $2
`, loanID, id, name, sizeBytes, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document metadata: %w", err)
	}
	return requireRow(result, "document.update_metadata", id)
}

func (r *DocumentRepository) UpdateCategory(ctx context.Context, loanID, id string, category domain.Category) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE loan_documents
SET category = $3, updated_at = $4
WHERE loan_id = $1 AND id = $2
`, loanID, id, string(category), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document category: %w", err)
	}
	return requireRow(result, "document.update_category", id)
}

func (r *DocumentRepository) SetDeleted(ctx context.Context, loanID, id string, deleted bool) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE loan_documents
SET deleted = $3, updated_at = $4
WHERE loan_id = $1 AND id = $2
`, loanID, id, deleted, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set document deleted: %w", err)
	}
	return requireRow(result, "document.set_deleted", id)
}

func requireRow(result sql.Result, operation, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}

type documentScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row documentScanner) (*domain.Document, error) {
	var doc domain.Document
	var channel, category string

	err := row.Scan(
		&doc.ID,
		&doc.LoanID,
		&channel,
		&doc.SourceRef,
		&doc.Name,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.StorageKey,
		&category,
		&doc.Deleted,
		&doc.ObservedAt,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.SourceChannel = domain.SourceChannel(channel)
	doc.Category = domain.Category(category)
	return &doc, nil
}
