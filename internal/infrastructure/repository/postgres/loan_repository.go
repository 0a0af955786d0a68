package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/veralend/loandocs/internal/core/domain"
)

type LoanRepository struct {
	db *sql.DB
}

func NewLoanRepository(db *sql.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *LoanRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026090101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS loans (
	id TEXT PRIMARY KEY,
	funder TEXT NOT NULL,
	drive_folder_id TEXT NOT NULL DEFAULT '',
	identity JSONB NOT NULL,
	assignments JSONB NOT NULL DEFAULT '{}'::jsonb,
	completed JSONB NOT NULL DEFAULT '{}'::jsonb,
	custom_requirements JSONB NOT NULL DEFAULT '[]'::jsonb,
	last_mailbox_sync_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS loan_documents (
	id TEXT NOT NULL,
	loan_id TEXT NOT NULL REFERENCES loans(id),
	source_channel TEXT NOT NULL,
	source_ref TEXT NOT NULL,
	name TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	size_bytes BIGINT NOT NULL DEFAULT 0,
	storage_key TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL,
	deleted BOOLEAN NOT NULL DEFAULT FALSE,
	observed_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (loan_id, id)
);

CREATE INDEX IF NOT EXISTS idx_loan_documents_source_ref ON loan_documents(loan_id, source_ref);
CREATE INDEX IF NOT EXISTS idx_loan_documents_observed_at ON loan_documents(loan_id, observed_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *LoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	identityJSON, assignmentsJSON, completedJSON, customJSON, err := marshalChecklist(loan)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO loans (
	id, funder, drive_folder_id, identity, assignments, completed, custom_requirements, last_mailbox_sync_at, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		loan.ID, loan.Funder, loan.DriveFolderID, identityJSON, assignmentsJSON, completedJSON, customJSON,
		loan.LastMailboxSyncAt, loan.CreatedAt, loan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	return nil
}

func (r *LoanRepository) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, funder, drive_folder_id, identity, assignments, completed, custom_requirements, last_mailbox_sync_at, created_at, updated_at
FROM loans
WHERE id = $1
`, id)

	loan, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrLoanNotFound, "loan.get", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get loan by id: %w", err)
	}
	return loan, nil
}

func (r *LoanRepository) ListActive(ctx context.Context) ([]domain.Loan, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, funder, drive_folder_id, identity, assignments, completed, custom_requirements, last_mailbox_sync_at, created_at, updated_at
FROM loans
ORDER BY created_at
`)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Loan, 0)
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		out = append(out, *loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate loans: %w", err)
	}
	return out, nil
}

func (r *LoanRepository) UpdateChecklist(ctx context.Context, loan *domain.Loan) error {
	_, assignmentsJSON, completedJSON, customJSON, err := marshalChecklist(loan)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE loans
SET assignments = $2, completed = $3, custom_requirements = $4, updated_at = $5
WHERE id = $1
`, loan.ID, assignmentsJSON, completedJSON, customJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update checklist: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update checklist rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrLoanNotFound, "loan.update_checklist", fmt.Errorf("id=%s", loan.ID))
	}
	return nil
}

func (r *LoanRepository) TouchMailboxSync(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE loans
SET last_mailbox_sync_at = $2, updated_at = $2
WHERE id = $1
`, id, at.UTC())
	if err != nil {
		return fmt.Errorf("touch mailbox sync: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch mailbox sync rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrLoanNotFound, "loan.touch_mailbox_sync", fmt.Errorf("id=%s", id))
	}
	return nil
}

func marshalChecklist(loan *domain.Loan) (identity, assignments, completed, custom []byte, err error) {
	if identity, err = json.Marshal(loan.Identity); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal identity: %w", err)
	}
	if assignments, err = json.Marshal(loan.Assignments); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal assignments: %w", err)
	}
	if completed, err = json.Marshal(loan.Completed); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal completed: %w", err)
	}
	if custom, err = json.Marshal(loan.CustomRequirements); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal custom requirements: %w", err)
	}
	return identity, assignments, completed, custom, nil
}

type loanScanner interface {
	Scan(dest ...interface{}) error
}

func scanLoan(row loanScanner) (*domain.Loan, error) {
	var loan domain.Loan
	var identityRaw, assignmentsRaw, completedRaw, customRaw []byte

	err := row.Scan(
		&loan.ID,
		&loan.Funder,
		&loan.DriveFolderID,
		&identityRaw,
		&assignmentsRaw,
		&completedRaw,
		&customRaw,
		&loan.LastMailboxSyncAt,
		&loan.CreatedAt,
		&loan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(identityRaw, &loan.Identity); err != nil {
		return nil, fmt.Errorf("unmarshal identity: %w", err)
	}
	if err := json.Unmarshal(assignmentsRaw, &loan.Assignments); err != nil {
		return nil, fmt.Errorf("unmarshal assignments: %w", err)
	}
	if err := json.Unmarshal(completedRaw, &loan.Completed); err != nil {
		return nil, fmt.Errorf("unmarshal completed: %w", err)
	}
	if err := json.Unmarshal(customRaw, &loan.CustomRequirements); err != nil {
		return nil, fmt.Errorf("unmarshal custom requirements: %w", err)
	}
	if loan.Assignments == nil {
		loan.Assignments = domain.Assignments{}
	}
	if loan.Completed == nil {
		loan.Completed = domain.CompletionSet{}
	}
	return &loan, nil
}
