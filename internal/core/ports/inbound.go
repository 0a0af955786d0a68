package ports

import (
	"context"
	"io"

	"github.com/veralend/loandocs/internal/core/domain"
)

// DriveSyncer reconciles a loan's drive folder against its document set.
type DriveSyncer interface {
	SyncFromFolder(ctx context.Context, loanID, folderID string) (domain.DriveSyncResult, error)
}

// MailboxSyncer scans the mailbox for loan-relevant attachments.
type MailboxSyncer interface {
	SyncFromMailbox(ctx context.Context, loanID string) (domain.MailboxSyncResult, error)
}

// DocumentUploader ingests a directly uploaded file. A duplicate upload
// returns the already-ingested document rather than creating a second one.
type DocumentUploader interface {
	Upload(ctx context.Context, loanID, filename, mimeType string, category domain.Category, body io.Reader) (*domain.Document, error)
}

// ChecklistEntry is one row of the merged checklist view.
type ChecklistEntry struct {
	Requirement domain.Requirement `json:"requirement"`
	AssignedIDs []string           `json:"assigned_ids"`
	Completed   bool               `json:"completed"`
}

// ChecklistService is the inbound contract for everything the checklist UI
// does: assignment, completion, custom requirements, document lifecycle and
// progress.
type ChecklistService interface {
	Checklist(ctx context.Context, loanID string) ([]ChecklistEntry, error)
	Progress(ctx context.Context, loanID string) (domain.Progress, error)

	AssignDocument(ctx context.Context, loanID, requirementName, documentID string) error
	UnassignDocument(ctx context.Context, loanID, requirementName, documentID string) error

	MarkComplete(ctx context.Context, loanID, requirementName string) error
	Unmark(ctx context.Context, loanID, requirementName string) error

	AddCustomRequirement(ctx context.Context, loanID, name string) (domain.Requirement, error)
	RemoveCustomRequirement(ctx context.Context, loanID, name string) error

	ListDocuments(ctx context.Context, loanID string, includeDeleted bool) ([]domain.Document, error)
	DeleteDocument(ctx context.Context, loanID, documentID string) error
	RestoreDocument(ctx context.Context, loanID, documentID string) error
	RecategorizeDocument(ctx context.Context, loanID, documentID string, category domain.Category) error
}
