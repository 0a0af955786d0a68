package ports

import (
	"context"
	"io"
	"time"

	"github.com/veralend/loandocs/internal/core/domain"
)

// DriveEntry is one item of a cloud folder listing.
type DriveEntry struct {
	ID           string
	Name         string
	MimeType     string
	SizeBytes    int64
	ModifiedTime time.Time
	IsFolder     bool
}

// DriveClient lists and downloads cloud file store content.
type DriveClient interface {
	ListFolder(ctx context.Context, folderID string) ([]DriveEntry, error)
	DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// MessageRef identifies a listed message and the thread it belongs to.
type MessageRef struct {
	ID       string
	ThreadID string
}

// Attachment describes one attachment on a mailbox message.
type Attachment struct {
	ID        string
	Filename  string
	MimeType  string
	SizeBytes int64
}

// Message is a fully expanded mailbox message.
type Message struct {
	ID          string
	ThreadID    string
	Subject     string
	From        string
	To          string
	Cc          string
	Snippet     string
	Received    time.Time
	Attachments []Attachment
}

// MailboxClient reads the mailbox. GetThread must return every message in
// the thread, not just the listed one: a relevant reply deep in a thread may
// carry the attachment while the listed latest message does not.
type MailboxClient interface {
	ListMessages(ctx context.Context, query string, max int) ([]MessageRef, error)
	GetThread(ctx context.Context, threadID string) ([]Message, error)
	GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

// LoanRepository persists and reads loan state, including the checklist
// bookkeeping stored on the loan record.
type LoanRepository interface {
	Create(ctx context.Context, loan *domain.Loan) error
	GetByID(ctx context.Context, id string) (*domain.Loan, error)
	ListActive(ctx context.Context) ([]domain.Loan, error)
	UpdateChecklist(ctx context.Context, loan *domain.Loan) error
	TouchMailboxSync(ctx context.Context, id string, at time.Time) error
}

// DocumentRepository persists and reads ingested documents.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, loanID, id string) (*domain.Document, error)
	ListByLoan(ctx context.Context, loanID string, includeDeleted bool) ([]domain.Document, error)
	UpdateMetadata(ctx context.Context, loanID, id, name string, sizeBytes int64) error
	UpdateCategory(ctx context.Context, loanID, id string, category domain.Category) error
	SetDeleted(ctx context.Context, loanID, id string, deleted bool) error
}

// ObjectStorage stores downloaded payload bytes. size may be -1 when
// unknown.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// SyncQueue carries asynchronous sync requests from the API to the worker.
type SyncQueue interface {
	PublishSyncRequest(ctx context.Context, loanID string, channel domain.SourceChannel) error
	SubscribeSyncRequests(ctx context.Context, handler func(context.Context, string, domain.SourceChannel) error) error
}

// ContentSniffer extracts a short text preview from payload bytes, used as a
// classification hint when the filename resolves to "other". Implementations
// are best-effort; errors mean "no hint".
type ContentSniffer interface {
	TextPreview(mimeType string, data []byte) (string, error)
}
