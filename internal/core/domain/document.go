package domain

import "time"

type SourceChannel string

const (
	SourceDrive  SourceChannel = "drive"
	SourceGmail  SourceChannel = "gmail"
	SourceUpload SourceChannel = "upload"
)

// Document is an artifact that survived relevance and dedup checks. Deletion
// is soft so restore is always possible; assignments referencing a deleted
// document stay in place until a human unassigns it.
type Document struct {
	ID            string        `json:"id"`
	LoanID        string        `json:"loan_id"`
	SourceChannel SourceChannel `json:"source_channel"`
	SourceRef     string        `json:"source_ref"`
	Name          string        `json:"name"`
	MimeType      string        `json:"mime_type"`
	SizeBytes     int64         `json:"size_bytes,omitempty"`
	StorageKey    string        `json:"storage_key,omitempty"`
	Category      Category      `json:"category"`
	Deleted       bool          `json:"deleted"`
	ObservedAt    time.Time     `json:"observed_at"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Candidate is a not-yet-persisted artifact discovered by an ingestion
// adapter, pending relevance and dedup checks. SizeBytes <= 0 means unknown.
type Candidate struct {
	SourceChannel SourceChannel
	SourceRef     string
	Name          string
	MimeType      string
	SizeBytes     int64
}

// DriveSyncResult is the structured outcome of a folder sync.
type DriveSyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// MailboxSyncResult is the structured outcome of a mailbox scan. A non-empty
// Warning reports degraded success (e.g. some attachments failed to
// download); the sync itself still counts as completed.
type MailboxSyncResult struct {
	Scanned            int    `json:"scanned"`
	PDFsFound          int    `json:"pdfs_found"`
	DocumentsCreated   int    `json:"documents_created"`
	AttachmentFailures int    `json:"attachment_failures,omitempty"`
	Warning            string `json:"warning,omitempty"`
}
