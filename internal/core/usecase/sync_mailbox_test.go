package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/veralend/loandocs/internal/core/domain"
	"github.com/veralend/loandocs/internal/core/ports"
)

func mailboxTestLoan() *domain.Loan {
	return &domain.Loan{
		ID:     "loan-1",
		Funder: "kiavi",
		Identity: domain.LoanIdentity{
			PropertyAddress: "123 Main Street, Springfield, IL",
			BorrowerName:    "Dana Whitfield",
			ContactEmails:   []string{"agent@title.co"},
		},
	}
}

func newMailboxUC(mail *fakeMail, loans *memLoanRepo, docs *memDocRepo, storage *memStorage) *MailboxSyncUseCase {
	return NewMailboxSyncUseCase(
		NewSyncGate(), mail, loans, docs, storage, nil,
		MailboxSyncOptions{ThreadFanout: 2, ThreadFetchRate: 1000},
		nil,
	)
}

func TestMailboxSyncIngestsRelevantAttachment(t *testing.T) {
	mail := &fakeMail{
		refs: []ports.MessageRef{{ID: "m1", ThreadID: "t1"}},
		threads: map[string][]ports.Message{
			"t1": {
				{
					ID: "m1", ThreadID: "t1",
					Subject:  "Insurance binder for 123 Main St",
					From:     "Jo Broker <jo@insure.com>",
					Received: time.Now(),
					Attachments: []ports.Attachment{
						{ID: "a1", Filename: "Insurance Binder.pdf", MimeType: "application/pdf", SizeBytes: 5000},
					},
				},
			},
		},
		attachments: map[string][]byte{"m1:a1": []byte("%PDF-1.4 ...")},
	}
	docs := &memDocRepo{}
	storage := newMemStorage()
	loans := newMemLoanRepo(mailboxTestLoan())

	result, err := newMailboxUC(mail, loans, docs, storage).SyncFromMailbox(context.Background(), "loan-1")
	if err != nil {
		t.Fatalf("SyncFromMailbox() error = %v", err)
	}
	if result.Scanned != 1 || result.PDFsFound != 1 || result.DocumentsCreated != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	stored, _ := docs.ListByLoan(context.Background(), "loan-1", false)
	if len(stored) != 1 {
		t.Fatalf("expected 1 document, got %d", len(stored))
	}
	doc := stored[0]
	if doc.Name != "Insurance Binder.pdf (from jo@insure.com)" {
		t.Fatalf("provenance suffix missing, got %q", doc.Name)
	}
	if doc.Category != domain.CategoryInsurance {
		t.Fatalf("category %s, want insurance", doc.Category)
	}
	if doc.SourceRef != "m1:a1" {
		t.Fatalf("source ref %q", doc.SourceRef)
	}
	if len(storage.objects) != 1 {
		t.Fatalf("attachment bytes must be stored")
	}

	loan, _ := loans.GetByID(context.Background(), "loan-1")
	if loan.LastMailboxSyncAt == nil {
		t.Fatalf("mailbox sync time must be recorded")
	}
}

func TestMailboxSyncExpandsWholeThread(t *testing.T) {
	// The listed message has no attachment; a reply deep in the thread does.
	mail := &fakeMail{
		refs: []ports.MessageRef{{ID: "m1", ThreadID: "t1"}},
		threads: map[string][]ports.Message{
			"t1": {
				{ID: "m1", ThreadID: "t1", Subject: "123 Main Street docs", Received: time.Now().Add(-time.Hour)},
				{
					ID: "m2", ThreadID: "t1",
					Subject:  "RE: 123 Main Street docs",
					From:     "escrow@title.co",
					Received: time.Now(),
					Attachments: []ports.Attachment{
						{ID: "a1", Filename: "Title Commitment.pdf", MimeType: "application/pdf", SizeBytes: 9000},
					},
				},
			},
		},
		attachments: map[string][]byte{"m2:a1": []byte("pdf bytes")},
	}
	docs := &memDocRepo{}

	result, err := newMailboxUC(mail, newMemLoanRepo(mailboxTestLoan()), docs, newMemStorage()).
		SyncFromMailbox(context.Background(), "loan-1")
	if err != nil {
		t.Fatalf("SyncFromMailbox() error = %v", err)
	}
	if result.Scanned != 2 {
		t.Fatalf("scanned %d messages, want both thread messages", result.Scanned)
	}
	if result.DocumentsCreated != 1 {
		t.Fatalf("created %d, want 1", result.DocumentsCreated)
	}
}

func TestMailboxSyncSkipsIrrelevantMessages(t *testing.T) {
	mail := &fakeMail{
		refs: []ports.MessageRef{{ID: "m1", ThreadID: "t1"}},
		threads: map[string][]ports.Message{
			"t1": {
				{
					ID: "m1", ThreadID: "t1",
					Subject: "Company picnic",
					From:    "hr@corp.com",
					Attachments: []ports.Attachment{
						{ID: "a1", Filename: "Flyer.pdf", MimeType: "application/pdf"},
					},
				},
			},
		},
	}
	docs := &memDocRepo{}

	result, err := newMailboxUC(mail, newMemLoanRepo(mailboxTestLoan()), docs, newMemStorage()).
		SyncFromMailbox(context.Background(), "loan-1")
	if err != nil {
		t.Fatalf("SyncFromMailbox() error = %v", err)
	}
	if result.DocumentsCreated != 0 || result.PDFsFound != 0 {
		t.Fatalf("irrelevant message must not be ingested: %+v", result)
	}
}

func TestMailboxSyncThreadFailureIsSkippedNotFatal(t *testing.T) {
	mail := &fakeMail{
		refs: []ports.MessageRef{
			{ID: "m1", ThreadID: "t1"},
			{ID: "m2", ThreadID: "t2"},
		},
		threads: map[string][]ports.Message{
			"t2": {
				{
					ID: "m2", ThreadID: "t2",
					Subject:  "appraisal for 123 main st",
					From:     "appraiser@example.com",
					Received: time.Now(),
					Attachments: []ports.Attachment{
						{ID: "a1", Filename: "Appraisal.pdf", MimeType: "application/pdf", SizeBytes: 100},
					},
				},
			},
		},
		threadErr:   map[string]error{"t1": errors.New("rate limited")},
		attachments: map[string][]byte{"m2:a1": []byte("x")},
	}
	docs := &memDocRepo{}

	result, err := newMailboxUC(mail, newMemLoanRepo(mailboxTestLoan()), docs, newMemStorage()).
		SyncFromMailbox(context.Background(), "loan-1")
	if err != nil {
		t.Fatalf("SyncFromMailbox() error = %v", err)
	}
	if result.DocumentsCreated != 1 {
		t.Fatalf("surviving thread must still be ingested: %+v", result)
	}
}

func TestMailboxSyncAttachmentFailureIsDegradedSuccess(t *testing.T) {
	mail := &fakeMail{
		refs: []ports.MessageRef{{ID: "m1", ThreadID: "t1"}},
		threads: map[string][]ports.Message{
			"t1": {
				{
					ID: "m1", ThreadID: "t1",
					Subject:  "docs for 123 main st",
					From:     "agent@title.co",
					Received: time.Now(),
					Attachments: []ports.Attachment{
						{ID: "a1", Filename: "Deed.pdf", MimeType: "application/pdf", SizeBytes: 100},
						{ID: "a2", Filename: "Survey.pdf", MimeType: "application/pdf", SizeBytes: 200},
					},
				},
			},
		},
		attachments: map[string][]byte{"m1:a2": []byte("survey")},
		attErr:      map[string]error{"m1:a1": errors.New("404")},
	}
	docs := &memDocRepo{}

	result, err := newMailboxUC(mail, newMemLoanRepo(mailboxTestLoan()), docs, newMemStorage()).
		SyncFromMailbox(context.Background(), "loan-1")
	if err != nil {
		t.Fatalf("degraded sync must not error, got %v", err)
	}
	if result.AttachmentFailures != 1 || result.DocumentsCreated != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Warning == "" {
		t.Fatalf("expected warning for degraded success")
	}
}

func TestMailboxSyncDeduplicatesAcrossChannels(t *testing.T) {
	docs := &memDocRepo{}
	_ = docs.Create(context.Background(), &domain.Document{
		ID: "d1", LoanID: "loan-1", SourceChannel: domain.SourceDrive,
		SourceRef: "drive:f1", Name: "Insurance Policy.pdf", SizeBytes: 500_000,
	})

	mail := &fakeMail{
		refs: []ports.MessageRef{{ID: "m1", ThreadID: "t1"}},
		threads: map[string][]ports.Message{
			"t1": {
				{
					ID: "m1", ThreadID: "t1",
					Subject:  "123 main st insurance",
					From:     "jo@insure.com",
					Received: time.Now(),
					Attachments: []ports.Attachment{
						{ID: "a1", Filename: "insurance policy.pdf", MimeType: "application/pdf", SizeBytes: 500_300},
					},
				},
			},
		},
		attachments: map[string][]byte{"m1:a1": []byte("dup")},
	}

	result, err := newMailboxUC(mail, newMemLoanRepo(mailboxTestLoan()), docs, newMemStorage()).
		SyncFromMailbox(context.Background(), "loan-1")
	if err != nil {
		t.Fatalf("SyncFromMailbox() error = %v", err)
	}
	if result.DocumentsCreated != 0 {
		t.Fatalf("cross-channel duplicate must be skipped: %+v", result)
	}
	if result.PDFsFound != 1 {
		t.Fatalf("duplicate still counts as a found pdf: %+v", result)
	}
}

func TestMailboxSyncListFailureIsUpstreamError(t *testing.T) {
	mail := &fakeMail{listErr: errors.New("401 unauthorized")}

	_, err := newMailboxUC(mail, newMemLoanRepo(mailboxTestLoan()), &memDocRepo{}, newMemStorage()).
		SyncFromMailbox(context.Background(), "loan-1")
	if !domain.IsKind(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("error = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestMailboxSyncFiltersMimeTypes(t *testing.T) {
	mail := &fakeMail{
		refs: []ports.MessageRef{{ID: "m1", ThreadID: "t1"}},
		threads: map[string][]ports.Message{
			"t1": {
				{
					ID: "m1", ThreadID: "t1",
					Subject:  "123 main st pictures",
					From:     "agent@title.co",
					Received: time.Now(),
					Attachments: []ports.Attachment{
						{ID: "a1", Filename: "photo.heic", MimeType: "image/heic"},
					},
				},
			},
		},
	}

	result, err := newMailboxUC(mail, newMemLoanRepo(mailboxTestLoan()), &memDocRepo{}, newMemStorage()).
		SyncFromMailbox(context.Background(), "loan-1")
	if err != nil {
		t.Fatalf("SyncFromMailbox() error = %v", err)
	}
	if result.PDFsFound != 0 || result.DocumentsCreated != 0 {
		t.Fatalf("disallowed mime type must be ignored: %+v", result)
	}
}

func TestSenderAddress(t *testing.T) {
	cases := map[string]string{
		"Dana Whitfield <dw@example.com>": "dw@example.com",
		"dw@example.com":                  "dw@example.com",
		"  broken <oops":                  "broken <oops",
	}
	for in, want := range cases {
		if got := senderAddress(in); got != want {
			t.Fatalf("senderAddress(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMailboxSyncProvenanceSuffixSurvivesRescan(t *testing.T) {
	mail := &fakeMail{
		refs: []ports.MessageRef{{ID: "m1", ThreadID: "t1"}},
		threads: map[string][]ports.Message{
			"t1": {
				{
					ID: "m1", ThreadID: "t1",
					Subject:  "123 main st docs",
					From:     "agent@title.co",
					Received: time.Now(),
					Attachments: []ports.Attachment{
						{ID: "a1", Filename: "Deed.pdf", MimeType: "application/pdf", SizeBytes: 100},
					},
				},
			},
		},
		attachments: map[string][]byte{"m1:a1": []byte("x")},
	}
	docs := &memDocRepo{}
	uc := newMailboxUC(mail, newMemLoanRepo(mailboxTestLoan()), docs, newMemStorage())

	if _, err := uc.SyncFromMailbox(context.Background(), "loan-1"); err != nil {
		t.Fatalf("first sync error = %v", err)
	}
	second, err := uc.SyncFromMailbox(context.Background(), "loan-1")
	if err != nil {
		t.Fatalf("second sync error = %v", err)
	}
	if second.DocumentsCreated != 0 {
		t.Fatalf("re-scan must not re-ingest, got %+v", second)
	}

	stored, _ := docs.ListByLoan(context.Background(), "loan-1", false)
	if !strings.HasSuffix(stored[0].Name, "(from agent@title.co)") {
		t.Fatalf("stored name %q must keep provenance suffix", stored[0].Name)
	}
}
