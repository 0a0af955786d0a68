package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/veralend/loandocs/internal/core/classify"
	"github.com/veralend/loandocs/internal/core/dedup"
	"github.com/veralend/loandocs/internal/core/domain"
	"github.com/veralend/loandocs/internal/core/ports"
	"github.com/veralend/loandocs/internal/core/relevance"
)

// MailboxSyncOptions tune the scan. Zero values fall back to defaults.
type MailboxSyncOptions struct {
	Query            string
	MaxMessages      int
	ThreadFanout     int
	ThreadFetchRate  rate.Limit
	AllowedMimeTypes []string
}

func (o MailboxSyncOptions) normalize() MailboxSyncOptions {
	out := o
	if out.Query == "" {
		out.Query = "has:attachment newer_than:30d"
	}
	if out.MaxMessages <= 0 {
		out.MaxMessages = 100
	}
	if out.ThreadFanout <= 0 {
		out.ThreadFanout = 4
	}
	if out.ThreadFetchRate <= 0 {
		out.ThreadFetchRate = 5
	}
	if len(out.AllowedMimeTypes) == 0 {
		out.AllowedMimeTypes = []string{"application/pdf"}
	}
	return out
}

type MailboxSyncUseCase struct {
	gate    *SyncGate
	mail    ports.MailboxClient
	loans   ports.LoanRepository
	docs    ports.DocumentRepository
	storage ports.ObjectStorage
	sniffer ports.ContentSniffer
	opts    MailboxSyncOptions
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewMailboxSyncUseCase(
	gate *SyncGate,
	mail ports.MailboxClient,
	loans ports.LoanRepository,
	docs ports.DocumentRepository,
	storage ports.ObjectStorage,
	sniffer ports.ContentSniffer,
	opts MailboxSyncOptions,
	logger *slog.Logger,
) *MailboxSyncUseCase {
	opts = opts.normalize()
	if logger == nil {
		logger = slog.Default()
	}
	return &MailboxSyncUseCase{
		gate:    gate,
		mail:    mail,
		loans:   loans,
		docs:    docs,
		storage: storage,
		sniffer: sniffer,
		opts:    opts,
		limiter: rate.NewLimiter(opts.ThreadFetchRate, 1),
		logger:  logger,
	}
}

// SyncFromMailbox scans recent mail for loan-relevant attachments. Threads
// are expanded fully before filtering; a failed thread fetch or attachment
// download is logged and skipped, never fatal to the scan.
func (uc *MailboxSyncUseCase) SyncFromMailbox(ctx context.Context, loanID string) (domain.MailboxSyncResult, error) {
	var result domain.MailboxSyncResult

	release, err := uc.gate.Acquire(loanID)
	if err != nil {
		return result, err
	}
	defer release()

	loan, err := uc.loans.GetByID(ctx, loanID)
	if err != nil {
		return result, fmt.Errorf("load loan: %w", err)
	}

	existing, err := uc.docs.ListByLoan(ctx, loanID, true)
	if err != nil {
		return result, fmt.Errorf("list existing documents: %w", err)
	}

	refs, err := uc.mail.ListMessages(ctx, uc.opts.Query, uc.opts.MaxMessages)
	if err != nil {
		return result, domain.WrapError(domain.ErrUpstreamUnavailable, "list messages", err)
	}

	messages := uc.expandThreads(ctx, refs)
	result.Scanned = len(messages)

	for _, msg := range messages {
		if !relevance.IsRelevant(loan.Identity, relevance.MessageMeta{
			Subject:     msg.Subject,
			From:        msg.From,
			To:          msg.To,
			Cc:          msg.Cc,
			BodySnippet: msg.Snippet,
		}) {
			continue
		}
		uc.ingestAttachments(ctx, loanID, msg, &existing, &result)
	}

	if result.AttachmentFailures > 0 {
		result.Warning = fmt.Sprintf("%d attachment(s) could not be downloaded", result.AttachmentFailures)
	}

	if err := uc.loans.TouchMailboxSync(ctx, loanID, time.Now().UTC()); err != nil {
		uc.logger.Warn("record mailbox sync time", "loan_id", loanID, "error", err)
	}
	return result, nil
}

// expandThreads fetches every distinct thread with bounded, rate-limited
// fan-out. A single failed fetch drops that thread only; the merged set is
// complete before the relevance filter runs.
func (uc *MailboxSyncUseCase) expandThreads(ctx context.Context, refs []ports.MessageRef) []ports.Message {
	threadIDs := distinctThreadIDs(refs)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		byMsgID = make(map[string]ports.Message)
		slots   = make(chan struct{}, uc.opts.ThreadFanout)
	)

	for _, threadID := range threadIDs {
		if err := uc.limiter.Wait(ctx); err != nil {
			break
		}
		wg.Add(1)
		slots <- struct{}{}
		go func(threadID string) {
			defer wg.Done()
			defer func() { <-slots }()

			msgs, err := uc.mail.GetThread(ctx, threadID)
			if err != nil {
				uc.logger.Warn("thread fetch failed, skipping", "thread_id", threadID, "error", err)
				return
			}
			mu.Lock()
			for _, m := range msgs {
				byMsgID[m.ID] = m
			}
			mu.Unlock()
		}(threadID)
	}
	wg.Wait()

	merged := make([]ports.Message, 0, len(byMsgID))
	for _, m := range byMsgID {
		merged = append(merged, m)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Received.Before(merged[j].Received) })
	return merged
}

func (uc *MailboxSyncUseCase) ingestAttachments(
	ctx context.Context,
	loanID string,
	msg ports.Message,
	existing *[]domain.Document,
	result *domain.MailboxSyncResult,
) {
	for _, att := range msg.Attachments {
		if !uc.mimeAllowed(att.MimeType) {
			continue
		}
		result.PDFsFound++

		displayName := fmt.Sprintf("%s (from %s)", att.Filename, senderAddress(msg.From))
		candidate := domain.Candidate{
			SourceChannel: domain.SourceGmail,
			SourceRef:     msg.ID + ":" + att.ID,
			Name:          displayName,
			MimeType:      att.MimeType,
			SizeBytes:     att.SizeBytes,
		}
		if dedup.IsDuplicate(*existing, candidate) {
			continue
		}

		raw, err := uc.mail.GetAttachment(ctx, msg.ID, att.ID)
		if err != nil {
			uc.logger.Warn("attachment download failed, skipping",
				"message_id", msg.ID, "attachment_id", att.ID, "error", err)
			result.AttachmentFailures++
			continue
		}

		docID := uuid.NewString()
		storageKey := fmt.Sprintf("%s/%s_%s", loanID, docID, sanitizeFilename(att.Filename))
		if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(raw), int64(len(raw)), att.MimeType); err != nil {
			uc.logger.Warn("attachment store failed, skipping",
				"message_id", msg.ID, "attachment_id", att.ID, "error", err)
			result.AttachmentFailures++
			continue
		}

		category := classify.Classify(att.Filename)
		if category == domain.CategoryOther && uc.sniffer != nil {
			if text, err := uc.sniffer.TextPreview(att.MimeType, raw); err == nil && text != "" {
				if hinted := classify.ClassifyText(text); hinted != domain.CategoryOther {
					category = hinted
				}
			}
		}

		now := time.Now().UTC()
		doc := domain.Document{
			ID:            docID,
			LoanID:        loanID,
			SourceChannel: domain.SourceGmail,
			SourceRef:     candidate.SourceRef,
			Name:          displayName,
			MimeType:      att.MimeType,
			SizeBytes:     att.SizeBytes,
			StorageKey:    storageKey,
			Category:      category,
			ObservedAt:    msg.Received,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if doc.ObservedAt.IsZero() {
			doc.ObservedAt = now
		}

		if err := uc.docs.Create(ctx, &doc); err != nil {
			uc.logger.Warn("persist document failed, skipping",
				"message_id", msg.ID, "attachment_id", att.ID, "error", err)
			result.AttachmentFailures++
			continue
		}
		*existing = append(*existing, doc)
		result.DocumentsCreated++
	}
}

func (uc *MailboxSyncUseCase) mimeAllowed(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	for _, allowed := range uc.opts.AllowedMimeTypes {
		if mimeType == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

func distinctThreadIDs(refs []ports.MessageRef) []string {
	seen := make(map[string]struct{}, len(refs))
	var ids []string
	for _, ref := range refs {
		if ref.ThreadID == "" {
			continue
		}
		if _, ok := seen[ref.ThreadID]; ok {
			continue
		}
		seen[ref.ThreadID] = struct{}{}
		ids = append(ids, ref.ThreadID)
	}
	return ids
}

// senderAddress reduces "Dana Whitfield <dw@example.com>" to the bare
// address for the provenance suffix.
func senderAddress(from string) string {
	from = strings.TrimSpace(from)
	if i := strings.Index(from, "<"); i >= 0 {
		if j := strings.Index(from[i:], ">"); j > 0 {
			return from[i+1 : i+j]
		}
	}
	return from
}
