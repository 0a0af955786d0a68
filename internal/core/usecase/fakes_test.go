package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/veralend/loandocs/internal/core/domain"
	"github.com/veralend/loandocs/internal/core/ports"
)

type memLoanRepo struct {
	mu    sync.Mutex
	loans map[string]*domain.Loan
}

func newMemLoanRepo(loans ...*domain.Loan) *memLoanRepo {
	repo := &memLoanRepo{loans: map[string]*domain.Loan{}}
	for _, l := range loans {
		if l.Assignments == nil {
			l.Assignments = domain.Assignments{}
		}
		if l.Completed == nil {
			l.Completed = domain.CompletionSet{}
		}
		repo.loans[l.ID] = l
	}
	return repo
}

func (r *memLoanRepo) Create(_ context.Context, loan *domain.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loans[loan.ID] = loan
	return nil
}

func (r *memLoanRepo) GetByID(_ context.Context, id string) (*domain.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	loan, ok := r.loans[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrLoanNotFound, "get loan", fmt.Errorf("id %s", id))
	}
	copied := *loan
	return &copied, nil
}

func (r *memLoanRepo) ListActive(_ context.Context) ([]domain.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Loan
	for _, l := range r.loans {
		out = append(out, *l)
	}
	return out, nil
}

func (r *memLoanRepo) UpdateChecklist(_ context.Context, loan *domain.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *loan
	r.loans[loan.ID] = &copied
	return nil
}

func (r *memLoanRepo) TouchMailboxSync(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if loan, ok := r.loans[id]; ok {
		loan.LastMailboxSyncAt = &at
	}
	return nil
}

type memDocRepo struct {
	mu        sync.Mutex
	docs      []domain.Document
	createErr error
}

func (r *memDocRepo) Create(_ context.Context, doc *domain.Document) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, *doc)
	return nil
}

func (r *memDocRepo) GetByID(_ context.Context, loanID, id string) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.docs {
		if r.docs[i].LoanID == loanID && r.docs[i].ID == id {
			copied := r.docs[i]
			return &copied, nil
		}
	}
	return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
}

func (r *memDocRepo) ListByLoan(_ context.Context, loanID string, includeDeleted bool) ([]domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Document
	for _, d := range r.docs {
		if d.LoanID != loanID {
			continue
		}
		if d.Deleted && !includeDeleted {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *memDocRepo) UpdateMetadata(_ context.Context, loanID, id, name string, sizeBytes int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.docs {
		if r.docs[i].LoanID == loanID && r.docs[i].ID == id {
			r.docs[i].Name = name
			r.docs[i].SizeBytes = sizeBytes
			return nil
		}
	}
	return domain.ErrDocumentNotFound
}

func (r *memDocRepo) UpdateCategory(_ context.Context, loanID, id string, category domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.docs {
		if r.docs[i].LoanID == loanID && r.docs[i].ID == id {
			r.docs[i].Category = category
			return nil
		}
	}
	return domain.ErrDocumentNotFound
}

func (r *memDocRepo) SetDeleted(_ context.Context, loanID, id string, deleted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.docs {
		if r.docs[i].LoanID == loanID && r.docs[i].ID == id {
			r.docs[i].Deleted = deleted
			return nil
		}
	}
	return domain.ErrDocumentNotFound
}

// fakeDrive serves a static folder tree keyed by folder id.
type fakeDrive struct {
	folders  map[string][]ports.DriveEntry
	files    map[string][]byte
	listErr  map[string]error
	listCnt  int
	download int
}

func (d *fakeDrive) ListFolder(_ context.Context, folderID string) ([]ports.DriveEntry, error) {
	d.listCnt++
	if err := d.listErr[folderID]; err != nil {
		return nil, err
	}
	return d.folders[folderID], nil
}

func (d *fakeDrive) DownloadFile(_ context.Context, fileID string) (io.ReadCloser, error) {
	d.download++
	raw, ok := d.files[fileID]
	if !ok {
		return nil, fmt.Errorf("no such file %s", fileID)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

// fakeMail serves static threads.
type fakeMail struct {
	mu          sync.Mutex
	refs        []ports.MessageRef
	threads     map[string][]ports.Message
	attachments map[string][]byte
	listErr     error
	threadErr   map[string]error
	attErr      map[string]error
	threadCalls int
}

func (m *fakeMail) ListMessages(_ context.Context, _ string, _ int) ([]ports.MessageRef, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.refs, nil
}

func (m *fakeMail) GetThread(_ context.Context, threadID string) ([]ports.Message, error) {
	m.mu.Lock()
	m.threadCalls++
	m.mu.Unlock()
	if err := m.threadErr[threadID]; err != nil {
		return nil, err
	}
	return m.threads[threadID], nil
}

func (m *fakeMail) GetAttachment(_ context.Context, messageID, attachmentID string) ([]byte, error) {
	key := messageID + ":" + attachmentID
	if err := m.attErr[key]; err != nil {
		return nil, err
	}
	raw, ok := m.attachments[key]
	if !ok {
		return nil, fmt.Errorf("no such attachment %s", key)
	}
	return raw, nil
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	saveErr error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (s *memStorage) Save(_ context.Context, key string, data io.Reader, _ int64, _ string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = raw
	return nil
}

func (s *memStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such object %s", key)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

// fakeSniffer returns the payload bytes as text.
type fakeSniffer struct{}

func (fakeSniffer) TextPreview(_ string, data []byte) (string, error) {
	return string(data), nil
}
