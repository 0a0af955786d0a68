package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/veralend/loandocs/internal/core/domain"
	"github.com/veralend/loandocs/internal/core/ports"
)

func driveTestLoan() *domain.Loan {
	return &domain.Loan{
		ID:            "loan-1",
		Funder:        "kiavi",
		DriveFolderID: "root",
		Identity:      domain.LoanIdentity{PropertyAddress: "123 Main Street, Springfield, IL"},
	}
}

func TestDriveSyncIngestsRecursively(t *testing.T) {
	drive := &fakeDrive{
		folders: map[string][]ports.DriveEntry{
			"root": {
				{ID: "f1", Name: "Appraisal.pdf", MimeType: "application/pdf", SizeBytes: 1000},
				{ID: "sub", Name: "Title Docs", IsFolder: true},
			},
			"sub": {
				{ID: "f2", Name: "Title Commitment.pdf", MimeType: "application/pdf", SizeBytes: 2000},
			},
		},
	}
	docs := &memDocRepo{}
	uc := NewDriveSyncUseCase(NewSyncGate(), drive, newMemLoanRepo(driveTestLoan()), docs, nil, nil)

	result, err := uc.SyncFromFolder(context.Background(), "loan-1", "")
	if err != nil {
		t.Fatalf("SyncFromFolder() error = %v", err)
	}
	if result.Created != 2 || result.Updated != 0 || result.Skipped != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	stored, _ := docs.ListByLoan(context.Background(), "loan-1", false)
	byRef := map[string]domain.Document{}
	for _, d := range stored {
		byRef[d.SourceRef] = d
	}
	if byRef["f1"].Category != domain.CategoryProperty {
		t.Fatalf("Appraisal.pdf classified %s, want property", byRef["f1"].Category)
	}
	if byRef["f2"].Category != domain.CategoryTitle {
		t.Fatalf("Title Commitment.pdf classified %s, want title", byRef["f2"].Category)
	}
}

func TestDriveSyncIsIdempotent(t *testing.T) {
	drive := &fakeDrive{
		folders: map[string][]ports.DriveEntry{
			"root": {
				{ID: "f1", Name: "Appraisal.pdf", MimeType: "application/pdf", SizeBytes: 1000},
			},
		},
	}
	docs := &memDocRepo{}
	uc := NewDriveSyncUseCase(NewSyncGate(), drive, newMemLoanRepo(driveTestLoan()), docs, nil, nil)

	if _, err := uc.SyncFromFolder(context.Background(), "loan-1", "root"); err != nil {
		t.Fatalf("first sync error = %v", err)
	}
	second, err := uc.SyncFromFolder(context.Background(), "loan-1", "root")
	if err != nil {
		t.Fatalf("second sync error = %v", err)
	}
	if second.Created != 0 {
		t.Fatalf("second sync created %d documents, want 0", second.Created)
	}
	if second.Skipped != 1 {
		t.Fatalf("second sync skipped %d, want 1", second.Skipped)
	}
}

func TestDriveSyncUpdatesRenamedFile(t *testing.T) {
	drive := &fakeDrive{
		folders: map[string][]ports.DriveEntry{
			"root": {
				{ID: "f1", Name: "Appraisal.pdf", MimeType: "application/pdf", SizeBytes: 1000},
			},
		},
	}
	docs := &memDocRepo{}
	uc := NewDriveSyncUseCase(NewSyncGate(), drive, newMemLoanRepo(driveTestLoan()), docs, nil, nil)

	if _, err := uc.SyncFromFolder(context.Background(), "loan-1", "root"); err != nil {
		t.Fatalf("first sync error = %v", err)
	}

	drive.folders["root"][0].Name = "Appraisal v2.pdf"
	result, err := uc.SyncFromFolder(context.Background(), "loan-1", "root")
	if err != nil {
		t.Fatalf("second sync error = %v", err)
	}
	if result.Updated != 1 || result.Created != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	stored, _ := docs.ListByLoan(context.Background(), "loan-1", false)
	if stored[0].Name != "Appraisal v2.pdf" {
		t.Fatalf("stored name %q, want renamed", stored[0].Name)
	}
}

func TestDriveSyncUpstreamFailureKeepsPartialResults(t *testing.T) {
	drive := &fakeDrive{
		folders: map[string][]ports.DriveEntry{
			"root": {
				{ID: "f1", Name: "Appraisal.pdf", MimeType: "application/pdf", SizeBytes: 1000},
				{ID: "sub", Name: "More", IsFolder: true},
			},
		},
		listErr: map[string]error{"sub": errors.New("503 backend error")},
	}
	docs := &memDocRepo{}
	uc := NewDriveSyncUseCase(NewSyncGate(), drive, newMemLoanRepo(driveTestLoan()), docs, nil, nil)

	result, err := uc.SyncFromFolder(context.Background(), "loan-1", "root")
	if !domain.IsKind(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("error = %v, want ErrUpstreamUnavailable", err)
	}
	if result.Created != 1 {
		t.Fatalf("partial result lost: %+v", result)
	}
	stored, _ := docs.ListByLoan(context.Background(), "loan-1", false)
	if len(stored) != 1 {
		t.Fatalf("ingested documents must be kept on failure, got %d", len(stored))
	}
}

func TestDriveSyncContentHintForUnclassifiedPDF(t *testing.T) {
	drive := &fakeDrive{
		folders: map[string][]ports.DriveEntry{
			"root": {
				{ID: "f1", Name: "scan_0042.pdf", MimeType: "application/pdf", SizeBytes: 1000},
			},
		},
		files: map[string][]byte{
			"f1": []byte("Evidence of insurance coverage, binder number 991"),
		},
	}
	docs := &memDocRepo{}
	uc := NewDriveSyncUseCase(NewSyncGate(), drive, newMemLoanRepo(driveTestLoan()), docs, fakeSniffer{}, nil)

	if _, err := uc.SyncFromFolder(context.Background(), "loan-1", "root"); err != nil {
		t.Fatalf("SyncFromFolder() error = %v", err)
	}
	stored, _ := docs.ListByLoan(context.Background(), "loan-1", false)
	if stored[0].Category != domain.CategoryInsurance {
		t.Fatalf("content hint category %s, want insurance", stored[0].Category)
	}
}

func TestDriveSyncGateReleasedAfterFailure(t *testing.T) {
	drive := &fakeDrive{listErr: map[string]error{"root": errors.New("boom")}}
	gate := NewSyncGate()
	uc := NewDriveSyncUseCase(gate, drive, newMemLoanRepo(driveTestLoan()), &memDocRepo{}, nil, nil)

	if _, err := uc.SyncFromFolder(context.Background(), "loan-1", "root"); err == nil {
		t.Fatalf("expected error")
	}
	if _, busy := gate.InFlightSince("loan-1"); busy {
		t.Fatalf("gate must be released on the error path")
	}
}

func TestDriveSyncRejectsConcurrentRun(t *testing.T) {
	gate := NewSyncGate()
	release, _ := gate.Acquire("loan-1")
	defer release()

	uc := NewDriveSyncUseCase(gate, &fakeDrive{}, newMemLoanRepo(driveTestLoan()), &memDocRepo{}, nil, nil)
	if _, err := uc.SyncFromFolder(context.Background(), "loan-1", "root"); !errors.Is(err, domain.ErrSyncInProgress) {
		t.Fatalf("error = %v, want ErrSyncInProgress", err)
	}
}
