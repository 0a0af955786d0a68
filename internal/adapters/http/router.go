package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/veralend/loandocs/internal/core/domain"
	"github.com/veralend/loandocs/internal/core/ports"
)

type Router struct {
	loans     ports.LoanRepository
	drive     ports.DriveSyncer
	mailbox   ports.MailboxSyncer
	uploader  ports.DocumentUploader
	checklist ports.ChecklistService
	queue     ports.SyncQueue
	logger    *slog.Logger
}

func NewRouter(
	loans ports.LoanRepository,
	drive ports.DriveSyncer,
	mailbox ports.MailboxSyncer,
	uploader ports.DocumentUploader,
	checklist ports.ChecklistService,
	queue ports.SyncQueue,
	logger *slog.Logger,
) *Router {
	return &Router{
		loans:     loans,
		drive:     drive,
		mailbox:   mailbox,
		uploader:  uploader,
		checklist: checklist,
		queue:     queue,
		logger:    logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)

	mux.HandleFunc("POST /v1/loans", rt.createLoan)
	mux.HandleFunc("GET /v1/loans/{id}", rt.getLoan)

	mux.HandleFunc("POST /v1/loans/{id}/sync/drive", rt.syncDrive)
	mux.HandleFunc("POST /v1/loans/{id}/sync/mailbox", rt.syncMailbox)
	mux.HandleFunc("POST /v1/loans/{id}/sync/async", rt.syncAsync)

	mux.HandleFunc("GET /v1/loans/{id}/documents", rt.listDocuments)
	mux.HandleFunc("POST /v1/loans/{id}/documents", rt.uploadDocument)
	mux.HandleFunc("POST /v1/loans/{id}/documents/{docID}/delete", rt.deleteDocument)
	mux.HandleFunc("POST /v1/loans/{id}/documents/{docID}/restore", rt.restoreDocument)
	mux.HandleFunc("POST /v1/loans/{id}/documents/{docID}/category", rt.recategorizeDocument)

	mux.HandleFunc("POST /v1/loans/{id}/assignments", rt.assignDocument)
	mux.HandleFunc("DELETE /v1/loans/{id}/assignments", rt.unassignDocument)

	mux.HandleFunc("POST /v1/loans/{id}/requirements", rt.addCustomRequirement)
	mux.HandleFunc("DELETE /v1/loans/{id}/requirements/{name}", rt.removeCustomRequirement)
	mux.HandleFunc("POST /v1/loans/{id}/requirements/{name}/complete", rt.markComplete)
	mux.HandleFunc("POST /v1/loans/{id}/requirements/{name}/uncomplete", rt.unmarkComplete)

	mux.HandleFunc("GET /v1/loans/{id}/checklist", rt.getChecklist)
	mux.HandleFunc("GET /v1/loans/{id}/checklist.xlsx", rt.exportChecklist)
	mux.HandleFunc("GET /v1/loans/{id}/progress", rt.getProgress)

	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createLoanRequest struct {
	Funder        string              `json:"funder"`
	DriveFolderID string              `json:"drive_folder_id"`
	Identity      domain.LoanIdentity `json:"identity"`
}

func (rt *Router) createLoan(w http.ResponseWriter, r *http.Request) {
	var req createLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Funder) == "" {
		writeError(w, http.StatusBadRequest, "funder is required")
		return
	}
	if strings.TrimSpace(req.Identity.PropertyAddress) == "" {
		writeError(w, http.StatusBadRequest, "identity.property_address is required")
		return
	}

	now := time.Now().UTC()
	loan := &domain.Loan{
		ID:            uuid.NewString(),
		Funder:        req.Funder,
		DriveFolderID: req.DriveFolderID,
		Identity:      req.Identity,
		Assignments:   domain.Assignments{},
		Completed:     domain.CompletionSet{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := rt.loans.Create(r.Context(), loan); err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (rt *Router) getLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := rt.loans.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (rt *Router) syncDrive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FolderID string `json:"folder_id"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}

	result, err := rt.drive.SyncFromFolder(r.Context(), r.PathValue("id"), req.FolderID)
	if err != nil && !domain.IsKind(err, domain.ErrUpstreamUnavailable) {
		rt.writeDomainError(w, r, err)
		return
	}
	// Partial upstream failure still reports what was reconciled.
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":  err.Error(),
			"result": result,
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) syncMailbox(w http.ResponseWriter, r *http.Request) {
	result, err := rt.mailbox.SyncFromMailbox(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) syncAsync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channel string `json:"channel"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}
	channel := domain.SourceChannel(req.Channel)
	if channel == "" {
		channel = domain.SourceGmail
	}
	if channel != domain.SourceDrive && channel != domain.SourceGmail {
		writeError(w, http.StatusBadRequest, "channel must be drive or gmail")
		return
	}

	loanID := r.PathValue("id")
	if _, err := rt.loans.GetByID(r.Context(), loanID); err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	if err := rt.queue.PublishSyncRequest(r.Context(), loanID, channel); err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"loan_id": loanID,
		"channel": string(channel),
		"status":  "queued",
	})
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	includeDeleted := r.URL.Query().Get("include_deleted") == "true"
	docs, err := rt.checklist.ListDocuments(r.Context(), r.PathValue("id"), includeDeleted)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	category := domain.Category(r.FormValue("category"))
	if category != "" && !category.Valid() {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}

	doc, err := rt.uploader.Upload(
		r.Context(),
		r.PathValue("id"),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		category,
		file,
	)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	err := rt.checklist.DeleteDocument(r.Context(), r.PathValue("id"), r.PathValue("docID"))
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (rt *Router) restoreDocument(w http.ResponseWriter, r *http.Request) {
	err := rt.checklist.RestoreDocument(r.Context(), r.PathValue("id"), r.PathValue("docID"))
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

func (rt *Router) recategorizeDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	err := rt.checklist.RecategorizeDocument(
		r.Context(),
		r.PathValue("id"),
		r.PathValue("docID"),
		domain.Category(req.Category),
	)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type assignmentRequest struct {
	Requirement string `json:"requirement"`
	DocumentID  string `json:"document_id"`
}

func (rt *Router) assignDocument(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAssignment(w, r)
	if !ok {
		return
	}
	err := rt.checklist.AssignDocument(r.Context(), r.PathValue("id"), req.Requirement, req.DocumentID)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "assigned"})
}

func (rt *Router) unassignDocument(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAssignment(w, r)
	if !ok {
		return
	}
	err := rt.checklist.UnassignDocument(r.Context(), r.PathValue("id"), req.Requirement, req.DocumentID)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unassigned"})
}

func decodeAssignment(w http.ResponseWriter, r *http.Request) (assignmentRequest, bool) {
	var req assignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return req, false
	}
	if strings.TrimSpace(req.Requirement) == "" || strings.TrimSpace(req.DocumentID) == "" {
		writeError(w, http.StatusBadRequest, "requirement and document_id are required")
		return req, false
	}
	return req, true
}

func (rt *Router) addCustomRequirement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	created, err := rt.checklist.AddCustomRequirement(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (rt *Router) removeCustomRequirement(w http.ResponseWriter, r *http.Request) {
	err := rt.checklist.RemoveCustomRequirement(r.Context(), r.PathValue("id"), r.PathValue("name"))
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (rt *Router) markComplete(w http.ResponseWriter, r *http.Request) {
	err := rt.checklist.MarkComplete(r.Context(), r.PathValue("id"), r.PathValue("name"))
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

func (rt *Router) unmarkComplete(w http.ResponseWriter, r *http.Request) {
	err := rt.checklist.Unmark(r.Context(), r.PathValue("id"), r.PathValue("name"))
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "uncompleted"})
}

func (rt *Router) getChecklist(w http.ResponseWriter, r *http.Request) {
	entries, err := rt.checklist.Checklist(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"checklist": entries})
}

func (rt *Router) getProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := rt.checklist.Progress(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (rt *Router) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		rt.logger.Error("request failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
