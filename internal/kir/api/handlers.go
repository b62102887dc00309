package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"kir/internal/common/logging"
	vo "kir/internal/common/value_objects"
	"kir/internal/kir/application"
	"kir/internal/kir/domain"
)

// ClientIDHeader identifies the browser client owning a wizard and its draft.
const ClientIDHeader = "X-Client-ID"

// RecordReader is the read side used by GET /records/{id}.
type RecordReader interface {
	Get(ctx context.Context, id domain.RecordID) (*domain.Record, error)
	Members(ctx context.Context, id domain.RecordID) ([]domain.HouseholdMember, error)
}

// Handler handles HTTP requests for the KIR wizard.
type Handler struct {
	sessions *application.SessionManager
	records  RecordReader
}

// NewHandler creates a new Handler.
func NewHandler(sessions *application.SessionManager, records RecordReader) *Handler {
	return &Handler{sessions: sessions, records: records}
}

// RegisterRoutes registers the wizard routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /wizard/start", h.withWizard(h.Start))
	mux.HandleFunc("GET /wizard", h.withWizard(h.GetSession))
	mux.HandleFunc("PUT /wizard/fields", h.withWizard(h.UpdateFields))
	mux.HandleFunc("POST /wizard/next", h.withWizard(h.Next))
	mux.HandleFunc("POST /wizard/previous", h.withWizard(h.Previous))
	mux.HandleFunc("POST /wizard/draft", h.withWizard(h.SaveDraft))
	mux.HandleFunc("POST /wizard/submit", h.withWizard(h.Submit))
	mux.HandleFunc("DELETE /wizard", h.withWizard(h.Discard))
	mux.HandleFunc("GET /records/{id}", h.GetRecord)
}

type wizardHandler func(w http.ResponseWriter, r *http.Request, wiz *application.Wizard)

// withWizard resolves the client's wizard from the X-Client-ID header.
func (h *Handler) withWizard(next wizardHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID, err := vo.ParseClientID(r.Header.Get(ClientIDHeader))
		if err != nil {
			writeError(w, http.StatusBadRequest, "X-Client-ID header is required")
			return
		}
		ctx := logging.WithClientID(r.Context(), clientID)
		wiz, err := h.sessions.Get(ctx, clientID)
		if err != nil {
			handleServiceError(w, r.WithContext(ctx), err)
			return
		}
		next(w, r.WithContext(ctx), wiz)
	}
}

// StartRequest is the optional JSON body of POST /wizard/start.
type StartRequest struct {
	Fresh bool `json:"fresh"`
}

// Start handles POST /wizard/start. The stored draft is restored unless the
// caller asks for a fresh session, which discards the draft first.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request, wiz *application.Wizard) {
	var req StartRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.Fresh {
		writeJSON(w, http.StatusOK, wiz.Discard(r.Context()))
		return
	}
	writeJSON(w, http.StatusOK, wiz.Resume(r.Context()))
}

// GetSession handles GET /wizard.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request, wiz *application.Wizard) {
	writeJSON(w, http.StatusOK, wiz.Session())
}

// UpdateFieldsRequest carries a single edit (name, value) or several edits keyed
// by field name. Structured list cells use names like members[0][name].
type UpdateFieldsRequest struct {
	Name   string                       `json:"name,omitempty"`
	Value  domain.FieldValue            `json:"value"`
	Fields map[string]domain.FieldValue `json:"fields,omitempty"`
}

// UpdateFieldsResponse reports which edits were applied.
type UpdateFieldsResponse struct {
	Ignored []string            `json:"ignored,omitempty"`
	Session domain.SessionView `json:"session"`
}

// UpdateFields handles PUT /wizard/fields. Edits apply immediately; persistence is
// left to the autosave.
func (h *Handler) UpdateFields(w http.ResponseWriter, r *http.Request, wiz *application.Wizard) {
	var req UpdateFieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name != "" {
		if req.Fields == nil {
			req.Fields = make(map[string]domain.FieldValue, 1)
		}
		req.Fields[req.Name] = req.Value
	}
	if len(req.Fields) == 0 {
		writeError(w, http.StatusBadRequest, "fields must not be empty")
		return
	}

	names := make([]string, 0, len(req.Fields))
	for name := range req.Fields {
		names = append(names, name)
	}
	// Deterministic order for row cells.
	sort.Strings(names)

	var ignored []string
	for _, name := range names {
		if !wiz.UpdateField(r.Context(), name, req.Fields[name]) {
			ignored = append(ignored, name)
		}
	}
	writeJSON(w, http.StatusOK, UpdateFieldsResponse{Ignored: ignored, Session: wiz.Session()})
}

// Next handles POST /wizard/next.
func (h *Handler) Next(w http.ResponseWriter, r *http.Request, wiz *application.Wizard) {
	view, err := wiz.GoToNextStep(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Previous handles POST /wizard/previous.
func (h *Handler) Previous(w http.ResponseWriter, r *http.Request, wiz *application.Wizard) {
	writeJSON(w, http.StatusOK, wiz.GoToPreviousStep(r.Context()))
}

// SaveDraft handles POST /wizard/draft.
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request, wiz *application.Wizard) {
	if err := wiz.SaveDraft(r.Context()); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wiz.Session())
}

// SubmitResponse is returned once a record has been submitted.
type SubmitResponse struct {
	RecordID string             `json:"recordId"`
	Session  domain.SessionView `json:"session"`
}

// Submit handles POST /wizard/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request, wiz *application.Wizard) {
	id, err := wiz.Submit(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SubmitResponse{RecordID: id.String(), Session: wiz.Session()})
}

// Discard handles DELETE /wizard.
func (h *Handler) Discard(w http.ResponseWriter, r *http.Request, wiz *application.Wizard) {
	writeJSON(w, http.StatusOK, wiz.Discard(r.Context()))
}

// RecordResponse is the JSON view of a stored record.
type RecordResponse struct {
	ID         string           `json:"id"`
	NationalID string           `json:"nationalId"`
	Status     string           `json:"status"`
	Version    int              `json:"version"`
	Fields     domain.Fields    `json:"fields"`
	Members    []MemberResponse `json:"members"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// MemberResponse is one expanded household member.
type MemberResponse struct {
	Position     int    `json:"position"`
	Name         string `json:"name"`
	Relationship string `json:"relationship,omitempty"`
}

// GetRecord handles GET /records/{id}. The national ID is masked.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseRecordID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return
	}
	rec, err := h.records.Get(ctx, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	members, err := h.records.Members(ctx, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := RecordResponse{
		ID:         rec.ID().String(),
		NationalID: rec.NaturalKey().Masked(),
		Status:     string(rec.Status()),
		Version:    rec.Version(),
		Fields:     rec.Fields(),
		Members:    make([]MemberResponse, 0, len(members)),
		CreatedAt:  rec.CreatedAt(),
		UpdatedAt:  rec.UpdatedAt(),
	}
	for _, m := range members {
		resp.Members = append(resp.Members, MemberResponse{Position: m.Position, Name: m.Name, Relationship: m.Relationship})
	}
	writeJSON(w, http.StatusOK, resp)
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error      string             `json:"error"`
	Kind       string             `json:"kind,omitempty"`
	Step       int                `json:"step,omitempty"`
	Violations []domain.Violation `json:"violations,omitempty"`
	RecordID   string             `json:"recordId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := application.Kind(err)

	var verr *domain.ValidationError
	var cerr *domain.ConflictError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: verr.Error(), Kind: kind, Step: verr.Step, Violations: verr.Violations,
		})
	case errors.As(err, &cerr):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error: cerr.Error(), Kind: kind, RecordID: cerr.ExistingID.String(),
		})
	case errors.Is(err, domain.ErrPermissionDenied):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "permission denied", Kind: kind})
	case errors.Is(err, domain.ErrRecordNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "record not found", Kind: kind})
	case errors.Is(err, domain.ErrUnavailable):
		w.Header().Set("Retry-After", "5")
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "record repository unavailable, please retry", Kind: kind})
	default:
		logging.ErrorContext(r.Context(), "Unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
