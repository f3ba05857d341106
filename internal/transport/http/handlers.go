// Package httptransport is the thin HTTP layer over the pipeline and the
// queryable stores. It delegates to domain packages and keeps transport
// concerns (routing, decoding, auth) isolated.
package httptransport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"leadgate/internal/audit"
	"leadgate/internal/ingest"
	"leadgate/internal/lead"
	"leadgate/internal/pipeline"
	"leadgate/internal/platform/middleware"
	"leadgate/internal/store"
)

// Handler serves the ingest and query API.
type Handler struct {
	pipeline *pipeline.Pipeline
	store    store.Store
	trail    *audit.Trail
	logger   *slog.Logger
	auth     *middleware.JWTValidator
	now      func() time.Time
}

func NewHandler(p *pipeline.Pipeline, s store.Store, trail *audit.Trail, auth *middleware.JWTValidator, logger *slog.Logger) *Handler {
	return &Handler{
		pipeline: p,
		store:    s,
		trail:    trail,
		logger:   logger,
		auth:     auth,
		now:      time.Now,
	}
}

// NewRouter wires all endpoints. Health and metrics are open; the lead API
// requires a bearer token whose subject becomes the audit actor.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.auth, h.logger))
		r.Post("/leads/import", h.handleImport)
		r.Get("/leads/{leadID}", h.handleGetLead)
		r.Get("/leads/{leadID}/audit", h.handleLeadAudit)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// importRequest is a normalized batch submitted over HTTP. The source tags
// every record in the batch.
type importRequest struct {
	Source  lead.Source   `json:"source"`
	Records []lead.Record `json:"records"`
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := audit.WithActor(r.Context(), middleware.GetActor(r.Context()))

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Source.Valid() {
		writeError(w, http.StatusBadRequest, "unknown source")
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, "empty batch")
		return
	}

	now := h.now()
	records := make([]lead.Record, 0, len(req.Records))
	for _, record := range req.Records {
		records = append(records, ingest.Normalize(record, req.Source, now))
	}

	summary, err := h.pipeline.Run(ctx, records)
	if err != nil {
		h.logger.ErrorContext(ctx, "import run failed", "error", err)
		writeError(w, http.StatusInternalServerError, "import failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleGetLead(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	protected, err := h.store.Get(r.Context(), leadID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "lead not found")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "lead lookup failed", "lead_id", leadID, "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	// Regulated fields are returned exactly as stored: ciphertext.
	writeJSON(w, http.StatusOK, protected)
}

func (h *Handler) handleLeadAudit(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	events, err := h.trail.ListByLead(r.Context(), leadID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "audit lookup failed", "lead_id", leadID, "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lead_id": leadID, "events": events})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
