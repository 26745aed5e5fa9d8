/*
handlers.go - HTTP API handlers for the stock data provider

PURPOSE:
  Exposes document.Provider over REST so the admin UI data provider can
  call create/update/getOne. Handles HTTP request/response, JSON
  serialization, and delegates to the document package.

ENDPOINTS:
  GET    /api/resources               List writable resources
  POST   /api/{resource}              Create a record
  GET    /api/{resource}/{id}         Read a record
  PUT    /api/{resource}/{id}         Update a record
  GET    /metrics                     Prometheus metrics
  GET    /healthz                     Liveness

ACTOR:
  The X-Actor-ID header names the acting user. It is stored in the request
  context and stamped on records by the audit stamper.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Unknown resource or missing document
  - 409: Identifier conflict
  - 500: Storage and internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/warp/stock-provider/audit"
	"github.com/warp/stock-provider/document"
	"github.com/warp/stock-provider/logger"
)

// ActorHeader carries the acting user's id.
const ActorHeader = "X-Actor-ID"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Provider  *document.Provider
	Resources []string
	Log       *logger.Logger

	registry *prometheus.Registry
	writes   *prometheus.CounterVec
}

// NewHandler creates a handler. resources is what GET /api/resources lists.
func NewHandler(p *document.Provider, resources []string, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	writes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_provider_writes_total",
		Help: "Create and update calls by resource, operation and outcome.",
	}, []string{"resource", "op", "outcome"})

	registry := prometheus.NewRegistry()
	registry.MustRegister(writes)

	return &Handler{
		Provider:  p,
		Resources: resources,
		Log:       log,
		registry:  registry,
		writes:    writes,
	}
}

// =============================================================================
// RECORD HANDLERS
// =============================================================================

// ListResources returns the writable resource names.
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ResourcesResponse{Resources: h.Resources})
}

// Create creates a record.
// POST /api/{resource}
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	resource := chi.URLParam(r, "resource")

	req, err := decodeWriteRequest(r)
	if err != nil {
		h.writes.WithLabelValues(resource, string(document.ModeCreate), "bad_request").Inc()
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.Provider.Create(r.Context(), resource, document.CreateParams{
		Data: req.Data,
		Meta: req.Meta,
	})
	h.observe(resource, document.ModeCreate, err)
	if err != nil {
		h.writeProviderError(w, "Failed to create record", err)
		return
	}

	writeJSON(w, http.StatusCreated, DataResponse{Data: res.Data})
}

// Update overwrites the given fields of a record.
// PUT /api/{resource}/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	resource := chi.URLParam(r, "resource")
	id := chi.URLParam(r, "id")

	req, err := decodeWriteRequest(r)
	if err != nil {
		h.writes.WithLabelValues(resource, string(document.ModeUpdate), "bad_request").Inc()
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.Provider.Update(r.Context(), resource, document.UpdateParams{
		ID:   id,
		Data: req.Data,
		Meta: req.Meta,
	})
	h.observe(resource, document.ModeUpdate, err)
	if err != nil {
		h.writeProviderError(w, "Failed to update record", err)
		return
	}

	writeJSON(w, http.StatusOK, DataResponse{Data: res.Data})
}

// GetOne returns a single record.
// GET /api/{resource}/{id}
func (h *Handler) GetOne(w http.ResponseWriter, r *http.Request) {
	res, err := h.Provider.GetOne(r.Context(), chi.URLParam(r, "resource"), chi.URLParam(r, "id"))
	if err != nil {
		h.writeProviderError(w, "Failed to get record", err)
		return
	}
	writeJSON(w, http.StatusOK, DataResponse{Data: res.Data})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

// requestLog writes one zap entry per request, tagged with chi's request id.
func requestLog(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// actorContext moves the X-Actor-ID header into the request context.
func actorContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor := r.Header.Get(ActorHeader); actor != "" {
			r = r.WithContext(audit.WithActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeWriteRequest(r *http.Request) (WriteRequest, error) {
	var req WriteRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return WriteRequest{}, err
	}
	if req.Data == nil {
		req.Data = document.Fields{}
	}
	return req, nil
}

func (h *Handler) observe(resource string, mode document.Mode, err error) {
	outcome := "ok"
	if err != nil {
		_, outcome = statusFor(err)
	}
	h.writes.WithLabelValues(resource, string(mode), outcome).Inc()
}

func (h *Handler) writeProviderError(w http.ResponseWriter, message string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Log.Error(message, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: message, Code: code, Details: err.Error()})
}

// statusFor maps document errors to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case document.IsClientError(err):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, document.ErrResourceNotFound):
		return http.StatusNotFound, "resource_not_found"
	case errors.Is(err, document.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case document.IsConflict(err):
		return http.StatusConflict, "identifier_conflict"
	case errors.Is(err, document.ErrStorage):
		return http.StatusInternalServerError, "storage_failure"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
