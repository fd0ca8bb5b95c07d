package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/shelter-mirror/internal/mirror"
	"github.com/JakeFAU/shelter-mirror/internal/render"
)

const (
	defaultRecordLimit = 50
	maxRecordLimit     = 500
	recordsTimeout     = 3 * time.Second
)

// recordsHandler exposes read-only record endpoints.
type recordsHandler struct {
	svc     *render.Service
	timeout time.Duration
	logger  *zap.Logger
}

func newRecordsHandler(svc *render.Service, logger *zap.Logger) *recordsHandler {
	return &recordsHandler{svc: svc, timeout: recordsTimeout, logger: logger}
}

// List handles GET /v1/records?species=&status=&count=. It returns
// {"records": [...]} on success, 400 for invalid filters, 503 when the
// service is missing, or 500 if the store fails.
func (h *recordsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		writeError(w, http.StatusServiceUnavailable, "records unavailable")
		return
	}
	q := r.URL.Query()
	limit, err := parseCount(q.Get("count"), defaultRecordLimit, maxRecordLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := q.Get("status")
	if strings.TrimSpace(status) == "" {
		status = mirror.StatusActive
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	recs, err := h.svc.Find(ctx, mirror.Filter{Status: status, Species: q.Get("species"), Limit: limit})
	if err != nil {
		if errors.Is(err, mirror.ErrInvalidFilter) {
			writeError(w, http.StatusBadRequest, "invalid filter")
			return
		}
		h.logger.Error("list records failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list records")
		return
	}
	if recs == nil {
		recs = []mirror.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": recs})
}

// Get handles GET /v1/records/{external_id}. It returns {"record": {...}},
// 400 for a malformed id, or 404 when the record is absent.
func (h *recordsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		writeError(w, http.StatusServiceUnavailable, "records unavailable")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "external_id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid external_id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	rec, err := h.svc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, mirror.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		h.logger.Error("get record failed", zap.Int64("external_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load record")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"record": rec})
}

func parseCount(raw string, def, maxCount int) (int, error) {
	if raw == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		return 0, errors.New("invalid count")
	}
	if val > maxCount {
		val = maxCount
	}
	return val, nil
}
