package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/docservice"
	"github.com/starford/ansuz/internal/sse"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *docservice.Service
	broker *sse.Broker
}

// NewHandler creates a new Handler. broker may be nil when SSE is disabled.
func NewHandler(svc *docservice.Service, broker *sse.Broker) *Handler {
	return &Handler{svc: svc, broker: broker}
}

// docPath extracts the doc path from the URL (everything after the mount).
// Supports encoded slashes from API clients (e.g. specs%2Fauth.md).
func docPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListDocs handles GET /api/docs. Optional prefix query filters by path.
func (h *Handler) ListDocs(w http.ResponseWriter, r *http.Request) {
	files := h.svc.ListDocs(r.Context(), r.URL.Query().Get("prefix"))
	writeJSON(w, http.StatusOK, map[string]any{
		"files": files,
		"total": len(files),
	})
}

// GetDoc handles GET /api/docs/*. With a heading query it returns just
// that section; otherwise the whole document.
func (h *Handler) GetDoc(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	if heading := r.URL.Query().Get("heading"); heading != "" {
		sec, err := h.svc.ExtractSection(r.Context(), path, heading)
		if err != nil {
			h.writeServiceError(w, "extract section", path, err)
			return
		}
		writeJSON(w, http.StatusOK, sec)
		return
	}

	content, err := h.svc.ReadDoc(r.Context(), path)
	if err != nil {
		h.writeServiceError(w, "read doc", path, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"path":    path,
		"content": content,
	})
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	writeJSON(w, http.StatusOK, map[string]any{
		"results": h.svc.Search(r.Context(), q, limit),
	})
}

// Glossary handles GET /api/glossary.
func (h *Handler) Glossary(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("term")
	if term == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'term' is required"))
		return
	}
	entry, err := h.svc.GlossaryLookup(r.Context(), term)
	if err != nil {
		h.writeServiceError(w, "glossary lookup", term, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// ListSpecs handles GET /api/specs. With a q query it runs spec search;
// otherwise it returns the full index with validation errors.
func (h *Handler) ListSpecs(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.Query().Get("q"); q != "" {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string]any{
			"results": h.svc.SpecSearch(r.Context(), q, limit),
		})
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Index().Specs)
}

// GetSpec handles GET /api/specs/{specId}.
func (h *Handler) GetSpec(w http.ResponseWriter, r *http.Request) {
	specID := chi.URLParam(r, "specId")
	rec, err := h.svc.SpecLookup(r.Context(), specID)
	if err != nil {
		h.writeServiceError(w, "spec lookup", specID, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Backlinks handles GET /api/backlinks/*.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	res, err := h.svc.Backlinks(r.Context(), path)
	if err != nil {
		h.writeServiceError(w, "backlinks", path, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// UpdateBacklinks handles POST /api/backlinks. The dryRun query skips
// writes and reports what would change.
func (h *Handler) UpdateBacklinks(w http.ResponseWriter, r *http.Request) {
	dryRun := r.URL.Query().Get("dryRun") == "true"
	res, err := h.svc.UpdateBacklinks(r.Context(), dryRun)
	if err != nil {
		slog.Error("backlinks update failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if h.broker != nil && !dryRun && res.Updated > 0 {
		h.broker.Publish(sse.Event{Type: "index.rebuilt", Data: map[string]int{"updated": res.Updated}})
	}
	writeJSON(w, http.StatusOK, res)
}

// ValidateLinks handles GET /api/validate.
func (h *Handler) ValidateLinks(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.ValidateLinks(r.Context())
	if err != nil {
		slog.Error("link validation failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Orphans handles GET /api/orphans.
func (h *Handler) Orphans(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.OrphanedFiles(r.Context())
	if err != nil {
		slog.Error("orphan scan failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Rebuild handles POST /api/rebuild.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	changed, err := h.svc.Rebuild(r.Context())
	if err != nil {
		slog.Error("rebuild failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if h.broker != nil && changed {
		h.broker.Publish(sse.Event{Type: "index.rebuilt", Data: map[string]string{}})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"changed": changed,
		"summary": h.svc.Index().Summary(),
	})
}

// writeServiceError maps service errors onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, op, subject string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAccessDenied):
		writeJSON(w, http.StatusForbidden, errorBody("access denied"))
	default:
		slog.Error(op+" failed", slog.String("subject", subject), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
