package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/juneyoungl/jot/internal/engine"
	"github.com/juneyoungl/jot/internal/errors"
	"github.com/juneyoungl/jot/internal/model"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	engine   *engine.Engine
	renderer *Renderer
}

// HandleReview handles GET /review — the unconfirmed review queue.
func (h *Handlers) HandleReview(w http.ResponseWriter, r *http.Request) {
	items, err := h.engine.Unconfirmed(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "review", ReviewPageData{
		PageData: PageData{
			Title:   "Review Queue",
			Version: h.renderer.version,
			Nav:     "review",
		},
		Items: items,
		Count: len(items),
	})
}

// HandleList handles GET /captures — active captures, optionally
// filtered by type.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	var typ *model.CaptureType
	typParam := r.URL.Query().Get("type")
	if typParam != "" {
		t := model.CaptureType(strings.ToUpper(typParam))
		if !t.Valid() {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("unknown capture type: "+typParam))
			return
		}
		typ = &t
	}

	items, err := h.engine.List(r.Context(), typ,
		parseIntParam(r, "limit", 50), parseIntParam(r, "offset", 0))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "list", ListPageData{
		PageData: PageData{
			Title:   "Captures",
			Version: h.renderer.version,
			Nav:     "captures",
		},
		Items: items,
		Type:  typParam,
	})
}

// HandleDetail handles GET /captures/{id} — one capture with its
// derived entity, tags, entities, and audit trail.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("capture ID is required"))
		return
	}

	detail, err := h.engine.Get(r.Context(), id, parseBoolParam(r, "include_hidden"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "detail", DetailPageData{
		PageData: PageData{
			Title:   detailTitle(detail),
			Version: h.renderer.version,
			Nav:     "captures",
		},
		Detail:       detail,
		RenderedHTML: renderMarkdown(detail.Capture.OriginalText),
	})
}

// HandleConfirm handles POST /captures/{id}/confirm.
func (h *Handlers) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.engine.Confirm(r.Context(), id); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.respondOrRedirect(w, r, map[string]any{"confirmed": true, "id": id}, "/review")
}

// HandleDelete handles POST /captures/{id}/delete — soft delete with
// the grace-period hard delete armed.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.engine.SoftDelete(r.Context(), id); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.respondOrRedirect(w, r, map[string]any{"deleted": true, "id": id}, "/captures")
}

// HandleUndo handles POST /captures/{id}/undo.
func (h *Handlers) HandleUndo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.engine.UndoSoftDelete(r.Context(), id); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.respondOrRedirect(w, r, map[string]any{"restored": true, "id": id}, "/captures")
}

func (h *Handlers) respondOrRedirect(w http.ResponseWriter, r *http.Request, body map[string]any, fallback string) {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, body)
		return
	}
	http.Redirect(w, r, fallback, http.StatusFound)
}

func detailTitle(detail *engine.CaptureDetail) string {
	if detail.Capture.AITitle != nil && *detail.Capture.AITitle != "" {
		return *detail.Capture.AITitle
	}
	if len(detail.Capture.ID) > 10 {
		return detail.Capture.ID[:10] + "..."
	}
	return detail.Capture.ID
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}
