package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/d-karpukhin/event-board/internal/model"
	"github.com/d-karpukhin/event-board/internal/service"
)

// EventHandler holds the HTTP handlers for the public, owner, and admin
// event surfaces.
type EventHandler struct {
	svc *service.EventService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

// ─── Public surface ───────────────────────────────────────────────────────────

// SearchPublic handles GET /events
func (h *EventHandler) SearchPublic(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	criteria, err := publicCriteria(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	events, err := h.svc.SearchPublic(r.Context(), criteria, page, clientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetPublic handles GET /events/{id}
func (h *EventHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetPublicByID(r.Context(), chi.URLParam(r, "id"), clientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// ─── Owner surface ────────────────────────────────────────────────────────────

// Create handles POST /users/{userId}/events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.NewEvent
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.Create(r.Context(), chi.URLParam(r, "userId"), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListByOwner handles GET /users/{userId}/events
func (h *EventHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	events, err := h.svc.ListByOwner(r.Context(), chi.URLParam(r, "userId"), page)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetByOwner handles GET /users/{userId}/events/{eventId}
func (h *EventHandler) GetByOwner(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetByIDAndOwner(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "eventId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// UpdateByOwner handles PATCH /users/{userId}/events/{eventId}
func (h *EventHandler) UpdateByOwner(w http.ResponseWriter, r *http.Request) {
	var patch model.EventPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.UpdateByOwner(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "eventId"), patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// ─── Admin surface ────────────────────────────────────────────────────────────

// SearchAdmin handles GET /admin/events
func (h *EventHandler) SearchAdmin(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	criteria, err := adminCriteria(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	events, err := h.svc.SearchAdmin(r.Context(), criteria, page)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// UpdateByAdmin handles PATCH /admin/events/{eventId}
func (h *EventHandler) UpdateByAdmin(w http.ResponseWriter, r *http.Request) {
	var patch model.EventPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.UpdateByAdmin(r.Context(), chi.URLParam(r, "eventId"), patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// ─── Query parameter translation ──────────────────────────────────────────────

func publicCriteria(r *http.Request) (model.PublicCriteria, error) {
	var c model.PublicCriteria
	q := r.URL.Query()

	c.Text = q.Get("text")
	c.CategoryIDs = listParam(q["categories"])

	paid, err := parseBoolParam(r, "paid")
	if err != nil {
		return c, err
	}
	c.Paid = paid

	if c.OnlyAvailable, err = boolParamDefaultFalse(r, "onlyAvailable"); err != nil {
		return c, err
	}

	start, err := parseDateParam(r, "rangeStart")
	if err != nil {
		return c, err
	}
	end, err := parseDateParam(r, "rangeEnd")
	if err != nil {
		return c, err
	}
	if start != nil {
		c.RangeStart = &start.Time
	}
	if end != nil {
		c.RangeEnd = &end.Time
	}

	c.Sort = model.EventSort(q.Get("sort"))
	return c, nil
}

func adminCriteria(r *http.Request) (model.AdminCriteria, error) {
	var c model.AdminCriteria
	q := r.URL.Query()

	c.InitiatorIDs = listParam(q["users"])
	c.CategoryIDs = listParam(q["categories"])
	for _, s := range listParam(q["states"]) {
		c.States = append(c.States, model.EventState(s))
	}

	start, err := parseDateParam(r, "rangeStart")
	if err != nil {
		return c, err
	}
	end, err := parseDateParam(r, "rangeEnd")
	if err != nil {
		return c, err
	}
	if start != nil {
		c.RangeStart = &start.Time
	}
	if end != nil {
		c.RangeEnd = &end.Time
	}
	return c, nil
}

// listParam flattens repeated and comma-separated query values.
func listParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func boolParamDefaultFalse(r *http.Request, name string) (bool, error) {
	b, err := parseBoolParam(r, name)
	if err != nil {
		return false, err
	}
	return b != nil && *b, nil
}
