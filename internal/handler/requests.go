package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/d-karpukhin/event-board/internal/apperr"
	"github.com/d-karpukhin/event-board/internal/model"
	"github.com/d-karpukhin/event-board/internal/service"
)

// RequestHandler holds the HTTP handlers for the participation ledger.
type RequestHandler struct {
	svc *service.RequestService
}

// NewRequestHandler constructs a RequestHandler.
func NewRequestHandler(svc *service.RequestService) *RequestHandler {
	return &RequestHandler{svc: svc}
}

// Submit handles POST /users/{userId}/requests?eventId=
func (h *RequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("eventId")
	if eventID == "" {
		writeServiceError(w, apperr.BadRequest("field: eventId. Error: must not be blank"))
		return
	}

	request, err := h.svc.Submit(r.Context(), chi.URLParam(r, "userId"), eventID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

// ListByRequester handles GET /users/{userId}/requests
func (h *RequestHandler) ListByRequester(w http.ResponseWriter, r *http.Request) {
	requests, err := h.svc.ListByRequester(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if requests == nil {
		requests = []model.Request{}
	}
	writeJSON(w, http.StatusOK, requests)
}

// Cancel handles PATCH /users/{userId}/requests/{requestId}/cancel
func (h *RequestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	request, err := h.svc.Cancel(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "requestId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

// ListByEventOwner handles GET /users/{userId}/events/{eventId}/requests
func (h *RequestHandler) ListByEventOwner(w http.ResponseWriter, r *http.Request) {
	requests, err := h.svc.ListByEventOwner(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "eventId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if requests == nil {
		requests = []model.Request{}
	}
	writeJSON(w, http.StatusOK, requests)
}

// BatchDecide handles PATCH /users/{userId}/events/{eventId}/requests
func (h *RequestHandler) BatchDecide(w http.ResponseWriter, r *http.Request) {
	var upd model.StatusUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.svc.BatchDecide(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "eventId"), upd)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
