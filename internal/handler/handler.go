// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"

	"github.com/d-karpukhin/event-board/internal/apperr"
	"github.com/d-karpukhin/event-board/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

// writeServiceError maps the error taxonomy onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, apperr.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, apperr.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// parsePage reads the from/size pagination pair, defaulting to 0/10.
func parsePage(r *http.Request) (model.Page, error) {
	page := model.Page{From: 0, Size: 10}

	if v := r.URL.Query().Get("from"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, apperr.BadRequest("field: from. Error: must be an integer. Value: %s", v)
		}
		page.From = n
	}
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, apperr.BadRequest("field: size. Error: must be an integer. Value: %s", v)
		}
		page.Size = n
	}
	return page, page.Validate()
}

// parseDateParam reads an optional wire-format timestamp query parameter.
func parseDateParam(r *http.Request, name string) (*model.DateTime, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	dt, err := model.ParseDateTime(v)
	if err != nil {
		return nil, apperr.BadRequest("field: %s. Error: invalid datetime. Value: %s", name, v)
	}
	return &dt, nil
}

// parseBoolParam reads an optional boolean query parameter.
func parseBoolParam(r *http.Request, name string) (*bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, apperr.BadRequest("field: %s. Error: must be a boolean. Value: %s", name, v)
	}
	return &b, nil
}

// clientIP returns the request's remote address without the port. The
// RealIP middleware has already resolved forwarding headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
