// Package httputil carries the JSON response envelope shared by every
// handler. All API responses look like {"success": bool, "message": ...,
// "data": ...} so clients parse one shape.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "github.com/Dibyendu78/Brain-O-Math/pkg/domainerrors"
)

// Envelope is the wire shape of every JSON response.
type Envelope struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	Data       any    `json:"data,omitempty"`
	Pagination any    `json:"pagination,omitempty"`
}

// WriteJSON writes a success envelope.
func WriteJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// WriteData writes a success envelope around data.
func WriteData(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Envelope{Success: true, Data: data})
}

// WriteError maps a coded error to its HTTP status and writes a failure
// envelope. Uncoded errors come out as a generic 500; the detail belongs in
// the log, not the response.
func WriteError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.HTTPStatus(err))
	_ = json.NewEncoder(w).Encode(Envelope{
		Success: false,
		Message: dErrors.MessageOf(err),
	})
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPagination computes page metadata for total records at limit per page.
func NewPagination(page, limit, total int) Pagination {
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}
