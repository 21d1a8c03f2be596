package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rustyeddy/metals/store"
)

// Response is the envelope every JSON endpoint returns.
type Response[T any] struct {
	Data  *T     `json:"data"`
	Error string `json:"error,omitempty"`
	Index *int   `json:"index,omitempty"`
}

func ok[T any](data T) Response[T] {
	return Response[T]{Data: &data}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, Response[any]{Error: err.Error()})
}

// writeQueryError maps store errors to a status: invalid specs are the
// caller's fault, anything else is ours. The failing spec index is
// included when known.
func writeQueryError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, store.ErrInvalidSpec) {
		status = http.StatusBadRequest
	}

	resp := Response[any]{Error: err.Error()}
	var qerr *store.QueryError
	if errors.As(err, &qerr) {
		idx := qerr.Index
		resp.Index = &idx
	}
	writeJSON(w, status, resp)
}
