package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/docintelhq/docintel/internal/common"
)

// envelope is the uniform response wrapper: success carries data, failure
// carries an error string.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		s.logger.Error("server.respond.encode_failed", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: false, Error: msg}); err != nil {
		s.logger.Error("server.respond.encode_failed", "error", err)
	}
}

// respondFromError maps domain errors onto HTTP statuses.
func (s *Server) respondFromError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrInvalidInput):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}
