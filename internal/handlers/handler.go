package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/rendezvous/internal/signaling"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	svc     *signaling.Service
	store   Pinger
	backend string
	logger  zerolog.Logger
}

// NewHandler creates a new Handler serving svc. backend names the store
// in health output.
func NewHandler(svc *signaling.Service, store Pinger, backend string, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, store: store, backend: backend, logger: logger}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Result string `json:"result"`
	Reason string `json:"reason"`
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, reason string) {
	h.JSON(w, status, ErrorResponse{Result: signaling.ResultError, Reason: reason})
}

// Fail maps a service error to a status code and writes it.
func (h *Handler) Fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		h.Error(w, status, "internal error")
		return
	}
	h.Error(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, signaling.ErrInvalidRoomID),
		errors.Is(err, signaling.ErrMalformedPayload),
		errors.Is(err, signaling.ErrInvalidMessageType):
		return http.StatusBadRequest
	case errors.Is(err, signaling.ErrPeerExists):
		return http.StatusConflict
	case errors.Is(err, signaling.ErrInvalidPeer),
		errors.Is(err, signaling.ErrRoomNotFound):
		return http.StatusNotFound
	}
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}
