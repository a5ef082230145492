package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eldtechnologies/rendezvous/internal/signaling"
)

// SendResponse acknowledges a relayed message.
type SendResponse struct {
	Result string `json:"result"`
}

// Join handles POST /join/{room}. An optional peer_id query parameter
// requests a specific peer id.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	var opts []signaling.JoinOption
	if peerID := r.URL.Query().Get("peer_id"); peerID != "" {
		opts = append(opts, signaling.WithPeerID(peerID))
	}

	resp, err := h.svc.Join(r.Context(), chi.URLParam(r, "room"), opts...)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, resp)
}

// SendMessage handles POST /message/{room}/{peer}. The request body is the
// payload, relayed as-is apart from candidate normalization.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.Fail(w, r, err)
		return
	}

	if err := h.svc.Send(r.Context(), chi.URLParam(r, "room"), chi.URLParam(r, "peer"), string(body)); err != nil {
		h.Fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, SendResponse{Result: signaling.ResultSuccess})
}

// ReceiveMessage handles GET /message/{room}/{peer}. It answers 204 when
// the inbox is empty; clients poll.
func (h *Handler) ReceiveMessage(w http.ResponseWriter, r *http.Request) {
	content, ok, err := h.svc.ReceiveMessage(r.Context(), chi.URLParam(r, "room"), chi.URLParam(r, "peer"))
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, content)
}

// InspectRoom handles GET /room/{room}.
func (h *Handler) InspectRoom(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Inspect(r.Context(), chi.URLParam(r, "room"))
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, info)
}
