package handler

import (
	"log"
	"net/http"

	"chatrelay/internal/chat"
)

// JoinParticipant handles POST /participants
func (h *Handler) JoinParticipant(w http.ResponseWriter, r *http.Request) {
	const route = "POST /participants"
	log.Printf("[%s] Request received from %s", route, r.RemoteAddr)

	var in chat.JoinRequest
	if err := h.decodeBody(w, r, &in); err != nil {
		log.Printf("[%s] ❌ Unprocessable: %v", route, err)
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	p, err := h.Chat.Join(r.Context(), in)
	if err != nil {
		fail(w, route, err)
		return
	}

	log.Printf("[%s] ✅ Joined: name=%q", route, p.Name)
	writeJSON(w, http.StatusCreated, p)
}

// GetParticipants handles GET /participants
func (h *Handler) GetParticipants(w http.ResponseWriter, r *http.Request) {
	const route = "GET /participants"
	log.Printf("[%s] Request received from %s", route, r.RemoteAddr)

	list, err := h.Chat.Participants(r.Context())
	if err != nil {
		fail(w, route, err)
		return
	}

	log.Printf("[%s] ✅ Returned %d participants", route, len(list))
	writeJSON(w, http.StatusOK, list)
}

// PostStatus handles POST /status
func (h *Handler) PostStatus(w http.ResponseWriter, r *http.Request) {
	const route = "POST /status"
	name := h.identity(r)

	if err := h.Chat.Heartbeat(r.Context(), name); err != nil {
		fail(w, route, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
