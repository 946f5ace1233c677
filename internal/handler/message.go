package handler

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"chatrelay/internal/chat"
)

// CreateMessage handles POST /messages
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	const route = "POST /messages"
	from := h.identity(r)
	log.Printf("[%s] Request received from %s (user=%q)", route, r.RemoteAddr, from)

	var in chat.PostRequest
	if err := h.decodeBody(w, r, &in); err != nil {
		log.Printf("[%s] ❌ Unprocessable: %v", route, err)
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	msg, err := h.Chat.Post(r.Context(), from, in)
	if err != nil {
		fail(w, route, err)
		return
	}

	log.Printf("[%s] ✅ Created message: ID=%s, From=%q, To=%q", route, msg.ID, msg.From, msg.To)
	writeJSON(w, http.StatusCreated, msg)
}

// GetMessages handles GET /messages
// 閲覧者に見えるメッセージを投稿順に返す。limit 指定時は最新 limit 件
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	const route = "GET /messages"
	viewer := h.identity(r)
	log.Printf("[%s] Request received from %s (user=%q)", route, r.RemoteAddr, viewer)

	msgList, err := h.Chat.Messages(r.Context(), viewer, r.URL.Query().Get("limit"))
	if err != nil {
		fail(w, route, err)
		return
	}

	log.Printf("[%s] ✅ Returned %d messages", route, len(msgList))
	writeJSON(w, http.StatusOK, msgList)
}

// DeleteMessage handles DELETE /messages/{id}
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	route := "DELETE /messages/" + id
	requester := h.identity(r)
	log.Printf("[%s] Request received from %s (user=%q)", route, r.RemoteAddr, requester)

	if err := h.Chat.Delete(r.Context(), id, requester); err != nil {
		fail(w, route, err)
		return
	}

	log.Printf("[%s] ✅ Deleted successfully", route)
	w.WriteHeader(http.StatusNoContent)
}
