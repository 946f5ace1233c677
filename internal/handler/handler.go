package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"chatrelay/internal/chat"
	"chatrelay/internal/config"
	"chatrelay/internal/model"
)

// Handler holds application dependencies
type Handler struct {
	Chat   *chat.Service
	Config config.Config
}

// New creates a new Handler with the given dependencies
func New(svc *chat.Service, cfg config.Config) *Handler {
	return &Handler{
		Chat:   svc,
		Config: cfg,
	}
}

// SetupRouter configures and returns the HTTP router
func (h *Handler) SetupRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/participants", h.JoinParticipant).Methods("POST")
	r.HandleFunc("/participants", h.GetParticipants).Methods("GET")

	r.HandleFunc("/messages", h.GetMessages).Methods("GET")
	r.HandleFunc("/messages", h.CreateMessage).Methods("POST")
	r.HandleFunc("/messages/{id}", h.DeleteMessage).Methods("DELETE")

	r.HandleFunc("/status", h.PostStatus).Methods("POST")

	return r
}

// identity returns the caller's declared name.
func (h *Handler) identity(r *http.Request) string {
	return r.Header.Get(h.Config.IdentityHeader)
}

// decodeBody reads a size-limited JSON body into v.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidArgument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err under route and writes the mapped status. Storage failures
// are not echoed to the client.
func fail(w http.ResponseWriter, route string, err error) {
	status := statusFor(err)
	log.Printf("[%s] ❌ %d: %v", route, status, err)
	if status == http.StatusInternalServerError {
		writeError(w, status, "Internal server error")
		return
	}
	writeError(w, status, err.Error())
}
