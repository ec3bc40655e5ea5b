package api

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/erazemk/soseska/internal/metrics"
	"github.com/erazemk/soseska/internal/model"
	"github.com/erazemk/soseska/internal/store"
)

// MessagesHandler handles direct messages between users.
type MessagesHandler struct {
	DB *sql.DB
}

type sendMessageRequest struct {
	ToUserID int64  `json:"to_user_id"`
	Body     string `json:"body"`
}

// Send handles POST /api/messages.
func (h *MessagesHandler) Send(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())

	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" {
		jsonError(w, http.StatusBadRequest, "message body required")
		return
	}
	if utf8.RuneCountInString(req.Body) > model.MaxMessageLength {
		jsonError(w, http.StatusBadRequest, fmt.Sprintf("message longer than %d characters", model.MaxMessageLength))
		return
	}
	if req.ToUserID == user.ID {
		jsonError(w, http.StatusBadRequest, "cannot message yourself")
		return
	}

	to, err := store.GetUser(r.Context(), h.DB, req.ToUserID)
	if err != nil {
		internalError(w, r, "loading recipient", err)
		return
	}
	if to == nil || to.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "recipient not found")
		return
	}

	msg, err := store.CreateMessage(r.Context(), h.DB, user.ID, to.ID, req.Body)
	if err != nil {
		internalError(w, r, "sending message", err)
		return
	}
	metrics.MessagesSent.Inc()
	notify(r.Context(), h.DB, to.ID, model.NotificationMessage, "New message from "+user.Name, nil)

	jsonResponse(w, http.StatusCreated, msg)
}

// Conversations handles GET /api/messages.
func (h *MessagesHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := store.ListConversations(r.Context(), h.DB, CurrentUser(r.Context()).ID)
	if err != nil {
		internalError(w, r, "listing conversations", err)
		return
	}
	if conversations == nil {
		conversations = []model.Conversation{}
	}
	jsonResponse(w, http.StatusOK, conversations)
}

// Conversation handles GET /api/messages/with/{userId}.
func (h *MessagesHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	peerID, ok := pathID(r, "userId")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	messages, err := store.ListConversation(r.Context(), h.DB, CurrentUser(r.Context()).ID, peerID)
	if err != nil {
		internalError(w, r, "listing conversation", err)
		return
	}
	if messages == nil {
		messages = []model.Message{}
	}
	jsonResponse(w, http.StatusOK, messages)
}

// MarkRead handles PUT /api/messages/{id}/read. Only the recipient may mark
// a message read.
func (h *MessagesHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	user := CurrentUser(r.Context())
	msg, err := store.GetMessage(r.Context(), h.DB, id)
	if err != nil {
		internalError(w, r, "loading message", err)
		return
	}
	if msg == nil || (msg.FromID != user.ID && msg.ToID != user.ID) {
		jsonError(w, http.StatusNotFound, "message not found")
		return
	}
	if msg.ToID != user.ID {
		jsonError(w, http.StatusForbidden, "only the recipient can mark a message read")
		return
	}

	if _, err := store.MarkMessageRead(r.Context(), h.DB, id, user.ID); err != nil {
		internalError(w, r, "marking message read", err)
		return
	}
	jsonMessage(w, http.StatusOK, "message marked read")
}
