package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/soseska/internal/model"
	"github.com/erazemk/soseska/internal/store"
)

// maxNotifications bounds a notification listing.
const maxNotifications = 100

// NotificationsHandler serves the caller's notifications.
type NotificationsHandler struct {
	DB *sql.DB
}

// List handles GET /api/notifications.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	notifications, err := store.ListNotifications(r.Context(), h.DB, CurrentUser(r.Context()).ID, maxNotifications)
	if err != nil {
		internalError(w, r, "listing notifications", err)
		return
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}
	jsonResponse(w, http.StatusOK, notifications)
}

// MarkRead handles PUT /api/notifications/{id}/read.
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	found, err := store.MarkNotificationRead(r.Context(), h.DB, id, CurrentUser(r.Context()).ID)
	if err != nil {
		internalError(w, r, "marking notification read", err)
		return
	}
	if !found {
		jsonError(w, http.StatusNotFound, "notification not found")
		return
	}
	jsonMessage(w, http.StatusOK, "notification marked read")
}

// MarkAllRead handles PUT /api/notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := store.MarkAllNotificationsRead(r.Context(), h.DB, CurrentUser(r.Context()).ID)
	if err != nil {
		internalError(w, r, "marking notifications read", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int64{"updated": n})
}
