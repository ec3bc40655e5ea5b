package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/soseska/internal/model"
	"github.com/erazemk/soseska/internal/store"
)

// EventsHandler handles apartment events.
type EventsHandler struct {
	DB *sql.DB
}

type createEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// Create handles POST /api/events. The event belongs to the caller's apartment.
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	if user.ApartmentID == nil {
		jsonError(w, http.StatusForbidden, "you must belong to an apartment to create events")
		return
	}

	var req createEventRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.Date == "" {
		jsonError(w, http.StatusBadRequest, "title and date required")
		return
	}
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "date must be RFC 3339")
		return
	}

	event, err := store.CreateEvent(r.Context(), h.DB, req.Title, strings.TrimSpace(req.Description), date,
		user.ID, *user.ApartmentID)
	if err != nil {
		internalError(w, r, "creating event", err)
		return
	}

	slog.Info("event created", "event", event.ID, "apartment", event.ApartmentID, "by", user.ID)
	jsonResponse(w, http.StatusCreated, event)
}

// List handles GET /api/events/{apartmentId}.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	apartmentID, ok := pathID(r, "apartmentId")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid apartment id")
		return
	}
	if !canSeeApartment(CurrentUser(r.Context()), apartmentID) {
		jsonError(w, http.StatusForbidden, "not a member of this apartment")
		return
	}

	events, err := store.ListEvents(r.Context(), h.DB, apartmentID)
	if err != nil {
		internalError(w, r, "listing events", err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	jsonResponse(w, http.StatusOK, events)
}

// RSVP handles PATCH /api/events/{id}/rsvp.
func (h *EventsHandler) RSVP(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	user := CurrentUser(r.Context())
	event, err := store.GetEvent(r.Context(), h.DB, id)
	if err != nil {
		internalError(w, r, "loading event", err)
		return
	}
	if event == nil {
		jsonError(w, http.StatusNotFound, "event not found")
		return
	}
	if user.ApartmentID == nil || *user.ApartmentID != event.ApartmentID {
		jsonError(w, http.StatusForbidden, "not a member of this apartment")
		return
	}

	added, err := store.AddAttendee(r.Context(), h.DB, event.ID, user.ID)
	if err != nil {
		internalError(w, r, "adding attendee", err)
		return
	}
	if !added {
		jsonError(w, http.StatusBadRequest, "already RSVPed")
		return
	}

	event, err = store.GetEvent(r.Context(), h.DB, id)
	if err != nil {
		internalError(w, r, "loading event", err)
		return
	}
	jsonResponse(w, http.StatusOK, event)
}
