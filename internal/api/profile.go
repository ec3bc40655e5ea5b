package api

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/erazemk/soseska/internal/model"
	"github.com/erazemk/soseska/internal/store"
)

// ProfileHandler serves the caller's own profile.
type ProfileHandler struct {
	DB *sql.DB
}

type profileResponse struct {
	*model.User
	Apartment *model.Apartment `json:"apartment,omitempty"`
}

// updateProfileRequest holds optional fields; nil leaves a field unchanged.
type updateProfileRequest struct {
	Name       *string      `json:"name"`
	Phone      *string      `json:"phone"`
	FlatNumber *string      `json:"flat_number"`
	Location   *model.Point `json:"location"`
}

// Get handles GET /api/users/profile.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	resp := profileResponse{User: user}

	if user.ApartmentID != nil {
		apt, err := store.GetApartment(r.Context(), h.DB, *user.ApartmentID)
		if err != nil {
			internalError(w, r, "loading apartment", err)
			return
		}
		resp.Apartment = apt
	}

	jsonResponse(w, http.StatusOK, resp)
}

// Update handles PUT /api/users/profile.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name, phone, flat, location := user.Name, user.Phone, user.FlatNumber, user.Location
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if name == "" {
			jsonError(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
	}
	if req.Phone != nil {
		phone = strings.TrimSpace(*req.Phone)
	}
	if req.FlatNumber != nil {
		flat = strings.TrimSpace(*req.FlatNumber)
	}
	if req.Location != nil {
		if !req.Location.Valid() {
			jsonError(w, http.StatusBadRequest, "location out of range")
			return
		}
		location = req.Location
	}

	if err := store.UpdateUserProfile(r.Context(), h.DB, user.ID, name, phone, flat, location); err != nil {
		internalError(w, r, "updating profile", err)
		return
	}

	updated, err := store.GetUser(r.Context(), h.DB, user.ID)
	if err != nil {
		internalError(w, r, "loading profile", err)
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}
