package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/soseska/internal/model"
	"github.com/erazemk/soseska/internal/store"
)

// AdminHandler handles apartments and account approval.
type AdminHandler struct {
	DB *sql.DB
}

type createApartmentRequest struct {
	Name        string       `json:"name"`
	Address     string       `json:"address"`
	Pincode     string       `json:"pincode"`
	Location    *model.Point `json:"location"`
	AdminUserID *int64       `json:"admin_user_id"`
}

type approveUserRequest struct {
	UserID  int64 `json:"user_id"`
	Approve bool  `json:"approve"`
}

// ListApartments handles GET /api/admin/apartments.
func (h *AdminHandler) ListApartments(w http.ResponseWriter, r *http.Request) {
	apartments, err := store.ListApartments(r.Context(), h.DB)
	if err != nil {
		internalError(w, r, "listing apartments", err)
		return
	}
	if apartments == nil {
		apartments = []model.Apartment{}
	}
	jsonResponse(w, http.StatusOK, apartments)
}

// CreateApartment handles POST /api/admin/apartments. An optional admin user
// becomes the approved admin of the new apartment.
func (h *AdminHandler) CreateApartment(w http.ResponseWriter, r *http.Request) {
	var req createApartmentRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Location != nil && !req.Location.Valid() {
		jsonError(w, http.StatusBadRequest, "location out of range")
		return
	}

	var adminUser *model.User
	if req.AdminUserID != nil {
		u, err := store.GetUser(r.Context(), h.DB, *req.AdminUserID)
		if err != nil {
			internalError(w, r, "loading admin user", err)
			return
		}
		if u == nil || u.DeletedAt != nil {
			jsonError(w, http.StatusBadRequest, "admin user not found")
			return
		}
		if u.Role == model.RoleSuperAdmin {
			jsonError(w, http.StatusBadRequest, "a super admin cannot be an apartment admin")
			return
		}
		adminUser = u
	}

	apt, err := store.CreateApartment(r.Context(), h.DB, req.Name, strings.TrimSpace(req.Address),
		strings.TrimSpace(req.Pincode), req.Location)
	if err != nil {
		internalError(w, r, "creating apartment", err)
		return
	}

	if adminUser != nil {
		if err := store.AssignApartmentAdmin(r.Context(), h.DB, adminUser.ID, apt.ID); err != nil {
			internalError(w, r, "assigning apartment admin", err)
			return
		}
		slog.Info("apartment admin assigned", "apartment", apt.ID, "user", adminUser.ID)
	}

	slog.Info("apartment created", "apartment", apt.ID, "name", apt.Name, "by", CurrentUser(r.Context()).ID)
	jsonResponse(w, http.StatusCreated, apt)
}

// GetApartmentAdmin handles GET /api/admin/apartments/{id}/admin.
func (h *AdminHandler) GetApartmentAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid apartment id")
		return
	}

	admin, err := store.GetApartmentAdmin(r.Context(), h.DB, id)
	if err != nil {
		internalError(w, r, "loading apartment admin", err)
		return
	}
	if admin == nil {
		jsonError(w, http.StatusNotFound, "no admin found for this apartment")
		return
	}
	jsonResponse(w, http.StatusOK, model.UserRef{ID: admin.ID, Name: admin.Name, Email: admin.Email})
}

// ListPendingUsers handles GET /api/admin/apartments/{id}/pending-users.
func (h *AdminHandler) ListPendingUsers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid apartment id")
		return
	}

	caller := CurrentUser(r.Context())
	if !model.CanAdminister(caller.Role, caller.ApartmentID, id) {
		jsonError(w, http.StatusForbidden, "not an admin of this apartment")
		return
	}

	users, err := store.ListPendingUsers(r.Context(), h.DB, id)
	if err != nil {
		internalError(w, r, "listing pending users", err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// ApproveUser handles POST /api/admin/approve-user. The caller must
// administer the apartment the user registered for.
func (h *AdminHandler) ApproveUser(w http.ResponseWriter, r *http.Request) {
	var req approveUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 {
		jsonError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, req.UserID)
	if err != nil {
		internalError(w, r, "loading user", err)
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	caller := CurrentUser(r.Context())
	if user.ApartmentID == nil || !model.CanAdminister(caller.Role, caller.ApartmentID, *user.ApartmentID) {
		jsonError(w, http.StatusForbidden, "not an admin of this user's apartment")
		return
	}

	status, kind, text := model.UserStatusRejected, model.NotificationAccountRejected, "Your account request was rejected"
	if req.Approve {
		status, kind, text = model.UserStatusApproved, model.NotificationAccountApproved, "Your account has been approved"
	}

	if err := store.SetUserStatus(r.Context(), h.DB, user.ID, status); err != nil {
		internalError(w, r, "setting user status", err)
		return
	}
	notify(r.Context(), h.DB, user.ID, kind, text, nil)

	slog.Info("user "+status, "user", user.ID, "by", caller.ID)

	updated, err := store.GetUser(r.Context(), h.DB, user.ID)
	if err != nil {
		internalError(w, r, "loading user", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"message": "user " + status, "user": updated})
}
