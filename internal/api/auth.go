package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/erazemk/soseska/internal/auth"
	"github.com/erazemk/soseska/internal/metrics"
	"github.com/erazemk/soseska/internal/model"
	"github.com/erazemk/soseska/internal/store"
)

// AuthHandler handles registration and authentication endpoints.
type AuthHandler struct {
	DB        *sql.DB
	JWTSecret string
}

type registerRequest struct {
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Password    string       `json:"password"`
	Phone       string       `json:"phone"`
	ApartmentID *int64       `json:"apartment_id"`
	FlatNumber  string       `json:"flat_number"`
	Location    *model.Point `json:"location"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string      `json:"token,omitempty"`
	User  *model.User `json:"user"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register handles POST /api/auth/register. Joining an apartment leaves the
// account pending until an admin approves it; otherwise the account is
// approved and a token is returned right away.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "name, email and password required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Location != nil && !req.Location.Valid() {
		jsonError(w, http.StatusBadRequest, "location out of range")
		return
	}

	existing, err := store.GetUserByEmail(r.Context(), h.DB, req.Email)
	if err != nil {
		internalError(w, r, "checking email", err)
		return
	}
	if existing != nil {
		jsonError(w, http.StatusBadRequest, "user already exists")
		return
	}

	status := model.UserStatusApproved
	if req.ApartmentID != nil {
		apt, err := store.GetApartment(r.Context(), h.DB, *req.ApartmentID)
		if err != nil {
			internalError(w, r, "loading apartment", err)
			return
		}
		if apt == nil {
			jsonError(w, http.StatusBadRequest, "apartment not found")
			return
		}
		status = model.UserStatusPending
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		internalError(w, r, "hashing password", err)
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        strings.TrimSpace(req.Phone),
		Role:         model.RoleResident,
		ApartmentID:  req.ApartmentID,
		FlatNumber:   strings.TrimSpace(req.FlatNumber),
		Status:       status,
		Location:     req.Location,
	})
	if err != nil {
		internalError(w, r, "creating user", err)
		return
	}

	slog.Info("user registered", "user", user.ID, "status", user.Status)

	resp := tokenResponse{User: user}
	if user.Status == model.UserStatusApproved {
		resp.Token, err = auth.GenerateToken(h.JWTSecret, user.ID, user.Role, user.ApartmentID)
		if err != nil {
			internalError(w, r, "generating token", err)
			return
		}
	}
	jsonResponse(w, http.StatusCreated, resp)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = normalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "email and password required")
		return
	}

	user, err := store.GetUserByEmail(r.Context(), h.DB, req.Email)
	if err != nil {
		internalError(w, r, "loading user", err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		slog.Warn("login failed", "email", req.Email, "remote", r.RemoteAddr)
		metrics.Logins.WithLabelValues("invalid").Inc()
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if user.Status != model.UserStatusApproved {
		metrics.Logins.WithLabelValues("not_approved").Inc()
		jsonError(w, http.StatusForbidden, "account not approved")
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, user.ID, user.Role, user.ApartmentID)
	if err != nil {
		internalError(w, r, "generating token", err)
		return
	}

	metrics.Logins.WithLabelValues("success").Inc()
	slog.Info("user logged in", "user", user.ID, "role", user.Role)
	jsonResponse(w, http.StatusOK, tokenResponse{Token: token, User: user})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, CurrentUser(r.Context()))
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "current and new password required")
		return
	}
	if err := model.ValidatePassword(req.NewPassword); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		jsonError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		internalError(w, r, "hashing password", err)
		return
	}

	if err := store.UpdateUserPassword(r.Context(), h.DB, user.ID, hash); err != nil {
		internalError(w, r, "updating password", err)
		return
	}

	slog.Info("user changed own password", "user", user.ID)
	jsonMessage(w, http.StatusOK, "password updated")
}

// Logout handles POST /api/auth/logout by revoking the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil || claims.ExpiresAt == nil {
		internalError(w, r, "logging out", errors.New("missing token claims"))
		return
	}

	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
		internalError(w, r, "revoking token", err)
		return
	}

	slog.Info("user logged out", "user", claims.UserID)
	jsonMessage(w, http.StatusOK, "logged out")
}
