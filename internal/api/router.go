package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	sloghttp "github.com/samber/slog-http"

	"github.com/erazemk/soseska/internal/lending"
	"github.com/erazemk/soseska/internal/model"
	"github.com/erazemk/soseska/internal/store"
)

// Options configures the router.
type Options struct {
	JWTSecret   string
	CORSOrigins []string
	LoginRate   RateLimitOptions
}

func (o Options) withDefaults() Options {
	if len(o.CORSOrigins) == 0 {
		o.CORSOrigins = []string{"*"}
	}
	if o.LoginRate.Interval <= 0 {
		o.LoginRate.Interval = 6 * time.Second
	}
	if o.LoginRate.Burst < 1 {
		o.LoginRate.Burst = 5
	}
	if o.LoginRate.CacheSize < 1 {
		o.LoginRate.CacheSize = 1024
	}
	if o.LoginRate.TTL <= 0 {
		o.LoginRate.TTL = 10 * time.Minute
	}
	return o
}

// NewRouter creates the API router with all endpoints registered, wrapped in
// access logging, panic recovery and CORS.
func NewRouter(db *sql.DB, opts Options) http.Handler {
	opts = opts.withDefaults()
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: opts.JWTSecret}
	profileHandler := &ProfileHandler{DB: db}
	adminHandler := &AdminHandler{DB: db}
	resourcesHandler := &ResourcesHandler{DB: db, Lending: lending.NewManager(store.Resources{DB: db})}
	eventsHandler := &EventsHandler{DB: db}
	nearbyHandler := &NearbyHandler{DB: db}
	messagesHandler := &MessagesHandler{DB: db}
	notificationsHandler := &NotificationsHandler{DB: db}

	authMW := AuthMiddleware(opts.JWTSecret, db)
	member := func(h http.HandlerFunc) http.Handler { return authMW(RequireApproved(h)) }
	admin := func(h http.HandlerFunc) http.Handler {
		return authMW(RequireApproved(RequireRole(model.RoleApartmentAdmin, model.RoleSuperAdmin)(h)))
	}
	superAdmin := func(h http.HandlerFunc) http.Handler {
		return authMW(RequireApproved(RequireRole(model.RoleSuperAdmin)(h)))
	}

	// Public.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.Handle("POST /api/auth/login", RateLimit(opts.LoginRate)(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("GET /api/admin/apartments", adminHandler.ListApartments)

	// Any authenticated account, approved or not.
	mux.Handle("GET /api/auth/me", authMW(http.HandlerFunc(authHandler.Me)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/users/profile", authMW(http.HandlerFunc(profileHandler.Get)))
	mux.Handle("PUT /api/users/profile", authMW(http.HandlerFunc(profileHandler.Update)))

	// Administration.
	mux.Handle("POST /api/admin/apartments", superAdmin(adminHandler.CreateApartment))
	mux.Handle("GET /api/admin/apartments/{id}/admin", authMW(http.HandlerFunc(adminHandler.GetApartmentAdmin)))
	mux.Handle("GET /api/admin/apartments/{id}/pending-users", admin(adminHandler.ListPendingUsers))
	mux.Handle("POST /api/admin/approve-user", admin(adminHandler.ApproveUser))

	// Resources.
	mux.Handle("GET /api/resources", member(resourcesHandler.List))
	mux.Handle("POST /api/resources", member(resourcesHandler.Create))
	mux.Handle("GET /api/resources/{id}", member(resourcesHandler.Get))
	mux.Handle("PATCH /api/resources/{id}/request", member(resourcesHandler.transition(lending.OpRequest)))
	mux.Handle("PATCH /api/resources/{id}/approve", member(resourcesHandler.transition(lending.OpApprove)))
	mux.Handle("PATCH /api/resources/{id}/decline", member(resourcesHandler.transition(lending.OpDecline)))
	mux.Handle("PATCH /api/resources/{id}/return", member(resourcesHandler.transition(lending.OpReturn)))
	mux.Handle("PUT /api/resources/{id}/image", member(resourcesHandler.UploadImage))
	mux.Handle("GET /api/resources/{id}/image", member(resourcesHandler.GetImage))

	// Events.
	mux.Handle("POST /api/events", member(eventsHandler.Create))
	mux.Handle("GET /api/events/{apartmentId}", member(eventsHandler.List))
	mux.Handle("PATCH /api/events/{id}/rsvp", member(eventsHandler.RSVP))

	// People nearby.
	mux.Handle("GET /api/users/nearby", member(nearbyHandler.List))

	// Messages and notifications.
	mux.Handle("POST /api/messages", member(messagesHandler.Send))
	mux.Handle("GET /api/messages", member(messagesHandler.Conversations))
	mux.Handle("GET /api/messages/with/{userId}", member(messagesHandler.Conversation))
	mux.Handle("PUT /api/messages/{id}/read", member(messagesHandler.MarkRead))
	mux.Handle("GET /api/notifications", authMW(http.HandlerFunc(notificationsHandler.List)))
	mux.Handle("PUT /api/notifications/{id}/read", authMW(http.HandlerFunc(notificationsHandler.MarkRead)))
	mux.Handle("PUT /api/notifications/read-all", authMW(http.HandlerFunc(notificationsHandler.MarkAllRead)))

	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = cors.New(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         600,
	}).Handler(handler)
	handler = sloghttp.Recovery(handler)
	handler = sloghttp.NewWithConfig(slog.Default(), sloghttp.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		WithRequestID:    true,
		Filters:          []sloghttp.Filter{sloghttp.IgnorePath("/metrics")},
	})(handler)

	return handler
}
