package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erazemk/soseska/internal/api"
	"github.com/erazemk/soseska/internal/auth"
	"github.com/erazemk/soseska/internal/config"
	"github.com/erazemk/soseska/internal/db"
	"github.com/erazemk/soseska/internal/metrics"
	"github.com/erazemk/soseska/internal/model"
	"github.com/erazemk/soseska/internal/store"
)

func main() {
	conf, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("soseska", flag.ContinueOnError)

	fs.StringVar(&conf.DB.Path, "db", conf.DB.Path, "")
	fs.StringVar(&conf.DB.Path, "d", conf.DB.Path, "")

	fs.StringVar(&conf.HTTP.Address, "addr", conf.HTTP.Address, "")
	fs.StringVar(&conf.HTTP.Address, "a", conf.HTTP.Address, "")

	fs.StringVar(&conf.Admin.Email, "admin", conf.Admin.Email, "")
	fs.StringVar(&conf.Admin.Email, "u", conf.Admin.Email, "")

	fs.StringVar(&conf.Logger.Path, "log", conf.Logger.Path, "")
	fs.StringVar(&conf.Logger.Path, "l", conf.Logger.Path, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: soseska [flags]

Flags:
  -d, -db <path>          SQLite database path (default: soseska.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -admin <email>      super admin email on first run (default: admin@soseska.local)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Every flag can also be set through the environment (SOSESKA_DB_PATH,
SOSESKA_HTTP_ADDRESS, SOSESKA_ADMIN_EMAIL, SOSESKA_LOG_PATH). Further
variables: SOSESKA_LOG_LEVEL, SOSESKA_HTTP_CORS_ORIGINS,
SOSESKA_HTTP_LOGIN_RATE_INTERVAL, SOSESKA_HTTP_LOGIN_RATE_BURST,
SOSESKA_HTTP_TRUST_PROXY_HEADERS, SOSESKA_DB_PURGE_INTERVAL.
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	logger, closeLog, err := newLogger(os.Stdout, os.Stderr, conf.Logger.Path, conf.Logger.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)

	if err := run(conf); err != nil {
		slog.Error("fatal", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(conf *config.Config) error {
	// Check if DB exists, auto-init if not.
	if _, err := os.Stat(conf.DB.Path); os.IsNotExist(err) {
		password, err := initDatabase(conf.DB.Path, conf.Admin.Name, conf.Admin.Email)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		printInitResult(conf.DB.Path, conf.Admin.Email, password)
		fmt.Println()
	}

	database, err := db.Open(conf.DB.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	slog.Info("database ready", "path", conf.DB.Path)

	jwtSecret, err := store.GetJWTSecret(context.Background(), database)
	if err != nil {
		return fmt.Errorf("loading JWT secret: %w", err)
	}

	handler := api.NewRouter(database, api.Options{
		JWTSecret:   jwtSecret,
		CORSOrigins: conf.HTTP.CORSOrigins,
		LoginRate: api.RateLimitOptions{
			Interval:     conf.HTTP.LoginRate.Interval,
			Burst:        conf.HTTP.LoginRate.Burst,
			CacheSize:    conf.HTTP.LoginRate.CacheSize,
			TTL:          conf.HTTP.LoginRate.TTL,
			TrustHeaders: conf.HTTP.TrustProxyHeaders,
		},
	})

	server := &http.Server{
		Addr:              conf.HTTP.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go purgeRevokedTokens(ctx, database, conf.DB.PurgeInterval)

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", conf.HTTP.Address)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}

// purgeRevokedTokens periodically drops revocations of tokens that have
// expired anyway.
func purgeRevokedTokens(ctx context.Context, database *sql.DB, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.PurgeRevokedTokens(ctx, database, now)
			if err != nil {
				slog.Error("purging revoked tokens", "error", err)
				continue
			}
			if n > 0 {
				metrics.RevokedTokensPurged.Add(float64(n))
				slog.Info("purged revoked tokens", "count", n)
			}
		}
	}
}

// initDatabase creates a new database with the schema and a super admin
// account, and returns the generated password. On failure the file is removed.
func initDatabase(path, name, email string) (password string, err error) {
	database, err := db.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		database.Close()
		if err != nil {
			os.Remove(path)
		}
	}()

	if err := db.Migrate(database); err != nil {
		return "", fmt.Errorf("migrating schema: %w", err)
	}

	password, err = generatePassword(16)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}

	_, err = store.CreateUser(context.Background(), database, &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleSuperAdmin,
		Status:       model.UserStatusApproved,
	})
	if err != nil {
		return "", fmt.Errorf("creating super admin: %w", err)
	}

	return password, nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, email, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Super admin account created:")
	fmt.Printf("  Email:    %s\n", email)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("It can be changed after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
