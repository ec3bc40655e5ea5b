package api

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/erazemk/soseska/internal/store"
)

// notify records a notification for userID. A failure is logged and does not
// fail the request that triggered it.
func notify(ctx context.Context, db *sql.DB, userID int64, kind, text string, resourceID *int64) {
	if _, err := store.CreateNotification(ctx, db, userID, kind, text, resourceID); err != nil {
		slog.Error("creating notification", "error", err, "user", userID, "kind", kind)
	}
}
