package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/soseska/internal/model"
)

// CreateNotification records a notification for a user.
func CreateNotification(ctx context.Context, db *sql.DB, userID int64, kind, text string, resourceID *int64) (*model.Notification, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO notifications (user_id, kind, text, resource_id) VALUES (?, ?, ?, ?)`,
		userID, kind, text, resourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting notification id: %w", err)
	}

	n := &model.Notification{}
	err = db.QueryRowContext(ctx,
		`SELECT id, user_id, kind, text, resource_id, created_at, read_at FROM notifications WHERE id = ?`, id,
	).Scan(&n.ID, &n.UserID, &n.Kind, &n.Text, &n.ResourceID, &n.CreatedAt, &n.ReadAt)
	if err != nil {
		return nil, fmt.Errorf("getting notification: %w", err)
	}
	return n, nil
}

// ListNotifications returns a user's most recent notifications, newest first.
func ListNotifications(ctx context.Context, db *sql.DB, userID int64, limit int) ([]model.Notification, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, user_id, kind, text, resource_id, created_at, read_at
		 FROM notifications WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Text, &n.ResourceID, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead marks one of the user's notifications read. It reports
// whether the notification exists and belongs to the user.
func MarkNotificationRead(ctx context.Context, db *sql.DB, id, userID int64) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE notifications SET read_at = COALESCE(read_at, CURRENT_TIMESTAMP)
		 WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("marking notification read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking notification update: %w", err)
	}
	return n > 0, nil
}

// MarkAllNotificationsRead marks every unread notification of a user read
// and returns how many changed.
func MarkAllNotificationsRead(ctx context.Context, db *sql.DB, userID int64) (int64, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE notifications SET read_at = CURRENT_TIMESTAMP WHERE user_id = ? AND read_at IS NULL`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}
	return result.RowsAffected()
}
