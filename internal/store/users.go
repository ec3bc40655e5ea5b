package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/soseska/internal/geo"
	"github.com/erazemk/soseska/internal/model"
)

const userColumns = `id, name, email, password_hash, phone, role, apartment_id, flat_number,
	status, lng, lat, created_at, deleted_at`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	u := &model.User{}
	var phone, flat sql.NullString
	var lng, lat sql.NullFloat64
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &phone, &u.Role, &u.ApartmentID, &flat,
		&u.Status, &lng, &lat, &u.CreatedAt, &u.DeletedAt); err != nil {
		return nil, err
	}
	u.Phone = phone.String
	u.FlatNumber = flat.String
	u.Location = point(lng, lat)
	return u, nil
}

func point(lng, lat sql.NullFloat64) *model.Point {
	if !lng.Valid || !lat.Valid {
		return nil
	}
	return &model.Point{Lng: lng.Float64, Lat: lat.Float64}
}

func coords(p *model.Point) (lng, lat any) {
	if p == nil {
		return nil, nil
	}
	return p.Lng, p.Lat
}

// CreateUser inserts u and returns the stored user.
func CreateUser(ctx context.Context, db *sql.DB, u *model.User) (*model.User, error) {
	lng, lat := coords(u.Location)
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, phone, role, apartment_id, flat_number, status, lng, lat)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.PasswordHash, u.Phone, u.Role, u.ApartmentID, u.FlatNumber, u.Status, lng, lat,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns the active user registered with email.
func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? AND deleted_at IS NULL`, email,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// ListPendingUsers returns users awaiting approval in an apartment.
func ListPendingUsers(ctx context.Context, db *sql.DB, apartmentID int64) ([]model.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE apartment_id = ? AND status = ? AND deleted_at IS NULL
		 ORDER BY created_at, id`,
		apartmentID, model.UserStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pending users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// SetUserStatus changes a user's approval status.
func SetUserStatus(ctx context.Context, db *sql.DB, id int64, status string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET status = ? WHERE id = ? AND deleted_at IS NULL`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("setting user status: %w", err)
	}
	return nil
}

// UpdateUserProfile replaces the editable profile fields of a user.
func UpdateUserProfile(ctx context.Context, db *sql.DB, id int64, name, phone, flatNumber string, location *model.Point) error {
	lng, lat := coords(location)
	_, err := db.ExecContext(ctx,
		`UPDATE users SET name = ?, phone = ?, flat_number = ?, lng = ?, lat = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		name, phone, flatNumber, lng, lat, id,
	)
	if err != nil {
		return fmt.Errorf("updating user profile: %w", err)
	}
	return nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// AssignApartmentAdmin makes a user the approved admin of an apartment.
func AssignApartmentAdmin(ctx context.Context, db *sql.DB, userID, apartmentID int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET apartment_id = ?, role = ?, status = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		apartmentID, model.RoleApartmentAdmin, model.UserStatusApproved, userID,
	)
	if err != nil {
		return fmt.Errorf("assigning apartment admin: %w", err)
	}
	return nil
}

// GetApartmentAdmin returns the first approved admin of an apartment.
func GetApartmentAdmin(ctx context.Context, db *sql.DB, apartmentID int64) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE apartment_id = ? AND role = ? AND status = ? AND deleted_at IS NULL
		 ORDER BY id LIMIT 1`,
		apartmentID, model.RoleApartmentAdmin, model.UserStatusApproved,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting apartment admin: %w", err)
	}
	return u, nil
}

// ListUsersInBox returns approved users whose location lies inside box,
// excluding excludeID. Distances are left for the caller to compute.
func ListUsersInBox(ctx context.Context, db *sql.DB, box geo.Box, excludeID int64) ([]model.Neighbor, error) {
	query := `SELECT u.id, u.name, u.email, u.flat_number, u.apartment_id, a.name, u.lng, u.lat
	          FROM users u
	          LEFT JOIN apartments a ON a.id = u.apartment_id
	          WHERE u.status = ? AND u.deleted_at IS NULL AND u.id <> ?
	            AND u.lat BETWEEN ? AND ?`
	args := []any{model.UserStatusApproved, excludeID, box.MinLat, box.MaxLat}

	if box.CrossesAntimeridian() {
		query += ` AND (u.lng >= ? OR u.lng <= ?)`
	} else {
		query += ` AND u.lng BETWEEN ? AND ?`
	}
	args = append(args, box.MinLng, box.MaxLng)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing users near location: %w", err)
	}
	defer rows.Close()

	var neighbors []model.Neighbor
	for rows.Next() {
		var n model.Neighbor
		var flat, aptName sql.NullString
		if err := rows.Scan(&n.ID, &n.Name, &n.Email, &flat, &n.ApartmentID, &aptName,
			&n.Location.Lng, &n.Location.Lat); err != nil {
			return nil, fmt.Errorf("scanning neighbor: %w", err)
		}
		n.FlatNumber = flat.String
		n.ApartmentName = aptName.String
		neighbors = append(neighbors, n)
	}
	return neighbors, rows.Err()
}
