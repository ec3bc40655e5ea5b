package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/soseska/internal/model"
)

// CreateApartment creates a new apartment.
func CreateApartment(ctx context.Context, db *sql.DB, name, address, pincode string, location *model.Point) (*model.Apartment, error) {
	lng, lat := coords(location)
	result, err := db.ExecContext(ctx,
		`INSERT INTO apartments (name, address, pincode, lng, lat) VALUES (?, ?, ?, ?, ?)`,
		name, address, pincode, lng, lat,
	)
	if err != nil {
		return nil, fmt.Errorf("creating apartment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting apartment id: %w", err)
	}

	return GetApartment(ctx, db, id)
}

// GetApartment returns an apartment by ID.
func GetApartment(ctx context.Context, db *sql.DB, id int64) (*model.Apartment, error) {
	a, err := scanApartment(db.QueryRowContext(ctx,
		`SELECT id, name, address, pincode, lng, lat, created_at FROM apartments WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting apartment: %w", err)
	}
	return a, nil
}

// ListApartments returns all apartments ordered by name.
func ListApartments(ctx context.Context, db *sql.DB) ([]model.Apartment, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, address, pincode, lng, lat, created_at FROM apartments ORDER BY name, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing apartments: %w", err)
	}
	defer rows.Close()

	var apartments []model.Apartment
	for rows.Next() {
		a, err := scanApartment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning apartment: %w", err)
		}
		apartments = append(apartments, *a)
	}
	return apartments, rows.Err()
}

func scanApartment(s scanner) (*model.Apartment, error) {
	a := &model.Apartment{}
	var address, pincode sql.NullString
	var lng, lat sql.NullFloat64
	if err := s.Scan(&a.ID, &a.Name, &address, &pincode, &lng, &lat, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Address = address.String
	a.Pincode = pincode.String
	a.Location = point(lng, lat)
	return a, nil
}
