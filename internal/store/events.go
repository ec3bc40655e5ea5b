package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/soseska/internal/model"
)

// CreateEvent creates an event in an apartment.
func CreateEvent(ctx context.Context, db *sql.DB, title, description string, date time.Time, createdBy, apartmentID int64) (*model.Event, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO events (title, description, date, created_by, apartment_id) VALUES (?, ?, ?, ?, ?)`,
		title, description, date.UTC(), createdBy, apartmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting event id: %w", err)
	}

	return GetEvent(ctx, db, id)
}

const eventSelect = `SELECT e.id, e.title, e.description, e.date, e.created_by, e.apartment_id, e.created_at,
	                        u.name, u.email
	                 FROM events e
	                 JOIN users u ON u.id = e.created_by`

func scanEvent(s scanner) (*model.Event, error) {
	e := &model.Event{}
	var description sql.NullString
	creator := &model.UserRef{}
	if err := s.Scan(&e.ID, &e.Title, &description, &e.Date, &e.CreatedBy, &e.ApartmentID, &e.CreatedAt,
		&creator.Name, &creator.Email); err != nil {
		return nil, err
	}
	e.Description = description.String
	creator.ID = e.CreatedBy
	e.Creator = creator
	e.Attendees = []model.UserRef{}
	return e, nil
}

// GetEvent returns an event by ID with creator and attendees expanded.
func GetEvent(ctx context.Context, db *sql.DB, id int64) (*model.Event, error) {
	e, err := scanEvent(db.QueryRowContext(ctx, eventSelect+` WHERE e.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting event: %w", err)
	}

	if err := loadAttendees(ctx, db, []*model.Event{e}); err != nil {
		return nil, err
	}
	return e, nil
}

// ListEvents returns an apartment's events ordered by date.
func ListEvents(ctx context.Context, db *sql.DB, apartmentID int64) ([]model.Event, error) {
	rows, err := db.QueryContext(ctx, eventSelect+` WHERE e.apartment_id = ? ORDER BY e.date, e.id`, apartmentID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	rows.Close()

	if err := loadAttendees(ctx, db, events); err != nil {
		return nil, err
	}

	out := make([]model.Event, len(events))
	for i, e := range events {
		out[i] = *e
	}
	return out, nil
}

// loadAttendees fills in the attendee lists of events, one query per event.
func loadAttendees(ctx context.Context, db *sql.DB, events []*model.Event) error {
	for _, e := range events {
		rows, err := db.QueryContext(ctx,
			`SELECT u.id, u.name, u.email
			 FROM event_attendees ea
			 JOIN users u ON u.id = ea.user_id
			 WHERE ea.event_id = ?
			 ORDER BY ea.created_at, u.id`, e.ID,
		)
		if err != nil {
			return fmt.Errorf("listing attendees: %w", err)
		}

		for rows.Next() {
			var u model.UserRef
			if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
				rows.Close()
				return fmt.Errorf("scanning attendee: %w", err)
			}
			e.Attendees = append(e.Attendees, u)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("listing attendees: %w", err)
		}
	}
	return nil
}

// AddAttendee records an RSVP. It reports false if the user had already
// RSVPed.
func AddAttendee(ctx context.Context, db *sql.DB, eventID, userID int64) (bool, error) {
	result, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO event_attendees (event_id, user_id) VALUES (?, ?)`,
		eventID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("adding attendee: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking attendee insert: %w", err)
	}
	return n > 0, nil
}
