package model

import "time"

// Event is a community event scheduled within an apartment.
type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	CreatedBy   int64     `json:"created_by"`
	ApartmentID int64     `json:"apartment_id"`
	CreatedAt   time.Time `json:"created_at"`

	// Joined fields (not always populated).
	Creator   *UserRef  `json:"creator,omitempty"`
	Attendees []UserRef `json:"attendees"`
}
