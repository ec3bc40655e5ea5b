package model

import "time"

// Apartment is a community grouping that scopes users, resources and events.
type Apartment struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Pincode   string    `json:"pincode,omitempty"`
	Location  *Point    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
