package model

import "time"

// Resource is a lendable item registered by a resident within one apartment.
type Resource struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	ApartmentID int64     `json:"apartment_id"`
	OwnerID     int64     `json:"owner_id"`
	Status      string    `json:"status"`
	BorrowerID  *int64    `json:"borrower_id"`
	ImageMime   string    `json:"image_mime,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	Owner    *UserRef `json:"owner,omitempty"`
	Borrower *UserRef `json:"borrower,omitempty"`
}

// LendingState is the part of a Resource that lending transitions change.
type LendingState struct {
	Status     string
	BorrowerID *int64
}

// State returns the resource's current lending state.
func (r *Resource) State() LendingState {
	return LendingState{Status: r.Status, BorrowerID: r.BorrowerID}
}

// Resource statuses.
const (
	ResourceStatusAvailable = "available"
	ResourceStatusRequested = "requested"
	ResourceStatusBorrowed  = "borrowed"
	ResourceStatusDeclined  = "declined"
)

// Resource categories.
const (
	CategoryTools      = "tools"
	CategoryAppliances = "appliances"
	CategoryFurniture  = "furniture"
	CategoryBooks      = "books"
	CategoryOther      = "other"
)

// Categories lists every accepted resource category.
var Categories = []string{CategoryTools, CategoryAppliances, CategoryFurniture, CategoryBooks, CategoryOther}

// ValidCategory reports whether c is a known category.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ValidResourceStatus reports whether s is a known resource status.
func ValidResourceStatus(s string) bool {
	switch s {
	case ResourceStatusAvailable, ResourceStatusRequested, ResourceStatusBorrowed, ResourceStatusDeclined:
		return true
	}
	return false
}
