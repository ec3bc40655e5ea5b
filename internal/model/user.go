package model

import (
	"fmt"
	"time"
)

// User represents a resident or administrator account.
type User struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Phone        string     `json:"phone,omitempty"`
	Role         string     `json:"role"`
	ApartmentID  *int64     `json:"apartment_id"`
	FlatNumber   string     `json:"flat_number,omitempty"`
	Status       string     `json:"status"`
	Location     *Point     `json:"location,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// UserRef is the expanded form of a user reference shown alongside other records.
type UserRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Neighbor is a user found by a proximity search.
type Neighbor struct {
	UserRef
	FlatNumber    string  `json:"flat_number,omitempty"`
	ApartmentID   *int64  `json:"apartment_id"`
	ApartmentName string  `json:"apartment_name,omitempty"`
	Location      Point   `json:"location"`
	Distance      float64 `json:"distance_m"`
}

// Point is a WGS84 coordinate.
type Point struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// Valid reports whether the coordinate lies within longitude/latitude bounds.
func (p Point) Valid() bool {
	return p.Lng >= -180 && p.Lng <= 180 && p.Lat >= -90 && p.Lat <= 90
}

// Roles.
const (
	RoleResident       = "resident"
	RoleApartmentAdmin = "apartment_admin"
	RoleSuperAdmin     = "super_admin"
)

// User statuses.
const (
	UserStatusPending  = "pending"
	UserStatusApproved = "approved"
	UserStatusRejected = "rejected"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// IsAdminRole reports whether role carries community administration rights.
func IsAdminRole(role string) bool {
	return role == RoleApartmentAdmin || role == RoleSuperAdmin
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleResident, RoleApartmentAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// CanAdminister reports whether a user with the given role and apartment may
// administer apartmentID. Super admins administer every apartment; apartment
// admins only their own.
func CanAdminister(role string, userApartment *int64, apartmentID int64) bool {
	switch role {
	case RoleSuperAdmin:
		return true
	case RoleApartmentAdmin:
		return userApartment != nil && *userApartment == apartmentID
	}
	return false
}

// ValidatePassword checks password strength requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
