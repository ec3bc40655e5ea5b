package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/erazemk/soseska/internal/model"
)

// newApartment creates an apartment for tests.
func newApartment(t *testing.T, database *sql.DB, name string) *model.Apartment {
	t.Helper()
	apt, err := CreateApartment(context.Background(), database, name, "Main street 1", "1000", nil)
	if err != nil {
		t.Fatalf("CreateApartment: %v", err)
	}
	return apt
}

// newResident creates an approved resident of apartmentID for tests.
func newResident(t *testing.T, database *sql.DB, name string, apartmentID int64, location *model.Point) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), database, &model.User{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
		Role:         model.RoleResident,
		ApartmentID:  &apartmentID,
		Status:       model.UserStatusApproved,
		Location:     location,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}
