package lending

import (
	"slices"
	"strings"

	"github.com/erazemk/soseska/internal/model"
)

// rule describes one transition: which states it leaves, who may perform it,
// and the state it produces.
type rule struct {
	from        []string
	stateReason string
	authorize   func(Actor, *model.Resource) error
	next        func(Actor, *model.Resource) model.LendingState
}

func (r rule) accepts(status string) bool {
	return slices.Contains(r.from, status)
}

var rules = map[Operation]rule{
	OpRequest: {
		from:        []string{model.ResourceStatusAvailable, model.ResourceStatusDeclined},
		stateReason: "resource is not available",
		authorize: func(a Actor, r *model.Resource) error {
			if isOwner(a, r) {
				return reject(ErrNotAuthorized, "you cannot borrow your own resource")
			}
			if !sameApartment(a, r) {
				return reject(ErrNotAuthorized, "resource belongs to another apartment")
			}
			return nil
		},
		next: func(a Actor, _ *model.Resource) model.LendingState {
			id := a.UserID
			return model.LendingState{Status: model.ResourceStatusRequested, BorrowerID: &id}
		},
	},
	OpApprove: {
		from:        []string{model.ResourceStatusRequested},
		stateReason: "no pending request to approve",
		authorize: func(a Actor, r *model.Resource) error {
			if !isOwner(a, r) {
				return reject(ErrNotAuthorized, "only the owner can approve a request")
			}
			return nil
		},
		next: func(_ Actor, r *model.Resource) model.LendingState {
			return model.LendingState{Status: model.ResourceStatusBorrowed, BorrowerID: r.BorrowerID}
		},
	},
	OpDecline: {
		from:        []string{model.ResourceStatusRequested},
		stateReason: "no pending request to decline",
		authorize: func(a Actor, r *model.Resource) error {
			if !CanDecline(a, r) {
				return reject(ErrNotAuthorized, "only the owner or an apartment admin can decline a request")
			}
			return nil
		},
		next: func(Actor, *model.Resource) model.LendingState {
			return model.LendingState{Status: model.ResourceStatusDeclined}
		},
	},
	OpReturn: {
		from:        []string{model.ResourceStatusBorrowed},
		stateReason: "resource is not borrowed",
		authorize: func(a Actor, r *model.Resource) error {
			if !isBorrower(a, r) {
				return reject(ErrNotAuthorized, "only the borrower can return the resource")
			}
			return nil
		},
		next: func(Actor, *model.Resource) model.LendingState {
			return model.LendingState{Status: model.ResourceStatusAvailable}
		},
	},
}

// CanDecline reports whether actor may decline a request on r: the owner, a
// super admin, or an admin of the apartment r belongs to.
func CanDecline(a Actor, r *model.Resource) bool {
	if isOwner(a, r) {
		return true
	}
	return model.CanAdminister(a.Role, a.ApartmentID, r.ApartmentID)
}

// ownerID returns the canonical owner identifier of r. A resource decoded
// from its expanded form may carry only the Owner reference.
func ownerID(r *model.Resource) int64 {
	if r.OwnerID == 0 && r.Owner != nil {
		return r.Owner.ID
	}
	return r.OwnerID
}

// borrowerID returns the canonical borrower identifier of r, or 0 if none.
func borrowerID(r *model.Resource) int64 {
	switch {
	case r.BorrowerID != nil:
		return *r.BorrowerID
	case r.Borrower != nil:
		return r.Borrower.ID
	}
	return 0
}

func isOwner(a Actor, r *model.Resource) bool {
	return a.UserID != 0 && ownerID(r) == a.UserID
}

func isBorrower(a Actor, r *model.Resource) bool {
	return a.UserID != 0 && borrowerID(r) == a.UserID
}

func sameApartment(a Actor, r *model.Resource) bool {
	if a.Role == model.RoleSuperAdmin {
		return true
	}
	return a.ApartmentID != nil && *a.ApartmentID == r.ApartmentID
}

// MaxTitleLength bounds resource titles.
const MaxTitleLength = 200

// Draft is a validated resource about to be created.
type Draft struct {
	Title       string
	Description string
	Category    string
}

// NewDraft validates the fields of a new resource. The category is matched
// case-insensitively and stored lowercase.
func NewDraft(title, description, category string) (Draft, error) {
	d := Draft{
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Category:    strings.ToLower(strings.TrimSpace(category)),
	}

	if d.Title == "" {
		return Draft{}, reject(ErrValidation, "title is required")
	}
	if len(d.Title) > MaxTitleLength {
		return Draft{}, reject(ErrValidation, "title is too long")
	}
	if d.Category == "" {
		d.Category = model.CategoryOther
	}
	if !model.ValidCategory(d.Category) {
		return Draft{}, reject(ErrValidation, "category must be one of: "+strings.Join(model.Categories, ", "))
	}
	return d, nil
}
