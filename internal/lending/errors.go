package lending

import "errors"

// Rejection kinds. Every rejection returned by the manager wraps exactly one
// of these, so callers can branch with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidState  = errors.New("invalid state")
	ErrNotAuthorized = errors.New("not authorized")
	ErrConflict      = errors.New("conflict")
	ErrValidation    = errors.New("validation error")
)

// Rejection is a named refusal of a lending operation.
type Rejection struct {
	Kind   error
	Reason string
}

func (r *Rejection) Error() string { return r.Reason }

func (r *Rejection) Unwrap() error { return r.Kind }

func reject(kind error, reason string) error {
	return &Rejection{Kind: kind, Reason: reason}
}

// Kind returns the rejection kind wrapped by err, or nil if err is not a
// rejection.
func Kind(err error) error {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Kind
	}
	return nil
}
