package leads

import "errors"

var (
	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("leads: lead not found")

	// ErrMissingOwner is returned when a lookup omits the owning user
	ErrMissingOwner = errors.New("leads: owner user id is required")

	// ErrInvalidStatus is returned when a status update carries an empty status
	ErrInvalidStatus = errors.New("leads: status is required")
)
