package sentinel

import "errors"

// Sentinel errors for persistence facts. Stores return these (optionally
// wrapped) and services translate them into coded domain errors:
//   - ErrNotFound: no customer, product or order with the requested id
//   - ErrAlreadyUsed: a unique attribute (customer email) is taken
//   - ErrConflict: a concurrent writer won the row
//   - ErrUnavailable: backing store temporarily unreachable
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
