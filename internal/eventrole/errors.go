package eventrole

import "errors"

var (
	// ErrMissingGuild marks an event that carries no guild reference and
	// therefore cannot be role-bearing.
	ErrMissingGuild = errors.New("event has no guild")

	// ErrRoleCreation marks a failed or empty role-creation call.
	// Nothing has been persisted when this is returned.
	ErrRoleCreation = errors.New("role creation failed")

	// ErrPersistence marks a record write that affected no rows. The role
	// already exists at this point but is unlinked; a later Resolve of the
	// same event will not find a record and will create a second role.
	// Surfaced rather than silently repaired.
	ErrPersistence = errors.New("event record write failed")

	// ErrLookup marks a role or member fetch that failed, e.g. a role
	// deleted out-of-band after its record was written.
	ErrLookup = errors.New("lookup failed")

	// ErrUnexpected wraps anything caught at the service boundary that
	// does not fit the categories above.
	ErrUnexpected = errors.New("unexpected error")
)
