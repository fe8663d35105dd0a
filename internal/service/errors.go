package service

import "errors"

var (
	// ErrTxNotFound means the referenced transaction does not exist.
	ErrTxNotFound = errors.New("transaction not found")
	// ErrExtNotFound means the external identifier resolves to no user.
	ErrExtNotFound = errors.New("external identifier not found")
	// ErrUserNotFound means the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrCannotAccept is the no-op branch: the transaction is not in a
	// status the accept table allows. Nothing is mutated.
	ErrCannotAccept = errors.New("transaction cannot be accepted")
	// ErrCannotDeny is the deny-side no-op branch.
	ErrCannotDeny = errors.New("transaction cannot be denied")

	// ErrGatewayUnavailable means the gateway could not serve the
	// request right now; callers should try later.
	ErrGatewayUnavailable = errors.New("gateway unavailable")

	// ErrInvalidAmount rejects non-positive amounts before any
	// transaction row is written.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrDuplicateCallback marks a gateway callback redelivery that was
	// already processed.
	ErrDuplicateCallback = errors.New("duplicate gateway callback")

	// ErrAdminGroupNotSet means no admin group is configured, so
	// requests needing approval cannot be routed.
	ErrAdminGroupNotSet = errors.New("admin group not configured")
)
