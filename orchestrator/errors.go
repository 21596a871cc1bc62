package orchestrator

import "errors"

var (
	ErrAlreadyInitialized       = errors.New("orchestrator: already initialized")
	ErrNotInitialized           = errors.New("orchestrator: not initialized")
	ErrCallerNotAuthorized      = errors.New("orchestrator: caller does not hold the admin role")
	ErrInvalidModuleType        = errors.New("orchestrator: module does not support the required capability")
	ErrInvalidCandidate         = errors.New("orchestrator: candidate address is invalid")
	ErrMismatchedToken          = errors.New("orchestrator: funding manager candidate uses a different token")
	ErrNoPendingUpdate          = errors.New("orchestrator: no matching pending update")
	ErrTimelockNotExpired       = errors.New("orchestrator: timelock has not expired yet")
	ErrModuleAlreadyRegistered  = errors.New("orchestrator: module is already registered")
	ErrConflictingPendingUpdate = errors.New("orchestrator: candidate conflicts with a pending core slot update")
	ErrModuleNotRegistered      = errors.New("orchestrator: module is not registered")
	ErrCannotRemoveCoreModule   = errors.New("orchestrator: core slot modules must be replaced, not removed")
)
