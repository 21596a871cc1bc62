package authorizer

import "errors"

var (
	ErrAlreadyInitialized         = errors.New("authorizer: already initialized")
	ErrNotRoleAdmin               = errors.New("authorizer: caller does not hold the role's admin role")
	ErrNotActiveModule            = errors.New("authorizer: caller is not an active module")
	ErrRoleBurned                 = errors.New("authorizer: role admin has been burned")
	ErrAdminRoleCannotBeEmpty     = errors.New("authorizer: global admin role cannot lose its last member")
	ErrOrchestratorCannotBeAdmin  = errors.New("authorizer: orchestrator cannot hold its own admin role")
	ErrInvalidInitialAdmin        = errors.New("authorizer: initial admin must be a non-zero, non-orchestrator address")
)
