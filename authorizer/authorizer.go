// Package authorizer keeps the protocol's role tables. Every role is
// identified by the keccak hash of its scope address and label: the scope
// is either a specific module (module-local roles, managed by the module
// itself) or the orchestrator address (global roles, managed by holders of
// the global admin role). Each role has an admin role that may be
// delegated or permanently burned.
package authorizer

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/openmodular/orchestrator/address"
	"github.com/openmodular/orchestrator/events"
	"github.com/openmodular/orchestrator/registry"
	"github.com/openmodular/orchestrator/statekit"
	"github.com/openmodular/orchestrator/statekit/addrset"
	"github.com/openmodular/orchestrator/statekit/hashmap"
)

// GlobalAdminLabel names the top-level admin role under the orchestrator
// scope. Holders administer global roles and the orchestrator's module
// set.
const GlobalAdminLabel = "ADMIN"

// BurnAdminRole is a reserved role id that is its own admin and can never
// gain members. Transferring a role's admin to it makes the role
// permanently unmanageable.
var BurnAdminRole = crypto.Keccak256Hash([]byte("authBurnAdminRole"))

var (
	initializedSlot = crypto.Keccak256Hash([]byte("authInitialized"))
	membersSalt     = []byte("authRoleMembers")
	adminSalt       = []byte("authRoleAdmin")
)

var one = common.BytesToHash([]byte{1})

// RoleID derives the role identifier for a label under a scope. Pure.
func RoleID(scope common.Address, label string) common.Hash {
	return crypto.Keccak256Hash(scope.Bytes(), []byte(label))
}

// GlobalRoleID derives a role id under the orchestrator's own scope.
func GlobalRoleID(db statekit.StateAccess, label string) common.Hash {
	return RoleID(registry.Self(db), label)
}

// GlobalAdminRole is the orchestrator's top-level admin role.
func GlobalAdminRole(db statekit.StateAccess) common.Hash {
	return GlobalRoleID(db, GlobalAdminLabel)
}

func members(db statekit.StateAccess, roleID common.Hash) *addrset.Set {
	key := crypto.Keccak256Hash(membersSalt, roleID[:])
	return addrset.NewSet(db, address.AuthorizerStateAddress, key)
}

func adminMap(db statekit.StateAccess) *hashmap.Map {
	return hashmap.NewMap(db, address.AuthorizerStateAddress, adminSalt)
}

func HasRole(db statekit.StateAccess, roleID common.Hash, account common.Address) bool {
	return members(db, roleID).Contains(statekit.AddrWord(account))
}

func RoleMemberCount(db statekit.StateAccess, roleID common.Hash) uint64 {
	return members(db, roleID).Size()
}

func RoleMembers(db statekit.StateAccess, roleID common.Hash) []common.Address {
	vals := members(db, roleID).Values()
	addrs := make([]common.Address, len(vals))
	for i, v := range vals {
		addrs[i] = common.BytesToAddress(v.Bytes())
	}
	return addrs
}

// AdminRoleOf returns the role that administers roleID. Roles without an
// explicit admin default to the global admin role.
func AdminRoleOf(db statekit.StateAccess, roleID common.Hash) common.Hash {
	stored := adminMap(db).Get(roleID)
	if stored == (common.Hash{}) {
		return GlobalAdminRole(db)
	}
	return stored
}

// IsBurned reports whether roleID's admin has been permanently burned.
func IsBurned(db statekit.StateAccess, roleID common.Hash) bool {
	return AdminRoleOf(db, roleID) == BurnAdminRole
}

func Initialized(db statekit.StateAccess) bool {
	return db.GetState(address.AuthorizerStateAddress, initializedSlot) != (common.Hash{})
}

// Initialize seeds the role tables with a single global admin. The
// orchestrator address must already be recorded in the registry.
func Initialize(db statekit.StateAccess, initialAdmin common.Address) ([]*types.Log, error) {
	if Initialized(db) {
		return nil, ErrAlreadyInitialized
	}
	if initialAdmin == (common.Address{}) || initialAdmin == registry.Self(db) {
		return nil, ErrInvalidInitialAdmin
	}

	db.SetState(address.AuthorizerStateAddress, initializedSlot, one)

	// The burn role administers itself, so no role can ever be granted
	// the right to manage it.
	adminMap(db).Set(BurnAdminRole, BurnAdminRole)

	adminRole := GlobalAdminRole(db)
	members(db, adminRole).Add(statekit.AddrWord(initialAdmin))

	return []*types.Log{events.New(
		address.AuthorizerStateAddress,
		[]common.Hash{events.RoleGranted, adminRole, events.AddressTopic(initialAdmin)},
		nil,
	)}, nil
}

// checkRoleAdmin verifies that sender holds roleID's admin role.
func checkRoleAdmin(db statekit.StateAccess, sender common.Address, roleID common.Hash) error {
	admin := AdminRoleOf(db, roleID)
	if admin == BurnAdminRole {
		return ErrRoleBurned
	}
	if !HasRole(db, admin, sender) {
		return ErrNotRoleAdmin
	}
	return nil
}

// GrantRole adds account to roleID. The sender must hold roleID's admin
// role. Granting an already-held role succeeds silently.
func GrantRole(db statekit.StateAccess, sender common.Address, roleID common.Hash, account common.Address) ([]*types.Log, error) {
	if roleID == BurnAdminRole {
		return nil, ErrRoleBurned
	}
	if err := checkRoleAdmin(db, sender, roleID); err != nil {
		return nil, err
	}
	if roleID == GlobalAdminRole(db) && account == registry.Self(db) {
		return nil, ErrOrchestratorCannotBeAdmin
	}

	if !members(db, roleID).Add(statekit.AddrWord(account)) {
		return nil, nil
	}
	return []*types.Log{events.New(
		address.AuthorizerStateAddress,
		[]common.Hash{events.RoleGranted, roleID, events.AddressTopic(account)},
		nil,
	)}, nil
}

// RevokeRole removes account from roleID. The sender must hold roleID's
// admin role. The global admin role can never lose its last member.
func RevokeRole(db statekit.StateAccess, sender common.Address, roleID common.Hash, account common.Address) ([]*types.Log, error) {
	if err := checkRoleAdmin(db, sender, roleID); err != nil {
		return nil, err
	}

	set := members(db, roleID)
	if roleID == GlobalAdminRole(db) && set.Contains(statekit.AddrWord(account)) && set.Size() == 1 {
		return nil, ErrAdminRoleCannotBeEmpty
	}

	if !set.Remove(statekit.AddrWord(account)) {
		return nil, nil
	}
	return []*types.Log{events.New(
		address.AuthorizerStateAddress,
		[]common.Hash{events.RoleRevoked, roleID, events.AddressTopic(account)},
		nil,
	)}, nil
}

// TransferAdminRole re-delegates administration of roleID to another role.
// Fails once the role's admin has been burned.
func TransferAdminRole(db statekit.StateAccess, sender common.Address, roleID, newAdminRoleID common.Hash) ([]*types.Log, error) {
	if err := checkRoleAdmin(db, sender, roleID); err != nil {
		return nil, err
	}

	adminMap(db).Set(roleID, newAdminRoleID)
	return []*types.Log{events.New(
		address.AuthorizerStateAddress,
		[]common.Hash{events.RoleAdminChanged, roleID, newAdminRoleID},
		nil,
	)}, nil
}

// GrantGlobalRole grants a role scoped under the orchestrator address.
func GrantGlobalRole(db statekit.StateAccess, sender common.Address, label string, account common.Address) ([]*types.Log, error) {
	return GrantRole(db, sender, GlobalRoleID(db, label), account)
}

// RevokeGlobalRole revokes a role scoped under the orchestrator address.
func RevokeGlobalRole(db statekit.StateAccess, sender common.Address, label string, account common.Address) ([]*types.Log, error) {
	return RevokeRole(db, sender, GlobalRoleID(db, label), account)
}
