package authorizer

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/openmodular/orchestrator/address"
	"github.com/openmodular/orchestrator/events"
	"github.com/openmodular/orchestrator/registry"
	"github.com/openmodular/orchestrator/statekit"
)

// Module-scoped role management. The scope of these roles is forced to the
// calling module's own address, so a module can only ever manage its own
// role namespace, and only while it is an active module of the
// orchestrator.

func checkActiveModule(db statekit.StateAccess, sender common.Address) error {
	if !registry.IsActiveModule(db, sender) {
		return ErrNotActiveModule
	}
	return nil
}

// GrantRoleFromModule grants the sender-scoped role for label to account.
// Idempotent: granting an already-held role emits nothing and changes
// nothing.
func GrantRoleFromModule(db statekit.StateAccess, sender common.Address, label string, account common.Address) ([]*types.Log, error) {
	if err := checkActiveModule(db, sender); err != nil {
		return nil, err
	}

	roleID := RoleID(sender, label)
	if IsBurned(db, roleID) {
		return nil, ErrRoleBurned
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

// RevokeRoleFromModule revokes the sender-scoped role for label from
// account. Revoking a role the account does not hold is a no-op.
func RevokeRoleFromModule(db statekit.StateAccess, sender common.Address, label string, account common.Address) ([]*types.Log, error) {
	if err := checkActiveModule(db, sender); err != nil {
		return nil, err
	}

	roleID := RoleID(sender, label)
	if IsBurned(db, roleID) {
		return nil, ErrRoleBurned
	}
	if !members(db, roleID).Remove(statekit.AddrWord(account)) {
		return nil, nil
	}
	return []*types.Log{events.New(
		address.AuthorizerStateAddress,
		[]common.Hash{events.RoleRevoked, roleID, events.AddressTopic(account)},
		nil,
	)}, nil
}

// GrantRolesFromModule is the batched variant of GrantRoleFromModule over
// an ordered sequence of addresses.
func GrantRolesFromModule(db statekit.StateAccess, sender common.Address, label string, accounts []common.Address) ([]*types.Log, error) {
	logs := []*types.Log{}
	for _, account := range accounts {
		l, err := GrantRoleFromModule(db, sender, label, account)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l...)
	}
	return logs, nil
}

// RevokeRolesFromModule is the batched variant of RevokeRoleFromModule.
func RevokeRolesFromModule(db statekit.StateAccess, sender common.Address, label string, accounts []common.Address) ([]*types.Log, error) {
	logs := []*types.Log{}
	for _, account := range accounts {
		l, err := RevokeRoleFromModule(db, sender, label, account)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l...)
	}
	return logs, nil
}

// BurnAdminFromModuleRole permanently hands administration of the
// sender-scoped role for label to the burn role. Irreversible: afterwards
// no address, the global admin included, can grant, revoke or re-delegate
// it.
func BurnAdminFromModuleRole(db statekit.StateAccess, sender common.Address, label string) ([]*types.Log, error) {
	if err := checkActiveModule(db, sender); err != nil {
		return nil, err
	}

	roleID := RoleID(sender, label)
	adminMap(db).Set(roleID, BurnAdminRole)
	return []*types.Log{events.New(
		address.AuthorizerStateAddress,
		[]common.Hash{events.RoleAdminChanged, roleID, BurnAdminRole},
		nil,
	)}, nil
}
