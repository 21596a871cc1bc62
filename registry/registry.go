// Package registry keeps the orchestrator's module bookkeeping: the three
// singleton slots (funding manager, authorizer, payment processor), the
// insertion-ordered set of general modules, and the orchestrator's own
// identity. It is pure state access; authorization and the timelock
// protocol live in the orchestrator package on top of it.
package registry

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/openmodular/orchestrator/address"
	"github.com/openmodular/orchestrator/statekit"
	"github.com/openmodular/orchestrator/statekit/idlist"
)

// MaxModules bounds the general module set.
const MaxModules = 128

var ErrModuleLimitReached = errors.New("registry: module limit reached")

var (
	selfSlot             = crypto.Keccak256Hash([]byte("orchSelf"))
	initializedSlot      = crypto.Keccak256Hash([]byte("orchInitialized"))
	timelockDurationSlot = crypto.Keccak256Hash([]byte("orchTimelockDuration"))
	fundingManagerSlot   = crypto.Keccak256Hash([]byte("orchFundingManager"))
	authorizerSlot       = crypto.Keccak256Hash([]byte("orchAuthorizer"))
	paymentProcessorSlot = crypto.Keccak256Hash([]byte("orchPaymentProcessor"))
	moduleListKey        = crypto.Keccak256Hash([]byte("orchModuleList"))
)

var one = common.BytesToHash([]byte{1})

func getAddr(db statekit.StateAccess, slot common.Hash) common.Address {
	return common.BytesToAddress(db.GetState(address.OrchestratorStateAddress, slot).Bytes())
}

func setAddr(db statekit.StateAccess, slot common.Hash, a common.Address) {
	db.SetState(address.OrchestratorStateAddress, slot, statekit.AddrWord(a))
}

func Initialized(db statekit.StateAccess) bool {
	return db.GetState(address.OrchestratorStateAddress, initializedSlot) != (common.Hash{})
}

func MarkInitialized(db statekit.StateAccess) {
	db.SetState(address.OrchestratorStateAddress, initializedSlot, one)
}

// Self is the orchestrator's own address, used as the scope of global
// roles.
func Self(db statekit.StateAccess) common.Address { return getAddr(db, selfSlot) }

func SetSelf(db statekit.StateAccess, a common.Address) { setAddr(db, selfSlot, a) }

func TimelockDuration(db statekit.StateAccess) uint64 {
	v := new(uint256.Int).SetBytes32(db.GetState(address.OrchestratorStateAddress, timelockDurationSlot).Bytes())
	return v.Uint64()
}

func SetTimelockDuration(db statekit.StateAccess, d uint64) {
	db.SetState(address.OrchestratorStateAddress, timelockDurationSlot, uint256.NewInt(d).Bytes32())
}

func FundingManager(db statekit.StateAccess) common.Address { return getAddr(db, fundingManagerSlot) }

func SetFundingManager(db statekit.StateAccess, a common.Address) { setAddr(db, fundingManagerSlot, a) }

func Authorizer(db statekit.StateAccess) common.Address { return getAddr(db, authorizerSlot) }

func SetAuthorizer(db statekit.StateAccess, a common.Address) { setAddr(db, authorizerSlot, a) }

func PaymentProcessor(db statekit.StateAccess) common.Address { return getAddr(db, paymentProcessorSlot) }

func SetPaymentProcessor(db statekit.StateAccess, a common.Address) {
	setAddr(db, paymentProcessorSlot, a)
}

func moduleList(db statekit.StateAccess) *idlist.List {
	return idlist.NewList(db, address.OrchestratorStateAddress, moduleListKey)
}

func InitModuleList(db statekit.StateAccess) error {
	return moduleList(db).Init()
}

// IsModule reports membership in the general module set. The singleton
// slots are not part of it.
func IsModule(db statekit.StateAccess, a common.Address) bool {
	return moduleList(db).Contains(statekit.AddrWord(a))
}

// IsCoreSlot reports whether a occupies one of the three singleton slots.
func IsCoreSlot(db statekit.StateAccess, a common.Address) bool {
	return a == FundingManager(db) || a == Authorizer(db) || a == PaymentProcessor(db)
}

// IsActiveModule reports whether a is any registered module, singleton
// slots included. Module-scoped role management is gated on this.
func IsActiveModule(db statekit.StateAccess, a common.Address) bool {
	return IsModule(db, a) || IsCoreSlot(db, a)
}

func ModuleCount(db statekit.StateAccess) uint64 {
	return moduleList(db).Size()
}

// Modules returns the general module set in insertion order.
func Modules(db statekit.StateAccess) []common.Address {
	ids := moduleList(db).IDs()
	addrs := make([]common.Address, len(ids))
	for i, id := range ids {
		addrs[i] = common.BytesToAddress(id.Bytes())
	}
	return addrs
}

// RegisterModule appends a to the module set.
func RegisterModule(db statekit.StateAccess, a common.Address) error {
	l := moduleList(db)
	if l.Size() >= MaxModules {
		return ErrModuleLimitReached
	}
	if err := l.Add(statekit.AddrWord(a)); err != nil {
		return fmt.Errorf("failed to register module %s: %w", a.Hex(), err)
	}
	return nil
}

// DeregisterModule unlinks a from the module set, resolving the
// predecessor internally.
func DeregisterModule(db statekit.StateAccess, a common.Address) error {
	l := moduleList(db)
	id := statekit.AddrWord(a)
	prev, err := l.Prev(id)
	if err != nil {
		return fmt.Errorf("failed to locate module %s: %w", a.Hex(), err)
	}
	if err := l.Remove(prev, id); err != nil {
		return fmt.Errorf("failed to deregister module %s: %w", a.Hex(), err)
	}
	return nil
}
