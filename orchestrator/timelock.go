package orchestrator

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/openmodular/orchestrator/address"
	"github.com/openmodular/orchestrator/events"
	"github.com/openmodular/orchestrator/modules"
	"github.com/openmodular/orchestrator/registry"
	"github.com/openmodular/orchestrator/statekit"
	"github.com/openmodular/orchestrator/statekit/blob"
)

// Pending update actions. A target has at most one pending record;
// re-initiating overwrites it and restarts the clock.
const (
	actionSetFundingManager uint8 = iota + 1
	actionSetAuthorizer
	actionSetPaymentProcessor
	actionAddModule
	actionRemoveModule
)

var (
	pendingSalt            = []byte("orchPendingUpdate")
	fundingManagerTarget   = crypto.Keccak256Hash([]byte("orchTargetFundingManager"))
	authorizerTarget       = crypto.Keccak256Hash([]byte("orchTargetAuthorizer"))
	paymentProcessorTarget = crypto.Keccak256Hash([]byte("orchTargetPaymentProcessor"))
	moduleTargetSalt       = []byte("orchTargetModule")
)

func moduleTarget(m common.Address) common.Hash {
	return crypto.Keccak256Hash(moduleTargetSalt, m.Bytes())
}

type pendingUpdate struct {
	Action      uint8
	Candidate   common.Address
	RequestedAt uint64
}

func pendingStore(db statekit.StateAccess) *blob.Store {
	return blob.NewStore(db, address.OrchestratorStateAddress)
}

func writePending(db statekit.StateAccess, target common.Hash, pu pendingUpdate) error {
	encoded, err := rlp.EncodeToBytes(&pu)
	if err != nil {
		return fmt.Errorf("failed to encode pending update: %w", err)
	}
	pendingStore(db).Set(crypto.Keccak256Hash(pendingSalt, target[:]), encoded)
	return nil
}

func readPending(db statekit.StateAccess, target common.Hash) (*pendingUpdate, error) {
	d := pendingStore(db).Get(crypto.Keccak256Hash(pendingSalt, target[:]))
	if len(d) == 0 {
		return nil, nil
	}
	pu := pendingUpdate{}
	if err := rlp.DecodeBytes(d, &pu); err != nil {
		return nil, fmt.Errorf("failed to decode pending update: %w", err)
	}
	return &pu, nil
}

func deletePending(db statekit.StateAccess, target common.Hash) {
	pendingStore(db).Delete(crypto.Keccak256Hash(pendingSalt, target[:]))
}

// pendingCoreCandidate reports whether a is the candidate of any pending
// singleton slot replacement. Such an address must not enter the general
// module list, or the swap would later land a core slot on a registered
// module.
func pendingCoreCandidate(db statekit.StateAccess, a common.Address) (bool, error) {
	targets := []struct {
		target common.Hash
		action uint8
	}{
		{fundingManagerTarget, actionSetFundingManager},
		{authorizerTarget, actionSetAuthorizer},
		{paymentProcessorTarget, actionSetPaymentProcessor},
	}
	for _, t := range targets {
		pu, err := readPending(db, t.target)
		if err != nil {
			return false, err
		}
		if pu != nil && pu.Action == t.action && pu.Candidate == a {
			return true, nil
		}
	}
	return false, nil
}

// consumePending loads the pending record for target, checking action
// match and timelock maturity.
func consumePending(db statekit.StateAccess, target common.Hash, action uint8, now uint64) (*pendingUpdate, error) {
	pu, err := readPending(db, target)
	if err != nil {
		return nil, err
	}
	if pu == nil || pu.Action != action {
		return nil, ErrNoPendingUpdate
	}
	if now < pu.RequestedAt+registry.TimelockDuration(db) {
		return nil, ErrTimelockNotExpired
	}
	return pu, nil
}

func initiatedLog(target common.Hash, candidate common.Address, executableAt uint64) *types.Log {
	return events.New(
		address.OrchestratorStateAddress,
		[]common.Hash{events.ModuleUpdateInitiated, target, events.AddressTopic(candidate)},
		events.Words(events.Uint64Word(executableAt)),
	)
}

func canceledLog(target common.Hash, candidate common.Address) *types.Log {
	return events.New(
		address.OrchestratorStateAddress,
		[]common.Hash{events.ModuleUpdateCanceled, target, events.AddressTopic(candidate)},
		nil,
	)
}

// initiateCoreSlot records a pending replacement of a singleton slot.
func initiateCoreSlot(db statekit.StateAccess, sender, candidate common.Address, target common.Hash, action uint8, now uint64) ([]*types.Log, error) {
	if err := checkAdmin(db, sender); err != nil {
		return nil, err
	}
	if candidate == (common.Address{}) {
		return nil, ErrInvalidCandidate
	}
	if err := writePending(db, target, pendingUpdate{Action: action, Candidate: candidate, RequestedAt: now}); err != nil {
		return nil, err
	}
	return []*types.Log{initiatedLog(target, candidate, now+registry.TimelockDuration(db))}, nil
}

// cancelCoreSlot clears a pending singleton replacement. The supplied
// candidate must match the recorded one.
func cancelCoreSlot(db statekit.StateAccess, sender, candidate common.Address, target common.Hash, action uint8) ([]*types.Log, error) {
	if err := checkAdmin(db, sender); err != nil {
		return nil, err
	}
	pu, err := readPending(db, target)
	if err != nil {
		return nil, err
	}
	if pu == nil || pu.Action != action || pu.Candidate != candidate {
		return nil, ErrNoPendingUpdate
	}
	deletePending(db, target)
	return []*types.Log{canceledLog(target, candidate)}, nil
}

// InitiateSetFundingManager requests a timelocked funding manager swap.
// The candidate's capability is validated up front; the token invariant is
// checked again at execution.
func InitiateSetFundingManager(db statekit.StateAccess, res modules.Resolver, sender, candidate common.Address, now uint64) ([]*types.Log, error) {
	if _, err := resolveFundingManager(res, candidate); err != nil {
		return nil, err
	}
	return initiateCoreSlot(db, sender, candidate, fundingManagerTarget, actionSetFundingManager, now)
}

// ExecuteSetFundingManager performs a matured funding manager swap. The
// replacement must keep the same underlying token.
func ExecuteSetFundingManager(db statekit.StateAccess, res modules.Resolver, sender common.Address, now uint64) ([]*types.Log, error) {
	if err := checkAdmin(db, sender); err != nil {
		return nil, err
	}
	pu, err := consumePending(db, fundingManagerTarget, actionSetFundingManager, now)
	if err != nil {
		return nil, err
	}
	if registry.IsModule(db, pu.Candidate) {
		return nil, ErrModuleAlreadyRegistered
	}

	candidate, err := resolveFundingManager(res, pu.Candidate)
	if err != nil {
		return nil, err
	}
	current, err := resolveFundingManager(res, registry.FundingManager(db))
	if err != nil {
		return nil, err
	}
	if candidate.Token() != current.Token() {
		return nil, ErrMismatchedToken
	}

	registry.SetFundingManager(db, pu.Candidate)
	deletePending(db, fundingManagerTarget)
	return []*types.Log{events.New(
		address.OrchestratorStateAddress,
		[]common.Hash{events.FundingManagerUpdated, events.AddressTopic(pu.Candidate)},
		nil,
	)}, nil
}

// CancelSetFundingManagerUpdate withdraws the pending funding manager
// swap for candidate.
func CancelSetFundingManagerUpdate(db statekit.StateAccess, sender, candidate common.Address) ([]*types.Log, error) {
	return cancelCoreSlot(db, sender, candidate, fundingManagerTarget, actionSetFundingManager)
}

// InitiateSetAuthorizer requests a timelocked authorizer swap.
func InitiateSetAuthorizer(db statekit.StateAccess, res modules.Resolver, sender, candidate common.Address, now uint64) ([]*types.Log, error) {
	if _, err := resolveAuthorizer(res, candidate); err != nil {
		return nil, err
	}
	return initiateCoreSlot(db, sender, candidate, authorizerTarget, actionSetAuthorizer, now)
}

// ExecuteSetAuthorizer performs a matured authorizer swap.
func ExecuteSetAuthorizer(db statekit.StateAccess, res modules.Resolver, sender common.Address, now uint64) ([]*types.Log, error) {
	if err := checkAdmin(db, sender); err != nil {
		return nil, err
	}
	pu, err := consumePending(db, authorizerTarget, actionSetAuthorizer, now)
	if err != nil {
		return nil, err
	}
	if registry.IsModule(db, pu.Candidate) {
		return nil, ErrModuleAlreadyRegistered
	}
	if _, err := resolveAuthorizer(res, pu.Candidate); err != nil {
		return nil, err
	}

	registry.SetAuthorizer(db, pu.Candidate)
	deletePending(db, authorizerTarget)
	return []*types.Log{events.New(
		address.OrchestratorStateAddress,
		[]common.Hash{events.AuthorizerUpdated, events.AddressTopic(pu.Candidate)},
		nil,
	)}, nil
}

// CancelSetAuthorizerUpdate withdraws the pending authorizer swap.
func CancelSetAuthorizerUpdate(db statekit.StateAccess, sender, candidate common.Address) ([]*types.Log, error) {
	return cancelCoreSlot(db, sender, candidate, authorizerTarget, actionSetAuthorizer)
}

// InitiateSetPaymentProcessor requests a timelocked payment processor
// swap.
func InitiateSetPaymentProcessor(db statekit.StateAccess, res modules.Resolver, sender, candidate common.Address, now uint64) ([]*types.Log, error) {
	if _, err := resolvePaymentProcessor(res, candidate); err != nil {
		return nil, err
	}
	return initiateCoreSlot(db, sender, candidate, paymentProcessorTarget, actionSetPaymentProcessor, now)
}

// ExecuteSetPaymentProcessor performs a matured payment processor swap.
func ExecuteSetPaymentProcessor(db statekit.StateAccess, res modules.Resolver, sender common.Address, now uint64) ([]*types.Log, error) {
	if err := checkAdmin(db, sender); err != nil {
		return nil, err
	}
	pu, err := consumePending(db, paymentProcessorTarget, actionSetPaymentProcessor, now)
	if err != nil {
		return nil, err
	}
	if registry.IsModule(db, pu.Candidate) {
		return nil, ErrModuleAlreadyRegistered
	}
	if _, err := resolvePaymentProcessor(res, pu.Candidate); err != nil {
		return nil, err
	}

	registry.SetPaymentProcessor(db, pu.Candidate)
	deletePending(db, paymentProcessorTarget)
	return []*types.Log{events.New(
		address.OrchestratorStateAddress,
		[]common.Hash{events.PaymentProcessorUpdated, events.AddressTopic(pu.Candidate)},
		nil,
	)}, nil
}

// CancelSetPaymentProcessorUpdate withdraws the pending payment processor
// swap.
func CancelSetPaymentProcessorUpdate(db statekit.StateAccess, sender, candidate common.Address) ([]*types.Log, error) {
	return cancelCoreSlot(db, sender, candidate, paymentProcessorTarget, actionSetPaymentProcessor)
}

// InitiateAddModule requests a timelocked addition to the general module
// set.
func InitiateAddModule(db statekit.StateAccess, res modules.Resolver, sender, module common.Address, now uint64) ([]*types.Log, error) {
	if err := checkAdmin(db, sender); err != nil {
		return nil, err
	}
	if module == (common.Address{}) {
		return nil, ErrInvalidCandidate
	}
	if res.ModuleAt(module) == nil {
		return nil, ErrInvalidModuleType
	}
	if registry.IsModule(db, module) || registry.IsCoreSlot(db, module) {
		return nil, ErrModuleAlreadyRegistered
	}
	if conflict, err := pendingCoreCandidate(db, module); err != nil {
		return nil, err
	} else if conflict {
		return nil, ErrConflictingPendingUpdate
	}
	if registry.ModuleCount(db) >= registry.MaxModules {
		return nil, registry.ErrModuleLimitReached
	}

	target := moduleTarget(module)
	if err := writePending(db, target, pendingUpdate{Action: actionAddModule, Candidate: module, RequestedAt: now}); err != nil {
		return nil, err
	}
	return []*types.Log{initiatedLog(target, module, now+registry.TimelockDuration(db))}, nil
}

// ExecuteAddModule registers a module whose addition timelock has
// matured. Conditions are re-checked: a module that became registered or
// invalid since initiation fails here.
func ExecuteAddModule(db statekit.StateAccess, res modules.Resolver, sender, module common.Address, now uint64) ([]*types.Log, error) {
	if err := checkAdmin(db, sender); err != nil {
		return nil, err
	}
	target := moduleTarget(module)
	if _, err := consumePending(db, target, actionAddModule, now); err != nil {
		return nil, err
	}
	if res.ModuleAt(module) == nil {
		return nil, ErrInvalidModuleType
	}
	if registry.IsModule(db, module) || registry.IsCoreSlot(db, module) {
		return nil, ErrModuleAlreadyRegistered
	}
	if conflict, err := pendingCoreCandidate(db, module); err != nil {
		return nil, err
	} else if conflict {
		return nil, ErrConflictingPendingUpdate
	}

	if err := registry.RegisterModule(db, module); err != nil {
		return nil, err
	}
	deletePending(db, target)
	return []*types.Log{events.New(
		address.OrchestratorStateAddress,
		[]common.Hash{events.ModuleAdded, events.AddressTopic(module)},
		nil,
	)}, nil
}

// InitiateRemoveModule requests a timelocked removal from the general
// module set. The singleton slots cannot be removed this way; they are
// replaced through their dedicated operations.
func InitiateRemoveModule(db statekit.StateAccess, sender, module common.Address, now uint64) ([]*types.Log, error) {
	if err := checkAdmin(db, sender); err != nil {
		return nil, err
	}
	if registry.IsCoreSlot(db, module) {
		return nil, ErrCannotRemoveCoreModule
	}
	if !registry.IsModule(db, module) {
		return nil, ErrModuleNotRegistered
	}

	target := moduleTarget(module)
	if err := writePending(db, target, pendingUpdate{Action: actionRemoveModule, Candidate: module, RequestedAt: now}); err != nil {
		return nil, err
	}
	return []*types.Log{initiatedLog(target, module, now+registry.TimelockDuration(db))}, nil
}

// ExecuteRemoveModule deregisters a module whose removal timelock has
// matured. Fails if the module is no longer registered.
func ExecuteRemoveModule(db statekit.StateAccess, sender, module common.Address, now uint64) ([]*types.Log, error) {
	if err := checkAdmin(db, sender); err != nil {
		return nil, err
	}
	target := moduleTarget(module)
	if _, err := consumePending(db, target, actionRemoveModule, now); err != nil {
		return nil, err
	}
	if !registry.IsModule(db, module) {
		return nil, ErrModuleNotRegistered
	}

	if err := registry.DeregisterModule(db, module); err != nil {
		return nil, err
	}
	deletePending(db, target)
	return []*types.Log{events.New(
		address.OrchestratorStateAddress,
		[]common.Hash{events.ModuleRemoved, events.AddressTopic(module)},
		nil,
	)}, nil
}

// CancelModuleUpdate clears any pending add or remove request for module.
func CancelModuleUpdate(db statekit.StateAccess, sender, module common.Address) ([]*types.Log, error) {
	if err := checkAdmin(db, sender); err != nil {
		return nil, err
	}
	target := moduleTarget(module)
	pu, err := readPending(db, target)
	if err != nil {
		return nil, err
	}
	if pu == nil {
		return nil, ErrNoPendingUpdate
	}
	deletePending(db, target)
	return []*types.Log{canceledLog(target, module)}, nil
}
