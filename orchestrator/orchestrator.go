// Package orchestrator is the coordinator of the protocol: it owns the
// module registry, enforces that exactly one funding manager, authorizer
// and payment processor are installed, and gates every change to the
// module set behind a timelock with initiate, execute and cancel phases.
package orchestrator

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/openmodular/orchestrator/address"
	"github.com/openmodular/orchestrator/authorizer"
	"github.com/openmodular/orchestrator/events"
	"github.com/openmodular/orchestrator/modules"
	"github.com/openmodular/orchestrator/registry"
	"github.com/openmodular/orchestrator/statekit"
)

// DefaultTimelockDuration is the mandatory delay between initiating and
// executing a module change when no duration is configured at init.
const DefaultTimelockDuration = 72 * 60 * 60

func resolveFundingManager(res modules.Resolver, a common.Address) (modules.FundingManager, error) {
	fm, ok := res.ModuleAt(a).(modules.FundingManager)
	if !ok {
		return nil, ErrInvalidModuleType
	}
	return fm, nil
}

func resolveAuthorizer(res modules.Resolver, a common.Address) (modules.Authorizer, error) {
	auth, ok := res.ModuleAt(a).(modules.Authorizer)
	if !ok {
		return nil, ErrInvalidModuleType
	}
	return auth, nil
}

func resolvePaymentProcessor(res modules.Resolver, a common.Address) (modules.PaymentProcessor, error) {
	pp, ok := res.ModuleAt(a).(modules.PaymentProcessor)
	if !ok {
		return nil, ErrInvalidModuleType
	}
	return pp, nil
}

// checkAdmin rejects senders that do not hold the global admin role.
// Every initiate/execute/cancel entry point goes through this, so the
// timelock cannot be bypassed by calling the execute phase directly.
func checkAdmin(db statekit.StateAccess, sender common.Address) error {
	if !registry.Initialized(db) {
		return ErrNotInitialized
	}
	if !authorizer.HasRole(db, authorizer.GlobalAdminRole(db), sender) {
		return ErrCallerNotAuthorized
	}
	return nil
}

// Initialize wires up a fresh orchestrator: its own address, the three
// singleton slots, the initial module set, the admin seed of the role
// tables and the timelock duration (zero selects the default). Exactly
// once.
func Initialize(
	db statekit.StateAccess,
	res modules.Resolver,
	self common.Address,
	admin common.Address,
	fundingManager common.Address,
	authorizerModule common.Address,
	paymentProcessor common.Address,
	initialModules []common.Address,
	timelockDuration uint64,
) (_ []*types.Log, err error) {

	defer func() {
		if err != nil {
			log.Error("orchestrator initialization failed", "error", err)
		}
	}()

	if registry.Initialized(db) {
		return nil, ErrAlreadyInitialized
	}
	if self == (common.Address{}) {
		return nil, ErrInvalidCandidate
	}

	if _, err := resolveFundingManager(res, fundingManager); err != nil {
		return nil, fmt.Errorf("funding manager slot: %w", err)
	}
	if _, err := resolveAuthorizer(res, authorizerModule); err != nil {
		return nil, fmt.Errorf("authorizer slot: %w", err)
	}
	if _, err := resolvePaymentProcessor(res, paymentProcessor); err != nil {
		return nil, fmt.Errorf("payment processor slot: %w", err)
	}

	registry.MarkInitialized(db)
	registry.SetSelf(db, self)
	if timelockDuration == 0 {
		timelockDuration = DefaultTimelockDuration
	}
	registry.SetTimelockDuration(db, timelockDuration)

	registry.SetFundingManager(db, fundingManager)
	registry.SetAuthorizer(db, authorizerModule)
	registry.SetPaymentProcessor(db, paymentProcessor)

	if err := registry.InitModuleList(db); err != nil {
		return nil, fmt.Errorf("failed to init module list: %w", err)
	}

	logs := []*types.Log{
		events.New(address.OrchestratorStateAddress, []common.Hash{events.FundingManagerUpdated, events.AddressTopic(fundingManager)}, nil),
		events.New(address.OrchestratorStateAddress, []common.Hash{events.AuthorizerUpdated, events.AddressTopic(authorizerModule)}, nil),
		events.New(address.OrchestratorStateAddress, []common.Hash{events.PaymentProcessorUpdated, events.AddressTopic(paymentProcessor)}, nil),
	}

	for _, m := range initialModules {
		if res.ModuleAt(m) == nil {
			return nil, fmt.Errorf("module %s: %w", m.Hex(), ErrInvalidModuleType)
		}
		if registry.IsCoreSlot(db, m) {
			return nil, fmt.Errorf("module %s: %w", m.Hex(), ErrModuleAlreadyRegistered)
		}
		if err := registry.RegisterModule(db, m); err != nil {
			return nil, err
		}
		logs = append(logs, events.New(
			address.OrchestratorStateAddress,
			[]common.Hash{events.ModuleAdded, events.AddressTopic(m)},
			nil,
		))
	}

	authLogs, err := authorizer.Initialize(db, admin)
	if err != nil {
		return nil, fmt.Errorf("failed to seed role tables: %w", err)
	}
	logs = append(logs, authLogs...)

	return logs, nil
}

// Views.

func FundingManager(db statekit.StateAccess) common.Address { return registry.FundingManager(db) }

func Authorizer(db statekit.StateAccess) common.Address { return registry.Authorizer(db) }

func PaymentProcessor(db statekit.StateAccess) common.Address { return registry.PaymentProcessor(db) }

func IsModule(db statekit.StateAccess, a common.Address) bool { return registry.IsModule(db, a) }

// ListModules returns the general module set in insertion order.
func ListModules(db statekit.StateAccess) []common.Address { return registry.Modules(db) }
