// Package modules defines the capability interfaces the orchestrator core
// expects from installed modules. Module implementations live outside the
// core; the core only sees their addresses in its registry and resolves
// them through a Resolver when it needs to call out. Capability checks are
// plain Go type assertions on the resolved value.
package modules

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Module is the minimal surface every installed module exposes.
type Module interface {
	Address() common.Address
}

// FundingManager holds the treasury funds and defines the protocol's
// accounting token.
type FundingManager interface {
	Module
	Token() common.Address
}

// Authorizer is the module slot backing role checks. The core keeps its
// role tables itself; the interface only marks the capability for slot
// type validation.
type Authorizer interface {
	Module
	IsAuthorizer()
}

// PaymentProcessor marks modules that can occupy the payment processor
// slot.
type PaymentProcessor interface {
	Module
	IsPaymentProcessor()
}

// PaymentOrder is a single queued payout from a client module.
type PaymentOrder struct {
	Recipient common.Address
	Token     common.Address
	Amount    *uint256.Int
	Start     uint64
	Cliff     uint64
	End       uint64
}

// PaymentClient is implemented by modules that queue payment orders (e.g.
// bounty or recurring payment modules). CollectPaymentOrders drains the
// queue and returns, per distinct token, the aggregate amount the orders
// commit. AmountPaid tells the client that an amount is no longer
// escrowed on its balance.
type PaymentClient interface {
	Module
	CollectPaymentOrders() (orders []PaymentOrder, tokens []common.Address, totals []*uint256.Int, err error)
	AmountPaid(token common.Address, amount *uint256.Int)
}

// Resolver maps a module address to its implementation. A nil result
// means no module is deployed at that address.
type Resolver interface {
	ModuleAt(addr common.Address) Module
}
