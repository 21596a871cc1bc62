package testutil

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/openmodular/orchestrator/modules"
)

// Resolver is a static address -> module table.
type Resolver struct {
	Registered map[common.Address]modules.Module
}

func NewResolver() *Resolver {
	return &Resolver{Registered: make(map[common.Address]modules.Module)}
}

func (r *Resolver) Register(m modules.Module) {
	r.Registered[m.Address()] = m
}

func (r *Resolver) ModuleAt(addr common.Address) modules.Module {
	m, ok := r.Registered[addr]
	if !ok {
		return nil
	}
	return m
}

// PlainModule is a module with no capability beyond existing.
type PlainModule struct {
	Addr common.Address
}

func (m *PlainModule) Address() common.Address { return m.Addr }

// FundingManagerModule satisfies the funding manager capability.
type FundingManagerModule struct {
	Addr      common.Address
	TokenAddr common.Address
}

func (m *FundingManagerModule) Address() common.Address { return m.Addr }

func (m *FundingManagerModule) Token() common.Address { return m.TokenAddr }

// AuthorizerModule satisfies the authorizer capability.
type AuthorizerModule struct {
	Addr common.Address
}

func (m *AuthorizerModule) Address() common.Address { return m.Addr }

func (m *AuthorizerModule) IsAuthorizer() {}

// ProcessorModule satisfies the payment processor capability.
type ProcessorModule struct {
	Addr common.Address
}

func (m *ProcessorModule) Address() common.Address { return m.Addr }

func (m *ProcessorModule) IsPaymentProcessor() {}

// Paid records one AmountPaid callback.
type Paid struct {
	Token  common.Address
	Amount *uint256.Int
}

// ClientModule is a payment client double. Orders queued on it are
// drained by CollectPaymentOrders; AmountPaid callbacks are recorded.
type ClientModule struct {
	Addr       common.Address
	Queue      []modules.PaymentOrder
	CollectErr error
	PaidCalls  []Paid
}

func (m *ClientModule) Address() common.Address { return m.Addr }

// QueueOrder appends an order to the pending queue.
func (m *ClientModule) QueueOrder(order modules.PaymentOrder) {
	m.Queue = append(m.Queue, order)
}

func (m *ClientModule) CollectPaymentOrders() ([]modules.PaymentOrder, []common.Address, []*uint256.Int, error) {
	if m.CollectErr != nil {
		return nil, nil, nil, m.CollectErr
	}

	orders := m.Queue
	m.Queue = nil

	tokenList := []common.Address{}
	totals := []*uint256.Int{}
	for _, order := range orders {
		found := false
		for i, t := range tokenList {
			if t == order.Token {
				totals[i].Add(totals[i], order.Amount)
				found = true
				break
			}
		}
		if !found {
			tokenList = append(tokenList, order.Token)
			totals = append(totals, new(uint256.Int).Set(order.Amount))
		}
	}
	return orders, tokenList, totals, nil
}

func (m *ClientModule) AmountPaid(token common.Address, amount *uint256.Int) {
	m.PaidCalls = append(m.PaidCalls, Paid{Token: token, Amount: new(uint256.Int).Set(amount)})
}
