package payments

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/openmodular/orchestrator/address"
	"github.com/openmodular/orchestrator/events"
	"github.com/openmodular/orchestrator/modules"
	"github.com/openmodular/orchestrator/registry"
	"github.com/openmodular/orchestrator/statekit"
	"github.com/openmodular/orchestrator/tokens"
)

// resolveClient checks that client is an active registered module whose
// implementation exposes the payment client capability.
func resolveClient(db statekit.StateAccess, res modules.Resolver, client common.Address) (modules.PaymentClient, error) {
	if !registry.IsActiveModule(db, client) {
		return nil, ErrInvalidClient
	}
	pc, ok := res.ModuleAt(client).(modules.PaymentClient)
	if !ok {
		return nil, ErrInvalidClient
	}
	return pc, nil
}

// validateOrder applies the order-acceptance predicates: a usable
// recipient, a non-zero amount, consistent vesting times, and a token
// that answers a balance probe.
func validateOrder(db statekit.StateAccess, rt tokens.Runtime, res modules.Resolver, client common.Address, order modules.PaymentOrder) error {
	r := order.Recipient
	if r == (common.Address{}) || r == client || r == registry.Self(db) ||
		r == registry.PaymentProcessor(db) || r == order.Token {
		return ErrInvalidRecipient
	}
	if fm, ok := res.ModuleAt(registry.FundingManager(db)).(modules.FundingManager); ok && r == fm.Token() {
		return ErrInvalidRecipient
	}

	if order.Amount == nil || order.Amount.IsZero() {
		return ErrInvalidAmount
	}

	vestingStart := order.Start + order.Cliff
	if vestingStart < order.Start || vestingStart > order.End {
		return ErrInvalidTimes
	}

	if _, err := tokens.BalanceOf(rt, order.Token, client); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}

// ProcessPayments pulls all newly queued orders from the client module
// and creates one stream per order. The caller must be the client itself.
// Before any stream of the batch is created, the client's balance is
// checked per token against the aggregate committed amount; a shortfall
// in any token rejects the whole batch.
func ProcessPayments(db statekit.StateAccess, rt tokens.Runtime, res modules.Resolver, sender, client common.Address, now uint64) (_ []*types.Log, err error) {

	defer func() {
		if err != nil {
			log.Error("failed to process payments", "client", client, "error", err)
		}
	}()

	if sender != client {
		return nil, ErrCallerNotClient
	}
	pc, err := resolveClient(db, res, client)
	if err != nil {
		return nil, err
	}

	orders, tokenList, totals, err := pc.CollectPaymentOrders()
	if err != nil {
		return nil, fmt.Errorf("failed to collect payment orders: %w", err)
	}
	if len(tokenList) != len(totals) {
		return nil, fmt.Errorf("client returned %d tokens but %d totals", len(tokenList), len(totals))
	}

	for _, order := range orders {
		if err := validateOrder(db, rt, res, client, order); err != nil {
			return nil, err
		}
	}

	for i, token := range tokenList {
		balance, err := tokens.BalanceOf(rt, token, client)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		if balance.Lt(totals[i]) {
			return nil, ErrInsufficientBalance
		}
	}

	logs := []*types.Log{}
	for _, order := range orders {
		id, err := addStream(db, client, order)
		if err != nil {
			return nil, err
		}
		logs = append(logs, events.New(
			address.PaymentsStateAddress,
			[]common.Hash{
				events.StreamingPaymentAdded,
				events.AddressTopic(client),
				events.AddressTopic(order.Recipient),
			},
			events.Words(
				events.Uint64Word(id),
				events.AddressTopic(order.Token),
				events.Uint256Word(order.Amount),
				events.Uint64Word(order.Start),
				events.Uint64Word(order.Cliff),
				events.Uint64Word(order.End),
			),
		))
	}

	return logs, nil
}

// addStream persists a new stream with a fresh per-(client,recipient) id
// and registers it in the active sets. Ids start at 1.
func addStream(db statekit.StateAccess, client common.Address, order modules.PaymentOrder) (uint64, error) {
	nk := nonceKey(client, order.Recipient)
	id := nonceMap(db).GetUint64(nk) + 1
	nonceMap(db).SetUint64(nk, id)

	s := &Stream{
		Token:          order.Token,
		TotalAmount:    order.Amount,
		ReleasedAmount: newZero(),
		Start:          order.Start,
		Cliff:          order.Cliff,
		End:            order.End,
	}
	if err := putStream(db, client, order.Recipient, id, s); err != nil {
		return 0, err
	}

	activeStreams(db, client, order.Recipient).Add(idWord(id))
	activeRecipients(db, client).Add(statekit.AddrWord(order.Recipient))
	return id, nil
}
