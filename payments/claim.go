package payments

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/openmodular/orchestrator/address"
	"github.com/openmodular/orchestrator/authorizer"
	"github.com/openmodular/orchestrator/events"
	"github.com/openmodular/orchestrator/modules"
	"github.com/openmodular/orchestrator/statekit"
	"github.com/openmodular/orchestrator/tokens"
)

// claimStream releases the currently releasable amount of one stream. All
// local bookkeeping is committed before the token is called; a transfer
// failure is diverted into the unclaimable pot instead of failing the
// claim, so one bad token or recipient cannot block the rest of a batch.
// A stream whose vesting has ended is cleaned up on either branch.
func claimStream(db statekit.StateAccess, rt tokens.Runtime, pc modules.PaymentClient, client, recipient common.Address, id uint64, now uint64) ([]*types.Log, error) {
	s, err := getStream(db, client, recipient, id)
	if err != nil {
		return nil, err
	}

	amount := s.Releasable(now)
	logs := []*types.Log{}

	if !amount.IsZero() {
		s.ReleasedAmount.Add(s.ReleasedAmount, amount)
		if err := putStream(db, client, recipient, id, s); err != nil {
			return nil, err
		}

		if transferErr := tokens.TransferFrom(rt, s.Token, client, recipient, amount); transferErr != nil {
			log.Debug("stream payout failed, parking as unclaimable",
				"client", client, "recipient", recipient, "stream", id, "error", transferErr)
			addUnclaimable(db, client, s.Token, recipient, id, amount)
			logs = append(logs, events.New(
				address.PaymentsStateAddress,
				[]common.Hash{
					events.UnclaimableAmountAdded,
					events.AddressTopic(client),
					events.AddressTopic(s.Token),
					events.AddressTopic(recipient),
				},
				events.Words(events.Uint64Word(id), events.Uint256Word(amount)),
			))
		} else {
			pc.AmountPaid(s.Token, amount)
			logs = append(logs, events.New(
				address.PaymentsStateAddress,
				[]common.Hash{
					events.TokensReleased,
					events.AddressTopic(recipient),
					events.AddressTopic(s.Token),
				},
				events.Words(events.Uint256Word(amount)),
			))
		}
	}

	if now >= s.End {
		cleanupStream(db, client, recipient, id)
		logs = append(logs, events.New(
			address.PaymentsStateAddress,
			[]common.Hash{
				events.StreamingPaymentRemoved,
				events.AddressTopic(client),
				events.AddressTopic(recipient),
			},
			events.Words(events.Uint64Word(id)),
		))
	}

	return logs, nil
}

// ClaimAll claims every active stream the sender has with the client.
func ClaimAll(db statekit.StateAccess, rt tokens.Runtime, res modules.Resolver, sender, client common.Address, now uint64) ([]*types.Log, error) {
	pc, err := resolveClient(db, res, client)
	if err != nil {
		return nil, err
	}

	ids := ActiveStreamIDs(db, client, sender)
	if len(ids) == 0 {
		return nil, ErrNothingToClaim
	}

	logs := []*types.Log{}
	for _, id := range ids {
		l, err := claimStream(db, rt, pc, client, sender, id, now)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l...)
	}
	return logs, nil
}

// ClaimForSpecificStream claims a single stream the sender has with the
// client.
func ClaimForSpecificStream(db statekit.StateAccess, rt tokens.Runtime, res modules.Resolver, sender, client common.Address, id uint64, now uint64) ([]*types.Log, error) {
	pc, err := resolveClient(db, res, client)
	if err != nil {
		return nil, err
	}
	if !activeStreams(db, client, sender).Contains(idWord(id)) {
		return nil, ErrInvalidStreamID
	}
	return claimStream(db, rt, pc, client, sender, id, now)
}

// CancelRunningPayments settles and terminates every stream of the
// client: each active recipient is paid what has vested so far, then any
// stream short of its end is forcibly cleaned up. The unstreamed
// remainder simply stays with the client; nothing is refunded or
// double-booked. Callable by the client itself or a global admin.
func CancelRunningPayments(db statekit.StateAccess, rt tokens.Runtime, res modules.Resolver, sender, client common.Address, now uint64) ([]*types.Log, error) {
	pc, err := resolveClient(db, res, client)
	if err != nil {
		return nil, err
	}
	if sender != client && !authorizer.HasRole(db, authorizer.GlobalAdminRole(db), sender) {
		return nil, ErrCallerNotAuthorized
	}

	logs := []*types.Log{}
	for _, recipient := range ActivePaymentRecipients(db, client) {
		for _, id := range ActiveStreamIDs(db, client, recipient) {
			l, err := claimStream(db, rt, pc, client, recipient, id, now)
			if err != nil {
				return nil, err
			}
			logs = append(logs, l...)

			// Streams past their end were cleaned up by the claim;
			// everything else is terminated here.
			if streamStore(db).Has(streamKey(client, recipient, id)) {
				cleanupStream(db, client, recipient, id)
				logs = append(logs, events.New(
					address.PaymentsStateAddress,
					[]common.Hash{
						events.StreamingPaymentRemoved,
						events.AddressTopic(client),
						events.AddressTopic(recipient),
					},
					events.Words(events.Uint64Word(id)),
				))
			}
		}
	}
	return logs, nil
}
