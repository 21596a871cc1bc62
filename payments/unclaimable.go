package payments

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/openmodular/orchestrator/address"
	"github.com/openmodular/orchestrator/events"
	"github.com/openmodular/orchestrator/modules"
	"github.com/openmodular/orchestrator/statekit"
	"github.com/openmodular/orchestrator/statekit/addrset"
	"github.com/openmodular/orchestrator/statekit/hashmap"
	"github.com/openmodular/orchestrator/tokens"
)

var (
	unclaimableAmtSalt = []byte("payUnclaimableAmt")
	unclaimableIDsSalt = []byte("payUnclaimableIDs")
)

func unclaimableAmounts(db statekit.StateAccess) *hashmap.Map {
	return hashmap.NewMap(db, address.PaymentsStateAddress, unclaimableAmtSalt)
}

func unclaimableKey(client, token, recipient common.Address, id uint64) common.Hash {
	return crypto.Keccak256Hash(client.Bytes(), token.Bytes(), recipient.Bytes(), idBytes(id))
}

func unclaimableIDs(db statekit.StateAccess, client, token, recipient common.Address) *addrset.Set {
	key := crypto.Keccak256Hash(unclaimableIDsSalt, client.Bytes(), token.Bytes(), recipient.Bytes())
	return addrset.NewSet(db, address.PaymentsStateAddress, key)
}

// addUnclaimable books a failed payout into the pot for (client, token,
// recipient). Amounts accumulate per stream id; the id index is
// deduplicated.
func addUnclaimable(db statekit.StateAccess, client, token, recipient common.Address, id uint64, amount *uint256.Int) {
	m := unclaimableAmounts(db)
	key := unclaimableKey(client, token, recipient, id)
	total := m.GetUint256(key)
	total.Add(total, amount)
	m.SetUint256(key, total)
	unclaimableIDs(db, client, token, recipient).Add(idWord(id))
}

// UnclaimableAmount sums the pot for (client, token, recipient).
func UnclaimableAmount(db statekit.StateAccess, client, token, recipient common.Address) *uint256.Int {
	m := unclaimableAmounts(db)
	total := uint256.NewInt(0)
	for v := range unclaimableIDs(db, client, token, recipient).Iterate {
		id := new(uint256.Int).SetBytes32(v.Bytes()).Uint64()
		total.Add(total, m.GetUint256(unclaimableKey(client, token, recipient, id)))
	}
	return total
}

// ClaimPreviouslyUnclaimable retries the payout of all parked amounts for
// (client, token, recipient) in one strict transfer. A transfer failure
// fails the whole call and leaves the pot untouched, so the claim stays
// retryable once the token recovers. Callable by anyone, funds always go
// to the recipient.
func ClaimPreviouslyUnclaimable(db statekit.StateAccess, rt tokens.Runtime, res modules.Resolver, client, token, recipient common.Address) ([]*types.Log, error) {
	pc, err := resolveClient(db, res, client)
	if err != nil {
		return nil, err
	}

	ids := unclaimableIDs(db, client, token, recipient)
	if ids.Size() == 0 {
		return nil, ErrNothingToClaim
	}

	m := unclaimableAmounts(db)
	total := uint256.NewInt(0)
	for _, v := range ids.Values() {
		id := new(uint256.Int).SetBytes32(v.Bytes()).Uint64()
		total.Add(total, m.GetUint256(unclaimableKey(client, token, recipient, id)))
	}

	if err := tokens.TransferFrom(rt, token, client, recipient, total); err != nil {
		return nil, err
	}

	for _, v := range ids.Values() {
		id := new(uint256.Int).SetBytes32(v.Bytes()).Uint64()
		m.Delete(unclaimableKey(client, token, recipient, id))
	}
	ids.Clear()

	pc.AmountPaid(token, total)

	return []*types.Log{events.New(
		address.PaymentsStateAddress,
		[]common.Hash{
			events.UnclaimableAmountClaimed,
			events.AddressTopic(client),
			events.AddressTopic(token),
			events.AddressTopic(recipient),
		},
		events.Words(events.Uint256Word(total)),
	)}, nil
}
