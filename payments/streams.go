// Package payments implements the streaming payment accounting engine: it
// turns payment orders collected from client modules into linear-vesting
// streams per (client, recipient), computes released and claimable
// amounts over time, and parks amounts whose transfer failed in an
// unclaimable pot for explicit retry.
package payments

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/openmodular/orchestrator/address"
	"github.com/openmodular/orchestrator/statekit"
	"github.com/openmodular/orchestrator/statekit/addrset"
	"github.com/openmodular/orchestrator/statekit/blob"
	"github.com/openmodular/orchestrator/statekit/hashmap"
)

var (
	nonceSalt            = []byte("payStreamNonce")
	streamSalt           = []byte("payStream")
	activeRecipientsSalt = []byte("payActiveRecipients")
	activeStreamsSalt    = []byte("payActiveStreams")
)

// Stream is the persistent record of one in-flight payment order.
// ReleasedAmount only ever grows and never exceeds the amount streamed so
// far, which in turn never exceeds TotalAmount.
type Stream struct {
	Token          common.Address
	TotalAmount    *uint256.Int
	ReleasedAmount *uint256.Int
	Start          uint64
	Cliff          uint64
	End            uint64
}

func newZero() *uint256.Int {
	return uint256.NewInt(0)
}

func idWord(id uint64) common.Hash {
	return uint256.NewInt(id).Bytes32()
}

func idBytes(id uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], id)
	return b[:]
}

func nonceMap(db statekit.StateAccess) *hashmap.Map {
	return hashmap.NewMap(db, address.PaymentsStateAddress, nonceSalt)
}

func nonceKey(client, recipient common.Address) common.Hash {
	return crypto.Keccak256Hash(client.Bytes(), recipient.Bytes())
}

func streamKey(client, recipient common.Address, id uint64) common.Hash {
	return crypto.Keccak256Hash(streamSalt, client.Bytes(), recipient.Bytes(), idBytes(id))
}

func streamStore(db statekit.StateAccess) *blob.Store {
	return blob.NewStore(db, address.PaymentsStateAddress)
}

func activeRecipients(db statekit.StateAccess, client common.Address) *addrset.Set {
	key := crypto.Keccak256Hash(activeRecipientsSalt, client.Bytes())
	return addrset.NewSet(db, address.PaymentsStateAddress, key)
}

func activeStreams(db statekit.StateAccess, client, recipient common.Address) *addrset.Set {
	key := crypto.Keccak256Hash(activeStreamsSalt, client.Bytes(), recipient.Bytes())
	return addrset.NewSet(db, address.PaymentsStateAddress, key)
}

func getStream(db statekit.StateAccess, client, recipient common.Address, id uint64) (*Stream, error) {
	d := streamStore(db).Get(streamKey(client, recipient, id))
	if len(d) == 0 {
		return nil, ErrInvalidStreamID
	}
	s := Stream{}
	if err := rlp.DecodeBytes(d, &s); err != nil {
		return nil, fmt.Errorf("failed to decode stream record: %w", err)
	}
	return &s, nil
}

func putStream(db statekit.StateAccess, client, recipient common.Address, id uint64, s *Stream) error {
	encoded, err := rlp.EncodeToBytes(s)
	if err != nil {
		return fmt.Errorf("failed to encode stream record: %w", err)
	}
	streamStore(db).Set(streamKey(client, recipient, id), encoded)
	return nil
}

// VestedAt computes the vested portion of the stream at time t: nothing
// before the cliff passes, everything at or after end, linear in between
// with floor division.
func (s *Stream) VestedAt(t uint64) *uint256.Int {
	if t < s.Start+s.Cliff {
		return uint256.NewInt(0)
	}
	if t >= s.End {
		return new(uint256.Int).Set(s.TotalAmount)
	}

	// 512-bit intermediate so total*(t-start) cannot overflow.
	vested := new(big.Int).Mul(s.TotalAmount.ToBig(), new(big.Int).SetUint64(t-s.Start))
	vested.Div(vested, new(big.Int).SetUint64(s.End-s.Start))
	out, _ := uint256.FromBig(vested)
	return out
}

// Releasable is the vested amount not yet released at time t.
func (s *Stream) Releasable(t uint64) *uint256.Int {
	return new(uint256.Int).Sub(s.VestedAt(t), s.ReleasedAmount)
}

// cleanupStream removes every trace of a consumed stream: the record, its
// id in the active-streams set, and the recipient's membership in the
// active-recipients set when this was their last stream. Unclaimable
// balances are unaffected.
func cleanupStream(db statekit.StateAccess, client, recipient common.Address, id uint64) {
	streamStore(db).Delete(streamKey(client, recipient, id))
	streams := activeStreams(db, client, recipient)
	streams.Remove(idWord(id))
	if streams.Size() == 0 {
		activeRecipients(db, client).Remove(statekit.AddrWord(recipient))
	}
}

// Views.

// StreamedAmountForSpecificStream returns the vested amount of a stream
// at time t.
func StreamedAmountForSpecificStream(db statekit.StateAccess, client, recipient common.Address, id uint64, t uint64) (*uint256.Int, error) {
	s, err := getStream(db, client, recipient, id)
	if err != nil {
		return nil, err
	}
	return s.VestedAt(t), nil
}

// ReleasedForSpecificStream returns the amount already released from a
// stream.
func ReleasedForSpecificStream(db statekit.StateAccess, client, recipient common.Address, id uint64) (*uint256.Int, error) {
	s, err := getStream(db, client, recipient, id)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(s.ReleasedAmount), nil
}

// ReleasableForSpecificStream returns what a claim at time now would pay
// out. Monotonically non-decreasing in now until the stream is exhausted.
func ReleasableForSpecificStream(db statekit.StateAccess, client, recipient common.Address, id uint64, now uint64) (*uint256.Int, error) {
	s, err := getStream(db, client, recipient, id)
	if err != nil {
		return nil, err
	}
	return s.Releasable(now), nil
}

// StreamFor returns a copy of the stream record.
func StreamFor(db statekit.StateAccess, client, recipient common.Address, id uint64) (*Stream, error) {
	return getStream(db, client, recipient, id)
}

// ActiveStreamIDs returns the ids of the recipient's running streams for
// client. Order is arbitrary.
func ActiveStreamIDs(db statekit.StateAccess, client, recipient common.Address) []uint64 {
	vals := activeStreams(db, client, recipient).Values()
	ids := make([]uint64, len(vals))
	for i, v := range vals {
		ids[i] = new(uint256.Int).SetBytes32(v.Bytes()).Uint64()
	}
	return ids
}

// ActivePaymentRecipients returns the recipients with at least one
// running stream for client. Order is arbitrary.
func ActivePaymentRecipients(db statekit.StateAccess, client common.Address) []common.Address {
	vals := activeRecipients(db, client).Values()
	addrs := make([]common.Address, len(vals))
	for i, v := range vals {
		addrs[i] = common.BytesToAddress(v.Bytes())
	}
	return addrs
}
