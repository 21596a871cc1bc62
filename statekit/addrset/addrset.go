// Package addrset implements an enumerable set of 32-byte values over a
// state account, following the OpenZeppelin EnumerableSet layout: a
// contiguous array of members plus a one-based position index per member.
// Add, Remove and Contains are O(1); removal swaps the last member into
// the vacated position, so enumeration order is not stable.
package addrset

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/openmodular/orchestrator/statekit"
)

var (
	sizeSalt = []byte("setSize")
	elemSalt = []byte("setElem")
	idxSalt  = []byte("setIdx")
)

type Set struct {
	db      statekit.StateAccess
	account common.Address
	key     common.Hash
}

// NewSet opens the set identified by key under the given state account.
func NewSet(db statekit.StateAccess, account common.Address, key common.Hash) *Set {
	return &Set{db: db, account: account, key: key}
}

func (s *Set) sizeSlot() common.Hash {
	return crypto.Keccak256Hash(sizeSalt, s.key[:])
}

func (s *Set) elemSlot(index uint64) common.Hash {
	var ix [8]byte
	binary.BigEndian.PutUint64(ix[:], index)
	return crypto.Keccak256Hash(elemSalt, s.key[:], ix[:])
}

func (s *Set) idxSlot(value common.Hash) common.Hash {
	return crypto.Keccak256Hash(idxSalt, s.key[:], value[:])
}

func (s *Set) Size() uint64 {
	v := new(uint256.Int).SetBytes32(s.db.GetState(s.account, s.sizeSlot()).Bytes())
	return v.Uint64()
}

func (s *Set) setSize(size uint64) {
	s.db.SetState(s.account, s.sizeSlot(), uint256.NewInt(size).Bytes32())
}

// position returns the one-based position of value, or zero if absent.
func (s *Set) position(value common.Hash) uint64 {
	v := new(uint256.Int).SetBytes32(s.db.GetState(s.account, s.idxSlot(value)).Bytes())
	return v.Uint64()
}

func (s *Set) Contains(value common.Hash) bool {
	return s.position(value) != 0
}

// Add inserts value into the set. Adding a member that is already present
// is a no-op. It reports whether the set changed.
func (s *Set) Add(value common.Hash) bool {
	if s.Contains(value) {
		return false
	}

	size := s.Size()
	s.db.SetState(s.account, s.elemSlot(size), value)
	s.db.SetState(s.account, s.idxSlot(value), uint256.NewInt(size+1).Bytes32())
	s.setSize(size + 1)
	return true
}

// Remove deletes value from the set, moving the last member into the
// vacated slot to keep the array compact. Removing an absent member is a
// no-op. It reports whether the set changed.
func (s *Set) Remove(value common.Hash) bool {
	pos := s.position(value)
	if pos == 0 {
		return false
	}

	size := s.Size()
	lastIndex := size - 1
	removedIndex := pos - 1

	if removedIndex != lastIndex {
		lastValue := s.db.GetState(s.account, s.elemSlot(lastIndex))
		s.db.SetState(s.account, s.elemSlot(removedIndex), lastValue)
		s.db.SetState(s.account, s.idxSlot(lastValue), uint256.NewInt(removedIndex+1).Bytes32())
	}

	s.db.SetState(s.account, s.elemSlot(lastIndex), common.Hash{})
	s.db.SetState(s.account, s.idxSlot(value), common.Hash{})
	s.setSize(size - 1)
	return true
}

func (s *Set) Iterate(yield func(value common.Hash) bool) {
	size := s.Size()
	for i := uint64(0); i < size; i++ {
		if !yield(s.db.GetState(s.account, s.elemSlot(i))) {
			return
		}
	}
}

// Values materializes the set contents. Order is arbitrary but stable
// between calls that do not mutate the set.
func (s *Set) Values() []common.Hash {
	values := make([]common.Hash, 0, s.Size())
	for v := range s.Iterate {
		values = append(values, v)
	}
	return values
}

// Clear removes all members. O(n).
func (s *Set) Clear() {
	size := s.Size()
	for i := uint64(0); i < size; i++ {
		v := s.db.GetState(s.account, s.elemSlot(i))
		s.db.SetState(s.account, s.idxSlot(v), common.Hash{})
		s.db.SetState(s.account, s.elemSlot(i), common.Hash{})
	}
	s.setSize(0)
}
