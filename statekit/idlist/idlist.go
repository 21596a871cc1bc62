// Package idlist implements an insertion-ordered set of non-zero 32-byte
// ids as a singly-linked list over a state account. A reserved sentinel id
// (the maximum hash value) marks both ends of the list: the sentinel's
// successor is the first member, and the last member's successor is the
// sentinel. Append and predecessor-gated removal are O(1).
package idlist

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/openmodular/orchestrator/statekit"
)

// Sentinel is reserved and never a valid member, as is the zero id.
var Sentinel = common.MaxHash

var (
	ErrAlreadyInitialized = errors.New("idlist: already initialized")
	ErrNotInitialized     = errors.New("idlist: not initialized")
	ErrInvalidID          = errors.New("idlist: invalid id")
	ErrNotConsecutive     = errors.New("idlist: supplied predecessor is not consecutive")
	ErrInvalidPosition    = errors.New("idlist: invalid position")
)

var (
	sizeSalt = []byte("idlSize")
	lastSalt = []byte("idlLast")
	nextSalt = []byte("idlNext")
)

type List struct {
	db      statekit.StateAccess
	account common.Address
	key     common.Hash
}

func NewList(db statekit.StateAccess, account common.Address, key common.Hash) *List {
	return &List{db: db, account: account, key: key}
}

func (l *List) successor(id common.Hash) common.Hash {
	return l.db.GetState(l.account, crypto.Keccak256Hash(nextSalt, l.key[:], id[:]))
}

func (l *List) setSuccessor(id, next common.Hash) {
	l.db.SetState(l.account, crypto.Keccak256Hash(nextSalt, l.key[:], id[:]), next)
}

// Last returns the id whose successor is the sentinel, or the sentinel
// itself when the list is empty.
func (l *List) Last() common.Hash {
	return l.db.GetState(l.account, crypto.Keccak256Hash(lastSalt, l.key[:]))
}

func (l *List) setLast(id common.Hash) {
	l.db.SetState(l.account, crypto.Keccak256Hash(lastSalt, l.key[:]), id)
}

func (l *List) Size() uint64 {
	v := new(uint256.Int).SetBytes32(l.db.GetState(l.account, crypto.Keccak256Hash(sizeSalt, l.key[:])).Bytes())
	return v.Uint64()
}

func (l *List) setSize(size uint64) {
	l.db.SetState(l.account, crypto.Keccak256Hash(sizeSalt, l.key[:]), uint256.NewInt(size).Bytes32())
}

func (l *List) initialized() bool {
	return l.successor(Sentinel) != (common.Hash{})
}

// Init establishes the sentinel self-loop. It must be called exactly once
// before any other operation; a second call fails.
func (l *List) Init() error {
	if l.initialized() {
		return ErrAlreadyInitialized
	}
	l.setSuccessor(Sentinel, Sentinel)
	l.setLast(Sentinel)
	return nil
}

// Contains reports membership. A member's successor slot is always
// non-zero (the tail points at the sentinel), so a zero successor means
// the id is not in the list.
func (l *List) Contains(id common.Hash) bool {
	if id == (common.Hash{}) || id == Sentinel {
		return false
	}
	return l.successor(id) != (common.Hash{})
}

// Add appends id at the tail.
func (l *List) Add(id common.Hash) error {
	if !l.initialized() {
		return ErrNotInitialized
	}
	if id == (common.Hash{}) || id == Sentinel || l.Contains(id) {
		return ErrInvalidID
	}

	last := l.Last()
	l.setSuccessor(last, id)
	l.setSuccessor(id, Sentinel)
	l.setLast(id)
	l.setSize(l.Size() + 1)
	return nil
}

// Remove unlinks id given its true predecessor (which may be the
// sentinel when id is the first member).
func (l *List) Remove(prev, id common.Hash) error {
	if !l.Contains(id) {
		return ErrInvalidID
	}
	if l.successor(prev) != id {
		return ErrNotConsecutive
	}

	l.setSuccessor(prev, l.successor(id))
	l.setSuccessor(id, common.Hash{})
	l.setSize(l.Size() - 1)
	if l.Last() == id {
		l.setLast(prev)
	}
	return nil
}

// Move relocates an existing id directly after destAfter. The prev
// argument must be id's current predecessor. destAfter may be the
// sentinel to move id to the front.
func (l *List) Move(id, prev, destAfter common.Hash) error {
	if !l.Contains(id) {
		return ErrInvalidID
	}
	if destAfter != Sentinel && !l.Contains(destAfter) {
		return ErrInvalidPosition
	}
	// Self-moves and placements that would not change anything are
	// rejected rather than silently accepted.
	if id == destAfter || destAfter == prev {
		return ErrInvalidPosition
	}
	if l.successor(prev) != id {
		return ErrNotConsecutive
	}

	l.setSuccessor(prev, l.successor(id))
	l.setSuccessor(id, l.successor(destAfter))
	l.setSuccessor(destAfter, id)

	if l.successor(l.Last()) != Sentinel {
		if l.successor(id) == Sentinel {
			l.setLast(id)
		} else {
			l.setLast(prev)
		}
	}
	return nil
}

// IDs walks the list from the sentinel and materializes the member ids in
// order. O(n).
func (l *List) IDs() []common.Hash {
	ids := make([]common.Hash, 0, l.Size())
	for cur := l.successor(Sentinel); cur != Sentinel && cur != (common.Hash{}); cur = l.successor(cur) {
		ids = append(ids, cur)
	}
	return ids
}

// Next returns the successor of id. The sentinel is a valid argument and
// yields the first member.
func (l *List) Next(id common.Hash) (common.Hash, error) {
	if id != Sentinel && !l.Contains(id) {
		return common.Hash{}, ErrInvalidID
	}
	return l.successor(id), nil
}

// Prev scans from the sentinel for the predecessor of id. O(n); the list
// keeps no back-pointers.
func (l *List) Prev(id common.Hash) (common.Hash, error) {
	if id != Sentinel && !l.Contains(id) {
		return common.Hash{}, ErrInvalidID
	}
	cur := Sentinel
	for {
		next := l.successor(cur)
		if next == id {
			return cur, nil
		}
		if next == Sentinel || next == (common.Hash{}) {
			return common.Hash{}, ErrInvalidID
		}
		cur = next
	}
}
