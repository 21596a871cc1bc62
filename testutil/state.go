// Package testutil provides in-memory doubles for the state store, token
// runtime and module resolver used across the test suites.
package testutil

import (
	"github.com/ethereum/go-ethereum/common"
)

// StateAccess is an in-memory word store with EVM semantics: reading an
// absent slot yields zero and writing zero deletes the slot.
type StateAccess struct {
	storage map[common.Address]map[common.Hash]common.Hash
}

func NewStateAccess() *StateAccess {
	return &StateAccess{storage: make(map[common.Address]map[common.Hash]common.Hash)}
}

func (s *StateAccess) GetState(addr common.Address, key common.Hash) common.Hash {
	if slots, ok := s.storage[addr]; ok {
		return slots[key]
	}
	return common.Hash{}
}

func (s *StateAccess) SetState(addr common.Address, key common.Hash, value common.Hash) common.Hash {
	slots, ok := s.storage[addr]
	if !ok {
		slots = make(map[common.Hash]common.Hash)
		s.storage[addr] = slots
	}
	prev := slots[key]

	if value == (common.Hash{}) {
		delete(slots, key)
		if len(slots) == 0 {
			delete(s.storage, addr)
		}
		return prev
	}

	slots[key] = value
	return prev
}

// SlotCount reports the number of occupied slots under addr, useful for
// asserting that cleanup paths leave no residue.
func (s *StateAccess) SlotCount(addr common.Address) int {
	return len(s.storage[addr])
}
