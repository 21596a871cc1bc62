// Package blob stores variable-length byte strings over state slots,
// using the same layout Solidity uses for storage strings: payloads of up
// to 31 bytes live inline in the head slot with the length encoded as 2*n
// in the last byte; longer payloads mark the head slot with 2*n+1 and
// spill the data into consecutive slots starting at keccak256(head slot),
// so a head slot can never fall inside another blob's data region.
package blob

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/openmodular/orchestrator/statekit"
)

type Store struct {
	db      statekit.StateAccess
	account common.Address
}

func NewStore(db statekit.StateAccess, account common.Address) *Store {
	return &Store{db: db, account: account}
}

var emptyHash = common.Hash{}

func dataBase(key common.Hash) *uint256.Int {
	return new(uint256.Int).SetBytes(crypto.Keccak256(key[:]))
}

func (s *Store) Set(key common.Hash, value []byte) {
	s.Delete(key)

	if len(value) <= 31 {
		head := common.RightPadBytes(value, 32)
		head[31] = byte(len(value) * 2)
		s.db.SetState(s.account, key, common.BytesToHash(head))
		return
	}

	head := uint256.NewInt(uint64(len(value)*2 + 1))
	s.db.SetState(s.account, key, head.Bytes32())

	slot := dataBase(key)
	for start := 0; start < len(value); start += 32 {
		end := min(start+32, len(value))
		chunk := common.RightPadBytes(value[start:end], 32)
		s.db.SetState(s.account, slot.Bytes32(), common.BytesToHash(chunk))
		slot.AddUint64(slot, 1)
	}
}

func (s *Store) Get(key common.Hash) []byte {
	head := s.db.GetState(s.account, key)
	if head == emptyHash {
		return nil
	}

	if head[31]&0x01 == 0 {
		length := head[31] / 2
		return head[:length]
	}

	marker := binary.BigEndian.Uint64(head[24:])
	length := (marker - 1) / 2

	value := make([]byte, 0, length)
	remaining := length
	slot := dataBase(key)
	for remaining > 0 {
		chunk := s.db.GetState(s.account, slot.Bytes32())
		size := min(remaining, 32)
		value = append(value, chunk[:size]...)
		remaining -= size
		slot.AddUint64(slot, 1)
	}

	return value
}

// Has reports whether any value (including the empty slice stored
// explicitly) is present under key. An explicitly stored empty slice is
// indistinguishable from absence, so callers that need presence semantics
// must store at least one byte.
func (s *Store) Has(key common.Hash) bool {
	return s.db.GetState(s.account, key) != emptyHash
}

func (s *Store) Delete(key common.Hash) {
	head := s.db.GetState(s.account, key)
	if head == emptyHash {
		return
	}

	s.db.SetState(s.account, key, emptyHash)

	if head[31]&0x01 == 0 {
		return
	}

	marker := binary.BigEndian.Uint64(head[24:])
	length := (marker - 1) / 2
	slots := (length + 31) / 32

	slot := dataBase(key)
	for range slots {
		s.db.SetState(s.account, slot.Bytes32(), emptyHash)
		slot.AddUint64(slot, 1)
	}
}
