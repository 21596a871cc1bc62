// Package hashmap implements a keccak-salted mapping from 32-byte keys to
// 32-byte values over a state account. Slot addresses are derived as
// keccak256(salt ++ key), which is collision-resistant between maps with
// distinct salts.
package hashmap

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/openmodular/orchestrator/statekit"
)

type Map struct {
	db      statekit.StateAccess
	account common.Address
	salt    []byte
}

// NewMap creates a map view over the given state account. Multiple salts
// are concatenated, so a map can be scoped by a static prefix plus a
// dynamic discriminator (e.g. a client address).
func NewMap(db statekit.StateAccess, account common.Address, salts ...[]byte) *Map {
	combined := []byte{}
	for _, s := range salts {
		combined = append(combined, s...)
	}
	return &Map{db: db, account: account, salt: combined}
}

func (m *Map) slot(key common.Hash) common.Hash {
	return crypto.Keccak256Hash(m.salt, key.Bytes())
}

func (m *Map) Get(key common.Hash) common.Hash {
	return m.db.GetState(m.account, m.slot(key))
}

func (m *Map) Set(key common.Hash, value common.Hash) {
	m.db.SetState(m.account, m.slot(key), value)
}

// Delete clears the entry. A zero value is indistinguishable from an
// absent one, as in EVM storage.
func (m *Map) Delete(key common.Hash) {
	m.db.SetState(m.account, m.slot(key), common.Hash{})
}

func (m *Map) GetUint64(key common.Hash) uint64 {
	v := new(uint256.Int).SetBytes32(m.Get(key).Bytes())
	return v.Uint64()
}

func (m *Map) SetUint64(key common.Hash, value uint64) {
	m.Set(key, uint256.NewInt(value).Bytes32())
}

func (m *Map) GetUint256(key common.Hash) *uint256.Int {
	return new(uint256.Int).SetBytes32(m.Get(key).Bytes())
}

func (m *Map) SetUint256(key common.Hash, value *uint256.Int) {
	m.Set(key, value.Bytes32())
}

func (m *Map) GetAddress(key common.Hash) common.Address {
	return common.BytesToAddress(m.Get(key).Bytes())
}

func (m *Map) SetAddress(key common.Hash, value common.Address) {
	h := common.Hash{}
	copy(h[12:], value[:])
	m.Set(key, h)
}
