// Package statekit provides word-addressed state primitives for the
// orchestrator protocol. All protocol state is stored as 32-byte words
// under (account, slot) pairs, the same storage model the EVM exposes to
// contracts. Higher-level structures (salted maps, byte blobs, enumerable
// sets, ordered id lists) are built on top of this interface.
package statekit

import (
	"github.com/ethereum/go-ethereum/common"
)

type StateAccess interface {
	GetState(common.Address, common.Hash) common.Hash
	SetState(common.Address, common.Hash, common.Hash) common.Hash
}

// AddrWord left-pads an address into a state word, the layout the EVM
// uses for address-typed slots and indexed log topics.
func AddrWord(a common.Address) common.Hash {
	h := common.Hash{}
	copy(h[12:], a[:])
	return h
}
