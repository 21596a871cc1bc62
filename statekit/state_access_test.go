package statekit_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/openmodular/orchestrator/events"
	"github.com/openmodular/orchestrator/statekit"
)

func TestAddrWordLayout(t *testing.T) {
	a := common.HexToAddress("0x0102030405060708090a0b0c0d0e0f1011121314")
	w := statekit.AddrWord(a)

	// Left-padded into the low 20 bytes of the word.
	assert.Equal(t, make([]byte, 12), w[:12])
	assert.Equal(t, a.Bytes(), w[12:])
	assert.Equal(t, a, common.BytesToAddress(w.Bytes()))

	assert.Equal(t, common.Hash{}, statekit.AddrWord(common.Address{}))
}

func TestAddressTopicMatchesAddrWord(t *testing.T) {
	a := common.HexToAddress("0xc11")
	assert.Equal(t, statekit.AddrWord(a), events.AddressTopic(a))
}
