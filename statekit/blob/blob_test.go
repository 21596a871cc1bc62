package blob_test

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmodular/orchestrator/statekit/blob"
	"github.com/openmodular/orchestrator/testutil"
)

var blobAccount = common.HexToAddress("0xb10b")

func TestSmallValueRoundTrip(t *testing.T) {
	db := testutil.NewStateAccess()
	s := blob.NewStore(db, blobAccount)
	key := common.HexToHash("0x1")

	value := []byte("hello")
	s.Set(key, value)

	assert.Equal(t, value, s.Get(key))
	assert.Equal(t, 1, db.SlotCount(blobAccount))
}

func TestLargeValueRoundTrip(t *testing.T) {
	db := testutil.NewStateAccess()
	s := blob.NewStore(db, blobAccount)
	key := common.HexToHash("0x1")

	value := bytes.Repeat([]byte{0xab}, 100)
	s.Set(key, value)

	assert.Equal(t, value, s.Get(key))
}

func TestBoundaryLengths(t *testing.T) {
	db := testutil.NewStateAccess()
	s := blob.NewStore(db, blobAccount)

	for _, n := range []int{0, 1, 31, 32, 33, 63, 64, 65} {
		key := common.BytesToHash([]byte{byte(n + 1)})
		value := bytes.Repeat([]byte{0x01}, n)
		s.Set(key, value)
		got := s.Get(key)
		require.Equal(t, n, len(got), "length %d", n)
		require.True(t, bytes.Equal(value, got), "length %d", n)
	}
}

// Head slots at consecutive keys must not overlap each other's data
// regions: the spill lives under a keccak-derived base, never in the
// slots following the head.
func TestAdjacentKeysDoNotCollide(t *testing.T) {
	db := testutil.NewStateAccess()
	s := blob.NewStore(db, blobAccount)

	k1 := common.HexToHash("0x10")
	k2 := common.HexToHash("0x11")
	v1 := bytes.Repeat([]byte{0xaa}, 100)
	v2 := bytes.Repeat([]byte{0xbb}, 100)

	s.Set(k1, v1)
	s.Set(k2, v2)
	assert.Equal(t, v1, s.Get(k1))
	assert.Equal(t, v2, s.Get(k2))

	s.Delete(k1)
	assert.Nil(t, s.Get(k1))
	assert.Equal(t, v2, s.Get(k2))
}

func TestGetMissingReturnsNil(t *testing.T) {
	db := testutil.NewStateAccess()
	s := blob.NewStore(db, blobAccount)

	assert.Nil(t, s.Get(common.HexToHash("0x1")))
	assert.False(t, s.Has(common.HexToHash("0x1")))
}

func TestDeleteClearsAllSlots(t *testing.T) {
	db := testutil.NewStateAccess()
	s := blob.NewStore(db, blobAccount)
	key := common.HexToHash("0x1")

	s.Set(key, bytes.Repeat([]byte{0xcd}, 200))
	require.True(t, s.Has(key))

	s.Delete(key)
	assert.False(t, s.Has(key))
	assert.Equal(t, 0, db.SlotCount(blobAccount))
}

func TestOverwriteShrinkingValueLeavesNoResidue(t *testing.T) {
	db := testutil.NewStateAccess()
	s := blob.NewStore(db, blobAccount)
	key := common.HexToHash("0x1")

	s.Set(key, bytes.Repeat([]byte{0xcd}, 200))
	s.Set(key, []byte("tiny"))

	assert.Equal(t, []byte("tiny"), s.Get(key))
	assert.Equal(t, 1, db.SlotCount(blobAccount))
}
