package orchestrator_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmodular/orchestrator/authorizer"
	"github.com/openmodular/orchestrator/orchestrator"
	"github.com/openmodular/orchestrator/testutil"
)

const timelock = uint64(1000)

var (
	self      = common.HexToAddress("0x0c1")
	admin     = common.HexToAddress("0xad1")
	outsider  = common.HexToAddress("0xeee")
	tokenAddr = common.HexToAddress("0x70c")
	fmAddr    = common.HexToAddress("0xf01")
	authAddr  = common.HexToAddress("0xa01")
	ppAddr    = common.HexToAddress("0x901")
)

type fixture struct {
	db  *testutil.StateAccess
	res *testutil.Resolver
}

func newFixture(t *testing.T, initialModules ...common.Address) *fixture {
	t.Helper()

	db := testutil.NewStateAccess()
	res := testutil.NewResolver()
	res.Register(&testutil.FundingManagerModule{Addr: fmAddr, TokenAddr: tokenAddr})
	res.Register(&testutil.AuthorizerModule{Addr: authAddr})
	res.Register(&testutil.ProcessorModule{Addr: ppAddr})
	for _, m := range initialModules {
		res.Register(&testutil.PlainModule{Addr: m})
	}

	_, err := orchestrator.Initialize(db, res, self, admin, fmAddr, authAddr, ppAddr, initialModules, timelock)
	require.NoError(t, err)
	return &fixture{db: db, res: res}
}

func TestInitializeSetsCoreSlots(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, fmAddr, orchestrator.FundingManager(f.db))
	assert.Equal(t, authAddr, orchestrator.Authorizer(f.db))
	assert.Equal(t, ppAddr, orchestrator.PaymentProcessor(f.db))
	assert.True(t, authorizer.HasRole(f.db, authorizer.GlobalAdminRole(f.db), admin))
	assert.Empty(t, orchestrator.ListModules(f.db))
}

func TestInitializeRegistersInitialModules(t *testing.T) {
	m1 := common.HexToAddress("0x101")
	m2 := common.HexToAddress("0x102")
	f := newFixture(t, m1, m2)

	assert.True(t, orchestrator.IsModule(f.db, m1))
	assert.True(t, orchestrator.IsModule(f.db, m2))
	assert.Equal(t, []common.Address{m1, m2}, orchestrator.ListModules(f.db))
}

func TestInitializeOnlyOnce(t *testing.T) {
	f := newFixture(t)

	_, err := orchestrator.Initialize(f.db, f.res, self, admin, fmAddr, authAddr, ppAddr, nil, timelock)
	require.ErrorIs(t, err, orchestrator.ErrAlreadyInitialized)
}

func TestGovernanceRequiresInitialization(t *testing.T) {
	db := testutil.NewStateAccess()
	res := testutil.NewResolver()

	_, err := orchestrator.InitiateAddModule(db, res, admin, common.HexToAddress("0x101"), 100)
	require.ErrorIs(t, err, orchestrator.ErrNotInitialized)
}

func TestInitializeValidatesCapabilities(t *testing.T) {
	db := testutil.NewStateAccess()
	res := testutil.NewResolver()
	res.Register(&testutil.FundingManagerModule{Addr: fmAddr, TokenAddr: tokenAddr})
	res.Register(&testutil.AuthorizerModule{Addr: authAddr})
	res.Register(&testutil.ProcessorModule{Addr: ppAddr})

	// The processor address does not expose the authorizer capability.
	_, err := orchestrator.Initialize(db, res, self, admin, fmAddr, ppAddr, ppAddr, nil, timelock)
	require.ErrorIs(t, err, orchestrator.ErrInvalidModuleType)

	// An unresolvable funding manager fails as well.
	_, err = orchestrator.Initialize(db, res, self, admin, common.HexToAddress("0xdead"), authAddr, ppAddr, nil, timelock)
	require.ErrorIs(t, err, orchestrator.ErrInvalidModuleType)
}
