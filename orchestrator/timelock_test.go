package orchestrator_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmodular/orchestrator/orchestrator"
	"github.com/openmodular/orchestrator/registry"
	"github.com/openmodular/orchestrator/testutil"
)

func TestAddModuleTimelockLifecycle(t *testing.T) {
	f := newFixture(t)
	m := common.HexToAddress("0x101")
	f.res.Register(&testutil.PlainModule{Addr: m})

	_, err := orchestrator.InitiateAddModule(f.db, f.res, admin, m, 100)
	require.NoError(t, err)

	// The execute phase is gated on timelock maturity.
	_, err = orchestrator.ExecuteAddModule(f.db, f.res, admin, m, 100+timelock-1)
	require.ErrorIs(t, err, orchestrator.ErrTimelockNotExpired)
	assert.False(t, orchestrator.IsModule(f.db, m))

	_, err = orchestrator.ExecuteAddModule(f.db, f.res, admin, m, 100+timelock)
	require.NoError(t, err)
	assert.True(t, orchestrator.IsModule(f.db, m))

	// The pending request was consumed.
	_, err = orchestrator.ExecuteAddModule(f.db, f.res, admin, m, 100+2*timelock)
	require.ErrorIs(t, err, orchestrator.ErrNoPendingUpdate)
}

func TestAddModuleRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	m := common.HexToAddress("0x101")
	f.res.Register(&testutil.PlainModule{Addr: m})

	_, err := orchestrator.InitiateAddModule(f.db, f.res, outsider, m, 100)
	require.ErrorIs(t, err, orchestrator.ErrCallerNotAuthorized)

	_, err = orchestrator.InitiateAddModule(f.db, f.res, admin, m, 100)
	require.NoError(t, err)

	// Executing directly without the admin role must fail too.
	_, err = orchestrator.ExecuteAddModule(f.db, f.res, outsider, m, 100+timelock)
	require.ErrorIs(t, err, orchestrator.ErrCallerNotAuthorized)
}

func TestAddModuleValidation(t *testing.T) {
	f := newFixture(t)

	_, err := orchestrator.InitiateAddModule(f.db, f.res, admin, common.Address{}, 100)
	require.ErrorIs(t, err, orchestrator.ErrInvalidCandidate)

	// No implementation resolvable at the address.
	_, err = orchestrator.InitiateAddModule(f.db, f.res, admin, common.HexToAddress("0xdead"), 100)
	require.ErrorIs(t, err, orchestrator.ErrInvalidModuleType)

	// Core slot occupants cannot be added as general modules.
	_, err = orchestrator.InitiateAddModule(f.db, f.res, admin, ppAddr, 100)
	require.ErrorIs(t, err, orchestrator.ErrModuleAlreadyRegistered)
}

func TestExecuteAddModuleRevalidates(t *testing.T) {
	m := common.HexToAddress("0x101")
	f := newFixture(t)
	f.res.Register(&testutil.PlainModule{Addr: m})

	_, err := orchestrator.InitiateAddModule(f.db, f.res, admin, m, 100)
	require.NoError(t, err)

	// The module becomes registered while the request is pending; the
	// matured execute must notice and refuse a double-add.
	require.NoError(t, registry.RegisterModule(f.db, m))

	_, err = orchestrator.ExecuteAddModule(f.db, f.res, admin, m, 100+timelock)
	require.ErrorIs(t, err, orchestrator.ErrModuleAlreadyRegistered)
}

func TestCancelModuleUpdateRoundTrip(t *testing.T) {
	f := newFixture(t)
	m := common.HexToAddress("0x101")
	f.res.Register(&testutil.PlainModule{Addr: m})

	_, err := orchestrator.InitiateAddModule(f.db, f.res, admin, m, 100)
	require.NoError(t, err)

	_, err = orchestrator.CancelModuleUpdate(f.db, admin, m)
	require.NoError(t, err)

	// Pre-initiation state is restored: no pending request, no module.
	assert.False(t, orchestrator.IsModule(f.db, m))
	_, err = orchestrator.ExecuteAddModule(f.db, f.res, admin, m, 100+timelock)
	require.ErrorIs(t, err, orchestrator.ErrNoPendingUpdate)

	_, err = orchestrator.CancelModuleUpdate(f.db, admin, m)
	require.ErrorIs(t, err, orchestrator.ErrNoPendingUpdate)
}

func TestReinitiateResetsClock(t *testing.T) {
	f := newFixture(t)
	m := common.HexToAddress("0x101")
	f.res.Register(&testutil.PlainModule{Addr: m})

	_, err := orchestrator.InitiateAddModule(f.db, f.res, admin, m, 100)
	require.NoError(t, err)
	_, err = orchestrator.InitiateAddModule(f.db, f.res, admin, m, 500)
	require.NoError(t, err)

	// The first request's maturity no longer counts.
	_, err = orchestrator.ExecuteAddModule(f.db, f.res, admin, m, 100+timelock)
	require.ErrorIs(t, err, orchestrator.ErrTimelockNotExpired)
	_, err = orchestrator.ExecuteAddModule(f.db, f.res, admin, m, 500+timelock)
	require.NoError(t, err)
}

func TestRemoveModuleLifecycle(t *testing.T) {
	m1 := common.HexToAddress("0x101")
	m2 := common.HexToAddress("0x102")
	f := newFixture(t, m1, m2)

	_, err := orchestrator.InitiateRemoveModule(f.db, admin, m1, 100)
	require.NoError(t, err)

	_, err = orchestrator.ExecuteRemoveModule(f.db, admin, m1, 100+timelock-1)
	require.ErrorIs(t, err, orchestrator.ErrTimelockNotExpired)

	_, err = orchestrator.ExecuteRemoveModule(f.db, admin, m1, 100+timelock)
	require.NoError(t, err)
	assert.False(t, orchestrator.IsModule(f.db, m1))
	assert.Equal(t, []common.Address{m2}, orchestrator.ListModules(f.db))
}

func TestRemoveModuleValidation(t *testing.T) {
	f := newFixture(t)

	// Singleton slots are replaced, never removed.
	_, err := orchestrator.InitiateRemoveModule(f.db, admin, fmAddr, 100)
	require.ErrorIs(t, err, orchestrator.ErrCannotRemoveCoreModule)

	_, err = orchestrator.InitiateRemoveModule(f.db, admin, common.HexToAddress("0x101"), 100)
	require.ErrorIs(t, err, orchestrator.ErrModuleNotRegistered)
}

func TestSetFundingManagerEnforcesTokenInvariant(t *testing.T) {
	f := newFixture(t)

	otherToken := common.HexToAddress("0x71c")
	badCandidate := common.HexToAddress("0xf02")
	goodCandidate := common.HexToAddress("0xf03")
	f.res.Register(&testutil.FundingManagerModule{Addr: badCandidate, TokenAddr: otherToken})
	f.res.Register(&testutil.FundingManagerModule{Addr: goodCandidate, TokenAddr: tokenAddr})

	_, err := orchestrator.InitiateSetFundingManager(f.db, f.res, admin, badCandidate, 100)
	require.NoError(t, err)
	_, err = orchestrator.ExecuteSetFundingManager(f.db, f.res, admin, 100+timelock)
	require.ErrorIs(t, err, orchestrator.ErrMismatchedToken)
	assert.Equal(t, fmAddr, orchestrator.FundingManager(f.db))

	_, err = orchestrator.InitiateSetFundingManager(f.db, f.res, admin, goodCandidate, 200)
	require.NoError(t, err)
	_, err = orchestrator.ExecuteSetFundingManager(f.db, f.res, admin, 200+timelock)
	require.NoError(t, err)
	assert.Equal(t, goodCandidate, orchestrator.FundingManager(f.db))
}

func TestSetFundingManagerRejectsWrongCapability(t *testing.T) {
	f := newFixture(t)

	_, err := orchestrator.InitiateSetFundingManager(f.db, f.res, admin, ppAddr, 100)
	require.ErrorIs(t, err, orchestrator.ErrInvalidModuleType)
}

func TestCancelCoreSlotUpdateMatchesCandidate(t *testing.T) {
	f := newFixture(t)
	candidate := common.HexToAddress("0xf03")
	f.res.Register(&testutil.FundingManagerModule{Addr: candidate, TokenAddr: tokenAddr})

	_, err := orchestrator.InitiateSetFundingManager(f.db, f.res, admin, candidate, 100)
	require.NoError(t, err)

	_, err = orchestrator.CancelSetFundingManagerUpdate(f.db, admin, common.HexToAddress("0xf04"))
	require.ErrorIs(t, err, orchestrator.ErrNoPendingUpdate)

	_, err = orchestrator.CancelSetFundingManagerUpdate(f.db, admin, candidate)
	require.NoError(t, err)

	_, err = orchestrator.ExecuteSetFundingManager(f.db, f.res, admin, 100+timelock)
	require.ErrorIs(t, err, orchestrator.ErrNoPendingUpdate)
}

func TestCoreSlotCandidateCannotJoinModuleList(t *testing.T) {
	f := newFixture(t)
	candidate := common.HexToAddress("0xf03")
	f.res.Register(&testutil.FundingManagerModule{Addr: candidate, TokenAddr: tokenAddr})

	_, err := orchestrator.InitiateSetFundingManager(f.db, f.res, admin, candidate, 100)
	require.NoError(t, err)

	// While the slot swap is pending its candidate is barred from the
	// general module list, so a matured swap cannot land a core slot on a
	// registered module.
	_, err = orchestrator.InitiateAddModule(f.db, f.res, admin, candidate, 100)
	require.ErrorIs(t, err, orchestrator.ErrConflictingPendingUpdate)

	// Cancelling the swap lifts the bar.
	_, err = orchestrator.CancelSetFundingManagerUpdate(f.db, admin, candidate)
	require.NoError(t, err)
	_, err = orchestrator.InitiateAddModule(f.db, f.res, admin, candidate, 200)
	require.NoError(t, err)
}

func TestExecuteAddModuleRejectsPendingCoreCandidate(t *testing.T) {
	f := newFixture(t)
	candidate := common.HexToAddress("0xf03")
	f.res.Register(&testutil.FundingManagerModule{Addr: candidate, TokenAddr: tokenAddr})

	_, err := orchestrator.InitiateAddModule(f.db, f.res, admin, candidate, 100)
	require.NoError(t, err)

	// The slot swap is initiated after the add; the matured add must
	// still notice the conflict.
	_, err = orchestrator.InitiateSetFundingManager(f.db, f.res, admin, candidate, 150)
	require.NoError(t, err)

	_, err = orchestrator.ExecuteAddModule(f.db, f.res, admin, candidate, 100+timelock)
	require.ErrorIs(t, err, orchestrator.ErrConflictingPendingUpdate)
	assert.False(t, orchestrator.IsModule(f.db, candidate))
}

func TestExecuteSetRejectsRegisteredModule(t *testing.T) {
	f := newFixture(t)
	candidate := common.HexToAddress("0xf03")
	f.res.Register(&testutil.FundingManagerModule{Addr: candidate, TokenAddr: tokenAddr})

	_, err := orchestrator.InitiateSetFundingManager(f.db, f.res, admin, candidate, 100)
	require.NoError(t, err)

	// The candidate joins the module list while the swap is pending; the
	// matured execute must refuse rather than alias the slot to a
	// registered module.
	require.NoError(t, registry.RegisterModule(f.db, candidate))

	_, err = orchestrator.ExecuteSetFundingManager(f.db, f.res, admin, 100+timelock)
	require.ErrorIs(t, err, orchestrator.ErrModuleAlreadyRegistered)
	assert.Equal(t, fmAddr, orchestrator.FundingManager(f.db))
}

func TestSetAuthorizerLifecycle(t *testing.T) {
	f := newFixture(t)
	candidate := common.HexToAddress("0xa02")
	f.res.Register(&testutil.AuthorizerModule{Addr: candidate})

	_, err := orchestrator.InitiateSetAuthorizer(f.db, f.res, admin, candidate, 100)
	require.NoError(t, err)
	_, err = orchestrator.ExecuteSetAuthorizer(f.db, f.res, admin, 100+timelock)
	require.NoError(t, err)
	assert.Equal(t, candidate, orchestrator.Authorizer(f.db))
}

func TestSetPaymentProcessorLifecycle(t *testing.T) {
	f := newFixture(t)
	candidate := common.HexToAddress("0x902")
	f.res.Register(&testutil.ProcessorModule{Addr: candidate})

	_, err := orchestrator.InitiateSetPaymentProcessor(f.db, f.res, admin, candidate, 100)
	require.NoError(t, err)

	// Executing the wrong slot's update does not see this request.
	_, err = orchestrator.ExecuteSetAuthorizer(f.db, f.res, admin, 100+timelock)
	require.ErrorIs(t, err, orchestrator.ErrNoPendingUpdate)

	_, err = orchestrator.ExecuteSetPaymentProcessor(f.db, f.res, admin, 100+timelock)
	require.NoError(t, err)
	assert.Equal(t, candidate, orchestrator.PaymentProcessor(f.db))
}
