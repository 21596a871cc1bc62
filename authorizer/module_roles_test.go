package authorizer_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmodular/orchestrator/authorizer"
	"github.com/openmodular/orchestrator/registry"
	"github.com/openmodular/orchestrator/testutil"
)

var bountyModule = common.HexToAddress("0xb071")

func newModuleRoleState(t *testing.T) *testutil.StateAccess {
	t.Helper()
	db := newAuthState(t)
	require.NoError(t, registry.InitModuleList(db))
	require.NoError(t, registry.RegisterModule(db, bountyModule))
	return db
}

func TestGrantFromModuleRequiresActiveModule(t *testing.T) {
	db := newModuleRoleState(t)

	_, err := authorizer.GrantRoleFromModule(db, alice, "CLAIMANT", bob)
	require.ErrorIs(t, err, authorizer.ErrNotActiveModule)

	logs, err := authorizer.GrantRoleFromModule(db, bountyModule, "CLAIMANT", bob)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, authorizer.HasRole(db, authorizer.RoleID(bountyModule, "CLAIMANT"), bob))
}

func TestCoreSlotModulesCanManageRoles(t *testing.T) {
	db := newAuthState(t)
	processor := common.HexToAddress("0x9901")
	registry.SetPaymentProcessor(db, processor)

	_, err := authorizer.GrantRoleFromModule(db, processor, "QUEUE_OPERATOR", alice)
	require.NoError(t, err)
	assert.True(t, authorizer.HasRole(db, authorizer.RoleID(processor, "QUEUE_OPERATOR"), alice))
}

func TestGrantFromModuleIdempotence(t *testing.T) {
	db := newModuleRoleState(t)

	logs, err := authorizer.GrantRoleFromModule(db, bountyModule, "CLAIMANT", bob)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	logs, err = authorizer.GrantRoleFromModule(db, bountyModule, "CLAIMANT", bob)
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.Equal(t, uint64(1), authorizer.RoleMemberCount(db, authorizer.RoleID(bountyModule, "CLAIMANT")))
}

func TestRevokeFromModuleNonHolderIsNoop(t *testing.T) {
	db := newModuleRoleState(t)

	logs, err := authorizer.RevokeRoleFromModule(db, bountyModule, "CLAIMANT", bob)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestBatchedGrantAndRevoke(t *testing.T) {
	db := newModuleRoleState(t)
	accounts := []common.Address{alice, bob, alice}

	logs, err := authorizer.GrantRolesFromModule(db, bountyModule, "CLAIMANT", accounts)
	require.NoError(t, err)
	// The duplicate grant is silent.
	assert.Len(t, logs, 2)

	role := authorizer.RoleID(bountyModule, "CLAIMANT")
	assert.Equal(t, uint64(2), authorizer.RoleMemberCount(db, role))

	logs, err = authorizer.RevokeRolesFromModule(db, bountyModule, "CLAIMANT", accounts)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
	assert.Equal(t, uint64(0), authorizer.RoleMemberCount(db, role))
}

func TestDeregisteredModuleLosesRoleManagement(t *testing.T) {
	db := newModuleRoleState(t)

	_, err := authorizer.GrantRoleFromModule(db, bountyModule, "CLAIMANT", bob)
	require.NoError(t, err)

	require.NoError(t, registry.DeregisterModule(db, bountyModule))

	_, err = authorizer.GrantRoleFromModule(db, bountyModule, "CLAIMANT", alice)
	require.ErrorIs(t, err, authorizer.ErrNotActiveModule)

	// Held roles survive the deregistration; only management stops.
	assert.True(t, authorizer.HasRole(db, authorizer.RoleID(bountyModule, "CLAIMANT"), bob))
}

func TestBurnAdminFromModuleRole(t *testing.T) {
	db := newModuleRoleState(t)
	role := authorizer.RoleID(bountyModule, "CLAIMANT")

	_, err := authorizer.GrantRoleFromModule(db, bountyModule, "CLAIMANT", bob)
	require.NoError(t, err)

	logs, err := authorizer.BurnAdminFromModuleRole(db, bountyModule, "CLAIMANT")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, authorizer.IsBurned(db, role))

	// Nobody can manage the role anymore: not the module, not the
	// global admin.
	_, err = authorizer.GrantRoleFromModule(db, bountyModule, "CLAIMANT", alice)
	require.ErrorIs(t, err, authorizer.ErrRoleBurned)
	_, err = authorizer.RevokeRoleFromModule(db, bountyModule, "CLAIMANT", bob)
	require.ErrorIs(t, err, authorizer.ErrRoleBurned)
	_, err = authorizer.GrantRole(db, admin, role, alice)
	require.ErrorIs(t, err, authorizer.ErrRoleBurned)
	_, err = authorizer.TransferAdminRole(db, admin, role, authorizer.GlobalAdminRole(db))
	require.ErrorIs(t, err, authorizer.ErrRoleBurned)

	// Existing membership is frozen in place.
	assert.True(t, authorizer.HasRole(db, role, bob))
}
