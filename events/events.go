// Package events defines the log signatures emitted by the orchestrator
// core and helpers to build the corresponding log records.
package events

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/openmodular/orchestrator/statekit"
)

// RoleGranted is emitted when an account is added to a role.
// Parameters: roleId (indexed), account (indexed)
var RoleGranted = crypto.Keccak256Hash([]byte("RoleGranted(bytes32,address)"))

// RoleRevoked is emitted when an account is removed from a role.
// Parameters: roleId (indexed), account (indexed)
var RoleRevoked = crypto.Keccak256Hash([]byte("RoleRevoked(bytes32,address)"))

// RoleAdminChanged is emitted when a role's admin role changes, including
// when it is burned. Parameters: roleId (indexed), newAdminRoleId (indexed)
var RoleAdminChanged = crypto.Keccak256Hash([]byte("RoleAdminChanged(bytes32,bytes32)"))

// ModuleUpdateInitiated is emitted when a timelocked module change is
// requested. Parameters: target (indexed), candidate (indexed), executableAt
var ModuleUpdateInitiated = crypto.Keccak256Hash([]byte("ModuleUpdateInitiated(bytes32,address,uint256)"))

// ModuleUpdateCanceled is emitted when a pending module change is
// withdrawn. Parameters: target (indexed), candidate (indexed)
var ModuleUpdateCanceled = crypto.Keccak256Hash([]byte("ModuleUpdateCanceled(bytes32,address)"))

// ModuleAdded / ModuleRemoved cover the general module set.
// Parameters: module (indexed)
var (
	ModuleAdded   = crypto.Keccak256Hash([]byte("ModuleAdded(address)"))
	ModuleRemoved = crypto.Keccak256Hash([]byte("ModuleRemoved(address)"))
)

// Singleton slot replacements. Parameters: newModule (indexed)
var (
	AuthorizerUpdated       = crypto.Keccak256Hash([]byte("AuthorizerUpdated(address)"))
	FundingManagerUpdated   = crypto.Keccak256Hash([]byte("FundingManagerUpdated(address)"))
	PaymentProcessorUpdated = crypto.Keccak256Hash([]byte("PaymentProcessorUpdated(address)"))
)

// StreamingPaymentAdded is emitted for every stream created by
// processPayments. Parameters: client (indexed), recipient (indexed),
// streamId, token, total, start, cliff, end
var StreamingPaymentAdded = crypto.Keccak256Hash([]byte("StreamingPaymentAdded(address,address,uint256,address,uint256,uint256,uint256,uint256)"))

// StreamingPaymentRemoved is emitted when a stream record is cleaned up.
// Parameters: client (indexed), recipient (indexed), streamId
var StreamingPaymentRemoved = crypto.Keccak256Hash([]byte("StreamingPaymentRemoved(address,address,uint256)"))

// TokensReleased is emitted on a successful claim transfer.
// Parameters: recipient (indexed), token (indexed), amount
var TokensReleased = crypto.Keccak256Hash([]byte("TokensReleased(address,address,uint256)"))

// UnclaimableAmountAdded is emitted when a failed transfer parks funds in
// the unclaimable pot. Parameters: client (indexed), token (indexed),
// recipient (indexed), streamId, amount
var UnclaimableAmountAdded = crypto.Keccak256Hash([]byte("UnclaimableAmountAdded(address,address,address,uint256,uint256)"))

// UnclaimableAmountClaimed is emitted when parked funds are successfully
// retried. Parameters: client (indexed), token (indexed), recipient
// (indexed), amount
var UnclaimableAmountClaimed = crypto.Keccak256Hash([]byte("UnclaimableAmountClaimed(address,address,address,uint256)"))

// AddressTopic left-pads an address into a log topic. Topics share the
// state-word layout for address values.
func AddressTopic(a common.Address) common.Hash {
	return statekit.AddrWord(a)
}

// Words packs 32-byte words into log data.
func Words(ws ...common.Hash) []byte {
	data := make([]byte, 0, len(ws)*32)
	for _, w := range ws {
		data = append(data, w[:]...)
	}
	return data
}

func Uint64Word(v uint64) common.Hash {
	return uint256.NewInt(v).Bytes32()
}

func Uint256Word(v *uint256.Int) common.Hash {
	return v.Bytes32()
}

// New builds a log record addressed to the given state account.
func New(account common.Address, topics []common.Hash, data []byte) *types.Log {
	return &types.Log{
		Address: account,
		Topics:  topics,
		Data:    data,
	}
}
