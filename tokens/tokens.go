// Package tokens is the defensive boundary between the accounting core
// and external token contracts. Tokens are arbitrary external code: a
// transfer may error, lie, or the address may hold no contract at all. All
// token access goes through the helpers here, which normalize every
// failure mode into an error the caller can divert into the unclaimable
// path.
package tokens

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var ErrNoCode = errors.New("tokens: no contract at token address")

// ERC20 is the minimal token surface the core consumes.
type ERC20 interface {
	BalanceOf(owner common.Address) (*uint256.Int, error)
	TransferFrom(from, to common.Address, amount *uint256.Int) error
}

// Runtime resolves a token address to its binding. A nil binding models
// an address with no contract code.
type Runtime interface {
	TokenAt(addr common.Address) ERC20
}

// BalanceOf probes the token for the owner's balance.
func BalanceOf(rt Runtime, token, owner common.Address) (*uint256.Int, error) {
	t := rt.TokenAt(token)
	if t == nil {
		return nil, ErrNoCode
	}
	bal, err := t.BalanceOf(owner)
	if err != nil {
		return nil, fmt.Errorf("balanceOf %s failed: %w", token.Hex(), err)
	}
	if bal == nil {
		return nil, fmt.Errorf("balanceOf %s returned no value", token.Hex())
	}
	return bal, nil
}

// TransferFrom moves amount from -> to on the token. Any failure mode,
// including a missing contract, comes back as an error and never as a
// silent no-op.
func TransferFrom(rt Runtime, token, from, to common.Address, amount *uint256.Int) error {
	t := rt.TokenAt(token)
	if t == nil {
		return ErrNoCode
	}
	if err := t.TransferFrom(from, to, amount); err != nil {
		return fmt.Errorf("transferFrom on %s failed: %w", token.Hex(), err)
	}
	return nil
}
