package testutil

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/openmodular/orchestrator/tokens"
)

// Token is a minimal in-memory ERC20. FailTransfers makes every
// TransferFrom error, modeling a broken or malicious token.
type Token struct {
	Balances      map[common.Address]*uint256.Int
	FailTransfers bool
}

func NewToken() *Token {
	return &Token{Balances: make(map[common.Address]*uint256.Int)}
}

func (t *Token) Mint(owner common.Address, amount uint64) {
	bal := t.Balances[owner]
	if bal == nil {
		bal = uint256.NewInt(0)
		t.Balances[owner] = bal
	}
	bal.Add(bal, uint256.NewInt(amount))
}

func (t *Token) BalanceOf(owner common.Address) (*uint256.Int, error) {
	bal := t.Balances[owner]
	if bal == nil {
		return uint256.NewInt(0), nil
	}
	return new(uint256.Int).Set(bal), nil
}

func (t *Token) TransferFrom(from, to common.Address, amount *uint256.Int) error {
	if t.FailTransfers {
		return errors.New("transfer reverted")
	}
	bal := t.Balances[from]
	if bal == nil || bal.Lt(amount) {
		return errors.New("insufficient balance")
	}
	bal.Sub(bal, amount)
	toBal := t.Balances[to]
	if toBal == nil {
		toBal = uint256.NewInt(0)
		t.Balances[to] = toBal
	}
	toBal.Add(toBal, amount)
	return nil
}

// TokenRuntime resolves token addresses to registered Token doubles.
// Unregistered addresses resolve to nil, modeling addresses without
// contract code.
type TokenRuntime struct {
	Tokens map[common.Address]*Token
}

func NewTokenRuntime() *TokenRuntime {
	return &TokenRuntime{Tokens: make(map[common.Address]*Token)}
}

func (rt *TokenRuntime) Register(addr common.Address, t *Token) {
	rt.Tokens[addr] = t
}

func (rt *TokenRuntime) TokenAt(addr common.Address) tokens.ERC20 {
	t, ok := rt.Tokens[addr]
	if !ok {
		return nil
	}
	return t
}
