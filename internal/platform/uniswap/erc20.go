package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/alanyoungcy/dexarb/internal/domain"
)

// ERC20 is a bound token contract, used by settlement for balance and
// allowance management.
type ERC20 struct {
	token    domain.Token
	contract *bind.BoundContract
}

// NewERC20 binds the token contract for t.
func NewERC20(backend bind.ContractBackend, t domain.Token) (*ERC20, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("uniswap: parse erc20 abi: %w", err)
	}

	return &ERC20{
		token:    t,
		contract: bind.NewBoundContract(common.HexToAddress(t.Address), parsed, backend, backend, nil),
	}, nil
}

// BalanceOf returns owner's balance in raw units.
func (e *ERC20) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	var out []interface{}
	if err := e.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", owner); err != nil {
		return nil, fmt.Errorf("uniswap: %s balanceOf: %w", e.token.Symbol, err)
	}
	return out[0].(*big.Int), nil
}

// Allowance returns the raw-unit allowance granted by owner to spender.
func (e *ERC20) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	var out []interface{}
	if err := e.contract.Call(&bind.CallOpts{Context: ctx}, &out, "allowance", owner, spender); err != nil {
		return nil, fmt.Errorf("uniswap: %s allowance: %w", e.token.Symbol, err)
	}
	return out[0].(*big.Int), nil
}

// Approve submits an approval granting spender the given raw-unit
// allowance.
func (e *ERC20) Approve(opts *bind.TransactOpts, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	tx, err := e.contract.Transact(opts, "approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("uniswap: %s approve: %w", e.token.Symbol, err)
	}
	return tx, nil
}
