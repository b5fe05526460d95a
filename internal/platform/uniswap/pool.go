package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/dexarb/internal/domain"
)

// Backend is the read-only node surface pool and quoter calls use.
type Backend interface {
	bind.ContractCaller
}

// Pool is a bound Uniswap V3 pool with its token metadata resolved. The
// metadata is immutable for the pool's lifetime and fetched once, at
// construction.
type Pool struct {
	addr     common.Address
	contract *bind.BoundContract

	token0 domain.Token
	token1 domain.Token
	fee    uint32
}

// NewPool binds the pool at address and resolves its token0/token1
// metadata and fee tier.
func NewPool(ctx context.Context, backend Backend, address string) (*Pool, error) {
	parsed, err := abi.JSON(strings.NewReader(poolABI))
	if err != nil {
		return nil, fmt.Errorf("uniswap: parse pool abi: %w", err)
	}

	addr := common.HexToAddress(address)
	contract := bind.NewBoundContract(addr, parsed, backend, nil, nil)
	p := &Pool{addr: addr, contract: contract}

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "token0"); err != nil {
		return nil, fmt.Errorf("uniswap: pool %s token0: %w", address, err)
	}
	token0Addr := out[0].(common.Address)

	out = nil
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "token1"); err != nil {
		return nil, fmt.Errorf("uniswap: pool %s token1: %w", address, err)
	}
	token1Addr := out[0].(common.Address)

	out = nil
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "fee"); err != nil {
		return nil, fmt.Errorf("uniswap: pool %s fee: %w", address, err)
	}
	p.fee = uint32(out[0].(*big.Int).Uint64())

	if p.token0, err = resolveToken(ctx, backend, token0Addr); err != nil {
		return nil, fmt.Errorf("uniswap: pool %s: %w", address, err)
	}
	if p.token1, err = resolveToken(ctx, backend, token1Addr); err != nil {
		return nil, fmt.Errorf("uniswap: pool %s: %w", address, err)
	}

	return p, nil
}

// Address returns the pool contract address.
func (p *Pool) Address() common.Address {
	return p.addr
}

// Fee returns the pool fee tier in hundredths of a bip (3000 = 0.3%).
func (p *Pool) Fee() uint32 {
	return p.fee
}

// FeeFraction returns the fee tier as a fraction (3000 -> 0.003).
func (p *Pool) FeeFraction() decimal.Decimal {
	return decimal.New(int64(p.fee), -6)
}

// Token0 returns the pool's token0.
func (p *Pool) Token0() domain.Token {
	return p.token0
}

// Token1 returns the pool's token1.
func (p *Pool) Token1() domain.Token {
	return p.token1
}

// TokenBySymbol returns the pool token matching symbol, case-insensitive.
func (p *Pool) TokenBySymbol(symbol string) (domain.Token, error) {
	switch {
	case strings.EqualFold(symbol, p.token0.Symbol):
		return p.token0, nil
	case strings.EqualFold(symbol, p.token1.Symbol):
		return p.token1, nil
	}
	return domain.Token{}, fmt.Errorf("uniswap: %q in pool %s: %w", symbol, p.addr.Hex(), domain.ErrInvalidToken)
}

// CounterToken returns the pool token paired with t.
func (p *Pool) CounterToken(t domain.Token) domain.Token {
	if p.IsToken0(t) {
		return p.token1
	}
	return p.token0
}

// IsToken0 reports whether t is the pool's token0.
func (p *Pool) IsToken0(t domain.Token) bool {
	return strings.EqualFold(t.Address, p.token0.Address)
}

// SpotPrice returns the current pool price adjusted for token decimals:
// token1 per token0, or the inverse when reverse is set. The inverse of
// a zero price is PriceInfinity, never an error.
func (p *Pool) SpotPrice(ctx context.Context, reverse bool) (decimal.Decimal, error) {
	var out []interface{}
	if err := p.contract.Call(&bind.CallOpts{Context: ctx}, &out, "slot0"); err != nil {
		return decimal.Zero, fmt.Errorf("uniswap: pool %s slot0: %w", p.addr.Hex(), err)
	}
	sqrtPriceX96 := out[0].(*big.Int)

	price := priceFromSqrtX96(sqrtPriceX96, p.token0.Decimals, p.token1.Decimals)
	if reverse {
		return invertPrice(price), nil
	}
	return price, nil
}

// resolveToken reads symbol and decimals from the ERC20 contract at addr.
func resolveToken(ctx context.Context, backend Backend, addr common.Address) (domain.Token, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return domain.Token{}, fmt.Errorf("parse erc20 abi: %w", err)
	}
	contract := bind.NewBoundContract(addr, parsed, backend, nil, nil)

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "symbol"); err != nil {
		return domain.Token{}, fmt.Errorf("token %s symbol: %w", addr.Hex(), err)
	}
	symbol := out[0].(string)

	out = nil
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "decimals"); err != nil {
		return domain.Token{}, fmt.Errorf("token %s decimals: %w", addr.Hex(), err)
	}
	dec := out[0].(uint8)

	return domain.Token{
		Address:  addr.Hex(),
		Symbol:   symbol,
		Decimals: int32(dec),
	}, nil
}
