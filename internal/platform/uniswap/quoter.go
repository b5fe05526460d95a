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

// GasPricer supplies the current gas price in wei.
type GasPricer interface {
	GasPrice(ctx context.Context) (*big.Int, error)
}

// Quoter simulates swaps against the Uniswap V3 QuoterV2 contract.
// Simulations are eth_call only; nothing is submitted.
type Quoter struct {
	contract *bind.BoundContract
	gas      GasPricer
}

// NewQuoter binds the QuoterV2 contract at address.
func NewQuoter(backend Backend, gas GasPricer, address string) (*Quoter, error) {
	parsed, err := abi.JSON(strings.NewReader(quoterABI))
	if err != nil {
		return nil, fmt.Errorf("uniswap: parse quoter abi: %w", err)
	}

	return &Quoter{
		contract: bind.NewBoundContract(common.HexToAddress(address), parsed, backend, nil, nil),
		gas:      gas,
	}, nil
}

// SimulateSell quotes swapping an exact amountIn of the named token into
// the pool's other token. The returned quote's NewPrice is oriented
// output per input.
func (q *Quoter) SimulateSell(ctx context.Context, pool *Pool, tokenInSymbol string, amountIn decimal.Decimal) (domain.Quote, error) {
	tokenIn, err := pool.TokenBySymbol(tokenInSymbol)
	if err != nil {
		return domain.Quote{}, err
	}
	tokenOut := pool.CounterToken(tokenIn)

	params := struct {
		TokenIn           common.Address
		TokenOut          common.Address
		AmountIn          *big.Int
		Fee               *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		TokenIn:           common.HexToAddress(tokenIn.Address),
		TokenOut:          common.HexToAddress(tokenOut.Address),
		AmountIn:          toRawUnits(amountIn, tokenIn.Decimals),
		Fee:               big.NewInt(int64(pool.Fee())),
		SqrtPriceLimitX96: big.NewInt(0),
	}

	var out []interface{}
	if err := q.contract.Call(&bind.CallOpts{Context: ctx}, &out, "quoteExactInputSingle", params); err != nil {
		return domain.Quote{}, fmt.Errorf("uniswap: %w: quoteExactInputSingle %s->%s: %v",
			domain.ErrQuote, tokenIn.Symbol, tokenOut.Symbol, err)
	}

	amountOutRaw := out[0].(*big.Int)
	sqrtAfter := out[1].(*big.Int)
	gasEstimate := out[3].(*big.Int)

	quote := domain.Quote{
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		AmountIn:  amountIn,
		AmountOut: fromRawUnits(amountOutRaw, tokenOut.Decimals),
	}

	poolPrice := priceFromSqrtX96(sqrtAfter, pool.token0.Decimals, pool.token1.Decimals)
	quote.NewPrice = outPerIn(poolPrice, pool.IsToken0(tokenIn))
	if !amountIn.IsZero() {
		quote.EffectivePrice = quote.AmountOut.Div(amountIn)
	}

	return q.withGas(ctx, quote, gasEstimate)
}

// SimulateBuy quotes acquiring an exact amountOut of the named token,
// paying in the pool's other token. The returned quote's NewPrice is
// oriented input per output.
func (q *Quoter) SimulateBuy(ctx context.Context, pool *Pool, tokenOutSymbol string, amountOut decimal.Decimal) (domain.Quote, error) {
	tokenOut, err := pool.TokenBySymbol(tokenOutSymbol)
	if err != nil {
		return domain.Quote{}, err
	}
	tokenIn := pool.CounterToken(tokenOut)

	params := struct {
		TokenIn           common.Address
		TokenOut          common.Address
		Amount            *big.Int
		Fee               *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		TokenIn:           common.HexToAddress(tokenIn.Address),
		TokenOut:          common.HexToAddress(tokenOut.Address),
		Amount:            toRawUnits(amountOut, tokenOut.Decimals),
		Fee:               big.NewInt(int64(pool.Fee())),
		SqrtPriceLimitX96: big.NewInt(0),
	}

	var out []interface{}
	if err := q.contract.Call(&bind.CallOpts{Context: ctx}, &out, "quoteExactOutputSingle", params); err != nil {
		return domain.Quote{}, fmt.Errorf("uniswap: %w: quoteExactOutputSingle %s->%s: %v",
			domain.ErrQuote, tokenIn.Symbol, tokenOut.Symbol, err)
	}

	amountInRaw := out[0].(*big.Int)
	sqrtAfter := out[1].(*big.Int)
	gasEstimate := out[3].(*big.Int)

	quote := domain.Quote{
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		AmountIn:  fromRawUnits(amountInRaw, tokenIn.Decimals),
		AmountOut: amountOut,
	}

	poolPrice := priceFromSqrtX96(sqrtAfter, pool.token0.Decimals, pool.token1.Decimals)
	quote.NewPrice = inPerOut(poolPrice, pool.IsToken0(tokenIn))
	if !amountOut.IsZero() {
		quote.EffectivePrice = quote.AmountIn.Div(amountOut)
	}

	return q.withGas(ctx, quote, gasEstimate)
}

// withGas attaches the node gas price and the native-unit fee estimate.
func (q *Quoter) withGas(ctx context.Context, quote domain.Quote, gasEstimate *big.Int) (domain.Quote, error) {
	gasPrice, err := q.gas.GasPrice(ctx)
	if err != nil {
		return domain.Quote{}, err
	}

	quote.GasEstimate = gasEstimate.Uint64()
	quote.GasPriceWei = decimal.NewFromBigInt(gasPrice, 0)
	quote.GasFeeNative = decimal.NewFromBigInt(gasEstimate, 0).Mul(quote.GasPriceWei).Shift(-18)

	return quote, nil
}
