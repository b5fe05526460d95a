package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/dexarb/internal/domain"
)

// maxApproval is 2^256-1, the unlimited allowance convention.
var maxApproval = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ReceiptWaiter blocks until a transaction is mined or ctx is done.
type ReceiptWaiter interface {
	WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Wallet signs settlement transactions.
type Wallet interface {
	Address() common.Address
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

// RouterConfig wires the router's collaborators and limits.
type RouterConfig struct {
	Address         string
	Backend         bind.ContractBackend
	Waiter          ReceiptWaiter
	Wallet          Wallet
	Quoter          *Quoter
	Pools           *Registry
	ApproveGasLimit uint64
	SwapGasLimit    uint64
	ReceiptTimeout  time.Duration
}

// Router settles admitted trades through the Uniswap V3 swap router.
type Router struct {
	addr     common.Address
	contract *bind.BoundContract
	backend  bind.ContractBackend
	waiter   ReceiptWaiter
	wallet   Wallet
	quoter   *Quoter
	pools    *Registry

	approveGas     uint64
	swapGas        uint64
	receiptTimeout time.Duration
}

// NewRouter binds the swap router contract at cfg.Address.
func NewRouter(cfg RouterConfig) (*Router, error) {
	parsed, err := abi.JSON(strings.NewReader(routerABI))
	if err != nil {
		return nil, fmt.Errorf("uniswap: parse router abi: %w", err)
	}

	addr := common.HexToAddress(cfg.Address)
	return &Router{
		addr:           addr,
		contract:       bind.NewBoundContract(addr, parsed, cfg.Backend, cfg.Backend, nil),
		backend:        cfg.Backend,
		waiter:         cfg.Waiter,
		wallet:         cfg.Wallet,
		quoter:         cfg.Quoter,
		pools:          cfg.Pools,
		approveGas:     cfg.ApproveGasLimit,
		swapGas:        cfg.SwapGasLimit,
		receiptTimeout: cfg.ReceiptTimeout,
	}, nil
}

// Settle routes an admitted trade job: cex_to_dex sells the job's token
// on the pool, dex_to_cex buys it.
func (r *Router) Settle(ctx context.Context, job domain.TradeJob) (domain.Settlement, error) {
	pool, err := r.pools.Get(ctx, job.PoolAddress)
	if err != nil {
		return domain.Settlement{}, err
	}

	switch job.Direction {
	case domain.DirectionCEXToDEX:
		return r.Sell(ctx, pool, job.Token.Symbol, job.Amount, job.Slippage)
	case domain.DirectionDEXToCEX:
		return r.Buy(ctx, pool, job.Token.Symbol, job.Amount, job.Slippage)
	default:
		return domain.Settlement{}, fmt.Errorf("uniswap: unknown direction %q: %w", job.Direction, domain.ErrExecution)
	}
}

// Sell swaps an exact amount of the named token into the pool's other
// token. The received amount is bounded below by slippage off a fresh
// quote.
func (r *Router) Sell(ctx context.Context, pool *Pool, tokenInSymbol string, amount, slippage decimal.Decimal) (domain.Settlement, error) {
	tokenIn, err := pool.TokenBySymbol(tokenInSymbol)
	if err != nil {
		return domain.Settlement{}, err
	}
	tokenOut := pool.CounterToken(tokenIn)
	amountInRaw := toRawUnits(amount, tokenIn.Decimals)

	if err := r.checkBalance(ctx, tokenIn, amountInRaw); err != nil {
		return domain.Settlement{}, err
	}
	if err := r.ensureAllowance(ctx, tokenIn, amountInRaw); err != nil {
		return domain.Settlement{}, err
	}

	quote, err := r.quoter.SimulateSell(ctx, pool, tokenInSymbol, amount)
	if err != nil {
		return domain.Settlement{}, err
	}
	minOut := quote.AmountOut.Mul(decimal.NewFromInt(1).Sub(slippage))

	params := struct {
		TokenIn           common.Address
		TokenOut          common.Address
		Fee               *big.Int
		Recipient         common.Address
		AmountIn          *big.Int
		AmountOutMinimum  *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		TokenIn:           common.HexToAddress(tokenIn.Address),
		TokenOut:          common.HexToAddress(tokenOut.Address),
		Fee:               big.NewInt(int64(pool.Fee())),
		Recipient:         r.wallet.Address(),
		AmountIn:          amountInRaw,
		AmountOutMinimum:  toRawUnits(minOut, tokenOut.Decimals),
		SqrtPriceLimitX96: big.NewInt(0),
	}

	return r.swap(ctx, "exactInputSingle", params)
}

// Buy acquires an exact amount of the named token, paying in the pool's
// other token. The spent amount is bounded above by slippage off a fresh
// quote.
func (r *Router) Buy(ctx context.Context, pool *Pool, tokenOutSymbol string, amount, slippage decimal.Decimal) (domain.Settlement, error) {
	tokenOut, err := pool.TokenBySymbol(tokenOutSymbol)
	if err != nil {
		return domain.Settlement{}, err
	}
	tokenIn := pool.CounterToken(tokenOut)

	quote, err := r.quoter.SimulateBuy(ctx, pool, tokenOutSymbol, amount)
	if err != nil {
		return domain.Settlement{}, err
	}
	maxIn := quote.AmountIn.Mul(decimal.NewFromInt(1).Add(slippage))
	maxInRaw := toRawUnits(maxIn, tokenIn.Decimals)

	if err := r.checkBalance(ctx, tokenIn, maxInRaw); err != nil {
		return domain.Settlement{}, err
	}
	if err := r.ensureAllowance(ctx, tokenIn, maxInRaw); err != nil {
		return domain.Settlement{}, err
	}

	params := struct {
		TokenIn           common.Address
		TokenOut          common.Address
		Fee               *big.Int
		Recipient         common.Address
		AmountOut         *big.Int
		AmountInMaximum   *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		TokenIn:           common.HexToAddress(tokenIn.Address),
		TokenOut:          common.HexToAddress(tokenOut.Address),
		Fee:               big.NewInt(int64(pool.Fee())),
		Recipient:         r.wallet.Address(),
		AmountOut:         toRawUnits(amount, tokenOut.Decimals),
		AmountInMaximum:   maxInRaw,
		SqrtPriceLimitX96: big.NewInt(0),
	}

	return r.swap(ctx, "exactOutputSingle", params)
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// checkBalance verifies the wallet holds at least need raw units of t.
func (r *Router) checkBalance(ctx context.Context, t domain.Token, need *big.Int) error {
	erc20, err := NewERC20(r.backend, t)
	if err != nil {
		return err
	}

	bal, err := erc20.BalanceOf(ctx, r.wallet.Address())
	if err != nil {
		return err
	}
	if bal.Cmp(need) < 0 {
		return fmt.Errorf("uniswap: %s balance %s below required %s: %w", t.Symbol, bal, need, domain.ErrExecution)
	}

	return nil
}

// ensureAllowance grants the router an unlimited allowance when the
// current one cannot cover need. The approval is mined before returning.
func (r *Router) ensureAllowance(ctx context.Context, t domain.Token, need *big.Int) error {
	erc20, err := NewERC20(r.backend, t)
	if err != nil {
		return err
	}

	allowance, err := erc20.Allowance(ctx, r.wallet.Address(), r.addr)
	if err != nil {
		return err
	}
	if allowance.Cmp(need) >= 0 {
		return nil
	}

	opts, err := r.wallet.TransactOpts(ctx)
	if err != nil {
		return err
	}
	opts.GasLimit = r.approveGas

	tx, err := erc20.Approve(opts, r.addr, maxApproval)
	if err != nil {
		return err
	}
	if _, err := r.await(ctx, tx.Hash()); err != nil {
		return fmt.Errorf("uniswap: approve %s: %w", t.Symbol, err)
	}

	return nil
}

// swap submits the routed swap and waits for its receipt.
func (r *Router) swap(ctx context.Context, method string, params any) (domain.Settlement, error) {
	opts, err := r.wallet.TransactOpts(ctx)
	if err != nil {
		return domain.Settlement{}, err
	}
	opts.GasLimit = r.swapGas

	tx, err := r.contract.Transact(opts, method, params)
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("uniswap: %s: %w: %v", method, domain.ErrExecution, err)
	}

	return r.await(ctx, tx.Hash())
}

// await waits for the receipt within the configured timeout and checks
// its status. The returned settlement carries the hash even on timeout.
func (r *Router) await(ctx context.Context, txHash common.Hash) (domain.Settlement, error) {
	waitCtx, cancel := context.WithTimeout(ctx, r.receiptTimeout)
	defer cancel()

	receipt, err := r.waiter.WaitMined(waitCtx, txHash)
	if err != nil {
		return domain.Settlement{TxHash: txHash.Hex()}, fmt.Errorf("uniswap: wait receipt %s: %w", txHash.Hex(), err)
	}

	settlement := domain.Settlement{
		TxHash:    txHash.Hex(),
		GasUsed:   receipt.GasUsed,
		Confirmed: receipt.Status == types.ReceiptStatusSuccessful,
	}
	if !settlement.Confirmed {
		return settlement, fmt.Errorf("uniswap: transaction %s reverted: %w", txHash.Hex(), domain.ErrExecution)
	}

	return settlement, nil
}
