package uniswap

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/dexarb/internal/domain"
)

var (
	testPoolAddr = common.HexToAddress("0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640")
	testUSDCAddr = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	testWETHAddr = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
)

// fakeCaller answers eth_call with pre-packed outputs keyed by contract
// address and 4-byte selector, and records the calldata it saw.
type fakeCaller struct {
	outputs  map[string][]byte
	lastData map[string][]byte
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{
		outputs:  make(map[string][]byte),
		lastData: make(map[string][]byte),
	}
}

func callKey(addr common.Address, method abi.Method) string {
	return addr.Hex() + ":" + hex.EncodeToString(method.ID)
}

func (f *fakeCaller) stub(addr common.Address, parsed abi.ABI, method string, values ...interface{}) {
	m, ok := parsed.Methods[method]
	if !ok {
		panic("unknown method " + method)
	}
	packed, err := m.Outputs.Pack(values...)
	if err != nil {
		panic(err)
	}
	f.outputs[callKey(addr, m)] = packed
}

func (f *fakeCaller) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x01}, nil
}

func (f *fakeCaller) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if call.To == nil || len(call.Data) < 4 {
		return nil, fmt.Errorf("malformed call")
	}
	key := call.To.Hex() + ":" + hex.EncodeToString(call.Data[:4])
	out, ok := f.outputs[key]
	if !ok {
		return nil, fmt.Errorf("unexpected call %s", key)
	}
	f.lastData[key] = call.Data
	return out, nil
}

// newTestPool wires a USDC(6)/WETH(18) 0.05% pool priced at 0.0004 WETH
// per USDC (2500 USDC per WETH).
func newTestPool(t *testing.T, f *fakeCaller) *Pool {
	t.Helper()

	poolParsed, err := abi.JSON(strings.NewReader(poolABI))
	require.NoError(t, err)
	ercParsed, err := abi.JSON(strings.NewReader(erc20ABI))
	require.NoError(t, err)

	f.stub(testPoolAddr, poolParsed, "token0", testUSDCAddr)
	f.stub(testPoolAddr, poolParsed, "token1", testWETHAddr)
	f.stub(testPoolAddr, poolParsed, "fee", big.NewInt(500))
	f.stub(testPoolAddr, poolParsed, "slot0",
		sqrtX96(20000), big.NewInt(0), uint16(0), uint16(0), uint16(0), uint8(0), true)
	f.stub(testUSDCAddr, ercParsed, "symbol", "USDC")
	f.stub(testUSDCAddr, ercParsed, "decimals", uint8(6))
	f.stub(testWETHAddr, ercParsed, "symbol", "WETH")
	f.stub(testWETHAddr, ercParsed, "decimals", uint8(18))

	pool, err := NewPool(context.Background(), f, testPoolAddr.Hex())
	require.NoError(t, err)
	return pool
}

func TestNewPoolResolvesTokens(t *testing.T) {
	pool := newTestPool(t, newFakeCaller())

	assert.Equal(t, testPoolAddr, pool.Address())
	assert.Equal(t, uint32(500), pool.Fee())
	assert.True(t, pool.FeeFraction().Equal(decimal.RequireFromString("0.0005")))

	assert.Equal(t, "USDC", pool.Token0().Symbol)
	assert.Equal(t, int32(6), pool.Token0().Decimals)
	assert.Equal(t, "WETH", pool.Token1().Symbol)
	assert.Equal(t, int32(18), pool.Token1().Decimals)
}

func TestPoolTokenLookup(t *testing.T) {
	pool := newTestPool(t, newFakeCaller())

	tok, err := pool.TokenBySymbol("usdc")
	require.NoError(t, err)
	assert.Equal(t, "USDC", tok.Symbol)

	other := pool.CounterToken(tok)
	assert.Equal(t, "WETH", other.Symbol)

	assert.True(t, pool.IsToken0(tok))
	assert.False(t, pool.IsToken0(other))

	_, err = pool.TokenBySymbol("DAI")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestPoolSpotPrice(t *testing.T) {
	pool := newTestPool(t, newFakeCaller())

	spot, err := pool.SpotPrice(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, spot.Equal(decimal.RequireFromString("0.0004")),
		"token1 per token0, got %s", spot)

	reversed, err := pool.SpotPrice(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, reversed.Equal(decimal.RequireFromString("2500")),
		"token0 per token1, got %s", reversed)
}

func TestPoolSpotPriceZeroReversed(t *testing.T) {
	f := newFakeCaller()
	pool := newTestPool(t, f)

	poolParsed, err := abi.JSON(strings.NewReader(poolABI))
	require.NoError(t, err)
	f.stub(testPoolAddr, poolParsed, "slot0",
		big.NewInt(0), big.NewInt(0), uint16(0), uint16(0), uint16(0), uint8(0), true)

	spot, err := pool.SpotPrice(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, spot.IsZero())

	reversed, err := pool.SpotPrice(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, reversed.Equal(PriceInfinity),
		"an empty pool reversed reports the infinity sentinel, got %s", reversed)
}

func TestRegistryCachesPools(t *testing.T) {
	f := newFakeCaller()
	poolParsed, err := abi.JSON(strings.NewReader(poolABI))
	require.NoError(t, err)
	ercParsed, err := abi.JSON(strings.NewReader(erc20ABI))
	require.NoError(t, err)

	f.stub(testPoolAddr, poolParsed, "token0", testUSDCAddr)
	f.stub(testPoolAddr, poolParsed, "token1", testWETHAddr)
	f.stub(testPoolAddr, poolParsed, "fee", big.NewInt(500))
	f.stub(testUSDCAddr, ercParsed, "symbol", "USDC")
	f.stub(testUSDCAddr, ercParsed, "decimals", uint8(6))
	f.stub(testWETHAddr, ercParsed, "symbol", "WETH")
	f.stub(testWETHAddr, ercParsed, "decimals", uint8(18))

	reg := NewRegistry(f)

	first, err := reg.Get(context.Background(), testPoolAddr.Hex())
	require.NoError(t, err)
	second, err := reg.Get(context.Background(), strings.ToLower(testPoolAddr.Hex()))
	require.NoError(t, err)

	assert.Same(t, first, second, "same address resolves to the cached pool")
	assert.Equal(t, []string{testPoolAddr.Hex()}, reg.List())
}
