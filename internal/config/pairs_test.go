package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePairsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pairs.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPairsValid(t *testing.T) {
	path := writePairsFile(t, `binance_pair,uniswap_pair,uniswap_pool_id,reverse_price
ETH/USDT,WETH/USDT,0x11b815efB8f581194ae79006d24E0d814B7697F6,1
usdc/eth,USDC/WETH,0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640,0

`)
	pairs, err := LoadPairs(path)
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	assert.Equal(t, "ETH/USDT", pairs[0].CEXSymbol)
	assert.Equal(t, "WETH/USDT", pairs[0].PoolPair)
	assert.Equal(t, "0x11b815efB8f581194ae79006d24E0d814B7697F6", pairs[0].PoolAddress)
	assert.True(t, pairs[0].ReversePrice)

	assert.Equal(t, "USDC/ETH", pairs[1].CEXSymbol)
	assert.False(t, pairs[1].ReversePrice)
}

func TestLoadPairsErrors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing column",
			content: "binance_pair,uniswap_pool_id,reverse_price\nETH/USDT,0x11b815efB8f581194ae79006d24E0d814B7697F6,0\n",
			wantErr: `missing column "uniswap_pair"`,
		},
		{
			name:    "bad symbol",
			content: "binance_pair,uniswap_pair,uniswap_pool_id,reverse_price\nETHUSDT,WETH/USDT,0x11b815efB8f581194ae79006d24E0d814B7697F6,0\n",
			wantErr: "not BASE/QUOTE",
		},
		{
			name:    "bad pool address",
			content: "binance_pair,uniswap_pair,uniswap_pool_id,reverse_price\nETH/USDT,WETH/USDT,11b815,0\n",
			wantErr: "not an address",
		},
		{
			name:    "bad reverse flag",
			content: "binance_pair,uniswap_pair,uniswap_pool_id,reverse_price\nETH/USDT,WETH/USDT,0x11b815efB8f581194ae79006d24E0d814B7697F6,maybe\n",
			wantErr: "reverse_price",
		},
		{
			name:    "wrong field count",
			content: "binance_pair,uniswap_pair,uniswap_pool_id,reverse_price\nETH/USDT,WETH/USDT\n",
			wantErr: "wrong number of fields",
		},
		{
			name:    "no rows",
			content: "binance_pair,uniswap_pair,uniswap_pool_id,reverse_price\n",
			wantErr: "contains no pairs",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadPairs(writePairsFile(t, tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
