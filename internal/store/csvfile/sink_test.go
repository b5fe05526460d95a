package csvfile

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/dexarb/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleResult(id string) domain.OpportunityResult {
	return domain.OpportunityResult{
		ID:              id,
		CEXPair:         "ETH/USDT",
		PoolPair:        "WETH/USDT",
		PoolAddress:     "0x11b815efB8f581194ae79006d24E0d814B7697F6",
		ReversePrice:    true,
		BaseSymbol:      "ETH",
		QuoteSymbol:     "USDT",
		PoolFee:         dec("0.0005"),
		CEXFee:          dec("0.001"),
		CEXMidPrice:     dec("2500"),
		PoolMidPrice:    dec("2501.25"),
		Direction:       domain.DirectionCEXToDEX,
		TradeAmountBase: dec("0.4"),
		CEXActualPrice:  dec("2500.50"),
		PoolActualPrice: dec("2525"),
		SpendQuote:      dec("1001.2002"),
		ReceiveQuote:    dec("1010"),
		PoolNewPrice:    dec("2499.8"),
		GasFeeQuote:     dec("6"),
		Profit:          dec("2.7998"),
		Margin:          dec("0.0027964"),
		BaseStableRate:  dec("2500"),
		StableSymbol:    "USDT",
		ProfitStable:    dec("0.0011197"),
		CreatedAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestSinkWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")

	sink, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, sink.Append(context.Background(), sampleResult("r1")))
	require.NoError(t, sink.Append(context.Background(), sampleResult("r2")))
	require.NoError(t, sink.Close())

	// Reopening appends without a second header.
	sink, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, sink.Append(context.Background(), sampleResult("r3")))
	require.NoError(t, sink.Close())

	records := readAll(t, path)
	require.Len(t, records, 4)
	assert.Equal(t, header, records[0])
	assert.Equal(t, "r1", records[1][0])
	assert.Equal(t, "r3", records[3][0])
}

func TestSinkRowFormatting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")

	sink, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, sink.Append(context.Background(), sampleResult("r1")))
	require.NoError(t, sink.Close())

	records := readAll(t, path)
	require.Len(t, records, 2)
	row := records[1]
	require.Len(t, row, len(header))

	cols := make(map[string]string, len(header))
	for i, name := range header {
		cols[name] = row[i]
	}

	assert.Equal(t, "2025-06-01T12:00:00Z", cols["created_at"])
	assert.Equal(t, "1", cols["reverse_price"])
	assert.Equal(t, "Buy on Binance, Sell on Uniswap", cols["decision"])
	assert.Equal(t, "0.4000000000", cols["trade_amount_base"])
	assert.Equal(t, "2.7998000000", cols["profit"])
	assert.Equal(t, "0.0005000000", cols["pool_fee"])
	assert.Equal(t, "USDT", cols["stable_symbol"])
}
