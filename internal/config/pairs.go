package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alanyoungcy/dexarb/internal/domain"
)

// pairColumns are the required headers of the pairs CSV, in any order.
var pairColumns = []string{"binance_pair", "uniswap_pair", "uniswap_pool_id", "reverse_price"}

// LoadPairs reads the watched-pair roster from the CSV file at path.
// Each row names a CEX symbol, a pool display name, the pool contract
// address, and whether the pool price orientation is reversed (token1 is
// the base asset). Malformed rows fail loading with the offending line
// number; an empty roster is an error.
func LoadPairs(path string) ([]domain.Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open pairs file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("config: read pairs header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range pairColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("config: pairs file %s is missing column %q", path, col)
		}
	}

	var pairs []domain.Pair
	line := 1
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("config: pairs file line %d: %w", line+1, err)
		}
		line++

		if isBlank(record) {
			continue
		}

		symbol := strings.TrimSpace(record[idx["binance_pair"]])
		if !strings.Contains(symbol, "/") {
			return nil, fmt.Errorf("config: pairs file line %d: symbol %q is not BASE/QUOTE", line, symbol)
		}

		addr := strings.TrimSpace(record[idx["uniswap_pool_id"]])
		if !strings.HasPrefix(addr, "0x") || len(addr) != 42 {
			return nil, fmt.Errorf("config: pairs file line %d: pool id %q is not an address", line, addr)
		}

		reverse, err := parseReverse(record[idx["reverse_price"]])
		if err != nil {
			return nil, fmt.Errorf("config: pairs file line %d: %w", line, err)
		}

		pairs = append(pairs, domain.Pair{
			CEXSymbol:    strings.ToUpper(symbol),
			PoolPair:     strings.TrimSpace(record[idx["uniswap_pair"]]),
			PoolAddress:  addr,
			ReversePrice: reverse,
		})
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("config: pairs file %s contains no pairs", path)
	}
	return pairs, nil
}

func parseReverse(s string) (bool, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("reverse_price %q is not 0/1 or a boolean", s)
	}
	return b, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
