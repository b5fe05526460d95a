package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/dexarb/internal/domain"
)

// ResultStore implements domain.ResultStore using PostgreSQL.
type ResultStore struct {
	pool *pgxpool.Pool
}

// NewResultStore creates a ResultStore backed by the given connection
// pool.
func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

const resultSelectCols = `id, cex_pair, pool_pair, pool_address, reverse_price,
	base_symbol, quote_symbol, pool_fee, cex_fee,
	cex_mid_price, pool_mid_price, direction, trade_amount_base,
	cex_actual_price, pool_actual_price, spend_quote, receive_quote,
	pool_new_price, gas_fee_quote, profit, margin,
	base_stable_rate, stable_symbol, profit_stable, created_at`

// Append stores one evaluated direction.
func (s *ResultStore) Append(ctx context.Context, r domain.OpportunityResult) error {
	const query = `
		INSERT INTO opportunity_results (
			id, cex_pair, pool_pair, pool_address, reverse_price,
			base_symbol, quote_symbol, pool_fee, cex_fee,
			cex_mid_price, pool_mid_price, direction, trade_amount_base,
			cex_actual_price, pool_actual_price, spend_quote, receive_quote,
			pool_new_price, gas_fee_quote, profit, margin,
			base_stable_rate, stable_symbol, profit_stable, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16, $17,
			$18, $19, $20, $21,
			$22, $23, $24, $25
		)`

	_, err := s.pool.Exec(ctx, query,
		r.ID, r.CEXPair, r.PoolPair, r.PoolAddress, r.ReversePrice,
		r.BaseSymbol, r.QuoteSymbol, num(r.PoolFee), num(r.CEXFee),
		num(r.CEXMidPrice), num(r.PoolMidPrice), string(r.Direction), num(r.TradeAmountBase),
		num(r.CEXActualPrice), num(r.PoolActualPrice), num(r.SpendQuote), num(r.ReceiveQuote),
		num(r.PoolNewPrice), num(r.GasFeeQuote), num(r.Profit), num(r.Margin),
		num(r.BaseStableRate), r.StableSymbol, num(r.ProfitStable), r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: append result %s: %w", r.ID, err)
	}
	return nil
}

// ListRecent returns the most recent results, newest first.
func (s *ResultStore) ListRecent(ctx context.Context, limit int) ([]domain.OpportunityResult, error) {
	query := `SELECT ` + resultSelectCols + ` FROM opportunity_results ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent results: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

// ListBefore returns results created strictly before the cutoff, oldest
// first, so archival batches drain in order.
func (s *ResultStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.OpportunityResult, error) {
	query := `SELECT ` + resultSelectCols + ` FROM opportunity_results
		WHERE created_at < $1 ORDER BY created_at ASC`
	args := []any{before}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list results before %s: %w", before.Format(time.RFC3339), err)
	}
	defer rows.Close()
	return scanResults(rows)
}

// DeleteBefore removes results created strictly before the cutoff and
// reports how many were deleted.
func (s *ResultStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM opportunity_results WHERE created_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete results before %s: %w", before.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

func scanResults(rows pgx.Rows) ([]domain.OpportunityResult, error) {
	var results []domain.OpportunityResult
	for rows.Next() {
		var (
			r         domain.OpportunityResult
			direction string

			poolFee, cexFee, cexMid, poolMid    pgtype.Numeric
			amount, cexActual, poolActual       pgtype.Numeric
			spend, receive, newPrice, gas       pgtype.Numeric
			profit, margin, stableRate, pStable pgtype.Numeric
		)
		if err := rows.Scan(
			&r.ID, &r.CEXPair, &r.PoolPair, &r.PoolAddress, &r.ReversePrice,
			&r.BaseSymbol, &r.QuoteSymbol, &poolFee, &cexFee,
			&cexMid, &poolMid, &direction, &amount,
			&cexActual, &poolActual, &spend, &receive,
			&newPrice, &gas, &profit, &margin,
			&stableRate, &r.StableSymbol, &pStable, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan result: %w", err)
		}
		r.Direction = domain.Direction(direction)
		r.PoolFee = dec(poolFee)
		r.CEXFee = dec(cexFee)
		r.CEXMidPrice = dec(cexMid)
		r.PoolMidPrice = dec(poolMid)
		r.TradeAmountBase = dec(amount)
		r.CEXActualPrice = dec(cexActual)
		r.PoolActualPrice = dec(poolActual)
		r.SpendQuote = dec(spend)
		r.ReceiveQuote = dec(receive)
		r.PoolNewPrice = dec(newPrice)
		r.GasFeeQuote = dec(gas)
		r.Profit = dec(profit)
		r.Margin = dec(margin)
		r.BaseStableRate = dec(stableRate)
		r.ProfitStable = dec(pStable)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: result rows: %w", err)
	}
	return results, nil
}

// num converts a decimal into the pgx numeric without passing through
// floats or strings.
func num(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func dec(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
