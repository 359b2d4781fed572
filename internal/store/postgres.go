package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/oddsline/amm-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, snap *model.PoolSnapshot) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pool_snapshots (price, collateral_balance, accumulated_fees, lp_total_deposits, total_pool, updated_at)
		 VALUES ($1::NUMERIC, $2::NUMERIC, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC, $6)`,
		snap.Price.String(), snap.CollateralBalance.String(),
		snap.AccumulatedFees.String(), snap.LPTotalDeposits.String(),
		snap.TotalPool.String(), snap.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) LatestSnapshot(ctx context.Context) (*model.PoolSnapshot, error) {
	var snap model.PoolSnapshot
	var price, collateral, fees, lp, total string

	err := s.pool.QueryRow(ctx,
		`SELECT price::TEXT, collateral_balance::TEXT, accumulated_fees::TEXT,
		        lp_total_deposits::TEXT, total_pool::TEXT, updated_at
		 FROM pool_snapshots ORDER BY updated_at DESC LIMIT 1`).
		Scan(&price, &collateral, &fees, &lp, &total, &snap.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}

	snap.Price, _ = decimal.NewFromString(price)
	snap.CollateralBalance, _ = decimal.NewFromString(collateral)
	snap.AccumulatedFees, _ = decimal.NewFromString(fees)
	snap.LPTotalDeposits, _ = decimal.NewFromString(lp)
	snap.TotalPool, _ = decimal.NewFromString(total)

	return &snap, nil
}

func (s *PostgresStore) InsertTradeEvent(ctx context.Context, e *model.TradeEvent) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO trade_events (id, account, action, side, amount, fee, net, price, risk_score, created_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8::NUMERIC, $9::NUMERIC, $10)`,
		e.ID, e.Account, string(e.Action), string(e.Side),
		e.Amount.String(), e.Fee.String(), e.Net.String(),
		e.Price.String(), e.RiskScore.String(),
		e.CreatedAt,
	)
	return err
}

func (s *PostgresStore) ListTradeEvents(ctx context.Context) ([]model.TradeEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, account, action, side,
		        amount::TEXT, fee::TEXT, net::TEXT, price::TEXT, risk_score::TEXT, created_at
		 FROM trade_events ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTradeEvents(rows)
}

func (s *PostgresStore) ListTradeEventsByAccount(ctx context.Context, account string) ([]model.TradeEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, account, action, side,
		        amount::TEXT, fee::TEXT, net::TEXT, price::TEXT, risk_score::TEXT, created_at
		 FROM trade_events WHERE account = $1 ORDER BY created_at`, account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTradeEvents(rows)
}

// scanTradeEvents reads pgx rows into TradeEvent slices.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanTradeEvents(rows pgxRows) ([]model.TradeEvent, error) {
	var events []model.TradeEvent
	for rows.Next() {
		var e model.TradeEvent
		var action, side string
		var amountS, feeS, netS, priceS, scoreS string

		if err := rows.Scan(&e.ID, &e.Account, &action, &side,
			&amountS, &feeS, &netS, &priceS, &scoreS, &e.CreatedAt); err != nil {
			return nil, err
		}

		e.Action = model.Action(action)
		e.Side = model.Side(side)
		e.Amount, _ = decimal.NewFromString(amountS)
		e.Fee, _ = decimal.NewFromString(feeS)
		e.Net, _ = decimal.NewFromString(netS)
		e.Price, _ = decimal.NewFromString(priceS)
		e.RiskScore, _ = decimal.NewFromString(scoreS)

		events = append(events, e)
	}
	return events, rows.Err()
}
