package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clmmcore/internal/model"
)

// Store provides Postgres persistence for engine state snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutPools inserts or updates pool snapshots keyed by address. The dynamic
// accounting state travels as a jsonb blob next to the static columns.
func (s *Store) PutPools(ctx context.Context, pools []*model.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		state, err := json.Marshal(pool)
		if err != nil {
			return fmt.Errorf("marshal pool %s: %w", pool.Address.Hex(), err)
		}
		batch.Queue(`
			INSERT INTO pools (
				address, token_mint_a, token_mint_b, tick_spacing, fee_rate, tick_current_index, state, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			ON CONFLICT (address)
			DO UPDATE SET
				fee_rate = EXCLUDED.fee_rate,
				tick_current_index = EXCLUDED.tick_current_index,
				state = EXCLUDED.state,
				updated_at = now()
		`,
			pool.Address.Hex(),
			pool.TokenMintA.Hex(),
			pool.TokenMintB.Hex(),
			int32(pool.TickSpacing),
			int64(pool.FeeRate),
			pool.TickCurrentIndex,
			state,
		)
	}
	return s.sendBatch(ctx, batch, len(pools))
}

// PutPositions inserts or updates position snapshots keyed by position mint.
func (s *Store) PutPositions(ctx context.Context, positions []*model.Position) error {
	if len(positions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, position := range positions {
		state, err := json.Marshal(position)
		if err != nil {
			return fmt.Errorf("marshal position %s: %w", position.Mint.Hex(), err)
		}
		batch.Queue(`
			INSERT INTO positions (
				position_mint, pool_address, tick_lower_index, tick_upper_index, state, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (position_mint)
			DO UPDATE SET
				state = EXCLUDED.state,
				updated_at = now()
		`,
			position.Mint.Hex(),
			position.Pool.Hex(),
			position.TickLowerIndex,
			position.TickUpperIndex,
			state,
		)
	}
	return s.sendBatch(ctx, batch, len(positions))
}

// PutTickArrays inserts or updates tick array shards keyed by pool and
// aligned start index.
func (s *Store) PutTickArrays(ctx context.Context, arrays []*model.TickArray) error {
	if len(arrays) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, array := range arrays {
		ticks, err := json.Marshal(array.Ticks)
		if err != nil {
			return fmt.Errorf("marshal tick array %s/%d: %w", array.Pool.Hex(), array.StartTickIndex, err)
		}
		batch.Queue(`
			INSERT INTO tick_arrays (
				pool_address, start_tick_index, ticks, created_at, updated_at
			) VALUES ($1, $2, $3, now(), now())
			ON CONFLICT (pool_address, start_tick_index)
			DO UPDATE SET
				ticks = EXCLUDED.ticks,
				updated_at = now()
		`,
			array.Pool.Hex(),
			array.StartTickIndex,
			ticks,
		)
	}
	return s.sendBatch(ctx, batch, len(arrays))
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the last snapshot timestamp for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts uint64
	row := s.pool.QueryRow(ctx, `SELECT last_snapshot_ts FROM engine_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return ts, true, nil
}

// SaveState upserts the last snapshot timestamp for a name.
func (s *Store) SaveState(ctx context.Context, name string, ts uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO engine_state (name, last_snapshot_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_snapshot_ts = EXCLUDED.last_snapshot_ts, updated_at = now()
	`, name, ts)
	return err
}
