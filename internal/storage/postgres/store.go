package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"priceScope/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pools (
	pool_address     TEXT PRIMARY KEY,
	token0           TEXT NOT NULL,
	token1           TEXT NOT NULL,
	token0_symbol    TEXT NOT NULL,
	token1_symbol    TEXT NOT NULL,
	token0_decimals  SMALLINT NOT NULL,
	token1_decimals  SMALLINT NOT NULL,
	first_seen_block BIGINT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pool_prices (
	tx_hash      TEXT NOT NULL,
	log_index    BIGINT NOT NULL,
	block_number BIGINT NOT NULL,
	pool_address TEXT NOT NULL,
	pair         TEXT NOT NULL,
	variant      TEXT NOT NULL,
	price        NUMERIC NOT NULL,
	observed_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (tx_hash, log_index)
);

CREATE INDEX IF NOT EXISTS pool_prices_pool_block_idx ON pool_prices (pool_address, block_number);
`

// Store provides Postgres persistence for emitted prices.
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

// EnsureSchema creates the pools and pool_prices tables if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutPool implements storage.PoolSink.
func (s *Store) PutPool(ctx context.Context, pool model.Pool) error {
	return s.UpsertPools(ctx, []model.Pool{pool})
}

// PutPrice implements storage.Sink.
func (s *Store) PutPrice(ctx context.Context, result model.PriceResult) error {
	return s.InsertPrices(ctx, []model.PriceResult{result})
}

// UpsertPools inserts or updates pool metadata.
func (s *Store) UpsertPools(ctx context.Context, pools []model.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO pools (
				pool_address, token0, token1, token0_symbol, token1_symbol,
				token0_decimals, token1_decimals, first_seen_block, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
			ON CONFLICT (pool_address)
			DO UPDATE SET
				token0 = EXCLUDED.token0,
				token1 = EXCLUDED.token1,
				token0_symbol = EXCLUDED.token0_symbol,
				token1_symbol = EXCLUDED.token1_symbol,
				token0_decimals = EXCLUDED.token0_decimals,
				token1_decimals = EXCLUDED.token1_decimals,
				first_seen_block = LEAST(pools.first_seen_block, EXCLUDED.first_seen_block),
				updated_at = now()
		`,
			pool.Address,
			pool.Token0,
			pool.Token1,
			pool.Token0Symbol,
			pool.Token1Symbol,
			int16(pool.Token0Decimals),
			int16(pool.Token1Decimals),
			int64(pool.FirstSeenBlock),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// InsertPrices stores priced events; replays of the same log are ignored.
func (s *Store) InsertPrices(ctx context.Context, results []model.PriceResult) error {
	if len(results) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range results {
		batch.Queue(`
			INSERT INTO pool_prices (
				tx_hash, log_index, block_number, pool_address, pair, variant, price, observed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8)
			ON CONFLICT (tx_hash, log_index) DO NOTHING
		`,
			r.TxHash,
			int64(r.LogIndex),
			int64(r.BlockNumber),
			r.Pool,
			r.Pair,
			string(r.Variant),
			r.Price.String(),
			r.Timestamp,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range results {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
