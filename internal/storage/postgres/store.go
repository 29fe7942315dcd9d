package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"coverSwap/internal/model"
)

// Schema creates the plan history tables.
const Schema = `
CREATE TABLE IF NOT EXISTS plans (
	id TEXT PRIMARY KEY,
	chain_id BIGINT NOT NULL,
	block_number BIGINT NOT NULL,
	action TEXT NOT NULL,
	holder TEXT,
	source TEXT NOT NULL,
	target TEXT,
	symmetric_redeem NUMERIC,
	paired_recovered NUMERIC,
	mint_amount NUMERIC,
	paired_spent NUMERIC,
	capped BOOLEAN NOT NULL DEFAULT false,
	body JSONB NOT NULL,
	calldata TEXT,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS pool_snapshots (
	chain_id BIGINT NOT NULL,
	pool_address TEXT NOT NULL,
	block_number BIGINT NOT NULL,
	reserve_a NUMERIC NOT NULL,
	reserve_b NUMERIC NOT NULL,
	weight_a NUMERIC NOT NULL,
	weight_b NUMERIC NOT NULL,
	swap_fee NUMERIC NOT NULL,
	total_shares NUMERIC NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, pool_address, block_number)
);
`

// Store provides Postgres persistence for plans and pool snapshots.
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

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

// PutPlan stores the plan and the pool snapshots it was computed from in one
// batch.
func (s *Store) PutPlan(ctx context.Context, record model.PlanRecord) error {
	row, err := newPlanRow(record)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO plans (
			id, chain_id, block_number, action, holder, source, target,
			symmetric_redeem, paired_recovered, mint_amount, paired_spent, capped,
			body, calldata, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8::numeric,$9::numeric,$10::numeric,$11::numeric,$12,$13,$14,$15::timestamptz)
		ON CONFLICT (id) DO NOTHING
	`,
		row.ID,
		int64(record.ChainID),
		int64(record.BlockNumber),
		string(record.Action),
		nullable(record.Holder),
		record.Source,
		nullable(record.Target),
		row.SymmetricRedeem,
		row.PairedRecovered,
		row.MintAmount,
		row.PairedSpent,
		row.Capped,
		row.Body,
		nullable(record.Calldata),
		record.CreatedAt,
	)
	queuePoolSnapshots(batch, record.ChainID, record.Pools)

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("store plan %s: %w", record.ID, err)
		}
	}
	return nil
}

func queuePoolSnapshots(batch *pgx.Batch, chainID uint64, pools []model.PoolInfo) {
	for _, p := range pools {
		batch.Queue(`
			INSERT INTO pool_snapshots (
				chain_id, pool_address, block_number, reserve_a, reserve_b,
				weight_a, weight_b, swap_fee, total_shares, updated_at
			) VALUES ($1,$2,$3,$4::numeric,$5::numeric,$6::numeric,$7::numeric,$8::numeric,$9::numeric,now())
			ON CONFLICT (chain_id, pool_address, block_number)
			DO UPDATE SET
				reserve_a = EXCLUDED.reserve_a,
				reserve_b = EXCLUDED.reserve_b,
				weight_a = EXCLUDED.weight_a,
				weight_b = EXCLUDED.weight_b,
				swap_fee = EXCLUDED.swap_fee,
				total_shares = EXCLUDED.total_shares,
				updated_at = now()
		`,
			int64(chainID),
			p.Address,
			int64(p.BlockNumber),
			numeric(p.ReserveA),
			numeric(p.ReserveB),
			numeric(p.WeightA),
			numeric(p.WeightB),
			numeric(p.SwapFee),
			numeric(p.TotalShares),
		)
	}
}

type planRow struct {
	ID              string
	SymmetricRedeem *string
	PairedRecovered *string
	MintAmount      *string
	PairedSpent     *string
	Capped          bool
	Body            []byte
}

func newPlanRow(record model.PlanRecord) (planRow, error) {
	if record.ID == "" {
		return planRow{}, fmt.Errorf("plan id is required")
	}
	body, err := json.Marshal(record)
	if err != nil {
		return planRow{}, fmt.Errorf("marshal plan %s: %w", record.ID, err)
	}
	row := planRow{ID: record.ID, Body: body}
	if record.Redeem != nil {
		row.SymmetricRedeem = nullableNumeric(record.Redeem.SymmetricRedeemAmount)
		row.PairedRecovered = nullableNumeric(record.Redeem.PairedTokenRecovered)
	}
	if record.Mint != nil {
		row.MintAmount = nullableNumeric(record.Mint.MintAmount)
		row.PairedSpent = nullableNumeric(record.Mint.TotalPaired())
		row.Capped = record.Mint.Capped
	}
	return row, nil
}

func numeric(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func nullableNumeric(v *big.Int) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
