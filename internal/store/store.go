// Package store provides Postgres persistence for tokens, pools, factory
// addresses, and opportunities, adapted from the teacher's
// internal/storage/postgres.Store upsert idiom (ON CONFLICT ... DO UPDATE)
// and generalized from metrics rows to this domain's four tables. Each row
// is written by its own statement; no pgx.Batch is used.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sentryx/internal/model"
)

// Store provides Postgres persistence for the tap/evaluator pipeline.
type Store struct {
	pool *pgxpool.Pool
}

// New opens a connection pool against dsn.
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("store: dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// GetToken looks up a cached token row by (chainId, address).
func (s *Store) GetToken(ctx context.Context, chainID uint64, address string) (model.TokenRecord, bool, error) {
	var rec model.TokenRecord
	row := s.pool.QueryRow(ctx, `
		SELECT chain_id, token_address, name, symbol, decimals
		FROM tokens WHERE chain_id=$1 AND token_address=$2
	`, int64(chainID), address)
	if err := row.Scan(&rec.ChainID, &rec.TokenAddress, &rec.Name, &rec.Symbol, &rec.Decimals); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TokenRecord{}, false, nil
		}
		return model.TokenRecord{}, false, fmt.Errorf("store: get token: %w", err)
	}
	return rec, true, nil
}

// UpsertToken writes a token row, idempotent on (chainId, address).
func (s *Store) UpsertToken(ctx context.Context, rec model.TokenRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tokens (chain_id, token_address, name, symbol, decimals, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (chain_id, token_address) DO UPDATE SET
			name = EXCLUDED.name,
			symbol = EXCLUDED.symbol,
			decimals = EXCLUDED.decimals,
			updated_at = now()
	`, int64(rec.ChainID), rec.TokenAddress, rec.Name, rec.Symbol, rec.Decimals)
	if err != nil {
		return fmt.Errorf("store: upsert token: %w", err)
	}
	return nil
}

// GetFactory looks up a cached factory row by (chainId, router).
func (s *Store) GetFactory(ctx context.Context, chainID uint64, router string) (model.FactoryRecord, bool, error) {
	var rec model.FactoryRecord
	row := s.pool.QueryRow(ctx, `
		SELECT chain_id, router, factory_address, wrapped_native_address, router_family
		FROM factory_addresses WHERE chain_id=$1 AND router=$2
	`, int64(chainID), router)
	if err := row.Scan(&rec.ChainID, &rec.Router, &rec.FactoryAddress, &rec.WrappedNativeAddress, &rec.RouterFamily); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.FactoryRecord{}, false, nil
		}
		return model.FactoryRecord{}, false, fmt.Errorf("store: get factory: %w", err)
	}
	return rec, true, nil
}

// UpsertFactory writes a factory row, idempotent on (chainId, router).
func (s *Store) UpsertFactory(ctx context.Context, rec model.FactoryRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO factory_addresses (chain_id, router, factory_address, wrapped_native_address, router_family, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (chain_id, router) DO UPDATE SET
			factory_address = EXCLUDED.factory_address,
			wrapped_native_address = EXCLUDED.wrapped_native_address,
			router_family = EXCLUDED.router_family,
			updated_at = now()
	`, int64(rec.ChainID), rec.Router, rec.FactoryAddress, rec.WrappedNativeAddress, rec.RouterFamily)
	if err != nil {
		return fmt.Errorf("store: upsert factory: %w", err)
	}
	return nil
}

// FindPool looks up a cached pool row by (chainId, token0, token1, family),
// the fallback path used when an on-chain pool lookup times out.
func (s *Store) FindPool(ctx context.Context, chainID uint64, token0, token1, family string) (model.PoolRecord, bool, error) {
	var rec model.PoolRecord
	row := s.pool.QueryRow(ctx, `
		SELECT chain_id, pool_address, token0, token1, "exists", router_family, fee
		FROM pools WHERE chain_id=$1 AND token0=$2 AND token1=$3 AND router_family=$4
	`, int64(chainID), token0, token1, family)
	if err := row.Scan(&rec.ChainID, &rec.PoolAddress, &rec.Token0, &rec.Token1, &rec.Exists, &rec.RouterFamily, &rec.Fee); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PoolRecord{}, false, nil
		}
		return model.PoolRecord{}, false, fmt.Errorf("store: find pool: %w", err)
	}
	return rec, true, nil
}

// UpsertPool writes a pool row, idempotent on (chainId, poolAddress).
func (s *Store) UpsertPool(ctx context.Context, rec model.PoolRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pools (chain_id, pool_address, token0, token1, "exists", router_family, fee, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (chain_id, pool_address) DO UPDATE SET
			token0 = EXCLUDED.token0,
			token1 = EXCLUDED.token1,
			"exists" = EXCLUDED."exists",
			router_family = EXCLUDED.router_family,
			fee = EXCLUDED.fee,
			updated_at = now()
	`, int64(rec.ChainID), rec.PoolAddress, rec.Token0, rec.Token1, rec.Exists, rec.RouterFamily, rec.Fee)
	if err != nil {
		return fmt.Errorf("store: upsert pool: %w", err)
	}
	return nil
}

// UpsertOpportunity writes one opportunity row, idempotent on
// (chainId, txHash). Only called when the evaluator returns isOpportunity.
func (s *Store) UpsertOpportunity(ctx context.Context, opp model.Opportunity) error {
	metadata, err := json.Marshal(opp.Metadata)
	if err != nil {
		return fmt.Errorf("store: marshal metadata: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO opportunities (
			chain_id, tx_hash, router, router_family, token_in, token_out,
			amount_in, amount_out, amount_out_min, fee, pool_address, method,
			recipient, deadline, block_number, status, metadata, detected_at, processed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		ON CONFLICT (chain_id, tx_hash) DO UPDATE SET
			amount_out = EXCLUDED.amount_out,
			status = EXCLUDED.status,
			metadata = EXCLUDED.metadata,
			block_number = EXCLUDED.block_number,
			processed_at = EXCLUDED.processed_at
	`,
		int64(opp.ChainID), opp.TxHash, opp.Router, opp.RouterFamily,
		opp.TokenIn, opp.TokenOut, opp.AmountIn, opp.AmountOut, opp.AmountOutMin,
		opp.Fee, opp.PoolAddress, opp.Method, opp.Recipient, opp.Deadline,
		opp.BlockNumber, opp.Status, metadata, opp.DetectedAt, opp.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("store: upsert opportunity: %w", err)
	}
	return nil
}

// ListOpportunities serves internal/httpapi's paginated listing endpoint.
func (s *Store) ListOpportunities(ctx context.Context, chainID *uint64, status string, limit, offset int) ([]model.Opportunity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, chain_id, tx_hash, router, router_family, token_in, token_out,
			amount_in, amount_out, amount_out_min, fee, pool_address, method,
			recipient, deadline, block_number, status, metadata, detected_at, processed_at
		FROM opportunities
		WHERE ($1::bigint IS NULL OR chain_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY detected_at DESC
		LIMIT $3 OFFSET $4
	`, chainIDParam(chainID), status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: list opportunities: %w", err)
	}
	defer rows.Close()

	var out []model.Opportunity
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan opportunity: %w", err)
		}
		out = append(out, opp)
	}
	return out, rows.Err()
}

// rowScanner covers both pgx.Rows and pgx.Row for the shared scan helper.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOpportunity(row rowScanner) (model.Opportunity, error) {
	var opp model.Opportunity
	var metadata []byte
	if err := row.Scan(
		&opp.ID, &opp.ChainID, &opp.TxHash, &opp.Router, &opp.RouterFamily,
		&opp.TokenIn, &opp.TokenOut, &opp.AmountIn, &opp.AmountOut, &opp.AmountOutMin,
		&opp.Fee, &opp.PoolAddress, &opp.Method, &opp.Recipient, &opp.Deadline,
		&opp.BlockNumber, &opp.Status, &metadata, &opp.DetectedAt, &opp.ProcessedAt,
	); err != nil {
		return model.Opportunity{}, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &opp.Metadata); err != nil {
			return model.Opportunity{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return opp, nil
}

// GetOpportunity serves internal/httpapi's single-record lookup endpoint.
func (s *Store) GetOpportunity(ctx context.Context, chainID uint64, txHash string) (model.Opportunity, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, chain_id, tx_hash, router, router_family, token_in, token_out,
			amount_in, amount_out, amount_out_min, fee, pool_address, method,
			recipient, deadline, block_number, status, metadata, detected_at, processed_at
		FROM opportunities WHERE chain_id=$1 AND tx_hash=$2
	`, int64(chainID), txHash)
	opp, err := scanOpportunity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Opportunity{}, false, nil
		}
		return model.Opportunity{}, false, fmt.Errorf("store: get opportunity: %w", err)
	}
	return opp, true, nil
}

// DeleteExpired removes opportunities whose status is Expired.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM opportunities WHERE status = $1`, model.StatusExpired)
	if err != nil {
		return 0, fmt.Errorf("store: delete expired: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeletePendingUnconditional removes every row still in Pending status,
// regardless of age — spec §4.8's unconditional pending purge.
func (s *Store) DeletePendingUnconditional(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM opportunities WHERE status = $1`, model.StatusPending)
	if err != nil {
		return 0, fmt.Errorf("store: delete pending: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteDetectedWithStaleDeadline removes Detected rows whose deadline lies
// before nowUnix. The comparison runs in SQL by casting the deadline column
// to bigint; "now" is the caller-supplied nowUnix rather than a SQL time
// function, so the cleanup loop's notion of "now" is the one value used.
// metadata.isExpired is not consulted.
func (s *Store) DeleteDetectedWithStaleDeadline(ctx context.Context, nowUnix int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM opportunities WHERE status = $1 AND deadline::bigint < $2
	`, model.StatusDetected, nowUnix)
	if err != nil {
		return 0, fmt.Errorf("store: delete stale detected: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ping checks DB reachability for the HTTP healthz endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func chainIDParam(chainID *uint64) interface{} {
	if chainID == nil {
		return nil
	}
	return int64(*chainID)
}
