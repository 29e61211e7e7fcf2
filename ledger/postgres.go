package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kbukum/transcriptcheck/logger"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool     *pgxpool.Pool
	table    string
	interval float64
	log      *logger.Logger
}

// OpenPostgres connects to PostgreSQL and ensures the ledger table exists.
func OpenPostgres(ctx context.Context, cfg Config, interval float64, log *logger.Logger) (*PostgresStore, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, FromDatabase(fmt.Errorf("parse dsn: %w", err), "ledger")
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, FromDatabase(fmt.Errorf("connect to postgres: %w", err), "ledger")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, FromDatabase(fmt.Errorf("ping postgres: %w", err), "ledger")
	}

	s := &PostgresStore{pool: pool, table: cfg.Table, interval: interval, log: log.WithComponent("ledger")}
	if err := s.ensureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	s.log.Info("ledger connection established", logger.Fields("driver", DriverPostgres, "table", cfg.Table))
	return s, nil
}

func (s *PostgresStore) ident() string {
	return pgx.Identifier{s.table}.Sanitize()
}

func (s *PostgresStore) ensureTable(ctx context.Context) error {
	table := s.ident()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + table + ` (
			id          BIGSERIAL PRIMARY KEY,
			type        TEXT             NOT NULL,
			video_id    TEXT             NOT NULL,
			chunk_start DOUBLE PRECISION NOT NULL,
			cid         TEXT             NOT NULL,
			content_key TEXT             NOT NULL UNIQUE,
			content     TEXT             NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ      NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS ` + pgx.Identifier{"idx_" + s.table + "_video_chunk"}.Sanitize() +
			` ON ` + table + ` (video_id, chunk_start)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return FromDatabase(fmt.Errorf("create ledger table: %w", err), "ledger")
		}
	}
	return nil
}

// WriteIndices upserts rows by content key in one transaction using a pgx batch.
func (s *PostgresStore) WriteIndices(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return FromDatabase(err, "ledger row")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `INSERT INTO ` + s.ident() + ` (type, video_id, chunk_start, cid, content_key, content)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (content_key) DO UPDATE SET
			type = EXCLUDED.type,
			video_id = EXCLUDED.video_id,
			chunk_start = EXCLUDED.chunk_start,
			cid = EXCLUDED.cid,
			content = EXCLUDED.content`

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(query, r.Type, r.VideoID, r.ChunkStart, r.CID, r.ContentKey, r.Content)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return FromDatabase(fmt.Errorf("write ledger batch: %w", err), "ledger row")
	}
	if err := tx.Commit(ctx); err != nil {
		return FromDatabase(fmt.Errorf("commit ledger batch: %w", err), "ledger row")
	}
	return nil
}

// LoadIndexWithVideo returns the rows of videoID overlapping the window at chunkStart.
func (s *PostgresStore) LoadIndexWithVideo(ctx context.Context, videoID string, chunkStart float64) ([]Row, error) {
	lower, upper := overlapBounds(chunkStart, s.interval)
	rows, err := s.pool.Query(ctx,
		`SELECT type, video_id, chunk_start, cid, content_key, content FROM `+s.ident()+`
		 WHERE video_id = $1 AND chunk_start > $2 AND chunk_start <= $3
		 ORDER BY chunk_start ASC`,
		videoID, lower, upper)
	if err != nil {
		return nil, FromDatabase(err, "ledger row")
	}
	out, err := pgx.CollectRows(rows, scanRow)
	if err != nil {
		return nil, FromDatabase(err, "ledger row")
	}
	return out, nil
}

// LoadIndex lists every row with content, oldest first.
func (s *PostgresStore) LoadIndex(ctx context.Context) ([]Index, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT type, video_id, chunk_start, cid, content_key, content FROM `+s.ident()+`
		 WHERE content <> '' ORDER BY id ASC`)
	if err != nil {
		return nil, FromDatabase(err, "ledger row")
	}
	records, err := pgx.CollectRows(rows, scanRow)
	if err != nil {
		return nil, FromDatabase(err, "ledger row")
	}
	out := make([]Index, len(records))
	for i, r := range records {
		out[i] = r.Index()
	}
	return out, nil
}

// Ping checks the pool.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func scanRow(row pgx.CollectableRow) (Row, error) {
	var r Row
	err := row.Scan(&r.Type, &r.VideoID, &r.ChunkStart, &r.CID, &r.ContentKey, &r.Content)
	return r, err
}

var _ Store = (*PostgresStore)(nil)
