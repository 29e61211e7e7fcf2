package ledger

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kbukum/transcriptcheck/logger"
	"github.com/kbukum/transcriptcheck/resilience"
)

const writeBatchSize = 100

// chunkRecord is the gorm model of a ledger row.
type chunkRecord struct {
	ID         uint      `gorm:"column:id;primaryKey"`
	Type       string    `gorm:"column:type"`
	VideoID    string    `gorm:"column:video_id"`
	ChunkStart float64   `gorm:"column:chunk_start"`
	CID        string    `gorm:"column:cid"`
	ContentKey string    `gorm:"column:content_key"`
	Content    string    `gorm:"column:content"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (r chunkRecord) row() Row {
	return Row{
		Type:       r.Type,
		VideoID:    r.VideoID,
		ChunkStart: r.ChunkStart,
		CID:        r.CID,
		ContentKey: r.ContentKey,
		Content:    r.Content,
	}
}

// OpenSQLite opens the sqlite ledger with connection retries and applies
// the embedded migrations.
func OpenSQLite(ctx context.Context, cfg Config, log *logger.Logger) (*gorm.DB, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slowThreshold, _ := time.ParseDuration(cfg.SlowQueryThreshold)
	gormCfg := &gorm.Config{
		Logger: newGormLogger(log, slowThreshold, parseLogLevel(cfg.LogLevel)),
	}

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.MaxAttempts = cfg.MaxRetries
	retryCfg.InitialBackoff = time.Second
	retryCfg.RetryIf = func(error) bool { return true }
	retryCfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		log.Warn("ledger connection attempt failed, retrying", logger.MergeWithError(
			logger.Fields("attempt", attempt, "backoff", backoff.String()), err))
	}

	db, err := resilience.Retry(ctx, retryCfg, func() (*gorm.DB, error) {
		db, err := gorm.Open(sqlite.Open(cfg.DSN), gormCfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			sqlDB.Close() //nolint:errcheck
			return nil, err
		}
		// sqlite serialises writers; one connection avoids "database is locked".
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	})
	if err != nil {
		return nil, FromDatabase(fmt.Errorf("connect ledger after %d attempts: %w", cfg.MaxRetries, err), "ledger")
	}

	if err := Migrate(db, cfg.Table); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close() //nolint:errcheck
		}
		return nil, FromDatabase(err, "ledger")
	}

	log.Info("ledger connection established", logger.Fields("driver", cfg.Driver, "table", cfg.Table))
	return db, nil
}

// GormStore implements Store with gorm.
type GormStore struct {
	db       *gorm.DB
	table    string
	interval float64
}

// NewGormStore creates a store over an open database. interval is the chunk
// length used by the overlap query.
func NewGormStore(db *gorm.DB, table string, interval float64) *GormStore {
	if table == "" {
		table = DefaultTable
	}
	return &GormStore{db: db, table: table, interval: interval}
}

// WriteIndices upserts rows by content key inside one transaction.
func (s *GormStore) WriteIndices(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	records := make([]chunkRecord, len(rows))
	for i, r := range rows {
		records[i] = chunkRecord{
			Type:       r.Type,
			VideoID:    r.VideoID,
			ChunkStart: r.ChunkStart,
			CID:        r.CID,
			ContentKey: r.ContentKey,
			Content:    r.Content,
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Table(s.table).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "content_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"type", "video_id", "chunk_start", "cid", "content"}),
			}).
			CreateInBatches(&records, writeBatchSize).Error
	})
	return FromDatabase(err, "ledger row")
}

// LoadIndexWithVideo returns the rows of videoID overlapping the window at chunkStart.
func (s *GormStore) LoadIndexWithVideo(ctx context.Context, videoID string, chunkStart float64) ([]Row, error) {
	lower, upper := overlapBounds(chunkStart, s.interval)

	var records []chunkRecord
	err := s.db.WithContext(ctx).Table(s.table).
		Where("video_id = ? AND chunk_start > ? AND chunk_start <= ?", videoID, lower, upper).
		Order("chunk_start ASC").
		Find(&records).Error
	if err != nil {
		return nil, FromDatabase(err, "ledger row")
	}

	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = r.row()
	}
	return rows, nil
}

// LoadIndex lists every row with content, oldest first.
func (s *GormStore) LoadIndex(ctx context.Context) ([]Index, error) {
	var records []chunkRecord
	err := s.db.WithContext(ctx).Table(s.table).
		Where("content <> ''").
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, FromDatabase(err, "ledger row")
	}

	out := make([]Index, len(records))
	for i, r := range records {
		out[i] = r.row().Index()
	}
	return out, nil
}

var _ Store = (*GormStore)(nil)
