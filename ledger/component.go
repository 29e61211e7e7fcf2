package ledger

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/kbukum/transcriptcheck/component"
	"github.com/kbukum/transcriptcheck/logger"
)

// Component opens the configured ledger backend and exposes it as a Store.
type Component struct {
	cfg      Config
	interval float64
	log      *logger.Logger

	store    Store
	gormDB   *gorm.DB
	postgres *PostgresStore
}

// NewComponent creates a ledger component. interval is the chunk length in seconds.
func NewComponent(cfg Config, interval float64, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, interval: interval, log: log.WithComponent("ledger")}
}

// Store returns the ledger, or nil if not started.
func (c *Component) Store() Store { return c.store }

// Name returns the component name.
func (c *Component) Name() string { return "ledger" }

// Start connects to the backend selected by the driver.
func (c *Component) Start(ctx context.Context) error {
	switch c.cfg.Driver {
	case DriverPostgres:
		s, err := OpenPostgres(ctx, c.cfg, c.interval, c.log)
		if err != nil {
			return fmt.Errorf("ledger start: %w", err)
		}
		c.postgres = s
		c.store = s
	default:
		db, err := OpenSQLite(ctx, c.cfg, c.log)
		if err != nil {
			return fmt.Errorf("ledger start: %w", err)
		}
		c.gormDB = db
		c.store = NewGormStore(db, c.cfg.Table, c.interval)
	}
	return nil
}

// Stop closes the connection.
func (c *Component) Stop(_ context.Context) error {
	c.store = nil
	if c.postgres != nil {
		c.postgres.Close()
		c.postgres = nil
	}
	if c.gormDB != nil {
		sqlDB, err := c.gormDB.DB()
		c.gormDB = nil
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// Health pings the backend.
func (c *Component) Health(ctx context.Context) component.Health {
	var err error
	switch {
	case c.postgres != nil:
		err = c.postgres.Ping(ctx)
	case c.gormDB != nil:
		sqlDB, dbErr := c.gormDB.DB()
		if dbErr != nil {
			err = dbErr
		} else {
			err = sqlDB.PingContext(ctx)
		}
	default:
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "ledger not initialized"}
	}
	if err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: fmt.Sprintf("ping failed: %v", err)}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe returns the startup summary line.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Ledger",
		Type:    "ledger",
		Details: fmt.Sprintf("driver=%s table=%s interval=%gs", c.cfg.Driver, c.cfg.Table, c.interval),
	}
}

var _ component.Component = (*Component)(nil)
