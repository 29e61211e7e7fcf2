package storage

import (
	"context"
	"fmt"

	"github.com/kbukum/transcriptcheck/component"
	"github.com/kbukum/transcriptcheck/logger"
)

// Component wraps the storage backend and the content store for lifecycle management.
type Component struct {
	cfg     Config
	log     *logger.Logger
	storage Storage
	cas     *CAS
}

// NewComponent creates a storage component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("storage")}
}

// Storage returns the underlying backend, or nil if not started.
func (c *Component) Storage() Storage { return c.storage }

// ContentStore returns the content store, or nil if not started.
func (c *Component) ContentStore() *CAS { return c.cas }

// Name returns the component name.
func (c *Component) Name() string { return "storage" }

// Start initializes the storage backend.
func (c *Component) Start(_ context.Context) error {
	s, err := New(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("storage start: %w", err)
	}
	c.storage = s
	c.cas = NewCAS(s, c.cfg.Prefix)
	return nil
}

// Stop releases the backend.
func (c *Component) Stop(_ context.Context) error {
	c.storage = nil
	c.cas = nil
	return nil
}

// Health probes the backend with an existence check.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.storage == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "storage not initialized"}
	}
	if _, err := c.storage.Exists(ctx, c.cas.Key(".health")); err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: fmt.Sprintf("health probe failed: %v", err)}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe returns the startup summary line.
func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("provider=%s prefix=%s", c.cfg.Provider, c.cfg.Prefix)
	switch c.cfg.Provider {
	case ProviderS3:
		details += fmt.Sprintf(" bucket=%s", c.cfg.Bucket)
	case ProviderLocal:
		details += fmt.Sprintf(" path=%s", c.cfg.BasePath)
	}
	return component.Description{Name: "Content store", Type: "storage", Details: details}
}

var _ component.Component = (*Component)(nil)
