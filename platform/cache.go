package platform

import (
	"context"
	"time"

	"github.com/kbukum/transcriptcheck/logger"
	"github.com/kbukum/transcriptcheck/redis"
)

// MetadataSource supplies video metadata.
type MetadataSource interface {
	Metadata(ctx context.Context, videoID string) (*Metadata, error)
}

// CachedMetadata is a read-through redis cache in front of a MetadataSource.
// Cache failures are logged and bypassed; they never fail a lookup.
type CachedMetadata struct {
	source MetadataSource
	store  *redis.TypedStore[Metadata]
	ttl    time.Duration
	log    *logger.Logger
}

// NewCachedMetadata wraps source. Entries live for ttl (0 keeps them forever).
func NewCachedMetadata(source MetadataSource, client *redis.Client, ttl time.Duration, log *logger.Logger) *CachedMetadata {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &CachedMetadata{
		source: source,
		store:  redis.NewTypedStore[Metadata](client, "metadata"),
		ttl:    ttl,
		log:    log.WithComponent("platform.cache"),
	}
}

func (c *CachedMetadata) Metadata(ctx context.Context, videoID string) (*Metadata, error) {
	cached, err := c.store.Load(ctx, videoID)
	if err != nil {
		c.log.Warn("metadata cache read failed", logger.MergeWithError(logger.Fields(logger.FieldVideoID, videoID), err))
	}
	if cached != nil {
		return cached, nil
	}

	md, err := c.source.Metadata(ctx, videoID)
	if err != nil {
		return nil, err
	}
	// Unknown durations are not cached so a later lookup can pick one up.
	if md.Duration > 0 {
		if err := c.store.Save(ctx, videoID, md, c.ttl); err != nil {
			c.log.Warn("metadata cache write failed", logger.MergeWithError(logger.Fields(logger.FieldVideoID, videoID), err))
		}
	}
	return md, nil
}

// Invalidate drops the cached entry for videoID.
func (c *CachedMetadata) Invalidate(ctx context.Context, videoID string) error {
	return c.store.Delete(ctx, videoID)
}
