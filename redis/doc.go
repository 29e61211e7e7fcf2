// Package redis wraps go-redis with the service logger, configuration and
// component lifecycle. The only consumer is the platform metadata cache,
// which stores video metadata as JSON through TypedStore:
//
//	store := redis.NewTypedStore[platform.Metadata](client, "metadata")
//	meta, err := store.Load(ctx, videoID) // nil, nil on a miss
package redis
