// Package storage holds the object storage layer behind the content store.
//
// Published transcript chunks are written once and addressed by the sha256
// of their bytes. ContentStore maps a CID to an object key under the
// configured prefix and delegates the bytes to a Storage backend.
//
// # Backends
//
//   - storage/local: local filesystem, used in development and tests
//   - storage/s3: Amazon S3 and S3-compatible services (MinIO)
//
// Backends register themselves with RegisterFactory from an init function,
// so the binary imports them for side effects:
//
//	import _ "github.com/kbukum/transcriptcheck/storage/local"
//
// # Configuration
//
//	storage:
//	  provider: "s3"
//	  bucket: "chunks"
//	  region: "us-east-1"
//	  prefix: "chunks"
package storage
