package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"path"
	"strings"

	apperrors "github.com/kbukum/transcriptcheck/errors"
	"github.com/kbukum/transcriptcheck/provider"
)

// CIDPrefix marks the hash function used to derive a content identifier.
const CIDPrefix = "sha256-"

// ContentStore is the content-addressed store published chunks live in.
type ContentStore interface {
	// Put stores data and returns its content identifier.
	Put(ctx context.Context, data []byte) (string, error)

	// Fetch returns the bytes stored under cid. A missing cid is NOT_FOUND.
	Fetch(ctx context.Context, cid string) ([]byte, error)
}

// CID returns the content identifier for data.
func CID(data []byte) string {
	sum := sha256.Sum256(data)
	return CIDPrefix + hex.EncodeToString(sum[:])
}

// ValidCID reports whether cid has the form produced by CID.
func ValidCID(cid string) bool {
	digest, ok := strings.CutPrefix(cid, CIDPrefix)
	if !ok || len(digest) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(digest)
	return err == nil
}

// CAS implements ContentStore on top of a Storage backend.
type CAS struct {
	store  Storage
	prefix string
}

// NewCAS creates a content store writing objects under prefix.
func NewCAS(store Storage, prefix string) *CAS {
	return &CAS{store: store, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for cid.
func (c *CAS) Key(cid string) string {
	if c.prefix == "" {
		return cid + ".json"
	}
	return path.Join(c.prefix, cid+".json")
}

// Put stores data under its CID. Content that is already present is not rewritten.
func (c *CAS) Put(ctx context.Context, data []byte) (string, error) {
	cid := CID(data)
	key := c.Key(cid)

	exists, err := c.store.Exists(ctx, key)
	if err != nil {
		return "", apperrors.ExternalServiceError("cas", err)
	}
	if exists {
		return cid, nil
	}
	if err := c.store.Upload(ctx, key, bytes.NewReader(data)); err != nil {
		return "", apperrors.ExternalServiceError("cas", err)
	}
	return cid, nil
}

// Fetch returns the bytes stored under cid and checks them against the digest.
func (c *CAS) Fetch(ctx context.Context, cid string) ([]byte, error) {
	if !ValidCID(cid) {
		return nil, apperrors.InvalidInput("cid", "must be sha256- followed by 64 hex characters")
	}

	rc, err := c.store.Download(ctx, c.Key(cid))
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
			return nil, apperrors.NotFound("chunk", cid)
		}
		return nil, apperrors.ExternalServiceError("cas", err)
	}
	defer rc.Close() //nolint:errcheck

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, apperrors.ExternalServiceError("cas", err)
	}
	if CID(data) != cid {
		return nil, apperrors.ExternalServiceError("cas", nil).
			WithDetail("cid", cid).
			WithDetail("reason", "content digest mismatch")
	}
	return data, nil
}

// Fetcher exposes Fetch as a request-response provider so callers can wrap
// it with logging and resilience middleware.
func (c *CAS) Fetcher() provider.RequestResponse[string, []byte] {
	return provider.Func("cas", c.Fetch)
}

var _ ContentStore = (*CAS)(nil)
