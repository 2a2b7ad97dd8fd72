// Package storage is the boundary to the object store that holds uploaded
// document images and live captures. The core only ever holds opaque
// references; retention and access control belong to the collaborator.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Ref is an opaque, content-addressed handle to a stored object. Sessions
// persist refs, never raw bytes.
type Ref string

// ComputeRef derives the content-addressed reference for a blob. Identical
// uploads map to the same ref, which makes client retries naturally
// idempotent.
func ComputeRef(data []byte) Ref {
	sum := sha256.Sum256(data)
	return Ref(hex.EncodeToString(sum[:]))
}

// ErrNotFound is returned when a ref does not resolve to an object.
var ErrNotFound = errors.New("object not found")

// Store is interface-driven so the in-memory backend can stand in for S3 in
// tests without rewiring business code.
type Store interface {
	// Put stores a blob and returns its reference.
	Put(ctx context.Context, data []byte, mediaType string) (Ref, error)
	// Get resolves a reference to the blob and its media type.
	Get(ctx context.Context, ref Ref) ([]byte, string, error)
}
