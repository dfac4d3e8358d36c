package kv

import (
	"context"
	"errors"
)

// DefaultListLimit is the page size used when callers pass a non-positive
// limit to List.
const DefaultListLimit = 1000

var ErrKeyNotFound = errors.New("key not found")

// KeyInfo is what a namespace scan yields per key: the key name and the
// metadata attached at Put time. Values are not included; callers fetch
// them with Get when the metadata matches.
type KeyInfo struct {
	Name     string
	Metadata map[string]string
}

// ListResult is one page of a namespace scan. When Complete is false the
// caller must continue with Cursor; a partial drain is never a full count.
type ListResult struct {
	Keys     []KeyInfo
	Cursor   string
	Complete bool
}

// Store is a metadata-tagged key-value namespace. Metadata is attached to
// keys out of band and is visible during List without reading values, but
// it is not indexed: filtering by a metadata field means scanning every
// key under the prefix.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, metadata map[string]string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix, cursor string, limit int) (*ListResult, error)
}
