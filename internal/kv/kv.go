package kv

import (
	"context"
	"errors"
)

// Store is the narrow key/value capability injected into the discount engine
// and the receipt ledger. Values are opaque strings; the caller owns the
// serialization.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

var ErrKeyNotFound = errors.New("key not found")
