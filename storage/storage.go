package storage

import "errors"

// ErrNotFound is returned by Get when no value is persisted under the key.
var ErrNotFound = errors.New("storage: key not found")

// Store is a minimal key-value port over a named key. Implementations are
// expected to be durable (file, redis) or deliberately not (memory, used in
// tests). Operations are synchronous; none of them suspend on a caller
// context.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}
