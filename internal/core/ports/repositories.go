package ports

import "context"

// KeyValueStore is the string-keyed persistence backend behind the anchor history
// and the privacy prompt flag.
type KeyValueStore interface {
	// GetString returns the value stored under key; ok is false when the key is absent.
	GetString(ctx context.Context, key string) (value string, ok bool, err error)
	SetString(ctx context.Context, key, value string) error
	HasKey(ctx context.Context, key string) (bool, error)
}
