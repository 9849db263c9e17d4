package cache

import (
	"context"
	"encoding"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("key not found in cache")
	ErrInvalidValue = errors.New("invalid value for cache")
	ErrClosed       = errors.New("cache is closed")
	ErrInvalidKey   = errors.New("invalid cache key")
)

// Cache stores encoded API responses between runs. Values must implement
// encoding.BinaryMarshaler on Set and encoding.BinaryUnmarshaler on Get, or
// be a string.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	Get(ctx context.Context, key string, value interface{}) error

	Delete(ctx context.Context, key string) error

	Clear(ctx context.Context) error

	Close() error
}

type Options struct {
	DefaultTTL time.Duration

	KeyPrefix string

	// Size bounds the in-memory cache; ignored by Redis.
	Size int

	RedisURL string

	RedisPassword string

	RedisDB int
}

func DefaultOptions() Options {
	return Options{
		DefaultTTL: 24 * time.Hour,
		KeyPrefix:  "tradewages:",
		Size:       1024,
	}
}

// Key joins parts with ':' after validating that none is empty.
func Key(parts ...string) (string, error) {
	for _, p := range parts {
		if p == "" {
			return "", ErrInvalidKey
		}
	}
	return strings.Join(parts, ":"), nil
}

// Encode turns a cacheable value into bytes.
func Encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case encoding.BinaryMarshaler:
		return v.MarshalBinary()
	default:
		return nil, ErrInvalidValue
	}
}

// Decode writes data into value, which must be a *string or a
// BinaryUnmarshaler.
func Decode(data []byte, value interface{}) error {
	switch v := value.(type) {
	case *string:
		*v = string(data)
	case encoding.BinaryUnmarshaler:
		return v.UnmarshalBinary(data)
	default:
		return ErrInvalidValue
	}
	return nil
}
