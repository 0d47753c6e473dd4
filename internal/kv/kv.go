// Package kv stores short-lived values such as OAuth state tokens.
package kv

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("kv: key not found")

type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Take returns the value and deletes the key in one step, so a value
	// can be consumed at most once. Missing or expired keys yield ErrNotFound.
	Take(ctx context.Context, key string) ([]byte, error)

	Ping(ctx context.Context) error

	Close() error
}
