// Package cache holds short-lived secrets, such as temporary passwords that
// wait for a school's registration payment.
package cache

import (
	"context"
	"errors"
	"time"
)

var ErrMiss = errors.New("cache: miss")

type Cache interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns ErrMiss for absent or expired keys.
	Get(ctx context.Context, key string) (string, error)
	// Take reads and removes a key in one step.
	Take(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

func TempPasswordKey(schoolID string) string {
	return "temp-password:school:" + schoolID
}
