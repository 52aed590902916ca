// Package kv provides the coordinator's key-value abstraction: usage
// counters, rollups, and skill-breakdown scans all go through this port so
// the token tracker and skills manager never depend on Redis directly.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("kv: key not found")

// Store is the key-value port the token tracker, skills manager, and
// coordinator depend on. Get/Set/Delete/Exists/Flush/Close mirror the
// teacher's original Cache contract; Incr/IncrByFloat/Keys are additions
// this spec needs for usage counters and day-scoped rollup scans.
type Store interface {
	// Get retrieves a value into dest. Returns ErrNotFound if the key is
	// absent.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set stores a value with an optional TTL (zero means no expiration).
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Exists reports whether a key is present.
	Exists(ctx context.Context, key string) (bool, error)
	// Incr atomically increments an integer counter and returns its new
	// value, creating the key at 0 first if absent.
	Incr(ctx context.Context, key string, delta int64) (int64, error)
	// IncrByFloat atomically increments a float counter and returns its
	// new value.
	IncrByFloat(ctx context.Context, key string, delta float64) (float64, error)
	// Keys returns all keys matching a glob-style pattern (e.g.
	// "daily_tokens_by_skill:2026-07-30:*").
	Keys(ctx context.Context, pattern string) ([]string, error)
	// Flush clears every key the store holds.
	Flush(ctx context.Context) error
	// Close releases the underlying connection.
	Close() error
}

// Error represents a kv-layer error not otherwise classified.
type Error struct {
	Message string
}

func (e Error) Error() string {
	return e.Message
}

// RedisConfig configures the Redis-backed Store.
type RedisConfig struct {
	Address      string        `mapstructure:"address" json:"address"`
	Password     string        `mapstructure:"password" json:"password"`
	Username     string        `mapstructure:"username" json:"username"`
	Database     int           `mapstructure:"database" json:"database"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" json:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" json:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size" json:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns" json:"min_idle_conns"`
	MaxRetries   int           `mapstructure:"max_retries" json:"max_retries"`
	UseTLS       bool          `mapstructure:"use_tls" json:"use_tls"`
}

// WithDefaults fills zero-valued timeout/pool fields with sane production
// defaults, preserving whatever address/credentials the caller already set.
func (c RedisConfig) WithDefaults() RedisConfig {
	result := c
	if result.DialTimeout == 0 {
		result.DialTimeout = 5 * time.Second
	}
	if result.ReadTimeout == 0 {
		result.ReadTimeout = 3 * time.Second
	}
	if result.WriteTimeout == 0 {
		result.WriteTimeout = 3 * time.Second
	}
	if result.PoolSize == 0 {
		result.PoolSize = 10
	}
	if result.MinIdleConns == 0 {
		result.MinIdleConns = 2
	}
	if result.MaxRetries == 0 {
		result.MaxRetries = 3
	}
	return result
}
