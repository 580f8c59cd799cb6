// Package state holds the ephemeral per-session game state. Every key is
// namespaced by the session pin and expires with the session TTL.
package state

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by every operation on a pin without state.
	ErrNotFound = errors.New("state: session not found")
	// ErrConflict is returned by IncrementIf when Cond.Expect does not hold.
	ErrConflict = errors.New("state: value changed concurrently")
	// ErrPrecondition is returned by IncrementIf when a Cond.Require field
	// does not hold the required value.
	ErrPrecondition = errors.New("state: precondition failed")
)

// Cond constrains IncrementIf. All checks and writes happen in one atomic
// step together with the increment.
type Cond struct {
	// Expect, when set, is the value the counter must currently hold.
	Expect *int64
	// Require lists fields of the main hash that must hold these values.
	Require map[string]string
	// Set lists fields written alongside the increment.
	Set map[string]string
}

// Store is the namespaced key/value surface of the live game. The main
// hash of a pin holds scalar fields; subkeys address companion hashes
// such as per-player scores or per-question answers.
type Store interface {
	Create(ctx context.Context, pin string, fields map[string]string) error

	Get(ctx context.Context, pin, field string) (string, error)
	GetAll(ctx context.Context, pin string) (map[string]string, error)
	Set(ctx context.Context, pin string, fields map[string]string) error
	Increment(ctx context.Context, pin, field string, delta int64) (int64, error)
	IncrementIf(ctx context.Context, pin, field string, delta int64, cond Cond) (int64, error)

	HashSet(ctx context.Context, pin, subkey string, fields map[string]string) error
	HashDelete(ctx context.Context, pin, subkey string, fields ...string) error
	HashGet(ctx context.Context, pin, subkey, field string) (string, bool, error)
	HashGetAll(ctx context.Context, pin, subkey string) (map[string]string, error)
	HashGetAllMany(ctx context.Context, pin string, subkeys ...string) ([]map[string]string, error)

	// ClaimAndIncrement writes claimValue under field in claimSubkey only
	// if the field is absent and, when it was written, adds delta to field
	// in counterSubkey. It reports whether the claim was won and the
	// counter's resulting value.
	ClaimAndIncrement(ctx context.Context, pin, claimSubkey, field, claimValue, counterSubkey string, delta int64) (bool, int64, error)
}
