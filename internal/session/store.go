// Package session owns per-session conversation state. The hosting
// application injects a Store into the front ends; the dialog machine
// itself never holds state between turns.
//
// A store serializes access per session: two concurrent turns for the
// same session are applied one after the other, while different
// sessions proceed independently.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/tailortalk/tailortalk/internal/dialog"
)

// ErrClosed is returned by stores after Close.
var ErrClosed = errors.New("session: store is closed")

// Store keeps one dialog.State per session key.
type Store interface {
	// Update runs fn with exclusive access to the session's state,
	// creating the session on first use. Mutations fn makes are kept
	// when it returns nil and discarded when it returns an error.
	Update(ctx context.Context, id string, fn func(st *dialog.State) error) error

	// End discards a session's state. Ending an unknown session is not
	// an error.
	End(ctx context.Context, id string) error

	// Sweep drops sessions idle for longer than maxIdle and reports how
	// many were dropped.
	Sweep(ctx context.Context, maxIdle time.Duration) (int, error)

	// Close releases the store's resources.
	Close() error
}
