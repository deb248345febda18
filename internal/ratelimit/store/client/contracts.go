// Package client stores per-address sliding window state for the admission
// layer. Keys are originating client addresses; values carry the window
// timestamps, any punitive block, and an idle marker used for eviction.
package client

import (
	"context"
	"time"

	"tillgate/internal/ratelimit/models"
)

// Store manages admission state per client address.
type Store interface {
	// Admit runs one admission check for address: honors an active block,
	// prunes the sliding window, imposes a punitive block when the window
	// fills, and otherwise records the request.
	Admit(ctx context.Context, address string, window time.Duration, maxRequests int, blockFor time.Duration) (*models.Result, error)

	// Reset unconditionally removes all state for an address.
	Reset(ctx context.Context, address string) error

	// ResetAll clears all admission state.
	ResetAll(ctx context.Context) error

	// ListBlocked enumerates currently blocked addresses with remaining cooldown.
	ListBlocked(ctx context.Context) ([]models.BlockedClient, error)

	// Sweep evicts entries idle for longer than retention, returning the
	// number removed.
	Sweep(ctx context.Context, retention time.Duration) (int, error)

	// Len returns the number of tracked addresses.
	Len(ctx context.Context) (int, error)
}
