package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillgate/internal/ratelimit/store/client"
	"tillgate/pkg/platform/middleware/requesttime"
)

type failingStore struct {
	client.Store
}

func (f *failingStore) Sweep(context.Context, time.Duration) (int, error) {
	return 0, errors.New("sweep failed")
}

func TestRunOnce_EvictsIdleEntries(t *testing.T) {
	store := client.NewInMemoryStore()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	_, err := store.Admit(requesttime.WithTime(context.Background(), base), "10.4.0.1", time.Minute, 5, time.Minute)
	require.NoError(t, err)
	_, err = store.Admit(requesttime.WithTime(context.Background(), base.Add(5*time.Hour)), "10.4.0.2", time.Minute, 5, time.Minute)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(store, WithLogger(logger), WithRetention(2*time.Hour))

	removed, err := s.RunOnce(requesttime.WithTime(context.Background(), base.Add(5*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	n, _ := store.Len(context.Background())
	assert.Equal(t, 1, n)
}

func TestRunOnce_PropagatesStoreError(t *testing.T) {
	s := New(&failingStore{})
	_, err := s.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	store := client.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(store, WithLogger(logger), WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancel")
	}
}
