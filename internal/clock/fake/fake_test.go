package fake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTickDeliversAndAdvances(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := New(start)
	ticker := clk.NewTicker(2 * time.Second)

	got := make(chan time.Time, 1)
	go func() { got <- <-ticker.C() }()

	require.NoError(t, clk.Tick(context.Background()))
	require.Equal(t, start.Add(2*time.Second), <-got)
	require.Equal(t, start.Add(2*time.Second), clk.Now())
}

func TestTickWithoutTicker(t *testing.T) {
	t.Parallel()

	clk := New(time.Time{})
	err := clk.Tick(context.Background())
	require.True(t, errors.Is(err, ErrNoTicker))

	ticker := clk.NewTicker(time.Second)
	ticker.Stop()
	ticker.Stop()
	err = clk.Tick(context.Background())
	require.True(t, errors.Is(err, ErrNoTicker))
	require.Len(t, clk.Tickers(), 1)
}

func TestTickHonorsContext(t *testing.T) {
	t.Parallel()

	clk := New(time.Time{})
	clk.NewTicker(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := clk.Tick(ctx)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestAdvance(t *testing.T) {
	t.Parallel()

	clk := New(time.Unix(0, 0))
	clk.Advance(time.Minute)
	require.Equal(t, time.Unix(60, 0), clk.Now())
}
