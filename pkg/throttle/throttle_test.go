package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	th := New()

	assert.Equal(t, 3, th.config.Limit)
	assert.Equal(t, time.Second, th.config.Interval)
}

func TestWaitSingleHost(t *testing.T) {
	th := NewWithConfig(ThrottleConfig{Limit: 3, Interval: 100 * time.Millisecond})

	start := time.Now()
	stamps := make([]time.Duration, 10)
	for i := range stamps {
		err := th.Wait(context.Background(), "export.arxiv.org")
		require.NoError(t, err)
		stamps[i] = time.Since(start)
	}

	// The first batch goes out immediately.
	assert.Less(t, stamps[2], 50*time.Millisecond)

	// Ten calls at 3 per 100ms need three full windows after the first batch.
	assert.GreaterOrEqual(t, stamps[9], 300*time.Millisecond)

	// Call k must trail call k-3 by at least one full interval, so no rolling
	// 100ms window ever holds more than 3 releases.
	for i := 3; i < len(stamps); i++ {
		assert.GreaterOrEqual(t, stamps[i]-stamps[i-3], 100*time.Millisecond,
			"calls %d and %d landed in the same window", i-3, i)
	}
	for i := range stamps {
		inWindow := 0
		for j := i; j < len(stamps); j++ {
			if stamps[j]-stamps[i] < 100*time.Millisecond {
				inWindow++
			}
		}
		assert.LessOrEqual(t, inWindow, 3, "window starting at call %d is over the limit", i)
	}
}

func TestHostsIndependent(t *testing.T) {
	th := NewWithConfig(ThrottleConfig{Limit: 1, Interval: time.Second})

	start := time.Now()
	require.NoError(t, th.Wait(context.Background(), "export.arxiv.org"))
	require.NoError(t, th.Wait(context.Background(), "eutils.ncbi.nlm.nih.gov"))

	// Exhausting one host's window must not delay the other.
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestWaitCancelled(t *testing.T) {
	th := NewWithConfig(ThrottleConfig{Limit: 1, Interval: time.Minute})

	require.NoError(t, th.Wait(context.Background(), "export.arxiv.org"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- th.Wait(ctx, "export.arxiv.org")
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled wait did not return")
	}

	// The cancelled call must not occupy the window for other hosts.
	require.NoError(t, th.Wait(context.Background(), "eutils.ncbi.nlm.nih.gov"))
}
