package throttle

import (
	"context"
	"sync"
	"time"
)

type ThrottleConfig struct {
	Limit    int           // max calls per interval for a single host
	Interval time.Duration // rolling window length
}

// Throttle bounds outbound calls per external host: no more than Limit calls
// are released within any rolling window of Interval. Calls beyond the limit
// queue on the host's window; hosts do not affect each other.
type Throttle struct {
	config ThrottleConfig
	mu     sync.Mutex
	hosts  map[string]*window
}

// window records the release times of the last Limit calls for one host in a
// ring buffer. Call k may only go out once releases[k-Limit] is a full
// Interval in the past.
type window struct {
	mu       sync.Mutex
	releases []time.Time
	next     int
}

func NewWithConfig(config ThrottleConfig) *Throttle {
	if config.Limit == 0 {
		config.Limit = 3
	}
	if config.Interval == 0 {
		config.Interval = time.Second
	}

	return &Throttle{
		config: config,
		hosts:  make(map[string]*window),
	}
}

func New() *Throttle {
	return NewWithConfig(ThrottleConfig{})
}

func (t *Throttle) window(host string) *window {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.hosts[host]
	if !ok {
		w = &window{
			releases: make([]time.Time, t.config.Limit),
		}
		t.hosts[host] = w
	}
	return w
}

// Wait blocks until the host has window capacity or the context is done.
// Queued calls are released in arrival order. A cancelled wait records no
// release, so it does not consume capacity from subsequent callers.
func (t *Throttle) Wait(ctx context.Context, host string) error {
	w := t.window(host)
	w.mu.Lock()
	defer w.mu.Unlock()

	oldest := w.releases[w.next]
	if !oldest.IsZero() {
		if wait := time.Until(oldest.Add(t.config.Interval)); wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	w.releases[w.next] = time.Now()
	w.next = (w.next + 1) % len(w.releases)
	return nil
}
