// Package poll approximates a push channel over a store that only supports
// reads: a subscription repeatedly fetches a record and invokes the caller
// only when a change-detection key moves. It is the sole "real-time"
// mechanism the match coordination protocols assume.
package poll

import (
	"context"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/rs/zerolog/log"
)

// Fetch loads the observed record. A nil record with a nil error means
// "not found", which is a legal observed state, not a failure.
type Fetch[T any] func(ctx context.Context) (*T, error)

// Key derives the change-detection key from a present record, e.g. the
// (status, newGameId) pair of a rematch request.
type Key[T any] func(*T) string

// OnChange receives the record after every observed key change. The record
// is nil when the row disappeared, so callers can tell "still pending"
// apart from "request gone".
type OnChange[T any] func(*T)

type Options struct {
	// Interval between polls. Queue watching and rematch watching run at
	// different cadences, so this is per subscription.
	Interval time.Duration

	// Backoff bounds applied while fetches fail; the regular interval
	// resumes on the first success.
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

const (
	defaultInterval   = 3 * time.Second
	defaultMinBackoff = 500 * time.Millisecond
	defaultMaxBackoff = 30 * time.Second
)

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = defaultInterval
	}
	if o.MinBackoff <= 0 {
		o.MinBackoff = defaultMinBackoff
	}
	if o.MaxBackoff < o.MinBackoff {
		o.MaxBackoff = defaultMaxBackoff
	}
	return o
}

type subscription struct {
	cancel context.CancelFunc

	// mu serializes callbacks against Unsubscribe so that no callback runs
	// after Unsubscribe returns, even when a fetch was in flight.
	mu     sync.Mutex
	closed bool
}

// Subscribe starts watching and returns the disposer. The first successful
// poll establishes the baseline; afterwards onChange fires once per key
// change, including present to absent. Polls never overlap: the next fetch
// starts only after the previous one returned.
func Subscribe[T any](fetch Fetch[T], key Key[T], onChange OnChange[T], opts Options) (unsubscribe func()) {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	sub := &subscription{cancel: cancel}

	go observe(ctx, sub, fetch, key, onChange, opts)

	return func() {
		sub.cancel()
		sub.mu.Lock()
		sub.closed = true
		sub.mu.Unlock()
	}
}

func observe[T any](ctx context.Context, sub *subscription, fetch Fetch[T], key Key[T], onChange OnChange[T], opts Options) {
	retry := &backoff.Backoff{
		Min:    opts.MinBackoff,
		Max:    opts.MaxBackoff,
		Factor: 2,
		Jitter: true,
	}

	var lastKey string
	var lastFound, primed bool

	for {
		value, err := fetch(ctx)

		if ctx.Err() != nil {
			return
		}

		if err != nil {
			// Transient by assumption: no state change is recorded and the
			// next poll runs after a backoff.
			log.Debug().Err(err).Msg("poll fetch failed, backing off")
			if !sleep(ctx, retry.Duration()) {
				return
			}
			continue
		}
		retry.Reset()

		currentKey := ""
		currentFound := value != nil
		if currentFound {
			currentKey = key(value)
		}

		changed := primed && (currentFound != lastFound || currentKey != lastKey)
		lastKey, lastFound, primed = currentKey, currentFound, true

		if changed && !deliver(sub, onChange, value) {
			return
		}

		if !sleep(ctx, opts.Interval) {
			return
		}
	}
}

// deliver invokes the callback unless the subscription was disposed while
// the fetch was in flight; a disposed subscription discards the result.
func deliver[T any](sub *subscription, onChange OnChange[T], value *T) bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return false
	}
	onChange(value)
	return true
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
