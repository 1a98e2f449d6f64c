package helpers

import (
	"sync"
	"time"
)

// Limited exponential backoff for retry delays.
// Min == Max gives fixed delay, K <= 1 too.
// First delay after success is Min.
//
// Use scenario:
// for {
//   err := op()
//   if err != nil {
//     time.Sleep(backoff.Failure())
//     continue
//   }
//   backoff.Reset()
// }
type Backoff struct {
	Min time.Duration
	Max time.Duration
	K   float32
	Res time.Duration // delay resolution for nice logs, default=1ms

	mu   sync.Mutex
	next time.Duration
}

// Returns delay to wait before next attempt and increases following delay by K.
func (b *Backoff) Failure() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.next == 0 {
		b.next = b.Min
	}
	delay := b.limit(b.next)
	if b.K > 1 {
		b.next = b.limit(time.Duration(float32(b.next) * b.K))
	}
	return delay
}

func (b *Backoff) Reset() {
	b.mu.Lock()
	b.next = b.Min
	b.mu.Unlock()
}

func (b *Backoff) limit(d time.Duration) time.Duration {
	if d < b.Min {
		d = b.Min
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	return b.round(d)
}

func (b *Backoff) round(d time.Duration) time.Duration {
	res := b.Res
	if res == 0 {
		res = 1 * time.Millisecond
	}
	return d / res * res
}
