package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper rejects a repeated submission fingerprint within a window. It uses
// redis SET NX when rdb is set so every replica shares the window.
type Deduper struct {
	rdb    *redis.Client
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewDeduper builds a deduper. A non-positive window disables it.
func NewDeduper(rdb *redis.Client, window time.Duration) *Deduper {
	return &Deduper{rdb: rdb, window: window, now: time.Now, seen: map[string]time.Time{}}
}

// Claim records fingerprint and reports whether it was free.
func (d *Deduper) Claim(ctx context.Context, fingerprint string) (bool, error) {
	if d.window <= 0 {
		return true, nil
	}
	if d.rdb != nil {
		return d.rdb.SetNX(ctx, submissionKey(fingerprint), d.now().Unix(), d.window).Result()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	for fp, at := range d.seen {
		if now.Sub(at) >= d.window {
			delete(d.seen, fp)
		}
	}
	if _, ok := d.seen[fingerprint]; ok {
		return false, nil
	}
	d.seen[fingerprint] = now
	return true, nil
}

// Release frees fingerprint so a failed submission can be retried.
func (d *Deduper) Release(ctx context.Context, fingerprint string) error {
	if d.window <= 0 {
		return nil
	}
	if d.rdb != nil {
		return d.rdb.Del(ctx, submissionKey(fingerprint)).Err()
	}
	d.mu.Lock()
	delete(d.seen, fingerprint)
	d.mu.Unlock()
	return nil
}

func submissionKey(fp string) string {
	return keyPrefix + "submission:" + fp
}
