// internal/coalesce/coalesce.go

// Package coalesce deduplicates concurrent and closely-spaced calls that hit
// the same backend resource. Concurrent callers for a key share one
// execution, and a completed result is replayed to further callers inside a
// TTL window before the key is evicted and re-executed.
package coalesce

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type result struct {
	value     interface{}
	err       error
	expiresAt time.Time
}

// Group coalesces function calls by key.
type Group struct {
	sf  singleflight.Group
	ttl time.Duration

	mtx     sync.Mutex
	results map[string]result
}

// New creates a Group whose completed results are replayed for ttl. A zero
// ttl disables replay; only in-flight calls are shared.
func New(ttl time.Duration) *Group {
	return &Group{
		ttl:     ttl,
		results: make(map[string]result),
	}
}

// Do executes fn for key, sharing the execution with concurrent callers and
// replaying a recent result when one is still inside the TTL window.
func (g *Group) Do(key string, fn func() (interface{}, error)) (interface{}, error) {
	if g.ttl > 0 {
		g.mtx.Lock()
		if r, ok := g.results[key]; ok {
			if time.Now().Before(r.expiresAt) {
				g.mtx.Unlock()
				return r.value, r.err
			}
			delete(g.results, key)
		}
		g.mtx.Unlock()
	}

	value, err, _ := g.sf.Do(key, func() (interface{}, error) {
		v, e := fn()
		if g.ttl > 0 {
			g.mtx.Lock()
			g.results[key] = result{value: v, err: e, expiresAt: time.Now().Add(g.ttl)}
			g.evictExpiredLocked()
			g.mtx.Unlock()
		}
		return v, e
	})

	return value, err
}

// Forget drops any stored result for key so the next Do re-executes. Callers
// invalidate after a mutation that changes the underlying resource.
func (g *Group) Forget(key string) {
	g.mtx.Lock()
	delete(g.results, key)
	g.mtx.Unlock()
	g.sf.Forget(key)
}

func (g *Group) evictExpiredLocked() {
	now := time.Now()
	for k, r := range g.results {
		if now.After(r.expiresAt) {
			delete(g.results, k)
		}
	}
}
