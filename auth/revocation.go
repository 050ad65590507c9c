package auth

import (
	"sync"
	"time"
)

// revocationList remembers signed-out token ids until the tokens would have
// expired anyway.
type revocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func newRevocationList() *revocationList {
	return &revocationList{entries: map[string]time.Time{}}
}

func (r *revocationList) add(jti string, expiresAt, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, exp := range r.entries {
		if !exp.After(now) {
			delete(r.entries, id)
		}
	}
	if expiresAt.After(now) {
		r.entries[jti] = expiresAt
	}
}

func (r *revocationList) contains(jti string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	exp, ok := r.entries[jti]
	return ok && exp.After(now)
}
