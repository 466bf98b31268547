package paywall

import "sync"

// SessionRegistry maps a payment token hash to the live connection id that is
// waiting for its confirmation. Entries are removed exactly once, when the
// notification fires; a waiter whose payment never arrives leaks its entry
// until process exit. That is the accepted lifecycle, not something the
// registry tries to clean up.
type SessionRegistry struct {
	mu      sync.Mutex
	waiters map[string]string
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		waiters: make(map[string]string),
	}
}

// Wait records that connID is waiting for the payment identified by
// tokenHash. A prior connection id for the same token is overwritten, so a
// reconnecting client always wins.
func (r *SessionRegistry) Wait(tokenHash, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.waiters[tokenHash] = connID
}

// ResolveAndRemove atomically looks up and deletes the waiter for tokenHash.
// The second of two concurrent calls for the same token always gets ok=false,
// which is what keeps notification at-most-once under duplicate matches.
func (r *SessionRegistry) ResolveAndRemove(tokenHash string) (connID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	connID, ok = r.waiters[tokenHash]
	if ok {
		delete(r.waiters, tokenHash)
	}
	return connID, ok
}

// Len reports the number of registered waiters.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}
