// Package paywall holds the in-memory payment state of the gateway and the
// confirmation worker that is its only writer.
package paywall

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// EntitlementStore maps each content slug to the set of token hashes that
// have paid for it. Slugs are registered lazily after the CMS confirms they
// exist and are never removed; entitlements grow monotonically for the
// lifetime of the process.
//
// The confirmation worker is the sole writer of entitlements; the request
// layer only registers slugs and tests membership. The outer lock makes
// concurrent reads safe while a write is in flight.
type EntitlementStore struct {
	mu    sync.RWMutex
	slugs map[string]mapset.Set[string]
}

// NewEntitlementStore creates an empty store.
func NewEntitlementStore() *EntitlementStore {
	return &EntitlementStore{
		slugs: make(map[string]mapset.Set[string]),
	}
}

// Exists reports whether slug has been registered.
func (s *EntitlementStore) Exists(slug string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.slugs[slug]
	return ok
}

// Register adds slug with an empty entitlement set. Idempotent; callers must
// have confirmed the slug with the CMS first.
func (s *EntitlementStore) Register(slug string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slugs[slug]; !ok {
		s.slugs[slug] = mapset.NewSet[string]()
	}
}

// HasPaid reports whether tokenHash has paid for slug. An unknown slug is
// simply not paid.
func (s *EntitlementStore) HasPaid(slug, tokenHash string) bool {
	s.mu.RLock()
	set, ok := s.slugs[slug]
	s.mu.RUnlock()

	return ok && set.Contains(tokenHash)
}

// MarkPaid records that tokenHash paid for slug. Idempotent. A payment for a
// slug nobody has requested yet registers the slug implicitly; dropping a
// paid entitlement is never acceptable.
func (s *EntitlementStore) MarkPaid(slug, tokenHash string) {
	s.mu.Lock()
	set, ok := s.slugs[slug]
	if !ok {
		set = mapset.NewSet[string]()
		s.slugs[slug] = set
	}
	s.mu.Unlock()

	set.Add(tokenHash)
}

// PaidCount returns the number of recorded entitlements for slug.
func (s *EntitlementStore) PaidCount(slug string) int {
	s.mu.RLock()
	set, ok := s.slugs[slug]
	s.mu.RUnlock()

	if !ok {
		return 0
	}
	return set.Cardinality()
}
