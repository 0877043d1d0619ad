package domain

import "time"

// EmbeddingCacheEntry memoizes a query embedding per tenant. Entries are
// keyed by (agent_id, query_key) so no agent can read another agent's cached
// vectors. TTL is absolute from the last write; reads touch last_used_at for
// diagnostics but never extend expiry.
type EmbeddingCacheEntry struct {
	AgentID    string
	QueryKey   string
	Embedding  []float32
	LastUsedAt time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e *EmbeddingCacheEntry) Expired(now time.Time) bool {
	return e.ExpiresAt.Before(now)
}

// ResponseCacheEntry memoizes a generated answer per tenant, keyed by
// (agent_id, fingerprint). Fingerprint derivation belongs to the caller; the
// cache only requires it to be deterministic.
type ResponseCacheEntry struct {
	AgentID     string
	Fingerprint string
	Response    string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e *ResponseCacheEntry) Expired(now time.Time) bool {
	return e.ExpiresAt.Before(now)
}
