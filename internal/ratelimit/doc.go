// Package ratelimit implements the admission gate for outbound API calls.
//
// The platform enforces two quotas: a sliding window (100 calls per 15
// minutes by default) and a calendar-day cap (1000 by default). Wait blocks
// the caller once a configurable fraction of either quota is consumed,
// sleeping until the oldest retained call leaves the window or until local
// midnight. Each Limiter is an explicit instance owned by its client; there
// is no package-level state, so independent pipelines never interfere.
package ratelimit
