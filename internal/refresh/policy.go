// Package refresh decides whether stored records are stale enough to fetch
// again. Decisions are pure functions of the record and the supplied clock,
// and fail open: a record whose fetch time is missing or unreadable is
// treated as stale.
package refresh

import "time"

// Policy holds the staleness threshold for stored records.
type Policy struct {
	MaxAge time.Duration
}

// NewPolicy returns a policy with the given maximum record age.
func NewPolicy(maxAge time.Duration) Policy {
	return Policy{MaxAge: maxAge}
}

// Stale reports whether a record fetched at the given time should be fetched
// again as of now. A zero fetch time means the record has never been fetched
// (or its timestamp could not be read) and is always stale.
func (p Policy) Stale(fetchedAt, now time.Time) bool {
	if fetchedAt.IsZero() {
		return true
	}
	return now.Sub(fetchedAt) > p.MaxAge
}

// NeedsFetch reports whether a segment row needs a detail fetch: it is
// missing detail data entirely, or the detail it has is older than MaxAge.
// Polyline and rawData come from the stored row; an empty polyline or an
// empty/placeholder raw payload marks the row as a summary stub.
func (p Policy) NeedsFetch(polyline, rawData string, fetchedAt, now time.Time) bool {
	if polyline == "" || rawData == "" || rawData == "{}" {
		return true
	}
	return p.Stale(fetchedAt, now)
}
