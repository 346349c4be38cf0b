package store

import "errors"

// ErrMissingLink indicates a segment effort that cannot be linked to both an
// activity and a segment. Such efforts are rejected rather than stored with
// dangling references.
var ErrMissingLink = errors.New("segment effort missing activity or segment id")

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("not found")
