// Package cache stores image captions keyed by a content hash of the raw
// image bytes.
//
// Entries are immutable once written and at most one exists per payload. A
// Policy decides whether a description is good enough to be stored, so the
// presence of an entry implies the description passed that check at write
// time.
//
// Two stores are provided: MemoryStore for tests and ephemeral runs, and
// FileStore, which keeps the whole cache in one JSON document and rewrites it
// atomically on every Put.
//
// Filler ties a Store, a Keyer and a Policy together: a hit returns the
// stored description without calling the fill function; a miss calls it and
// stores a sanitized copy.
package cache
