// Package envelope defines the streaming item sum type every activation
// method result is wrapped in, plus the provenance metadata attached to
// every item as it passes through the router.
package envelope

import "time"

// Metadata rides on every StreamItem. Provenance is extended, never
// rewritten: a router appends each namespace segment as it descends toward
// the leaf (Append), and a router that mounts another Router prepends its
// own path in front of the mounted router's chain (Prepend).
type Metadata struct {
	// Provenance is the ordered list of namespace segments describing the
	// routing path that produced the item, root first, leaf last.
	Provenance []string `json:"provenance"`
	// RootHash is the router's content hash at the moment the stream was
	// opened. Stable for the lifetime of a stream even if, hypothetically,
	// the router were rebuilt mid-flight (it never is; see §4.2 "sealed
	// after construction").
	RootHash string `json:"plexus_hash"`
	// Timestamp is the unix-seconds time the item was produced.
	Timestamp int64 `json:"timestamp"`
}

// NewMetadata stamps the current time and returns a Metadata for the given
// provenance and root hash.
func NewMetadata(provenance []string, rootHash string) Metadata {
	return Metadata{
		Provenance: provenance,
		RootHash:   rootHash,
		Timestamp:  time.Now().Unix(),
	}
}

// Prepend returns a copy of m with segment prepended to Provenance. Used by
// router.stitchProvenance when a nested Router is mounted as a child
// activation: the mounted router's own Dispatch builds its own
// independently-constructed stream provenance (rooted at its own
// namespace), and the parent's path is stitched in front of it one segment
// at a time so the combined sequence still reads root first, leaf last.
func (m Metadata) Prepend(segment string) Metadata {
	out := make([]string, 0, len(m.Provenance)+1)
	out = append(out, segment)
	out = append(out, m.Provenance...)
	m.Provenance = out
	return m
}

// Append returns a copy of m with segment appended to Provenance. Used by a
// single router's own path traversal as it descends from its own namespace
// toward the leaf activation that will answer the call, so provenance
// grows root-first in traversal order.
func (m Metadata) Append(segment string) Metadata {
	out := make([]string, 0, len(m.Provenance)+1)
	out = append(out, m.Provenance...)
	out = append(out, segment)
	m.Provenance = out
	return m
}
