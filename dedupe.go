// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package imgx

import (
	"github.com/cespare/xxhash/v2"
)

// A SeenSet tracks image payloads already encountered during a single
// extraction, keyed by a 64-bit content hash of the exact bytes.
// Distinct payloads collide with probability about 2^-64 per pair,
// which is accepted for this use. A SeenSet is scoped to one
// extraction call and is not safe for concurrent use.
type SeenSet struct {
	seen map[uint64]struct{}
}

// NewSeenSet returns an empty SeenSet.
func NewSeenSet() *SeenSet {
	return &SeenSet{seen: make(map[uint64]struct{})}
}

// Seen registers the payload and reports whether an identical payload
// was registered before.
func (s *SeenSet) Seen(data []byte) bool {
	sum := xxhash.Sum64(data)
	if _, ok := s.seen[sum]; ok {
		return true
	}
	s.seen[sum] = struct{}{}
	return false
}

// Len returns the number of distinct payloads registered so far.
func (s *SeenSet) Len() int {
	return len(s.seen)
}
