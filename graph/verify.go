// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package graph

import (
	"slices"

	"github.com/bits-and-blooms/bitset"
	"github.com/juju/errors"
)

// Verify checks the invariants of a finalized graph: every compacted index is
// used by some edge, strips tile the edge sequence, each strip is sorted by
// (Src, Dst) and spans at most stripWidth distinct Dst, and the Dst ranges of
// consecutive strips are disjoint and increasing.
func (g *Graph[E]) Verify() error {
	if !g.finalized {
		return errors.New("graph has not been finalized")
	}
	users, items := g.Dim()
	userSeen := bitset.New(uint(users))
	itemSeen := bitset.New(uint(items))
	for _, e := range g.edges {
		if e.Src < 0 || int(e.Src) >= users || e.Dst < 0 || int(e.Dst) >= items {
			return errors.NotValidf("edge (%d, %d)", e.Src, e.Dst)
		}
		userSeen.Set(uint(e.Src))
		itemSeen.Set(uint(e.Dst))
	}
	if int(userSeen.Count()) != users {
		return errors.Errorf("%d of %d users have no edge", users-int(userSeen.Count()), users)
	}
	if int(itemSeen.Count()) != items {
		return errors.Errorf("%d of %d items have no edge", items-int(itemSeen.Count()), items)
	}

	stripSeen := bitset.New(uint(items))
	next, prevMax := 0, int32(-1)
	for k, strip := range g.strips {
		if strip.Begin != next || strip.End <= strip.Begin {
			return errors.Errorf("strip %d [%d, %d) does not tile edges", k, strip.Begin, strip.End)
		}
		next = strip.End
		edges := g.edges[strip.Begin:strip.End]
		if !slices.IsSortedFunc(edges, compareSrcDst[E]) {
			return errors.Errorf("strip %d is not sorted by (src, dst)", k)
		}
		distinct := 0
		minDst, maxDst := edges[0].Dst, edges[0].Dst
		for _, e := range edges {
			if !stripSeen.Test(uint(e.Dst)) {
				stripSeen.Set(uint(e.Dst))
				distinct++
			}
			minDst, maxDst = min(minDst, e.Dst), max(maxDst, e.Dst)
		}
		if distinct > g.stripWidth {
			return errors.Errorf("strip %d spans %d items, more than strip width %d", k, distinct, g.stripWidth)
		}
		if minDst <= prevMax {
			return errors.Errorf("strip %d overlaps the item range of strip %d", k, k-1)
		}
		prevMax = maxDst
	}
	if next != len(g.edges) {
		return errors.Errorf("strips cover %d of %d edges", next, len(g.edges))
	}
	return nil
}
