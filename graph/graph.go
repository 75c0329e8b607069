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
	"cmp"
	"slices"

	"github.com/gorse-io/svdpp/base/log"
	"github.com/gorse-io/svdpp/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// ErrEmptyGraph is returned when a graph without edges is finalized.
var ErrEmptyGraph = errors.New("empty graph")

// Edge connects a user (Src) to an item (Dst). Both ends are compacted indices.
type Edge[E any] struct {
	Src int32
	Dst int32
	Val E
}

// Strip is a half-open range [Begin, End) of finalized edges.
type Strip struct {
	Begin int
	End   int
}

func (s Strip) Len() int {
	return s.End - s.Begin
}

// Graph is a bipartite edge store. Edges are appended during a single load and
// reordered once by Finalize:
//
//  1. all edges are sorted by Dst;
//  2. the sequence is cut into strips, each spanning stripWidth distinct Dst;
//  3. every strip is sorted by (Src, Dst).
//
// While sweeping edges in stored order, item state touched in one strip stays
// bounded by stripWidth vertices and user state is visited in ascending order.
type Graph[E any] struct {
	UserIndex  *dataset.Dict[uint32]
	ItemIndex  *dataset.Dict[uint32]
	stripWidth int
	edges      []Edge[E]
	strips     []Strip
	finalized  bool
}

func NewGraph[E any](stripWidth int) *Graph[E] {
	return &Graph[E]{
		UserIndex:  dataset.NewDict[uint32](),
		ItemIndex:  dataset.NewDict[uint32](),
		stripWidth: stripWidth,
	}
}

// AddEdge compacts both identifiers and appends an edge.
func (g *Graph[E]) AddEdge(userId, itemId uint32, val E) {
	if g.finalized {
		panic("graph: add edge to a finalized graph")
	}
	g.edges = append(g.edges, Edge[E]{
		Src: g.UserIndex.Id(userId),
		Dst: g.ItemIndex.Id(itemId),
		Val: val,
	})
}

// Dim returns the number of users and items.
func (g *Graph[E]) Dim() (int, int) {
	return int(g.UserIndex.Count()), int(g.ItemIndex.Count())
}

func (g *Graph[E]) Len() int {
	return len(g.edges)
}

func (g *Graph[E]) Edges() []Edge[E] {
	return g.edges
}

func (g *Graph[E]) StripWidth() int {
	return g.stripWidth
}

// Strips returns the strip ranges. It is empty before Finalize.
func (g *Graph[E]) Strips() []Strip {
	return g.strips
}

func (g *Graph[E]) Finalized() bool {
	return g.finalized
}

func compareDst[E any](a, b Edge[E]) int {
	return cmp.Compare(a.Dst, b.Dst)
}

func compareSrcDst[E any](a, b Edge[E]) int {
	if c := cmp.Compare(a.Src, b.Src); c != 0 {
		return c
	}
	return cmp.Compare(a.Dst, b.Dst)
}

// Finalize sorts edges into the strip-partitioned layout.
func (g *Graph[E]) Finalize() error {
	if g.finalized {
		return errors.New("graph has been finalized")
	}
	if g.stripWidth < 1 {
		return errors.NotValidf("strip width %d", g.stripWidth)
	}
	if len(g.edges) == 0 {
		return errors.Trace(ErrEmptyGraph)
	}
	log.Logger().Debug("finalize graph begin", zap.Int("n_edges", len(g.edges)))
	// sort by dst
	slices.SortStableFunc(g.edges, compareDst[E])
	// cut strips and sort each strip by (src, dst)
	cnt, begin := 0, 0
	prevDst := g.edges[0].Dst
	for i := range g.edges {
		if g.edges[i].Dst == prevDst {
			continue
		}
		prevDst = g.edges[i].Dst
		cnt++
		if cnt == g.stripWidth {
			g.closeStrip(begin, i)
			cnt, begin = 0, i
		}
	}
	g.closeStrip(begin, len(g.edges))
	g.finalized = true
	log.Logger().Debug("finalize graph end",
		zap.Int("n_edges", len(g.edges)),
		zap.Int("n_strips", len(g.strips)),
		zap.Int("strip_width", g.stripWidth))
	return nil
}

func (g *Graph[E]) closeStrip(begin, end int) {
	slices.SortStableFunc(g.edges[begin:end], compareSrcDst[E])
	g.strips = append(g.strips, Strip{Begin: begin, End: end})
}
