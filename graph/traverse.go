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

import "fmt"

// Bundle is the per-vertex state of one side of the graph. At returns a view
// holding references into every state array of vertex i.
type Bundle[T any] interface {
	Len() int
	At(i int32) T
}

func checkSide(side string, have, want int) {
	if have < want {
		panic(fmt.Sprintf("graph: %s state has %d vertices, but the graph has %d", side, have, want))
	}
}

// FoldLeft applies op(edge value, user state) for every edge.
func FoldLeft[E, L any](g *Graph[E], left []L, op func(e *E, l *L)) {
	users, _ := g.Dim()
	checkSide("user", len(left), users)
	for i := range g.edges {
		e := &g.edges[i]
		op(&e.Val, &left[e.Src])
	}
}

// Fold applies op(edge value, accumulator) for every edge.
func Fold[E, T any](g *Graph[E], acc *T, op func(e *E, acc *T)) {
	for i := range g.edges {
		op(&g.edges[i].Val, acc)
	}
}

// FoldPair applies op(user state, item state, edge value, accumulator) for every edge.
func FoldPair[E, U, V, T any](g *Graph[E], left []U, right []V, acc *T, op func(u *U, v *V, e *E, acc *T)) {
	users, items := g.Dim()
	checkSide("user", len(left), users)
	checkSide("item", len(right), items)
	for i := range g.edges {
		e := &g.edges[i]
		op(&left[e.Src], &right[e.Dst], &e.Val, acc)
	}
}

// ZipApply2 applies op(user state, edge value, item state) for every edge.
func ZipApply2[E, U, V any](g *Graph[E], left []U, right []V, op func(u *U, e *E, v *V)) {
	users, items := g.Dim()
	checkSide("user", len(left), users)
	checkSide("item", len(right), items)
	for i := range g.edges {
		e := &g.edges[i]
		op(&left[e.Src], &e.Val, &right[e.Dst])
	}
}

// ZipApplyN applies op to the state bundles of both ends of every edge.
func ZipApplyN[E, U, V any](g *Graph[E], left Bundle[U], right Bundle[V], op func(u U, e *E, v V)) {
	users, items := g.Dim()
	checkSide("user", left.Len(), users)
	checkSide("item", right.Len(), items)
	for i := range g.edges {
		e := &g.edges[i]
		op(left.At(e.Src), &e.Val, right.At(e.Dst))
	}
}
