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

package svdpp

// Feature is a latent factor vector with a bias.
type Feature struct {
	Vec  []float64
	Bias float64
}

// Delta accumulates the gradient step of a Feature within one iteration.
type Delta struct {
	Vec  []float64
	Bias float64
}

// Weight is an implicit feedback vector. On items it is the learned y_i, on
// users it is the per-iteration sum of y_i over the user's items.
type Weight []float64

// Step accumulates the gradient step of an item Weight within one iteration.
type Step []float64

// carve returns n vectors of length dim backed by a single allocation.
func carve[T ~[]float64](n, dim int) []T {
	arena := make([]float64, n*dim)
	vectors := make([]T, n)
	for i := range vectors {
		vectors[i] = arena[i*dim : (i+1)*dim : (i+1)*dim]
	}
	return vectors
}

func newFeatures(n, dim int) []Feature {
	vectors := carve[[]float64](n, dim)
	features := make([]Feature, n)
	for i := range features {
		features[i].Vec = vectors[i]
	}
	return features
}

func newDeltas(n, dim int) []Delta {
	vectors := carve[[]float64](n, dim)
	deltas := make([]Delta, n)
	for i := range deltas {
		deltas[i].Vec = vectors[i]
	}
	return deltas
}

// UserView references the state of one user.
type UserView struct {
	F *Feature // p_u, b_u
	W *Weight  // Σ y_j over the user's items
	L *float64 // |N(u)|^-1/2
	R *Delta
}

// UserState holds the state arrays of all users, indexed by compacted index.
type UserState struct {
	F []Feature
	W []Weight
	L []float64
	R []Delta
}

func NewUserState(n, dim int) *UserState {
	return &UserState{
		F: newFeatures(n, dim),
		W: carve[Weight](n, dim),
		L: make([]float64, n),
		R: newDeltas(n, dim),
	}
}

func (s *UserState) Len() int {
	return len(s.F)
}

func (s *UserState) At(i int32) UserView {
	return UserView{F: &s.F[i], W: &s.W[i], L: &s.L[i], R: &s.R[i]}
}

// ItemView references the state of one item.
type ItemView struct {
	F *Feature // q_i, b_i
	W *Weight  // y_i
	R *Delta
	S *Step
}

// ItemState holds the state arrays of all items, indexed by compacted index.
type ItemState struct {
	F []Feature
	W []Weight
	R []Delta
	S []Step
}

func NewItemState(n, dim int) *ItemState {
	return &ItemState{
		F: newFeatures(n, dim),
		W: carve[Weight](n, dim),
		R: newDeltas(n, dim),
		S: carve[Step](n, dim),
	}
}

func (s *ItemState) Len() int {
	return len(s.F)
}

func (s *ItemState) At(i int32) ItemView {
	return ItemView{F: &s.F[i], W: &s.W[i], R: &s.R[i], S: &s.S[i]}
}
