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

import (
	"math"

	"github.com/gorse-io/svdpp/graph"
	"gonum.org/v1/gonum/floats"
)

// RMSE evaluates sqrt(Σ(r_ui - clamp(μ + b_u + b_i + p_u^T q_i))^2 / |E|) over
// every edge of g. Implicit weights do not take part in evaluation.
func RMSE(g *graph.Graph[float64], users, items []Feature, mean, minValue, maxValue float64) float64 {
	if g.Len() == 0 {
		return math.NaN()
	}
	var sum float64
	graph.FoldPair(g, users, items, &sum, func(u, v *Feature, obs *float64, acc *float64) {
		pred := math.Max(math.Min(mean+u.Bias+v.Bias+floats.Dot(u.Vec, v.Vec), maxValue), minValue)
		*acc += (*obs - pred) * (*obs - pred)
	})
	return math.Sqrt(sum / float64(g.Len()))
}
