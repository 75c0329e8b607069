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

	"gonum.org/v1/gonum/floats"
)

func resetNorm(l *float64) {
	*l = 0
}

func countNorm(_ *float64, l *float64) {
	*l += 1
}

func finalizeNorm(l *float64) {
	*l = 1 / math.Sqrt(*l)
}

func sumRating(e *float64, acc *float64) {
	*acc += *e
}

func resetDelta(r *Delta) {
	clear(r.Vec)
	r.Bias = 0
}

func resetStep(s *Step) {
	clear(*s)
}

func resetWeight(w *Weight) {
	clear(*w)
}

// gatherWeight adds the implicit weight of an item into the user's sum.
func gatherWeight(userWeight *Weight, _ *float64, itemWeight *Weight) {
	floats.Add(*userWeight, *itemWeight)
}

func updateUser(r *Delta, f *Feature) {
	floats.Add(f.Vec, r.Vec)
	f.Bias += r.Bias
}

func updateItem(r *Delta, s *Step, f *Feature, w *Weight) {
	floats.Add(f.Vec, r.Vec)
	f.Bias += r.Bias
	floats.Add(*w, *s)
}

// kernel computes per-edge gradients with a fixed set of rates.
type kernel struct {
	Rates
	mean     float64
	minValue float64
	maxValue float64
}

func (k *kernel) clamp(x float64) float64 {
	return math.Max(math.Min(x, k.maxValue), k.minValue)
}

// predict returns \hat r_{ui} = clamp(μ + b_u + b_i + p_u^T (q_i + y_u)).
func (k *kernel) predict(u UserView, v ItemView) float64 {
	return k.clamp(k.mean + u.F.Bias + v.F.Bias + floats.Dot(u.F.Vec, v.F.Vec) + floats.Dot(u.F.Vec, *u.W))
}

// gradient accumulates the steps of one edge into both ends:
//
//	Δb_u += γ_ub (e - λ_ub b_u)
//	Δb_i += γ_ib (e - λ_ib b_i)
//	Δp_u += γ_uf e (q_i - λ_uf p_u)
//	Δq_i += γ_if (e (p_u + y_u) - λ_if q_i)
//	Δy_i += γ_w e |N(u)|^-1/2 q_i - γ_w λ_w y_i
func (k *kernel) gradient(u UserView, obs *float64, v ItemView) {
	e := *obs - k.predict(u, v)
	u.R.Bias += k.UserBias.Lr * (e - k.UserBias.Reg*u.F.Bias)
	v.R.Bias += k.ItemBias.Lr * (e - k.ItemBias.Reg*v.F.Bias)
	floats.AddScaled(u.R.Vec, k.UserFactor.Lr*e, v.F.Vec)
	floats.AddScaled(u.R.Vec, -k.UserFactor.Lr*e*k.UserFactor.Reg, u.F.Vec)
	floats.AddScaled(v.R.Vec, k.ItemFactor.Lr*e, u.F.Vec)
	floats.AddScaled(v.R.Vec, k.ItemFactor.Lr*e, *u.W)
	floats.AddScaled(v.R.Vec, -k.ItemFactor.Lr*k.ItemFactor.Reg, v.F.Vec)
	floats.AddScaled(*v.S, e*k.Implicit.Lr**u.L, v.F.Vec)
	floats.AddScaled(*v.S, -k.Implicit.Lr*k.Implicit.Reg, *v.W)
}
