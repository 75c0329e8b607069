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

package base

import (
	"math/rand"
)

// RandomGenerator is the random generator used to initialize model parameters.
type RandomGenerator struct {
	*rand.Rand
}

// NewRandomGenerator creates a RandomGenerator.
func NewRandomGenerator(seed int64) RandomGenerator {
	return RandomGenerator{rand.New(rand.NewSource(seed))}
}

// Uniform returns a uniform random float in [low, high).
func (rng RandomGenerator) Uniform(low, high float64) float64 {
	return rng.Float64()*(high-low) + low
}

// FillUniform fills a vector with uniform random floats in [low, high).
func (rng RandomGenerator) FillUniform(a []float64, low, high float64) {
	scale := high - low
	for i := range a {
		a[i] = rng.Float64()*scale + low
	}
}
