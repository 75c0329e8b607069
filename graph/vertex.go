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

// Map applies op to every element of a in place.
func Map[T any](a []T, op func(*T)) {
	for i := range a {
		op(&a[i])
	}
}

// Zip2 applies op to a[i], b[i] for every index.
func Zip2[A, B any](a []A, b []B, op func(*A, *B)) {
	if len(a) != len(b) {
		panic("graph: slice lengths do not match")
	}
	for i := range a {
		op(&a[i], &b[i])
	}
}

// Zip4 applies op to a[i], b[i], c[i], d[i] for every index.
func Zip4[A, B, C, D any](a []A, b []B, c []C, d []D, op func(*A, *B, *C, *D)) {
	if len(a) != len(b) || len(a) != len(c) || len(a) != len(d) {
		panic("graph: slice lengths do not match")
	}
	for i := range a {
		op(&a[i], &b[i], &c[i], &d[i])
	}
}
