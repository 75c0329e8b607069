// Copyright 2025 gorse Project Authors
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

package dataset

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// Dict compacts sparse identifiers into dense indices. Indices are assigned in
// first-occurrence order, so a dictionary of n keys holds exactly 0..n-1.
type Dict[K comparable] struct {
	si  map[K]int32
	is  []K
	cnt []int
}

func NewDict[K comparable]() *Dict[K] {
	return &Dict[K]{si: map[K]int32{}}
}

func (d *Dict[K]) Count() int32 {
	return int32(len(d.is))
}

// Id returns the index of k, assigning the next index on first occurrence.
// Every call counts one occurrence of k.
func (d *Dict[K]) Id(k K) int32 {
	if y, ok := d.si[k]; ok {
		d.cnt[y]++
		return y
	}
	y := int32(len(d.is))
	d.si[k] = y
	d.is = append(d.is, k)
	d.cnt = append(d.cnt, 1)
	return y
}

// Index looks up k without inserting it.
func (d *Dict[K]) Index(k K) (int32, bool) {
	y, ok := d.si[k]
	return y, ok
}

func (d *Dict[K]) Key(i int32) (k K, ok bool) {
	if i < 0 || int(i) >= len(d.is) {
		return k, false
	}
	return d.is[i], true
}

func (d *Dict[K]) Freq(i int32) int {
	if i < 0 || int(i) >= len(d.cnt) {
		return 0
	}
	return d.cnt[i]
}

// WriteTo writes "<key>\t<index>" lines in index order.
func (d *Dict[K]) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for i, k := range d.is {
		m, err := fmt.Fprintf(bw, "%v\t%d\n", k, i)
		n += int64(m)
		if err != nil {
			return n, errors.Trace(err)
		}
	}
	return n, errors.Trace(bw.Flush())
}

// ReadDict decodes a dump written by WriteTo. Lines may come in any order but
// the indices must form 0..n-1 exactly once each.
func ReadDict[K comparable](r io.Reader, parse func(string) (K, error)) (*Dict[K], error) {
	keys := make(map[int32]K)
	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 2 {
			return nil, errors.NotValidf("line %d %q", lineNo, line)
		}
		key, err := parse(fields[0])
		if err != nil {
			return nil, errors.Annotatef(err, "line %d", lineNo)
		}
		index, err := strconv.ParseInt(fields[1], 10, 32)
		if err != nil {
			return nil, errors.Annotatef(err, "line %d", lineNo)
		}
		if _, exist := keys[int32(index)]; exist {
			return nil, errors.AlreadyExistsf("index %d", index)
		}
		keys[int32(index)] = key
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	d := NewDict[K]()
	for i := int32(0); i < int32(len(keys)); i++ {
		key, ok := keys[i]
		if !ok {
			return nil, errors.NotFoundf("index %d", i)
		}
		if _, exist := d.si[key]; exist {
			return nil, errors.AlreadyExistsf("key %v", key)
		}
		d.si[key] = i
		d.is = append(d.is, key)
		d.cnt = append(d.cnt, 0)
	}
	return d, nil
}
