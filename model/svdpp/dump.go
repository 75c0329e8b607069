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
	"bufio"
	"os"
	"strconv"

	"github.com/juju/errors"
)

// DumpFeatures writes one "bias : <b>\npvec : <v0> ... <vN-1>\n" record per
// vertex. The format is meant for inspection only.
func DumpFeatures(path string, features []Feature) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Trace(err)
	}
	w := bufio.NewWriter(file)
	buf := make([]byte, 0, 64)
	for _, f := range features {
		buf = append(buf[:0], "bias : "...)
		buf = strconv.AppendFloat(buf, f.Bias, 'g', -1, 64)
		buf = append(buf, "\npvec :"...)
		for _, v := range f.Vec {
			buf = append(buf, ' ')
			buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
		}
		buf = append(buf, '\n')
		if _, err = w.Write(buf); err != nil {
			_ = file.Close()
			return errors.Trace(err)
		}
	}
	if err = w.Flush(); err != nil {
		_ = file.Close()
		return errors.Trace(err)
	}
	return errors.Trace(file.Close())
}
