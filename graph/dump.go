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
	"os"

	"github.com/gorse-io/svdpp/base/log"
	"github.com/gorse-io/svdpp/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// DumpIndex writes the user and item id maps to <name>.u.dat and <name>.v.dat.
func (g *Graph[E]) DumpIndex(name string) error {
	if err := dumpDict(name+".u.dat", g.UserIndex); err != nil {
		return errors.Trace(err)
	}
	if err := dumpDict(name+".v.dat", g.ItemIndex); err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("dump id maps",
		zap.String("users", name+".u.dat"),
		zap.String("items", name+".v.dat"))
	return nil
}

func dumpDict(path string, dict *dataset.Dict[uint32]) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Trace(err)
	}
	if _, err = dict.WriteTo(file); err != nil {
		_ = file.Close()
		return errors.Trace(err)
	}
	return errors.Trace(file.Close())
}
