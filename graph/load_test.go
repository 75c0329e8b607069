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
	"path/filepath"
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	record, err := ParseLine(1, "1 10 4.5")
	assert.NoError(t, err)
	assert.Equal(t, Record{UserId: 1, ItemId: 10, Value: 4.5}, record)

	record, err = ParseLine(2, "7\t8\t-1e3\textra")
	assert.NoError(t, err)
	assert.Equal(t, Record{UserId: 7, ItemId: 8, Value: -1000}, record)

	for _, line := range []string{"1 10", "a 10 1", "1 b 1", "1 10 x", "-1 10 1", "4294967296 1 1"} {
		_, err = ParseLine(3, line)
		var parseError *ParseError
		if assert.ErrorAs(t, err, &parseError, line) {
			assert.Equal(t, 3, parseError.Line)
			assert.Equal(t, line, parseError.Text)
		}
	}
}

func TestReadComments(t *testing.T) {
	text := "# header\n1 10 4.0\n\n#2 20 1.0\n2 10 5.0\n1 11 3.0\n"
	g, stats, err := Read(strings.NewReader(text), LoadOptions{StripWidth: 1})
	require.NoError(t, err)
	assert.Equal(t, &LoadStats{Lines: 6, Comments: 2, Edges: 3, MaxUserDegree: 2, MaxItemDegree: 2}, stats)
	// comments are not id-counted
	_, ok := g.UserIndex.Index(2)
	assert.True(t, ok)
	_, ok = g.ItemIndex.Index(20)
	assert.False(t, ok)
	index, _ := g.UserIndex.Index(1)
	assert.Equal(t, int32(0), index)
	index, _ = g.ItemIndex.Index(11)
	assert.Equal(t, int32(1), index)
}

func TestReadMalformed(t *testing.T) {
	text := "1 10 4.0\n2 oops 5.0\n1 11 3.0\n"
	_, _, err := Read(strings.NewReader(text), LoadOptions{StripWidth: 1, Malformed: AbortMalformed})
	var parseError *ParseError
	require.ErrorAs(t, err, &parseError)
	assert.Equal(t, 2, parseError.Line)

	g, stats, err := Read(strings.NewReader(text), LoadOptions{StripWidth: 1, Malformed: SkipMalformed})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 2, g.Len())
	users, items := g.Dim()
	assert.Equal(t, 1, users)
	assert.Equal(t, 2, items)
}

func TestReadLongLine(t *testing.T) {
	// a long but accepted line fails to parse its overflowing rating
	text := "1 10 4.0\n2 11 " + strings.Repeat("9", 70000) + "\n3 12 1.0"
	g, stats, err := Read(strings.NewReader(text), LoadOptions{StripWidth: 2, Malformed: SkipMalformed})
	require.NoError(t, err)
	assert.Equal(t, &LoadStats{Lines: 3, Skipped: 1, Edges: 2, MaxUserDegree: 1, MaxItemDegree: 1}, stats)
	assert.Equal(t, 2, g.Len())
	_, ok := g.UserIndex.Index(3)
	assert.True(t, ok)

	// lines beyond the limit are consumed whole and reported with their number
	text = "1 10 4.0\n2 11 " + strings.Repeat("1", MaxLineLength) + "\n3 12 1.0\n"
	g, stats, err = Read(strings.NewReader(text), LoadOptions{StripWidth: 2, Malformed: SkipMalformed})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 3, stats.Lines)
	assert.Equal(t, 2, g.Len())

	_, _, err = Read(strings.NewReader(text), LoadOptions{StripWidth: 2, Malformed: AbortMalformed})
	var parseError *ParseError
	require.ErrorAs(t, err, &parseError)
	assert.Equal(t, 2, parseError.Line)
	assert.ErrorIs(t, err, ErrLineTooLong)

	// a line of exactly the limit is kept
	line := "4 13 2.5" + strings.Repeat(" ", MaxLineLength-8)
	g, _, err = Read(strings.NewReader(line+"\r\n"), LoadOptions{StripWidth: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratings.txt")
	require.NoError(t, os.WriteFile(path, []byte(exampleRatings), 0644))
	g, stats, err := Load(path, LoadOptions{StripWidth: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Edges)
	assert.Equal(t, 3, g.Len())

	_, _, err = Load(filepath.Join(t.TempDir(), "missing.txt"), LoadOptions{StripWidth: 2})
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestMalformedPolicy(t *testing.T) {
	var policy MalformedPolicy
	assert.NoError(t, policy.UnmarshalText([]byte("SKIP")))
	assert.Equal(t, SkipMalformed, policy)
	assert.NoError(t, policy.UnmarshalText([]byte("abort")))
	assert.Equal(t, AbortMalformed, policy)
	assert.True(t, errors.Is(policy.UnmarshalText([]byte("ignore")), errors.NotValid))
}
