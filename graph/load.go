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
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gorse-io/svdpp/base/log"
	"github.com/gorse-io/svdpp/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// MalformedPolicy decides what the loader does with a line that fails to parse.
type MalformedPolicy string

const (
	AbortMalformed MalformedPolicy = "abort"
	SkipMalformed  MalformedPolicy = "skip"
)

func (p *MalformedPolicy) UnmarshalText(text []byte) error {
	switch policy := MalformedPolicy(strings.ToLower(string(text))); policy {
	case AbortMalformed, SkipMalformed:
		*p = policy
		return nil
	default:
		return errors.NotValidf("malformed policy %q", string(text))
	}
}

type LoadOptions struct {
	StripWidth int
	Malformed  MalformedPolicy
}

type LoadStats struct {
	Lines         int
	Comments      int
	Skipped       int
	Edges         int
	MaxUserDegree int
	MaxItemDegree int
}

// MaxLineLength is the longest data line the loader accepts, terminator
// excluded. Longer lines are reported as parse errors.
const MaxLineLength = 1 << 20

var ErrLineTooLong = errors.New("line too long")

// readLine returns the next line without its terminator. A line longer than
// MaxLineLength is consumed entirely and reported with ErrLineTooLong.
func readLine(r *bufio.Reader) (string, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			line = append(line, chunk...)
			// room for "\r\n"
			if len(line) > MaxLineLength+2 {
				tooLong, line = true, nil
			}
		}
		switch {
		case err == bufio.ErrBufferFull:
			continue
		case err == io.EOF && (len(line) > 0 || tooLong):
		case err != nil:
			return "", err
		}
		line = bytes.TrimSuffix(line, []byte{'\n'})
		line = bytes.TrimSuffix(line, []byte{'\r'})
		if tooLong || len(line) > MaxLineLength {
			return "", ErrLineTooLong
		}
		return string(line), nil
	}
}

func maxFreq(dict *dataset.Dict[uint32]) int {
	m := 0
	for i := int32(0); i < dict.Count(); i++ {
		m = max(m, dict.Freq(i))
	}
	return m
}

// Record is a parsed rating line.
type Record struct {
	UserId uint32
	ItemId uint32
	Value  float64
}

// ParseError reports a data line that could not be parsed.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseLine parses "<userId> <itemId> <value>". Fields after the third are ignored.
func ParseLine(lineNo int, line string) (Record, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return Record{}, &ParseError{Line: lineNo, Text: line,
			Err: errors.NotValidf("%d fields", len(fields))}
	}
	userId, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return Record{}, &ParseError{Line: lineNo, Text: line, Err: err}
	}
	itemId, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return Record{}, &ParseError{Line: lineNo, Text: line, Err: err}
	}
	value, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return Record{}, &ParseError{Line: lineNo, Text: line, Err: err}
	}
	return Record{UserId: uint32(userId), ItemId: uint32(itemId), Value: value}, nil
}

// Read ingests rating lines into a new graph. The graph is not finalized.
func Read(r io.Reader, opts LoadOptions) (*Graph[float64], *LoadStats, error) {
	g := NewGraph[float64](opts.StripWidth)
	stats := &LoadStats{}
	reader := bufio.NewReader(r)
	for {
		line, err := readLine(reader)
		if err == io.EOF {
			break
		}
		stats.Lines++
		var record Record
		switch {
		case errors.Is(err, ErrLineTooLong):
			err = &ParseError{Line: stats.Lines, Err: err}
		case err != nil:
			return nil, stats, errors.Trace(err)
		case strings.HasPrefix(line, "#"):
			stats.Comments++
			log.Logger().Debug("skip comment", zap.String("line", line))
			continue
		case strings.TrimSpace(line) == "":
			continue
		default:
			record, err = ParseLine(stats.Lines, line)
		}
		if err != nil {
			if opts.Malformed == SkipMalformed {
				stats.Skipped++
				log.Logger().Warn("skip malformed line", zap.Error(err))
				continue
			}
			return nil, stats, err
		}
		g.AddEdge(record.UserId, record.ItemId, record.Value)
	}
	stats.Edges = g.Len()
	stats.MaxUserDegree = maxFreq(g.UserIndex)
	stats.MaxItemDegree = maxFreq(g.ItemIndex)
	return g, stats, nil
}

// Load reads a rating file. The file is closed as soon as ingestion is done.
func Load(path string, opts LoadOptions) (*Graph[float64], *LoadStats, error) {
	log.Logger().Info("loading graph", zap.String("path", path))
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Annotatef(err, "open graph %s", path)
	}
	defer file.Close()
	g, stats, err := Read(file, opts)
	if err != nil {
		return nil, stats, errors.Annotatef(err, "load graph %s", path)
	}
	users, items := g.Dim()
	log.Logger().Info("load graph finished",
		zap.Int("n_edges", stats.Edges),
		zap.Int("n_users", users),
		zap.Int("n_items", items),
		zap.Int("n_comments", stats.Comments),
		zap.Int("max_user_degree", stats.MaxUserDegree),
		zap.Int("max_item_degree", stats.MaxItemDegree),
		zap.Int("n_skipped", stats.Skipped))
	return g, stats, nil
}
