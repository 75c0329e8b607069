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
	"context"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/gorse-io/svdpp/graph"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

const exampleRatings = "1 10 4.0\n2 10 5.0\n1 11 3.0\n"

func exampleGraph(t *testing.T) *graph.Graph[float64] {
	g, _, err := graph.Read(strings.NewReader(exampleRatings), graph.LoadOptions{StripWidth: 2})
	require.NoError(t, err)
	require.NoError(t, g.Finalize())
	return g
}

func testRates() Rates {
	return Rates{
		UserBias:   Rate{Lr: 0.01, Reg: 0.02},
		ItemBias:   Rate{Lr: 0.03, Reg: 0.04},
		UserFactor: Rate{Lr: 0.05, Reg: 0.06},
		ItemFactor: Rate{Lr: 0.07, Reg: 0.08},
		Implicit:   Rate{Lr: 0.09, Reg: 0.1},
	}
}

// reference is a single edge SVD++ model updated with plain loops.
type reference struct {
	bu, bi  float64
	p, q, y []float64
}

func (m *reference) step(r, mean, l float64, rates Rates) {
	w := slices.Clone(m.y)
	pred := mean + m.bu + m.bi
	for k := range m.p {
		pred += m.p[k] * (m.q[k] + w[k])
	}
	e := r - pred
	dbu := rates.UserBias.Lr * (e - rates.UserBias.Reg*m.bu)
	dbi := rates.ItemBias.Lr * (e - rates.ItemBias.Reg*m.bi)
	dp := make([]float64, len(m.p))
	dq := make([]float64, len(m.q))
	dy := make([]float64, len(m.y))
	for k := range m.p {
		dp[k] = rates.UserFactor.Lr * e * (m.q[k] - rates.UserFactor.Reg*m.p[k])
		dq[k] = rates.ItemFactor.Lr * (e*(m.p[k]+w[k]) - rates.ItemFactor.Reg*m.q[k])
		dy[k] = rates.Implicit.Lr * (e*l*m.q[k] - rates.Implicit.Reg*m.y[k])
	}
	m.bu += dbu
	m.bi += dbi
	for k := range m.p {
		m.p[k] += dp[k]
		m.q[k] += dq[k]
		m.y[k] += dy[k]
	}
}

func TestStepSingleEdge(t *testing.T) {
	g := graph.NewGraph[float64](1)
	g.AddEdge(7, 9, 3.5)
	require.NoError(t, g.Finalize())
	cfg := NewConfig()
	cfg.Rates = testRates()
	cfg.NLatent = 3
	cfg.Seed = 1
	cfg.InitHigh = 0.5
	cfg.EvalPeriod = 0
	cfg.DecayPeriod = 0
	cfg.MaxIter = 3
	trainer, err := NewTrainer(g, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3.5, trainer.GlobalMean())
	assert.Equal(t, 1.0, trainer.Users().L[0])

	users, items := trainer.Users(), trainer.Items()
	ref := &reference{
		bu: users.F[0].Bias,
		bi: items.F[0].Bias,
		p:  slices.Clone(users.F[0].Vec),
		q:  slices.Clone(items.F[0].Vec),
		y:  slices.Clone(items.W[0]),
	}
	assert.Equal(t, []float64{0, 0, 0}, ref.y)
	for i := 0; i < 3; i++ {
		_, err = trainer.Step()
		require.NoError(t, err)
		ref.step(3.5, 3.5, 1, cfg.Rates)
		assert.InDelta(t, ref.bu, users.F[0].Bias, 1e-9)
		assert.InDelta(t, ref.bi, items.F[0].Bias, 1e-9)
		assert.InDeltaSlice(t, ref.p, users.F[0].Vec, 1e-9)
		assert.InDeltaSlice(t, ref.q, items.F[0].Vec, 1e-9)
		assert.InDeltaSlice(t, ref.y, []float64(items.W[0]), 1e-9)
	}
	assert.Equal(t, 3, trainer.Iteration())
}

func TestStepAccumulates(t *testing.T) {
	cfg := NewConfig()
	cfg.Rates = testRates()
	cfg.NLatent = 4
	cfg.Seed = 2
	cfg.EvalPeriod = 0
	trainer, err := NewTrainer(exampleGraph(t), cfg)
	require.NoError(t, err)
	users, items := trainer.Users(), trainer.Items()

	// item 10 is rated by both users.
	before := items.F[0].Bias
	_, err = trainer.Step()
	require.NoError(t, err)
	assert.InDelta(t, before+items.R[0].Bias, items.F[0].Bias, 1e-12)
	assert.NotZero(t, items.R[0].Bias)

	y0, y1 := slices.Clone(items.W[0]), slices.Clone(items.W[1])
	_, err = trainer.Step()
	require.NoError(t, err)
	for k := range y0 {
		assert.InDelta(t, y0[k]+y1[k], users.W[0][k], 1e-12)
		assert.InDelta(t, y0[k], users.W[1][k], 1e-12)
	}
}

func TestInit(t *testing.T) {
	cfg := NewConfig()
	trainer, err := NewTrainer(exampleGraph(t), cfg)
	require.NoError(t, err)
	assert.Equal(t, 12.0, trainer.GlobalMean())
	assert.InDelta(t, 1/math.Sqrt2, trainer.Users().L[0], 1e-12)
	assert.Equal(t, 1.0, trainer.Users().L[1])
	for _, f := range append(slices.Clone(trainer.Users().F), trainer.Items().F...) {
		assert.Len(t, f.Vec, cfg.NLatent)
		for _, v := range append(f.Vec, f.Bias) {
			assert.GreaterOrEqual(t, v, cfg.InitLow)
			assert.Less(t, v, cfg.InitHigh)
		}
	}
	for _, w := range trainer.Items().W {
		assert.Equal(t, make([]float64, cfg.NLatent), []float64(w))
	}

	cfg.GlobalMean = MeanAverage
	cfg.Init = InitZero
	trainer, err = NewTrainer(exampleGraph(t), cfg)
	require.NoError(t, err)
	assert.Equal(t, 4.0, trainer.GlobalMean())
	assert.Zero(t, trainer.Users().F[0].Bias)
	assert.Equal(t, make([]float64, cfg.NLatent), trainer.Items().F[1].Vec)

	// the same seed yields the same factors
	cfg.Init = InitUniform
	cfg.Seed = 42
	a, err := NewTrainer(exampleGraph(t), cfg)
	require.NoError(t, err)
	b, err := NewTrainer(exampleGraph(t), cfg)
	require.NoError(t, err)
	assert.Equal(t, a.Users().F, b.Users().F)
	assert.Equal(t, a.Items().F, b.Items().F)
}

func TestNewTrainerInvalid(t *testing.T) {
	g := graph.NewGraph[float64](2)
	g.AddEdge(1, 1, 1)
	_, err := NewTrainer(g, NewConfig())
	assert.True(t, errors.Is(err, errors.NotValid))

	require.NoError(t, g.Finalize())
	cfg := NewConfig()
	cfg.NLatent = 0
	_, err = NewTrainer(g, cfg)
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestEvaluate(t *testing.T) {
	cfg := NewConfig()
	cfg.GlobalMean = MeanAverage
	cfg.Init = InitZero
	g := exampleGraph(t)
	trainer, err := NewTrainer(g, cfg)
	require.NoError(t, err)
	ratings := make([]float64, 0, g.Len())
	for _, e := range g.Edges() {
		ratings = append(ratings, e.Val)
	}
	assert.InDelta(t, math.Sqrt(stat.PopVariance(ratings, nil)), trainer.Evaluate(), 1e-12)

	cfg.Init = InitUniform
	cfg.MinValue = 4.1
	cfg.MaxValue = 4.5
	trainer, err = NewTrainer(g, cfg)
	require.NoError(t, err)
	var sum float64
	for _, e := range g.Edges() {
		u, v := trainer.Users().F[e.Src], trainer.Items().F[e.Dst]
		pred := 4 + u.Bias + v.Bias
		for k := range u.Vec {
			pred += u.Vec[k] * v.Vec[k]
		}
		pred = math.Max(math.Min(pred, 4.5), 4.1)
		sum += (e.Val - pred) * (e.Val - pred)
	}
	assert.InDelta(t, math.Sqrt(sum/3), trainer.Evaluate(), 1e-12)
}

func TestPredict(t *testing.T) {
	cfg := NewConfig()
	cfg.GlobalMean = MeanAverage
	cfg.Init = InitZero
	cfg.MaxValue = 3.5
	trainer, err := NewTrainer(exampleGraph(t), cfg)
	require.NoError(t, err)
	assert.Equal(t, 3.5, trainer.Predict(0, 0))
	score, ok := trainer.PredictId(2, 11)
	assert.True(t, ok)
	assert.Equal(t, 3.5, score)
	_, ok = trainer.PredictId(3, 11)
	assert.False(t, ok)
	_, ok = trainer.PredictId(1, 12)
	assert.False(t, ok)
}

func TestDecay(t *testing.T) {
	cfg := NewConfig()
	cfg.Rates = testRates()
	cfg.DecayPeriod = 2
	cfg.DecayFactor = 0.5
	cfg.MaxIter = 7
	trainer, err := NewTrainer(exampleGraph(t), cfg)
	require.NoError(t, err)
	var decayed []int
	_, err = trainer.Fit(context.Background(), func(r Report) {
		if r.Decayed {
			decayed = append(decayed, r.Iteration)
		}
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 6}, decayed)
	assert.Equal(t, 3, trainer.Decays())
	rates, initial := trainer.Rates(), cfg.Rates
	for i, rate := range rates.all() {
		assert.InDelta(t, initial.all()[i].Lr*0.125, rate.Lr, 1e-15)
		assert.Equal(t, initial.all()[i].Reg, rate.Reg)
	}
	assert.InDelta(t, 0.05*0.125, testutil.ToFloat64(LearningRateVec.WithLabelValues("user_factor")), 1e-15)
}

func TestFit(t *testing.T) {
	cfg := NewConfig()
	cfg.Rates = testRates()
	cfg.GlobalMean = MeanAverage
	cfg.EvalPeriod = 3
	cfg.MaxIter = 10
	trainer, err := NewTrainer(exampleGraph(t), cfg)
	require.NoError(t, err)
	assert.Equal(t, 3.0, testutil.ToFloat64(GraphEdges))
	assert.Equal(t, 2.0, testutil.ToFloat64(GraphUsers))
	assert.Equal(t, 2.0, testutil.ToFloat64(GraphItems))

	initial := trainer.Evaluate()
	iterations := testutil.ToFloat64(IterationsTotal)
	var evaluated []int
	report, err := trainer.Fit(context.Background(), func(r Report) {
		if r.Evaluated {
			evaluated = append(evaluated, r.Iteration)
		} else {
			assert.True(t, math.IsNaN(r.RMSE))
		}
	})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 6, 9, 10}, evaluated)
	assert.Equal(t, 10, report.Iteration)
	assert.True(t, report.Evaluated)
	assert.Less(t, report.RMSE, initial)
	assert.Equal(t, report.RMSE, testutil.ToFloat64(RMSEGauge))
	assert.Equal(t, iterations+10, testutil.ToFloat64(IterationsTotal))

	// nothing left to run
	report, err = trainer.Fit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, report.Iteration)
}

func TestFitCanceled(t *testing.T) {
	cfg := NewConfig()
	cfg.MaxIter = 5
	trainer, err := NewTrainer(exampleGraph(t), cfg)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	_, err = trainer.Fit(ctx, func(r Report) {
		if r.Iteration == 2 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, trainer.Iteration())
}

func TestSnapshot(t *testing.T) {
	cfg := NewConfig()
	cfg.NLatent = 2
	cfg.MaxIter = 4
	cfg.SnapshotPeriod = 2
	cfg.SnapshotDir = t.TempDir()
	trainer, err := NewTrainer(exampleGraph(t), cfg)
	require.NoError(t, err)
	_, err = trainer.Fit(context.Background())
	require.NoError(t, err)
	for _, name := range []string{"snapshot.2.u.dat", "snapshot.2.v.dat", "snapshot.4.u.dat", "snapshot.4.v.dat"} {
		assert.FileExists(t, filepath.Join(cfg.SnapshotDir, name))
	}
	assert.NoFileExists(t, filepath.Join(cfg.SnapshotDir, "snapshot.1.u.dat"))

	data, err := os.ReadFile(filepath.Join(cfg.SnapshotDir, "snapshot.4.u.dat"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "bias : "))
	assert.Len(t, strings.Fields(strings.TrimPrefix(lines[1], "pvec : ")), 2)

	// a failed snapshot still counts the finished iteration
	cfg.SnapshotDir = filepath.Join(cfg.SnapshotDir, "missing")
	trainer, err = NewTrainer(exampleGraph(t), cfg)
	require.NoError(t, err)
	iterations := testutil.ToFloat64(IterationsTotal)
	_, err = trainer.Fit(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 2, trainer.Iteration())
	assert.Equal(t, iterations+2, testutil.ToFloat64(IterationsTotal))
}

func TestDumpFeatures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.dat")
	err := DumpFeatures(path, []Feature{
		{Vec: []float64{1, 0.5}, Bias: 2},
		{Vec: []float64{-0.25, 0}, Bias: 0.125},
	})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "bias : 2\npvec : 1 0.5\nbias : 0.125\npvec : -0.25 0\n", string(data))
}

func TestConfig(t *testing.T) {
	cfg := NewConfig()
	assert.NoError(t, cfg.Validate())
	cfg.MinValue, cfg.MaxValue = 5, 1
	assert.True(t, errors.Is(cfg.Validate(), errors.NotValid))
	cfg = NewConfig()
	cfg.EvalPeriod = -1
	assert.True(t, errors.Is(cfg.Validate(), errors.NotValid))
	cfg = NewConfig()
	cfg.GlobalMean = "median"
	assert.True(t, errors.Is(cfg.Validate(), errors.NotValid))

	var mode MeanMode
	assert.NoError(t, mode.UnmarshalText([]byte("MEAN")))
	assert.Equal(t, MeanAverage, mode)
	var initMode InitMode
	assert.NoError(t, initMode.UnmarshalText([]byte("zero")))
	assert.Equal(t, InitZero, initMode)
	assert.True(t, errors.Is(initMode.UnmarshalText([]byte("normal")), errors.NotValid))
}
