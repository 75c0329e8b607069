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

// Package svdpp trains an SVD++ model over a strip partitioned rating graph
// with full-batch gradient descent.
package svdpp

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/gorse-io/svdpp/base"
	"github.com/gorse-io/svdpp/base/log"
	"github.com/gorse-io/svdpp/base/progress"
	"github.com/gorse-io/svdpp/graph"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Report summarizes one training iteration.
type Report struct {
	Iteration int
	// RMSE is NaN unless Evaluated is set.
	RMSE      float64
	Evaluated bool
	Decayed   bool
	FitTime   time.Duration
	EvalTime  time.Duration
}

// Trainer holds the model state and runs training iterations. A Trainer is
// not safe for concurrent use.
type Trainer struct {
	config     Config
	rates      Rates
	graph      *graph.Graph[float64]
	users      *UserState
	items      *ItemState
	globalMean float64
	iteration  int
	decays     int
	rng        base.RandomGenerator
}

// NewTrainer allocates model state for a finalized graph and initializes it.
func NewTrainer(g *graph.Graph[float64], cfg Config) (*Trainer, error) {
	if g == nil || !g.Finalized() {
		return nil, errors.NotValidf("graph not finalized")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	nUsers, nItems := g.Dim()
	t := &Trainer{
		config: cfg,
		rates:  cfg.Rates,
		graph:  g,
		users:  NewUserState(nUsers, cfg.NLatent),
		items:  NewItemState(nItems, cfg.NLatent),
	}
	t.Init()
	GraphEdges.Set(float64(g.Len()))
	GraphUsers.Set(float64(nUsers))
	GraphItems.Set(float64(nItems))
	GraphStrips.Set(float64(len(g.Strips())))
	exportRates(t.rates)
	return t, nil
}

// Init resets the model: implicit normalizers, global mean, factors, biases
// and weights. Learning rates are restored from the config.
func (t *Trainer) Init() {
	t.rates = t.config.Rates
	t.iteration = 0
	t.decays = 0
	t.rng = base.NewRandomGenerator(t.config.Seed)

	graph.Map(t.users.L, resetNorm)
	graph.FoldLeft(t.graph, t.users.L, countNorm)
	graph.Map(t.users.L, finalizeNorm)

	t.globalMean = 0
	graph.Fold(t.graph, &t.globalMean, sumRating)
	if t.config.GlobalMean == MeanAverage {
		t.globalMean /= float64(t.graph.Len())
	}

	initFeature := func(f *Feature) {
		clear(f.Vec)
		f.Bias = 0
	}
	if t.config.Init == InitUniform {
		initFeature = func(f *Feature) {
			t.rng.FillUniform(f.Vec, t.config.InitLow, t.config.InitHigh)
			f.Bias = t.rng.Uniform(t.config.InitLow, t.config.InitHigh)
		}
	}
	graph.Map(t.users.F, initFeature)
	graph.Map(t.items.F, initFeature)
	graph.Map(t.items.W, resetWeight)
	graph.Map(t.users.W, resetWeight)
	log.Logger().Debug("init svdpp",
		zap.Float64("global_mean", t.globalMean),
		zap.String("init", string(t.config.Init)),
		zap.Int("n_latent", t.config.NLatent))
}

// Step runs one iteration of full-batch gradient descent.
func (t *Trainer) Step() (Report, error) {
	start := time.Now()
	graph.Map(t.users.R, resetDelta)
	graph.Map(t.items.R, resetDelta)
	graph.Map(t.items.S, resetStep)
	graph.Map(t.users.W, resetWeight)

	graph.ZipApply2(t.graph, t.users.W, t.items.W, gatherWeight)
	k := &kernel{
		Rates:    t.rates,
		mean:     t.globalMean,
		minValue: t.config.MinValue,
		maxValue: t.config.MaxValue,
	}
	graph.ZipApplyN[float64, UserView, ItemView](t.graph, t.users, t.items, k.gradient)

	graph.Zip2(t.users.R, t.users.F, updateUser)
	graph.Zip4(t.items.R, t.items.S, t.items.F, t.items.W, updateItem)
	t.iteration++

	report := Report{Iteration: t.iteration, RMSE: math.NaN(), FitTime: time.Since(start)}
	if t.config.EvalPeriod > 0 && (t.iteration%t.config.EvalPeriod == 0 || t.iteration == t.config.MaxIter) {
		evalStart := time.Now()
		report.RMSE = t.Evaluate()
		report.Evaluated = true
		report.EvalTime = time.Since(evalStart)
		RMSEGauge.Set(report.RMSE)
		EvalSeconds.Set(report.EvalTime.Seconds())
	}
	if t.config.DecayPeriod > 0 && t.iteration%t.config.DecayPeriod == 0 {
		t.Decay()
		report.Decayed = true
	}
	IterationsTotal.Inc()
	FitSeconds.Set(report.FitTime.Seconds())
	if t.config.SnapshotPeriod > 0 && t.iteration%t.config.SnapshotPeriod == 0 {
		if err := t.Snapshot(); err != nil {
			return report, errors.Trace(err)
		}
	}
	return report, nil
}

// Fit runs the remaining iterations up to MaxIter. Callbacks receive the
// report of every iteration. The context is checked between iterations.
func (t *Trainer) Fit(ctx context.Context, callbacks ...func(Report)) (Report, error) {
	log.Logger().Info("fit svdpp",
		zap.Int("n_edges", t.graph.Len()),
		zap.Int("n_users", t.users.Len()),
		zap.Int("n_items", t.items.Len()),
		zap.Int("n_strips", len(t.graph.Strips())),
		zap.Any("config", t.config))
	_, span := progress.Start(ctx, "SVDpp.Fit", t.config.MaxIter)
	span.Add(t.iteration)
	last := Report{Iteration: t.iteration, RMSE: math.NaN()}
	for t.iteration < t.config.MaxIter {
		if err := ctx.Err(); err != nil {
			span.Fail(err)
			return last, errors.Trace(err)
		}
		report, err := t.Step()
		if err != nil {
			span.Fail(err)
			return report, errors.Trace(err)
		}
		if report.Evaluated {
			log.Logger().Info(fmt.Sprintf("fit svdpp %v/%v", report.Iteration, t.config.MaxIter),
				zap.String("fit_time", report.FitTime.String()),
				zap.String("eval_time", report.EvalTime.String()),
				zap.Float64("RMSE", report.RMSE))
		} else {
			log.Logger().Debug(fmt.Sprintf("fit svdpp %v/%v", report.Iteration, t.config.MaxIter),
				zap.String("fit_time", report.FitTime.String()))
		}
		for _, callback := range callbacks {
			callback(report)
		}
		span.Add(1)
		last = report
	}
	span.End()
	log.Logger().Info("fit svdpp complete",
		zap.Int("iterations", t.iteration),
		zap.Float64("RMSE", last.RMSE))
	return last, nil
}

// Evaluate returns the RMSE of the current model over all edges.
func (t *Trainer) Evaluate() float64 {
	return RMSE(t.graph, t.users.F, t.items.F, t.globalMean, t.config.MinValue, t.config.MaxValue)
}

// Decay multiplies every learning rate by the decay factor.
func (t *Trainer) Decay() {
	for _, rate := range t.rates.all() {
		rate.Lr *= t.config.DecayFactor
	}
	t.decays++
	exportRates(t.rates)
	log.Logger().Debug("decay learning rates",
		zap.Int("decays", t.decays),
		zap.Float64("user_bias_lr", t.rates.UserBias.Lr))
}

// Snapshot writes the factors of both sides for the current iteration.
func (t *Trainer) Snapshot() error {
	prefix := filepath.Join(t.config.SnapshotDir, fmt.Sprintf("snapshot.%d", t.iteration))
	if err := DumpFeatures(prefix+".u.dat", t.users.F); err != nil {
		return errors.Annotatef(err, "failed to dump user snapshot")
	}
	if err := DumpFeatures(prefix+".v.dat", t.items.F); err != nil {
		return errors.Annotatef(err, "failed to dump item snapshot")
	}
	log.Logger().Debug("dump snapshot", zap.String("prefix", prefix))
	return nil
}

// Predict returns the clamped rating of a user and an item given by compacted
// index. The user's weights are those aggregated in the latest iteration.
func (t *Trainer) Predict(userIndex, itemIndex int32) float64 {
	k := &kernel{mean: t.globalMean, minValue: t.config.MinValue, maxValue: t.config.MaxValue}
	return k.predict(t.users.At(userIndex), t.items.At(itemIndex))
}

// PredictId is Predict with raw identifiers. It returns false if either
// identifier is not in the graph.
func (t *Trainer) PredictId(userId, itemId uint32) (float64, bool) {
	userIndex, ok := t.graph.UserIndex.Index(userId)
	if !ok {
		return 0, false
	}
	itemIndex, ok := t.graph.ItemIndex.Index(itemId)
	if !ok {
		return 0, false
	}
	return t.Predict(userIndex, itemIndex), true
}

func (t *Trainer) Rates() Rates {
	return t.rates
}

func (t *Trainer) Config() Config {
	return t.config
}

func (t *Trainer) GlobalMean() float64 {
	return t.globalMean
}

func (t *Trainer) Users() *UserState {
	return t.users
}

func (t *Trainer) Items() *ItemState {
	return t.items
}

func (t *Trainer) Iteration() int {
	return t.iteration
}

func (t *Trainer) Decays() int {
	return t.decays
}
