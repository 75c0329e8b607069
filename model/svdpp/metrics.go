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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const LabelParam = "param"

var (
	IterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "svdpp",
		Subsystem: "trainer",
		Name:      "iterations_total",
	})
	RMSEGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "svdpp",
		Subsystem: "trainer",
		Name:      "rmse",
	})
	FitSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "svdpp",
		Subsystem: "trainer",
		Name:      "fit_seconds",
	})
	EvalSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "svdpp",
		Subsystem: "trainer",
		Name:      "eval_seconds",
	})
	LearningRateVec = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "svdpp",
		Subsystem: "trainer",
		Name:      "learning_rate",
	}, []string{LabelParam})
	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "svdpp",
		Subsystem: "graph",
		Name:      "edges",
	})
	GraphUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "svdpp",
		Subsystem: "graph",
		Name:      "users",
	})
	GraphItems = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "svdpp",
		Subsystem: "graph",
		Name:      "items",
	})
	GraphStrips = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "svdpp",
		Subsystem: "graph",
		Name:      "strips",
	})
)

func exportRates(rates Rates) {
	LearningRateVec.WithLabelValues("user_bias").Set(rates.UserBias.Lr)
	LearningRateVec.WithLabelValues("item_bias").Set(rates.ItemBias.Lr)
	LearningRateVec.WithLabelValues("user_factor").Set(rates.UserFactor.Lr)
	LearningRateVec.WithLabelValues("item_factor").Set(rates.ItemFactor.Lr)
	LearningRateVec.WithLabelValues("implicit").Set(rates.Implicit.Lr)
}
