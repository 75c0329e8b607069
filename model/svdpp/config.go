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
	"strings"

	"github.com/juju/errors"
)

// MeanMode selects how the global mean μ is derived from observed ratings.
type MeanMode string

const (
	// MeanSum keeps the running sum of ratings as μ without dividing by the
	// number of edges.
	MeanSum MeanMode = "sum"
	// MeanAverage divides the sum by the number of edges.
	MeanAverage MeanMode = "mean"
)

func (m *MeanMode) UnmarshalText(text []byte) error {
	switch mode := MeanMode(strings.ToLower(string(text))); mode {
	case MeanSum, MeanAverage:
		*m = mode
		return nil
	default:
		return errors.NotValidf("global mean mode %q", string(text))
	}
}

// InitMode selects how latent factors and biases are initialized.
type InitMode string

const (
	InitZero    InitMode = "zero"
	InitUniform InitMode = "uniform"
)

func (m *InitMode) UnmarshalText(text []byte) error {
	switch mode := InitMode(strings.ToLower(string(text))); mode {
	case InitZero, InitUniform:
		*m = mode
		return nil
	default:
		return errors.NotValidf("init mode %q", string(text))
	}
}

// Rate is a learning rate and regularization weight pair.
type Rate struct {
	Lr  float64
	Reg float64
}

// Rates holds the rate pairs of all parameter groups.
type Rates struct {
	UserBias   Rate // b_u
	ItemBias   Rate // b_i
	UserFactor Rate // p_u
	ItemFactor Rate // q_i
	Implicit   Rate // y_i
}

func (r *Rates) all() []*Rate {
	return []*Rate{&r.UserBias, &r.ItemBias, &r.UserFactor, &r.ItemFactor, &r.Implicit}
}

// Config is the hyper-parameters of the SVD++ trainer.
type Config struct {
	Rates
	NLatent  int
	MinValue float64
	MaxValue float64
	// DecayFactor multiplies every learning rate each DecayPeriod iterations.
	DecayFactor float64
	DecayPeriod int
	EvalPeriod  int
	MaxIter     int
	GlobalMean  MeanMode
	Init        InitMode
	InitLow     float64
	InitHigh    float64
	Seed        int64
	// Snapshots are written every SnapshotPeriod iterations. Zero disables them.
	SnapshotPeriod int
	SnapshotDir    string
}

func NewConfig() Config {
	rate := Rate{Lr: 1e-4, Reg: 1e-4}
	return Config{
		Rates: Rates{
			UserBias:   rate,
			ItemBias:   rate,
			UserFactor: rate,
			ItemFactor: rate,
			Implicit:   rate,
		},
		NLatent:     20,
		MinValue:    -1e100,
		MaxValue:    1e100,
		DecayFactor: 0.9,
		DecayPeriod: 10,
		EvalPeriod:  10,
		MaxIter:     100,
		GlobalMean:  MeanSum,
		Init:        InitUniform,
		InitLow:     0,
		InitHigh:    0.1,
	}
}

func (c *Config) Validate() error {
	if c.NLatent <= 0 {
		return errors.NotValidf("n_latent %d", c.NLatent)
	}
	if c.MinValue > c.MaxValue {
		return errors.NotValidf("value range [%v, %v]", c.MinValue, c.MaxValue)
	}
	if c.DecayFactor <= 0 {
		return errors.NotValidf("decay factor %v", c.DecayFactor)
	}
	if c.DecayPeriod < 0 || c.EvalPeriod < 0 || c.SnapshotPeriod < 0 || c.MaxIter < 0 {
		return errors.NotValidf("negative period")
	}
	if c.InitLow > c.InitHigh {
		return errors.NotValidf("init range [%v, %v]", c.InitLow, c.InitHigh)
	}
	switch c.GlobalMean {
	case MeanSum, MeanAverage:
	default:
		return errors.NotValidf("global mean mode %q", c.GlobalMean)
	}
	switch c.Init {
	case InitZero, InitUniform:
	default:
		return errors.NotValidf("init mode %q", c.Init)
	}
	return nil
}
