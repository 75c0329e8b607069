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

package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/gorse-io/svdpp/graph"
	"github.com/gorse-io/svdpp/model/svdpp"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is the configuration of a training run.
type Config struct {
	Graph   GraphConfig   `mapstructure:"graph"`
	Train   TrainConfig   `mapstructure:"train"`
	Dump    DumpConfig    `mapstructure:"dump"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// GraphConfig is the configuration of the rating file and the edge store.
type GraphConfig struct {
	Path       string                `mapstructure:"path" validate:"required"`
	StripWidth int                   `mapstructure:"strip_width" validate:"gte=1"`
	Malformed  graph.MalformedPolicy `mapstructure:"malformed" validate:"oneof=abort skip"`
	Verify     bool                  `mapstructure:"verify"`
}

type RateConfig struct {
	Lr  float64 `mapstructure:"lr" validate:"gte=0"`
	Reg float64 `mapstructure:"reg" validate:"gte=0"`
}

// TrainConfig is the configuration of the SVD++ trainer.
type TrainConfig struct {
	NLatent     int            `mapstructure:"n_latent" validate:"gt=0"`
	MaxIter     int            `mapstructure:"max_iter" validate:"gte=0"`
	EvalPeriod  int            `mapstructure:"eval_period" validate:"gte=0"`
	DecayPeriod int            `mapstructure:"decay_period" validate:"gte=0"`
	DecayFactor float64        `mapstructure:"decay_factor" validate:"gt=0"`
	MinValue    float64        `mapstructure:"min_value"`
	MaxValue    float64        `mapstructure:"max_value" validate:"gtefield=MinValue"`
	GlobalMean  svdpp.MeanMode `mapstructure:"global_mean" validate:"oneof=sum mean"`
	Init        svdpp.InitMode `mapstructure:"init" validate:"oneof=zero uniform"`
	InitLow     float64        `mapstructure:"init_low"`
	InitHigh    float64        `mapstructure:"init_high" validate:"gtefield=InitLow"`
	Seed        int64          `mapstructure:"seed"`
	UserBias    RateConfig     `mapstructure:"user_bias"`
	ItemBias    RateConfig     `mapstructure:"item_bias"`
	UserFactor  RateConfig     `mapstructure:"user_factor"`
	ItemFactor  RateConfig     `mapstructure:"item_factor"`
	Implicit    RateConfig     `mapstructure:"implicit"`
}

// DumpConfig is the configuration of debug outputs.
type DumpConfig struct {
	// IdMap is the path prefix of the identifier maps. Empty disables them.
	IdMap          string `mapstructure:"id_map"`
	SnapshotDir    string `mapstructure:"snapshot_dir"`
	SnapshotPeriod int    `mapstructure:"snapshot_period" validate:"gte=0"`
}

type MetricsConfig struct {
	// Textfile is written in the Prometheus text format after training.
	Textfile string `mapstructure:"textfile"`
}

func GetDefaultConfig() *Config {
	train := svdpp.NewConfig()
	rate := func(r svdpp.Rate) RateConfig {
		return RateConfig{Lr: r.Lr, Reg: r.Reg}
	}
	return &Config{
		Graph: GraphConfig{
			StripWidth: 1024,
			Malformed:  graph.AbortMalformed,
		},
		Train: TrainConfig{
			NLatent:     train.NLatent,
			MaxIter:     train.MaxIter,
			EvalPeriod:  train.EvalPeriod,
			DecayPeriod: train.DecayPeriod,
			DecayFactor: train.DecayFactor,
			MinValue:    train.MinValue,
			MaxValue:    train.MaxValue,
			GlobalMean:  train.GlobalMean,
			Init:        train.Init,
			InitLow:     train.InitLow,
			InitHigh:    train.InitHigh,
			Seed:        train.Seed,
			UserBias:    rate(train.UserBias),
			ItemBias:    rate(train.ItemBias),
			UserFactor:  rate(train.UserFactor),
			ItemFactor:  rate(train.ItemFactor),
			Implicit:    rate(train.Implicit),
		},
		Dump: DumpConfig{
			SnapshotDir:    train.SnapshotDir,
			SnapshotPeriod: train.SnapshotPeriod,
		},
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [graph]
	v.SetDefault("graph.path", defaultConfig.Graph.Path)
	v.SetDefault("graph.strip_width", defaultConfig.Graph.StripWidth)
	v.SetDefault("graph.malformed", string(defaultConfig.Graph.Malformed))
	v.SetDefault("graph.verify", defaultConfig.Graph.Verify)
	// [train]
	v.SetDefault("train.n_latent", defaultConfig.Train.NLatent)
	v.SetDefault("train.max_iter", defaultConfig.Train.MaxIter)
	v.SetDefault("train.eval_period", defaultConfig.Train.EvalPeriod)
	v.SetDefault("train.decay_period", defaultConfig.Train.DecayPeriod)
	v.SetDefault("train.decay_factor", defaultConfig.Train.DecayFactor)
	v.SetDefault("train.min_value", defaultConfig.Train.MinValue)
	v.SetDefault("train.max_value", defaultConfig.Train.MaxValue)
	v.SetDefault("train.global_mean", string(defaultConfig.Train.GlobalMean))
	v.SetDefault("train.init", string(defaultConfig.Train.Init))
	v.SetDefault("train.init_low", defaultConfig.Train.InitLow)
	v.SetDefault("train.init_high", defaultConfig.Train.InitHigh)
	v.SetDefault("train.seed", defaultConfig.Train.Seed)
	for name, rate := range map[string]RateConfig{
		"user_bias":   defaultConfig.Train.UserBias,
		"item_bias":   defaultConfig.Train.ItemBias,
		"user_factor": defaultConfig.Train.UserFactor,
		"item_factor": defaultConfig.Train.ItemFactor,
		"implicit":    defaultConfig.Train.Implicit,
	} {
		v.SetDefault("train."+name+".lr", rate.Lr)
		v.SetDefault("train."+name+".reg", rate.Reg)
	}
	// [dump]
	v.SetDefault("dump.id_map", defaultConfig.Dump.IdMap)
	v.SetDefault("dump.snapshot_dir", defaultConfig.Dump.SnapshotDir)
	v.SetDefault("dump.snapshot_period", defaultConfig.Dump.SnapshotPeriod)
	// [metrics]
	v.SetDefault("metrics.textfile", defaultConfig.Metrics.Textfile)
}

// LoadConfig reads a TOML config file. Unset keys fall back to defaults and
// SVDPP_* environment variables override both, e.g. SVDPP_TRAIN_N_LATENT.
// An empty path loads defaults and environment variables only. The result is
// not validated since command line flags may still override it.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)
	v.SetEnvPrefix("svdpp")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Annotatef(err, "failed to read config %s", path)
		}
	}
	var conf Config
	if err := v.Unmarshal(&conf, viper.DecodeHook(mapstructure.TextUnmarshallerHookFunc())); err != nil {
		return nil, errors.Annotatef(err, "failed to decode config %s", path)
	}
	return &conf, nil
}

func (config *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(config); err != nil {
		return errors.NewNotValid(err, "invalid config")
	}
	return nil
}

// TrainConfig converts the [train] and [dump] sections into trainer options.
func (config *Config) TrainConfig() svdpp.Config {
	rate := func(r RateConfig) svdpp.Rate {
		return svdpp.Rate{Lr: r.Lr, Reg: r.Reg}
	}
	return svdpp.Config{
		Rates: svdpp.Rates{
			UserBias:   rate(config.Train.UserBias),
			ItemBias:   rate(config.Train.ItemBias),
			UserFactor: rate(config.Train.UserFactor),
			ItemFactor: rate(config.Train.ItemFactor),
			Implicit:   rate(config.Train.Implicit),
		},
		NLatent:        config.Train.NLatent,
		MinValue:       config.Train.MinValue,
		MaxValue:       config.Train.MaxValue,
		DecayFactor:    config.Train.DecayFactor,
		DecayPeriod:    config.Train.DecayPeriod,
		EvalPeriod:     config.Train.EvalPeriod,
		MaxIter:        config.Train.MaxIter,
		GlobalMean:     config.Train.GlobalMean,
		Init:           config.Train.Init,
		InitLow:        config.Train.InitLow,
		InitHigh:       config.Train.InitHigh,
		Seed:           config.Train.Seed,
		SnapshotPeriod: config.Dump.SnapshotPeriod,
		SnapshotDir:    config.Dump.SnapshotDir,
	}
}

func (config *Config) LoadOptions() graph.LoadOptions {
	return graph.LoadOptions{
		StripWidth: config.Graph.StripWidth,
		Malformed:  config.Graph.Malformed,
	}
}
