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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/gorse-io/svdpp/base/log"
	"github.com/gorse-io/svdpp/base/progress"
	"github.com/gorse-io/svdpp/cmd/version"
	"github.com/gorse-io/svdpp/config"
	"github.com/gorse-io/svdpp/graph"
	"github.com/gorse-io/svdpp/model/svdpp"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCommand = &cobra.Command{
	Use:   "gorse-svdpp",
	Short: "Train SVD++ on a strip partitioned rating graph.",
	Run: func(cmd *cobra.Command, args []string) {
		// Show version
		if showVersion, _ := cmd.PersistentFlags().GetBool("version"); showVersion {
			fmt.Println(version.BuildInfo())
			return
		}

		// setup logger
		debug, _ := cmd.PersistentFlags().GetBool("debug")
		log.SetLogger(cmd.PersistentFlags(), debug)
		defer func() { _ = log.Logger().Sync() }()

		// load config
		configPath, _ := cmd.PersistentFlags().GetString("config")
		log.Logger().Info("load config", zap.String("config", configPath))
		conf, err := config.LoadConfig(configPath)
		if err != nil {
			log.Logger().Fatal("failed to load config", zap.Error(err))
		}
		overrideConfig(cmd, conf)
		if err = conf.Validate(); err != nil {
			log.Logger().Fatal("invalid config", zap.Error(err))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		showProgress, _ := cmd.PersistentFlags().GetBool("progress")
		if err = run(ctx, conf, showProgress); err != nil {
			log.Logger().Fatal("failed to train svdpp", zap.Error(err))
		}
	},
}

func overrideConfig(cmd *cobra.Command, conf *config.Config) {
	flags := cmd.PersistentFlags()
	if flags.Changed("graph") {
		conf.Graph.Path, _ = flags.GetString("graph")
	}
	if flags.Changed("strip-width") {
		conf.Graph.StripWidth, _ = flags.GetInt("strip-width")
	}
	if flags.Changed("verify") {
		conf.Graph.Verify, _ = flags.GetBool("verify")
	}
	if flags.Changed("max-iter") {
		conf.Train.MaxIter, _ = flags.GetInt("max-iter")
	}
	if flags.Changed("dump-ids") {
		conf.Dump.IdMap, _ = flags.GetString("dump-ids")
	}
	if flags.Changed("metrics-file") {
		conf.Metrics.Textfile, _ = flags.GetString("metrics-file")
	}
}

func run(ctx context.Context, conf *config.Config, showProgress bool) error {
	tracer := progress.NewTracer("gorse-svdpp")
	ctx, span := tracer.Start(ctx, "train", 1)

	// load graph
	g, stats, err := graph.Load(conf.Graph.Path, conf.LoadOptions())
	if err != nil {
		span.Fail(err)
		return errors.Trace(err)
	}
	if err = g.Finalize(); err != nil {
		span.Fail(err)
		return errors.Annotatef(err, "failed to finalize graph %s", conf.Graph.Path)
	}
	nUsers, nItems := g.Dim()
	log.Logger().Info("finalize graph",
		zap.Int("n_users", nUsers),
		zap.Int("n_items", nItems),
		zap.Int("n_edges", g.Len()),
		zap.Int("n_strips", len(g.Strips())),
		zap.Int("n_skipped", stats.Skipped))
	if conf.Graph.Verify {
		if err = g.Verify(); err != nil {
			span.Fail(err)
			return errors.Trace(err)
		}
		log.Logger().Info("verify graph")
	}
	if conf.Dump.IdMap != "" {
		if err = g.DumpIndex(conf.Dump.IdMap); err != nil {
			span.Fail(err)
			return errors.Trace(err)
		}
		log.Logger().Info("dump identifier maps", zap.String("prefix", conf.Dump.IdMap))
	}

	// train model
	trainer, err := svdpp.NewTrainer(g, conf.TrainConfig())
	if err != nil {
		span.Fail(err)
		return errors.Trace(err)
	}
	var reports []svdpp.Report
	callbacks := []func(svdpp.Report){func(r svdpp.Report) {
		reports = append(reports, r)
	}}
	if showProgress {
		bar := progressbar.NewOptions(conf.Train.MaxIter,
			progressbar.OptionSetDescription("fit svdpp"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish())
		defer func() { _ = bar.Finish() }()
		callbacks = append(callbacks, func(r svdpp.Report) {
			if r.Evaluated {
				bar.Describe(fmt.Sprintf("fit svdpp (RMSE %.6f)", r.RMSE))
			}
			_ = bar.Add(1)
		})
	}
	if _, err = trainer.Fit(ctx, callbacks...); err != nil {
		span.Fail(err)
		return errors.Trace(err)
	}
	span.Add(1)
	span.End()
	for _, p := range tracer.List() {
		log.Logger().Debug("progress", zap.Any("progress", p))
	}

	if err = printSummary(reports); err != nil {
		return errors.Trace(err)
	}
	if conf.Metrics.Textfile != "" {
		if err = prometheus.WriteToTextfile(conf.Metrics.Textfile, prometheus.DefaultGatherer); err != nil {
			return errors.Annotatef(err, "failed to write metrics %s", conf.Metrics.Textfile)
		}
		log.Logger().Info("write metrics", zap.String("textfile", conf.Metrics.Textfile))
	}
	return nil
}

func printSummary(reports []svdpp.Report) error {
	evaluated := lo.Filter(reports, func(r svdpp.Report, _ int) bool {
		return r.Evaluated
	})
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Iteration", "RMSE", "Fit Time", "Eval Time")
	for _, r := range evaluated {
		if err := table.Append([]string{
			strconv.Itoa(r.Iteration),
			strconv.FormatFloat(r.RMSE, 'f', 6, 64),
			r.FitTime.String(),
			r.EvalTime.String(),
		}); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().BoolP("version", "v", false, "gorse-svdpp version")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.PersistentFlags().String("graph", "", "path of rating file")
	rootCommand.PersistentFlags().Int("strip-width", 0, "number of distinct items per strip")
	rootCommand.PersistentFlags().Bool("verify", false, "verify graph ordering after finalization")
	rootCommand.PersistentFlags().Int("max-iter", 0, "number of training iterations")
	rootCommand.PersistentFlags().String("dump-ids", "", "path prefix of identifier maps")
	rootCommand.PersistentFlags().String("metrics-file", "", "path of metrics text file")
	rootCommand.PersistentFlags().Bool("progress", false, "show progress bar")
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
