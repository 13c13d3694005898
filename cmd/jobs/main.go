// Command jobs runs the offline stages: tick download, bar building, feature
// building, event import, training and a one-shot decision.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fx-agent/src/config"
	datasource "fx-agent/src/data_source"
	"fx-agent/src/data_source/dukascopy"
	"fx-agent/src/helpers"
	"fx-agent/src/logger"
	"fx-agent/src/network"
	"fx-agent/src/pipeline"
	"fx-agent/src/trainer"

	"github.com/joho/godotenv"
)

const dateLayout = "2006-01-02"

const usage = `usage: jobs <command> [flags]

commands:
  download        fetch hourly tick files
  build-m1        build minute bars from tick files
  build-bars      build the higher timeframe ladder from minute bars
  build-features  build the feature table
  import-events   upsert a JSON lines event batch
  train           train and save a model
  auto-train      train only when the model is missing or stale
  analyze         print the latest decision text
`

// -----------------------------------------------------------------------------

type job struct {
	flags *flag.FlagSet
	conf  *config.Config
	log   *logger.Logger

	configPath *string
	pair       *string
	tf         *string
	start      *string
	end        *string
}

func newJob(name string) *job {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return &job{
		flags:      fs,
		configPath: fs.String("config", "config/default.yaml", "path to config file"),
		pair:       fs.String("pair", "", "currency pair (default: every configured pair)"),
		tf:         fs.String("tf", "", "timeframe (default: features.timeframe)"),
		start:      fs.String("start", "", "first date, YYYY-MM-DD"),
		end:        fs.String("end", "", "last date, YYYY-MM-DD (default: start)"),
	}
}

// -----------------------------------------------------------------------------

func (j *job) parse(args []string) error {
	if err := j.flags.Parse(args); err != nil {
		return err
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return err
	}

	conf, err := config.NewConfig(*j.configPath)
	if err != nil {
		if _, statErr := os.Stat(*j.configPath); !os.IsNotExist(statErr) {
			return err
		}
		conf = config.Default()
	}
	if err := conf.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}

	j.conf = conf
	j.log = logger.NewLogger(conf.MConfig, j.flags.Name())
	return nil
}

func (j *job) pairs() []string {
	if *j.pair != "" {
		return []string{strings.ToUpper(*j.pair)}
	}
	return j.conf.Pairs
}

func (j *job) timeframe() string {
	if *j.tf != "" {
		return strings.ToUpper(*j.tf)
	}
	return j.conf.Features.Timeframe
}

// dates returns the inclusive [start, end] day range in UTC.
func (j *job) dates() (time.Time, time.Time, error) {
	if *j.start == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("-start is required")
	}
	start, err := time.ParseInLocation(dateLayout, *j.start, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid -start: %w", err)
	}
	end := start
	if *j.end != "" {
		if end, err = time.ParseInLocation(dateLayout, *j.end, time.UTC); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -end: %w", err)
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("-end %s is before -start %s", *j.end, *j.start)
	}
	return start, end, nil
}

// -----------------------------------------------------------------------------

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	j := newJob(cmd)

	var run func(*job, []string) error
	switch cmd {
	case "download":
		run = runDownload
	case "build-m1":
		run = runBuildMinute
	case "build-bars":
		run = runBuildBars
	case "build-features":
		run = runBuildFeatures
	case "import-events":
		run = runImportEvents
	case "train":
		run = runTrain
	case "auto-train":
		run = runAutoTrain
	case "analyze":
		run = runAnalyze
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err := run(j, args); err != nil {
		if j.log != nil {
			j.log.Error("%s failed: %v", cmd, err)
		} else {
			fmt.Fprintf(os.Stderr, "%s failed: %v\n", cmd, err)
		}
		os.Exit(1)
	}
}

// -----------------------------------------------------------------------------

func runDownload(j *job, args []string) error {
	if err := j.parse(args); err != nil {
		return err
	}
	start, end, err := j.dates()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := j.conf.MConfig
	netMgr := network.NewAsyncNetworkManager(cfg, j.log.Named("NetworkManager"))
	source := dukascopy.NewSource(cfg, netMgr, j.log.Named("Dukascopy"))
	manager := datasource.NewMultiPairManager(source, j.log.Named("MultiPairManager"))

	stats, err := manager.DownloadAll(ctx, j.pairs(), start, end.AddDate(0, 0, 1))
	for _, s := range stats {
		j.log.Info("%s: ok=%d skipped=%d missing=%d failed=%d", s.Pair, s.OK, s.Skipped, s.Missing, s.Failed)
	}
	return err
}

// -----------------------------------------------------------------------------

func runBuildMinute(j *job, args []string) error {
	if err := j.parse(args); err != nil {
		return err
	}
	start, end, err := j.dates()
	if err != nil {
		return err
	}

	for _, pair := range j.pairs() {
		n, err := pipeline.BuildMinuteBars(j.conf.MConfig, j.log, pair, start, end)
		if err != nil {
			return fmt.Errorf("failed to build M1 bars for %s: %w", pair, err)
		}
		j.log.Info("%s: %d M1 bars", pair, n)
	}
	return nil
}

// -----------------------------------------------------------------------------

func runBuildBars(j *job, args []string) error {
	if err := j.parse(args); err != nil {
		return err
	}

	tfs := j.conf.Bars.Timeframes
	if *j.tf != "" {
		tfs = strings.Split(strings.ToUpper(*j.tf), ",")
	}

	for _, pair := range j.pairs() {
		counts, err := pipeline.BuildTimeframes(j.conf.MConfig, j.log, pair, tfs)
		if err != nil {
			return fmt.Errorf("failed to build timeframes for %s: %w", pair, err)
		}
		for _, tf := range tfs {
			j.log.Info("%s %s: %d bars", pair, tf, counts[tf])
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func runBuildFeatures(j *job, args []string) error {
	if err := j.parse(args); err != nil {
		return err
	}

	tf := j.timeframe()
	for _, pair := range j.pairs() {
		table, err := pipeline.BuildFeatures(j.conf.MConfig, j.log, pair, tf)
		if err != nil {
			return fmt.Errorf("failed to build features for %s %s: %w", pair, tf, err)
		}
		j.log.Info("%s %s: %d feature rows, %d columns", pair, tf, table.Len(), len(table.Columns))
	}
	return nil
}

// -----------------------------------------------------------------------------

func runImportEvents(j *job, args []string) error {
	file := j.flags.String("file", "", "JSON lines event batch")
	if err := j.parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("-file is required")
	}

	n, err := pipeline.ImportEventsFile(j.conf.MConfig, j.log, *file)
	if err != nil {
		return err
	}
	j.log.Info("Imported %d events from %s", n, *file)
	return nil
}

// -----------------------------------------------------------------------------

func (j *job) trainOptions() (trainer.Options, error) {
	var opts trainer.Options
	if *j.start == "" {
		return opts, nil
	}
	start, end, err := j.dates()
	if err != nil {
		return opts, err
	}
	opts.Start = start
	if *j.end != "" {
		opts.End = end.AddDate(0, 0, 1)
	}
	return opts, nil
}

func runTrain(j *job, args []string) error {
	if err := j.parse(args); err != nil {
		return err
	}
	opts, err := j.trainOptions()
	if err != nil {
		return err
	}

	tf := j.timeframe()
	for _, pair := range j.pairs() {
		art, err := pipeline.Train(j.conf.MConfig, j.log, pair, tf, opts)
		if err != nil {
			if helpers.IsInsufficientData(err) {
				j.log.Warning("Skipping %s: %v", pair, err)
				continue
			}
			return fmt.Errorf("failed to train %s %s: %w", pair, tf, err)
		}
		j.log.Info("%s %s: trained %s", pair, tf, art.Metadata.RunID)
	}
	return nil
}

// -----------------------------------------------------------------------------

func runAutoTrain(j *job, args []string) error {
	force := j.flags.Bool("force", false, "retrain even when the model is up to date")
	if err := j.parse(args); err != nil {
		return err
	}

	tf := j.timeframe()
	for _, pair := range j.pairs() {
		trained, err := pipeline.AutoTrain(j.conf.MConfig, j.log, pair, tf, *force, time.Now())
		if err != nil {
			return fmt.Errorf("auto-train failed for %s %s: %w", pair, tf, err)
		}
		j.log.Info("%s %s: trained=%v", pair, tf, trained)
	}
	return nil
}

// -----------------------------------------------------------------------------

func runAnalyze(j *job, args []string) error {
	if err := j.parse(args); err != nil {
		return err
	}

	tf := j.timeframe()
	for _, pair := range j.pairs() {
		fmt.Println(pipeline.LatestDecisionText(j.conf.MConfig, j.log, pair, tf))
	}
	return nil
}
