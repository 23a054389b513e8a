package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/scott-cotton/cli"
	"go.uber.org/zap"

	"zipdir/pkg/archive"
	"zipdir/pkg/config"
	"zipdir/pkg/logging"
	"zipdir/pkg/metrics"
	"zipdir/pkg/progress"
)

type MainConfig struct {
	ConfigFile string `cli:"name=config desc='YAML settings file'"`
	Verbose    bool   `cli:"name=v aliases=verbose desc='log debug output'"`
	Stats      bool   `cli:"name=stats desc='print counters when done'"`
	Progress   bool   `cli:"name=progress desc='report progress even when stdout is not a terminal'"`

	Main *cli.Command
}

type zipConfig struct {
	*cli.Command
	main *MainConfig

	Output string `cli:"name=o aliases=output desc='archive to write (default <first path>.zip)'"`
}

type unzipConfig struct {
	*cli.Command
	main *MainConfig

	Keep   bool `cli:"name=keep aliases=k desc='keep existing files instead of overwriting them'"`
	Stream bool `cli:"name=stream desc='read local headers sequentially instead of the central directory'"`
}

type listConfig struct {
	*cli.Command
	main *MainConfig
}

type editConfig struct {
	*cli.Command
	main *MainConfig

	Discard bool `cli:"name=discard desc='never write changes back to the archive'"`
}

// session carries what one command invocation shares: settings, logger and
// counters.
type session struct {
	settings *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	stats    bool
	progress bool
}

func (cfg *MainConfig) session() (*session, error) {
	settings, err := config.Load(cfg.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	if cfg.Verbose {
		settings.LogLevel = "debug"
	}
	logger, err := logging.New(settings.Logging())
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	reg := prometheus.NewRegistry()
	return &session{
		settings: settings,
		logger:   logger,
		registry: reg,
		metrics:  metrics.New(reg),
		stats:    cfg.Stats,
		progress: cfg.Progress || settings.ProgressEnabled(isatty.IsTerminal(os.Stdout.Fd())),
	}, nil
}

// close flushes the logger and prints the counters when asked to.
func (s *session) close(w io.Writer) error {
	_ = s.logger.Sync()
	if !s.stats {
		return nil
	}
	return metrics.WriteText(s.registry, w)
}

// tracker returns a started progress tracker, or nil when progress is off.
func (s *session) tracker(total uint64) *progress.Tracker {
	if !s.progress {
		return nil
	}
	t := progress.New(os.Stderr, total)
	t.Start()
	return t
}

func (s *session) encodeOptions(t *progress.Tracker) ([]archive.Option, error) {
	opts, err := s.settings.EncodeOptions()
	if err != nil {
		return nil, err
	}
	return append(opts, s.common(t)...), nil
}

func (s *session) common(t *progress.Tracker) []archive.Option {
	return []archive.Option{
		archive.WithLogger(s.logger),
		archive.WithMetrics(s.metrics),
		archive.WithProgress(t),
	}
}

var done = color.New(color.FgGreen, color.Bold)

func success(w io.Writer, format string, args ...any) {
	done.Fprintf(w, format, args...)
}
