// Command prewarm replays a pipeline capture archive against the GPU
// driver so its shader cache is populated before an application needs
// it.
//
// Usage:
//
//	prewarm [flags] <archive>
//
// Unknown flags are ignored so external launchers can pass their whole
// flag set through. Exit status is 0 for a clean replay, including one
// with invalid roots; only setup failures exit non-zero.
//
// The PREWARM_LOG_FILE environment variable redirects structured logs
// to an absolute file path; PREWARM_LOG_LEVEL=debug raises verbosity.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/grafana/pyroscope-go"
	"github.com/jessevdk/go-flags"

	"github.com/gogpu/prewarm"
	"github.com/gogpu/prewarm/driver"
	"github.com/gogpu/prewarm/driver/haldrv"
	"github.com/gogpu/prewarm/progress"
)

type options struct {
	NumThreads       int    `long:"num_threads" description:"worker count (default: one per hardware thread)"`
	EnableValidation bool   `long:"enable_validation" description:"request driver validation"`
	DeviceIndex      int    `long:"device_index" default:"-1" description:"GPU adapter index (-1 picks automatically)"`
	PipelineCache    string `long:"on_disk_pipeline_cache" description:"accepted for launcher compatibility; the driver manages its own cache"`
	ProgressFD       int    `long:"progress-fd" default:"-1" description:"file descriptor of a shared-memory progress block"`
	DryRun           bool   `long:"dry-run" description:"replay against a counting recorder instead of the GPU"`
	ProfileEndpoint  string `long:"profile-endpoint" description:"Pyroscope server URL for continuous CPU profiling"`

	Args struct {
		Archive string `positional-arg-name:"archive" description:"capture archive path"`
	} `positional-args:"yes" required:"yes"`
}

func main() {
	os.Exit(run())
}

func run() int {
	var opts options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash|flags.IgnoreUnknown)
	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logger, closeLog, err := setupLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeLog()
	prewarm.SetLogger(logger)

	if opts.ProfileEndpoint != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "prewarm",
			ServerAddress:   opts.ProfileEndpoint,
			ProfileTypes:    []pyroscope.ProfileType{pyroscope.ProfileCPU},
		})
		if err != nil {
			logger.Warn("profiler unavailable", "err", err)
		} else {
			defer profiler.Stop()
		}
	}

	var drv driver.Driver
	if opts.DryRun {
		drv = driver.NewRecorder()
	} else {
		dev, err := haldrv.Open(haldrv.Options{
			DeviceIndex: opts.DeviceIndex,
			Validation:  opts.EnableValidation,
		})
		if err != nil {
			logger.Error("device setup failed", "err", err)
			return 1
		}
		drv = dev
	}
	defer drv.Close()
	if opts.PipelineCache != "" {
		logger.Debug("on-disk pipeline cache requested; driver manages its own cache",
			"path", opts.PipelineCache)
	}

	runOpts := []prewarm.Option{
		prewarm.WithDriver(drv),
		prewarm.WithThreads(opts.NumThreads),
	}
	if opts.ProgressFD >= 0 {
		shm, err := progress.NewSharedMem(opts.ProgressFD)
		if err != nil {
			logger.Error("progress block setup failed", "err", err)
			return 1
		}
		defer shm.Close()
		runOpts = append(runOpts, prewarm.WithProgress(shm))
	}

	summary, err := prewarm.Run(opts.Args.Archive, runOpts...)
	if err != nil {
		logger.Error("replay setup failed", "err", err)
		return 1
	}
	// Invalid roots are a property of the capture, not a failure of
	// this run.
	_ = summary
	return 0
}

// setupLogger builds the process logger. PREWARM_LOG_FILE redirects
// output to an absolute path; the returned closer flushes it.
func setupLogger() (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if os.Getenv("PREWARM_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}

	out := os.Stderr
	closeLog := func() {}
	if path := os.Getenv("PREWARM_LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("prewarm: open log file: %w", err)
		}
		out = f
		closeLog = func() { f.Close() }
	}
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closeLog, nil
}
