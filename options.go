package prewarm

import (
	"github.com/gogpu/prewarm/capture"
	"github.com/gogpu/prewarm/driver"
	"github.com/gogpu/prewarm/progress"
)

// Option configures a replay run.
//
// Example:
//
//	// Dry run against the counting recorder:
//	summary, err := prewarm.Run(path, prewarm.WithDriver(driver.NewRecorder()))
//
//	// Real replay with an explicit pool size:
//	summary, err := prewarm.Run(path,
//	    prewarm.WithDriver(dev),
//	    prewarm.WithThreads(8))
type Option func(*runOptions)

type runOptions struct {
	driver    driver.Driver
	sink      progress.Sink
	threads   int
	supported *capture.Features2
}

func defaultOptions() runOptions {
	return runOptions{
		sink: progress.Nop{},
	}
}

// WithDriver sets the replay target. A run needs one: the real GPU
// backend (driver/haldrv) or the counting recorder for dry runs.
func WithDriver(d driver.Driver) Option {
	return func(o *runOptions) { o.driver = d }
}

// WithProgress sets the outcome sink. The default discards outcomes.
func WithProgress(s progress.Sink) Option {
	return func(o *runOptions) { o.sink = s }
}

// WithThreads overrides the worker pool size. Zero or negative means
// one worker per hardware thread.
func WithThreads(n int) Option {
	return func(o *runOptions) { o.threads = n }
}

// WithSupportedFeatures provides the device's supported feature chain
// for the capture-time negotiation replay. When absent, the
// application's own request stands in, which reproduces the capture
// negotiation exactly.
func WithSupportedFeatures(f *capture.Features2) Option {
	return func(o *runOptions) { o.supported = f }
}
