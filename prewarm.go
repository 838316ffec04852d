// Package prewarm replays a content-addressed archive of captured
// pipeline-creation state against a running GPU driver, as fast as the
// hardware allows, so the driver's on-disk shader cache is hot before
// an application needs it.
//
// The replay runs in two phases over a fixed worker pool: a parse phase
// that expands each pipeline's transitive dependencies into resolved
// creation descriptors, then a create phase that submits them to the
// driver in dependency order and destroys every object as soon as
// nothing needs it. Nothing is retained: the driver's cache is the
// durable artifact.
package prewarm

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"

	"github.com/gogpu/prewarm/archive"
	"github.com/gogpu/prewarm/capture"
	"github.com/gogpu/prewarm/features"
	"github.com/gogpu/prewarm/internal/engine"
	"github.com/gogpu/prewarm/internal/logging"
	"github.com/gogpu/prewarm/internal/table"
)

// ErrNoDriver is returned when Run is called without a driver.
var ErrNoDriver = errors.New("prewarm: no driver configured")

// Summary is the outcome of one replay run.
type Summary struct {
	// Created and Invalid count terminal entry states per tag.
	Created [capture.TagCount]int64
	Invalid [capture.TagCount]int64

	// Duration covers archive open through last destroy.
	Duration time.Duration

	// PeakRSSBytes is the process's maximum resident set size.
	PeakRSSBytes int64

	// App is the captured application identity, when archived.
	App *capture.ApplicationInfo

	// EnabledExtensions is the negotiated device extension list.
	EnabledExtensions []string
}

// TotalCreated sums created entries across tags.
func (s *Summary) TotalCreated() int64 {
	var n int64
	for _, v := range s.Created {
		n += v
	}
	return n
}

// TotalInvalid sums invalidated entries across tags.
func (s *Summary) TotalInvalid() int64 {
	var n int64
	for _, v := range s.Invalid {
		n += v
	}
	return n
}

// Run opens the archive at path and replays every pipeline it holds.
// Per-root failures are absorbed into the summary; the returned error
// covers setup only (archive open, missing driver). The driver is not
// closed; it belongs to the caller.
func Run(path string, opts ...Option) (*Summary, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.driver == nil {
		return nil, ErrNoDriver
	}
	log := logging.L()
	start := time.Now()

	a, err := archive.Open(path)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	stats := a.Stats()
	log.Debug("archive opened", "path", path,
		"stored_bytes", stats.StoredBytes, "payload_bytes", stats.PayloadBytes)
	for tag := capture.Tag(0); tag < capture.TagCount; tag++ {
		if stats.Entries[tag] > 0 {
			log.Debug("archive entries", "tag", tag.String(), "count", stats.Entries[tag])
		}
	}

	tbl := table.New(a)
	summary := &Summary{}
	summary.App, summary.EnabledExtensions = replayNegotiation(a, tbl, o.supported)

	eng, err := engine.New(engine.Config{
		Archive: a,
		Table:   tbl,
		Driver:  o.driver,
		Sink:    o.sink,
		Workers: o.threads,
	})
	if err != nil {
		return nil, err
	}
	result := eng.Run()

	summary.Created = result.Created
	summary.Invalid = result.Invalid
	summary.Duration = time.Since(start)
	summary.PeakRSSBytes = peakRSS()

	log.Info("replay finished",
		"driver", o.driver.Name(),
		"created", summary.TotalCreated(),
		"invalid", summary.TotalInvalid(),
		"duration", summary.Duration,
		"peak_rss_bytes", summary.PeakRSSBytes)
	return summary, nil
}

// replayNegotiation reproduces capture-time feature negotiation from
// the archived application record: the request is masked against the
// supported chain (the request itself when the caller has none),
// all-zero chain entries are stripped with their extension names, and
// the DXVK/vkd3d workarounds applied. The result is what a device
// create on the capture machine saw, bit for bit.
func replayNegotiation(a *archive.Archive, tbl *table.Table, supported *capture.Features2) (*capture.ApplicationInfo, []string) {
	entries := a.Entries(capture.TagApplicationInfo)
	if len(entries) == 0 {
		return nil, nil
	}
	payload, err := a.Payload(&entries[0], nil)
	if err != nil {
		logging.L().Warn("application info unreadable", "err", err)
		return nil, nil
	}
	res, err := capture.ParseApplicationInfo(payload, tbl)
	if err != nil {
		logging.L().Warn("application info unparsable", "err", err)
		return nil, nil
	}
	app := res.Desc.(*capture.ApplicationInfo)
	logging.L().Info("replaying capture",
		"application", app.ApplicationName, "engine", app.EngineName,
		"api_version", app.APIVersion)

	requested := app.Features
	if requested == nil {
		requested = capture.NewFeatures2()
	}
	if supported == nil {
		supported = requested
	}
	negotiated, ext := features.Negotiate(supported, requested, app.Extensions, app.EngineName)
	logging.L().Debug("device features negotiated",
		"chain_entries", len(negotiated.Chain), "extensions", len(ext))
	return app, ext
}

// peakRSS reads the process's maximum resident set size in bytes.
func peakRSS() int64 {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0
	}
	// Linux reports ru_maxrss in kilobytes.
	return ru.Maxrss * 1024
}
