// Package engine drives the two-phase replay: a parse phase that
// expands each root's transitive dependencies into resolved
// descriptors, a barrier, then a create phase that invokes the driver
// in dependency order and destroys objects as soon as nothing needs
// them.
//
// Scheduling model: a fixed pool of workers shares a single root queue.
// Each worker holds a small ring of cooperative tasks, one DFS stack
// per task. A worker that finds an entry mid-parse or mid-create on
// another worker does not block; it re-visits the frame on a later
// round and meanwhile advances its other tasks.
package engine

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gogpu/prewarm/archive"
	"github.com/gogpu/prewarm/capture"
	"github.com/gogpu/prewarm/driver"
	"github.com/gogpu/prewarm/internal/table"
	"github.com/gogpu/prewarm/progress"
)

// Config wires an Engine.
type Config struct {
	Archive *archive.Archive
	Table   *table.Table
	Driver  driver.Driver

	// Sink receives per-entry outcomes; nil means progress.Nop.
	Sink progress.Sink

	// Workers is the pool size; 0 or negative means one per hardware
	// thread.
	Workers int
}

// Summary is the replay outcome per tag.
type Summary struct {
	Created [capture.TagCount]int64
	Invalid [capture.TagCount]int64
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

// Engine replays an opened archive against a driver.
type Engine struct {
	arc     *archive.Archive
	tbl     *table.Table
	drv     driver.Driver
	sink    progress.Sink
	workers int

	roots        []*table.Entry
	parseCursor  atomic.Int64
	createCursor atomic.Int64
	barrier      *barrier

	// maxDepth bounds a task's DFS stack; a deeper walk means the
	// archive's reference graph is cyclic.
	maxDepth int

	created [capture.TagCount]atomic.Int64
	invalid [capture.TagCount]atomic.Int64
}

// Package errors.
var (
	// ErrNoDriver is returned when Config.Driver is nil.
	ErrNoDriver = errors.New("engine: no driver configured")
)

// New builds an engine over an opened archive and its entry table.
func New(cfg Config) (*Engine, error) {
	if cfg.Driver == nil {
		return nil, ErrNoDriver
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	sink := cfg.Sink
	if sink == nil {
		sink = progress.Nop{}
	}
	total := 0
	for tag := capture.Tag(0); tag < capture.TagCount; tag++ {
		total += len(cfg.Table.Values(tag))
	}
	return &Engine{
		arc:      cfg.Archive,
		tbl:      cfg.Table,
		drv:      cfg.Driver,
		sink:     sink,
		workers:  workers,
		roots:    cfg.Table.Roots(),
		barrier:  newBarrier(workers),
		maxDepth: total + 1,
	}, nil
}

// Run replays every root to completion and returns the outcome counts.
// Per-root failures are absorbed (the root is invalidated and logged);
// only logic faults abort the run.
func (e *Engine) Run() *Summary {
	var wg sync.WaitGroup
	wg.Add(e.workers - 1)
	for i := 1; i < e.workers; i++ {
		w := &worker{eng: e, id: i}
		go func() {
			defer wg.Done()
			w.run()
		}()
	}
	// The spawner has equal role: it is worker 0.
	(&worker{eng: e}).run()
	wg.Wait()

	s := &Summary{}
	for tag := capture.Tag(0); tag < capture.TagCount; tag++ {
		s.Created[tag] = e.created[tag].Load()
		s.Invalid[tag] = e.invalid[tag].Load()
	}
	return s
}

// nextRoot dequeues the next root for the phase, skipping roots the
// create phase can no longer use.
func (e *Engine) nextRoot(ph phase) *table.Entry {
	cursor := &e.parseCursor
	if ph == phaseCreate {
		cursor = &e.createCursor
	}
	for {
		i := cursor.Add(1) - 1
		if i >= int64(len(e.roots)) {
			return nil
		}
		root := e.roots[i]
		if ph == phaseCreate {
			switch root.Status() {
			case table.StatusInvalid, table.StatusCreated:
				continue
			}
		}
		return root
	}
}

func (e *Engine) rootsExhausted(ph phase) bool {
	if ph == phaseCreate {
		return e.createCursor.Load() >= int64(len(e.roots))
	}
	return e.parseCursor.Load() >= int64(len(e.roots))
}
