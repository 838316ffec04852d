package engine

import (
	"fmt"
	"runtime"

	"github.com/gogpu/prewarm/capture"
	"github.com/gogpu/prewarm/driver"
	"github.com/gogpu/prewarm/internal/hashutil"
	"github.com/gogpu/prewarm/internal/logging"
	"github.com/gogpu/prewarm/internal/table"
	"github.com/gogpu/prewarm/progress"
)

type phase uint8

const (
	phaseParse phase = iota
	phaseCreate
)

// taskSlots is the number of cooperative tasks each worker multiplexes.
// When one task's frame is held by another worker, the worker advances
// its other tasks instead of blocking.
const taskSlots = 4

// frame is one DFS step: the entry being walked and the index of the
// next dependency to descend into when control returns to it.
type frame struct {
	e    *table.Entry
	next int
}

// task walks one root's dependency tree.
type task struct {
	root  *table.Entry
	stack []frame
}

type worker struct {
	eng *Engine
	id  int

	tasks [taskSlots]*task

	// buf is the payload scratch, reused across fetches.
	buf []byte
}

func (w *worker) run() {
	w.runPhase(phaseParse)
	w.eng.barrier.wait()
	w.runPhase(phaseCreate)
}

// runPhase drains the root queue through the task ring. A round that
// makes no progress on any task yields the processor; the entries the
// tasks are blocked on belong to other workers that are still running.
func (w *worker) runPhase(ph phase) {
	for {
		progressed := false
		active := false
		for i := range w.tasks {
			if w.tasks[i] == nil {
				root := w.eng.nextRoot(ph)
				if root == nil {
					continue
				}
				w.tasks[i] = &task{root: root, stack: []frame{{e: root}}}
				progressed = true
			}
			done, prog := w.advance(w.tasks[i], ph)
			progressed = progressed || prog
			if done {
				w.tasks[i] = nil
			} else {
				active = true
			}
		}
		if !active && w.eng.rootsExhausted(ph) {
			return
		}
		if !progressed {
			runtime.Gosched()
		}
	}
}

// advance runs one task until it completes, dies, or blocks on an entry
// another worker holds. Returns whether the task is finished and
// whether any step was taken.
func (w *worker) advance(t *task, ph phase) (done, progressed bool) {
	for len(t.stack) > 0 {
		if len(t.stack) > w.eng.maxDepth {
			// A walk deeper than the table has entries means the
			// archive's reference graph is cyclic.
			logging.L().Warn("dependency cycle detected; invalidating root",
				"tag", t.root.Tag(), "hash", hashutil.FormatHash(t.root.Hash()))
			w.invalidateStack(t)
			return true, true
		}
		f := &t.stack[len(t.stack)-1]
		e := f.e

		switch e.Status() {
		case table.StatusInvalid:
			w.invalidateStack(t)
			return true, true

		case table.StatusParsing:
			// Another worker is parsing this entry; yield the task.
			return false, progressed

		case table.StatusNotParsed:
			if ph == phaseCreate {
				panic(fmt.Sprintf("prewarm: %s/%s reached create phase unparsed",
					e.Tag(), hashutil.FormatHash(e.Hash())))
			}
			if !e.CASStatus(table.StatusNotParsed, table.StatusParsing) {
				// Lost the race; re-dispatch on the new status.
				continue
			}
			if err := w.parse(e); err != nil {
				logging.L().Debug("parse failed",
					"tag", e.Tag(), "hash", hashutil.FormatHash(e.Hash()), "err", err)
				w.invalidateStack(t)
				return true, true
			}
			progressed = true
			continue

		case table.StatusCreating:
			// Only reachable in the create phase; yield.
			return false, progressed

		case table.StatusCreated:
			// Subtree already replayed; the creating walk handled it.
			t.stack = t.stack[:len(t.stack)-1]
			progressed = true
			continue

		case table.StatusParsed:
		}

		// Descend into the next unvisited dependency.
		if f.next < len(e.Deps) {
			child := e.Deps[f.next].Entry
			f.next++
			t.stack = append(t.stack, frame{e: child})
			progressed = true
			continue
		}

		// All dependencies handled.
		if ph == phaseCreate {
			if !e.CASStatus(table.StatusParsed, table.StatusCreating) {
				// Another task reached the entry first; re-dispatch.
				continue
			}
			if err := w.create(e); err != nil {
				logging.L().Debug("create failed",
					"tag", e.Tag(), "hash", hashutil.FormatHash(e.Hash()), "err", err)
				w.invalidateStack(t)
				return true, true
			}
			progressed = true
		}
		t.stack = t.stack[:len(t.stack)-1]
		progressed = true
	}
	return true, progressed
}

// parse fetches, parses and publishes one entry. The caller holds the
// Parsing state. On failure the entry is left Invalid.
func (w *worker) parse(e *table.Entry) error {
	payload, err := w.eng.arc.Payload(e.Rec, w.buf)
	if err != nil {
		w.invalidate(e)
		return err
	}
	w.buf = payload

	res, err := capture.ParsePayload(e.Tag(), payload, w.eng.tbl)
	if err != nil {
		w.invalidate(e)
		return err
	}
	if res.Hash != e.Hash() {
		w.invalidate(e)
		return fmt.Errorf("%w: payload hash %s under entry %s", capture.ErrInvalidJSON,
			hashutil.FormatHash(res.Hash), hashutil.FormatHash(e.Hash()))
	}

	deps := make([]table.Dep, 0, len(res.Fixups))
	for _, fx := range res.Fixups {
		dep := w.eng.tbl.Get(fx.DepTag, fx.DepHash)
		if dep == nil {
			// The parser resolved this hash moments ago; the table is
			// immutable, so this cannot happen.
			panic(fmt.Sprintf("prewarm: fixup to unknown entry %s/%s",
				fx.DepTag, hashutil.FormatHash(fx.DepHash)))
		}
		deps = append(deps, table.Dep{Entry: dep, Target: fx.Target})
	}

	e.Desc = res
	e.Deps = deps
	// Claims are taken before the release-store so no walker can
	// observe the entry Parsed with its dependencies unclaimed.
	for _, d := range deps {
		d.Entry.AddDependent()
	}
	e.SetStatus(table.StatusParsed)
	w.eng.sink.Record(e.Tag(), progress.OutcomeParsed)
	return nil
}

// create patches the entry's fixups, invokes the driver, publishes the
// handle, and releases the entry's claims on its dependencies. The
// caller holds the Creating state. On failure the entry is left
// Creating; the caller's invalidateStack moves it to Invalid and
// releases its dependency claims.
func (w *worker) create(e *table.Entry) error {
	for _, d := range e.Deps {
		if d.Target != nil {
			*d.Target = d.Entry.Handle
		}
	}

	h, err := driver.Create(w.eng.drv, e.Tag(), e.Desc.Desc)
	if err != nil {
		// invalidateStack will move e to Invalid and release its
		// dependency claims; nothing to do here.
		return err
	}

	e.Handle = h
	e.SetStatus(table.StatusCreated)
	w.eng.created[e.Tag()].Add(1)
	w.eng.sink.Record(e.Tag(), progress.OutcomeCreated)

	// Nothing references a finished root (unless it is also a pipeline
	// library); destroy it right away so the driver cache, not the
	// object, is what survives.
	if e.Dependents() == 0 {
		w.maybeDestroy(e)
	}
	for _, d := range e.Deps {
		w.dropDependent(d.Entry)
	}
	return nil
}

// invalidateStack kills the whole walk: every frame still on the stack
// depends on the failed entry at the top.
func (w *worker) invalidateStack(t *task) {
	for i := len(t.stack) - 1; i >= 0; i-- {
		w.invalidate(t.stack[i].e)
	}
	t.stack = nil
}

// invalidate moves an entry to Invalid. The transition winner releases
// the entry's claims on its dependencies so siblings sharing them are
// not blocked, and records the failure.
func (w *worker) invalidate(e *table.Entry) {
	if !e.Invalidate() {
		return
	}
	w.eng.invalid[e.Tag()].Add(1)
	w.eng.sink.Record(e.Tag(), progress.OutcomeFailed)
	for _, d := range e.Deps {
		w.dropDependent(d.Entry)
	}
}

// dropDependent releases one claim; the claim that hits zero destroys
// the dependency if it finished creating.
func (w *worker) dropDependent(e *table.Entry) {
	if e.DropDependent() == 0 {
		w.maybeDestroy(e)
	}
}

// maybeDestroy destroys a created, unreferenced entry exactly once.
func (w *worker) maybeDestroy(e *table.Entry) {
	if e.Status() != table.StatusCreated {
		return
	}
	if !e.MarkDestroyed() {
		return
	}
	driver.Destroy(w.eng.drv, e.Tag(), e.Handle)
	// The descriptor is dead weight once the object exists and nothing
	// will patch from it again.
	e.Desc = nil
}
