// Package table holds the replay entry table: per-tag ordered maps of
// archive entries extended with mutable replay state. Keys and locators
// are fixed at archive open; afterwards only the status word, the
// published descriptor/handle/dependency fields, and the fan-in counter
// mutate, each under the atomics discipline the engine relies on.
package table

import (
	"sync/atomic"

	"github.com/gogpu/prewarm/archive"
	"github.com/gogpu/prewarm/capture"
)

// Status is an entry's replay state machine. Transitions are monotone
// except Invalid, which is terminal and reachable from any state.
type Status uint32

const (
	StatusNotParsed Status = iota
	StatusParsing
	StatusParsed
	StatusCreating
	StatusCreated
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusNotParsed:
		return "not_parsed"
	case StatusParsing:
		return "parsing"
	case StatusParsed:
		return "parsed"
	case StatusCreating:
		return "creating"
	case StatusCreated:
		return "created"
	case StatusInvalid:
		return "invalid"
	}
	return "unknown"
}

// Dep is one resolved dependency edge: the entry whose handle feeds the
// dependent, and the descriptor slot the handle is written to before the
// dependent's create call. Target may be nil for a parse-order-only
// dependency; the create phase patches only non-nil targets.
type Dep struct {
	Entry  *Entry
	Target *capture.Handle
}

// Entry is one captured object's replay state. The archive record is
// immutable; Desc, Handle and Deps are published by the parsing or
// creating worker with a release-store on the status word and must only
// be read after an acquire-load observes the corresponding status.
type Entry struct {
	Rec *archive.Entry

	status atomic.Uint32

	// Desc is the parsed Result (valid once status is Parsed).
	Desc *capture.Result

	// Handle is the driver object (valid once status is Created).
	Handle capture.Handle

	// Deps are the resolved dependency edges (valid once Parsed).
	Deps []Dep

	// dependents counts parents that still need this entry's handle.
	// Counted up during the parse phase and down during the create
	// phase; the decrement that reaches zero triggers the destroy.
	dependents atomic.Int32

	// destroyed guards the destroy call: fired exactly once.
	destroyed atomic.Bool
}

// Tag returns the entry's kind.
func (e *Entry) Tag() capture.Tag { return e.Rec.Tag }

// Hash returns the entry's content hash.
func (e *Entry) Hash() uint64 { return e.Rec.Hash }

// Status loads the entry's current state (acquire).
func (e *Entry) Status() Status { return Status(e.status.Load()) }

// CASStatus attempts the old→new transition.
func (e *Entry) CASStatus(old, new Status) bool {
	return e.status.CompareAndSwap(uint32(old), uint32(new))
}

// SetStatus stores new unconditionally (release). The caller must have
// published any fields the new state makes visible.
func (e *Entry) SetStatus(new Status) { e.status.Store(uint32(new)) }

// Invalidate moves the entry to Invalid. It returns true for the caller
// that performed the transition; that caller owns the fan-in decrements
// of the entry's dependencies.
func (e *Entry) Invalidate() bool {
	for {
		old := e.status.Load()
		if Status(old) == StatusInvalid {
			return false
		}
		if e.status.CompareAndSwap(old, uint32(StatusInvalid)) {
			return true
		}
	}
}

// AddDependent notes one more parent needing this entry's handle.
func (e *Entry) AddDependent() { e.dependents.Add(1) }

// DropDependent releases one parent's claim and returns the remaining
// count.
func (e *Entry) DropDependent() int32 { return e.dependents.Add(-1) }

// Dependents loads the current fan-in count.
func (e *Entry) Dependents() int32 { return e.dependents.Load() }

// MarkDestroyed returns true exactly once.
func (e *Entry) MarkDestroyed() bool {
	return e.destroyed.CompareAndSwap(false, true)
}

// Destroyed reports whether the destroy fired.
func (e *Entry) Destroyed() bool { return e.destroyed.Load() }

// Table is the per-tag entry index. It is populated once at archive
// open; afterwards lookups are read-only and safe for concurrent use.
type Table struct {
	byTag  [capture.TagCount][]*Entry
	byHash [capture.TagCount]map[uint64]*Entry
}

// New builds the table over an opened archive.
func New(a *archive.Archive) *Table {
	t := &Table{}
	for tag := capture.Tag(0); tag < capture.TagCount; tag++ {
		recs := a.Entries(tag)
		entries := make([]*Entry, len(recs))
		byHash := make(map[uint64]*Entry, len(recs))
		for i := range recs {
			e := &Entry{Rec: &recs[i]}
			entries[i] = e
			byHash[recs[i].Hash] = e
		}
		t.byTag[tag] = entries
		t.byHash[tag] = byHash
	}
	return t
}

// Get returns the entry for (tag, hash), or nil.
func (t *Table) Get(tag capture.Tag, hash uint64) *Entry {
	if !tag.Valid() {
		return nil
	}
	return t.byHash[tag][hash]
}

// Values returns the tag's entries in ascending hash order. The slice
// is shared and must not be mutated.
func (t *Table) Values(tag capture.Tag) []*Entry {
	if !tag.Valid() {
		return nil
	}
	return t.byTag[tag]
}

// Roots returns every pipeline entry, in tag then hash order.
func (t *Table) Roots() []*Entry {
	var roots []*Entry
	for _, tag := range capture.PipelineTags {
		roots = append(roots, t.byTag[tag]...)
	}
	return roots
}

// Has implements capture.Resolver.
func (t *Table) Has(tag capture.Tag, hash uint64) bool {
	return t.Get(tag, hash) != nil
}

// PipelineTag implements capture.Resolver: library references may cross
// pipeline families, so the lookup spans all three pipeline tags.
func (t *Table) PipelineTag(hash uint64) (capture.Tag, bool) {
	for _, tag := range capture.PipelineTags {
		if t.byHash[tag][hash] != nil {
			return tag, true
		}
	}
	return 0, false
}
