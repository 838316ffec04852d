// Package progress reports per-entry replay outcomes to an external
// observer. The default sink drops everything; NewSharedMem maps a
// caller-supplied file descriptor so a launcher process can watch the
// counters without any wire protocol.
package progress

import "github.com/gogpu/prewarm/capture"

// Outcome is the result of one replay step on one entry.
type Outcome uint8

const (
	// OutcomeParsed means the entry's descriptor was resolved.
	OutcomeParsed Outcome = iota

	// OutcomeCreated means the driver produced a handle.
	OutcomeCreated

	// OutcomeFailed means the entry was invalidated.
	OutcomeFailed

	outcomeCount
)

func (o Outcome) String() string {
	switch o {
	case OutcomeParsed:
		return "parsed"
	case OutcomeCreated:
		return "created"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Sink receives replay outcomes. Implementations must be safe for
// concurrent use; the engine records from every worker.
type Sink interface {
	Record(tag capture.Tag, outcome Outcome)
}

// Nop is a Sink that discards everything.
type Nop struct{}

// Record implements Sink.
func (Nop) Record(capture.Tag, Outcome) {}
