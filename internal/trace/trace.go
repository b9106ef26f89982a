// Package trace reads and writes recovery event streams as JSONL. A
// trace makes a driver run reproducible: replaying it into a fresh
// registry rebuilds identical state, because every registry operation is
// idempotent and order-insensitive within a function.
package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Event ops. These mirror the registry's mutating events one to one.
const (
	OpBlock          = "block"
	OpCallTo         = "call_to"
	OpReturnFrom     = "return_from"
	OpTransitTo      = "transit_to"
	OpReturnFromCall = "return_from_call"
)

// Event is one recovery event. Addresses are hex strings ("0x1000") to
// keep the stream greppable.
type Event struct {
	Op   string `json:"op"`
	Fn   string `json:"fn"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	Ret  string `json:"ret,omitempty"`
}

func addr(v uint64) string { return "0x" + strconv.FormatUint(v, 16) }

func parseAddr(s string) (uint64, error) {
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("trace: bad address %q: %w", s, err)
	}
	return v, nil
}

// Read decodes all events from a JSONL stream.
func Read(r io.Reader) ([]Event, error) {
	var events []Event
	dec := json.NewDecoder(r)
	for dec.More() {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			return events, fmt.Errorf("trace: line %d: %w", len(events)+1, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// Sink is the event consumer a trace replays into. *registry.Registry
// satisfies it.
type Sink interface {
	AddBlock(fn, addr uint64)
	CallTo(fn, from, to, retn uint64)
	ReturnFrom(fn, from uint64)
	TransitTo(fn, from, to uint64)
	ReturnFromCall(fn, firstBlock, to uint64)
}

// Apply replays events into a sink. Unknown ops and malformed addresses
// are errors; the ledger itself never rejects an event.
func Apply(events []Event, sink Sink) error {
	for i, ev := range events {
		if err := applyOne(ev, sink); err != nil {
			return fmt.Errorf("trace: event %d (%s): %w", i+1, ev.Op, err)
		}
	}
	return nil
}

func applyOne(ev Event, sink Sink) error {
	fn, err := parseAddr(ev.Fn)
	if err != nil {
		return err
	}
	switch ev.Op {
	case OpBlock:
		from, err := parseAddr(ev.From)
		if err != nil {
			return err
		}
		sink.AddBlock(fn, from)
	case OpCallTo:
		from, err := parseAddr(ev.From)
		if err != nil {
			return err
		}
		to, err := parseAddr(ev.To)
		if err != nil {
			return err
		}
		retn, err := parseAddr(ev.Ret)
		if err != nil {
			return err
		}
		sink.CallTo(fn, from, to, retn)
	case OpReturnFrom:
		from, err := parseAddr(ev.From)
		if err != nil {
			return err
		}
		sink.ReturnFrom(fn, from)
	case OpTransitTo:
		from, err := parseAddr(ev.From)
		if err != nil {
			return err
		}
		to, err := parseAddr(ev.To)
		if err != nil {
			return err
		}
		sink.TransitTo(fn, from, to)
	case OpReturnFromCall:
		first, err := parseAddr(ev.From)
		if err != nil {
			return err
		}
		to, err := parseAddr(ev.To)
		if err != nil {
			return err
		}
		sink.ReturnFromCall(fn, first, to)
	default:
		return fmt.Errorf("unknown op")
	}
	return nil
}

// Recorder tees recovery events: it forwards every event to the wrapped
// sink and appends it to a JSONL stream.
type Recorder struct {
	sink Sink
	enc  *json.Encoder
	err  error
}

// NewRecorder wraps a sink, writing each event to w as it passes through.
func NewRecorder(sink Sink, w io.Writer) *Recorder {
	return &Recorder{sink: sink, enc: json.NewEncoder(w)}
}

// Err returns the first write error, if any. Events keep flowing to the
// wrapped sink after a write failure.
func (r *Recorder) Err() error { return r.err }

func (r *Recorder) record(ev Event) {
	if err := r.enc.Encode(ev); err != nil && r.err == nil {
		r.err = fmt.Errorf("trace: write event: %w", err)
	}
}

func (r *Recorder) AddBlock(fn, a uint64) {
	r.record(Event{Op: OpBlock, Fn: addr(fn), From: addr(a)})
	r.sink.AddBlock(fn, a)
}

func (r *Recorder) CallTo(fn, from, to, retn uint64) {
	r.record(Event{Op: OpCallTo, Fn: addr(fn), From: addr(from), To: addr(to), Ret: addr(retn)})
	r.sink.CallTo(fn, from, to, retn)
}

func (r *Recorder) ReturnFrom(fn, from uint64) {
	r.record(Event{Op: OpReturnFrom, Fn: addr(fn), From: addr(from)})
	r.sink.ReturnFrom(fn, from)
}

func (r *Recorder) TransitTo(fn, from, to uint64) {
	r.record(Event{Op: OpTransitTo, Fn: addr(fn), From: addr(from), To: addr(to)})
	r.sink.TransitTo(fn, from, to)
}

func (r *Recorder) ReturnFromCall(fn, firstBlock, to uint64) {
	r.record(Event{Op: OpReturnFromCall, Fn: addr(fn), From: addr(firstBlock), To: addr(to)})
	r.sink.ReturnFromCall(fn, firstBlock, to)
}
