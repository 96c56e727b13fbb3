package event

import (
	"log"
	"sync"
)

// Sink consumes attributed events. HandleEvent is invoked synchronously on
// the dispatch loop's goroutine, once per event, in arrival order. A sink
// that blocks stalls the decode loop, so sinks needing concurrency must hand
// off internally instead of blocking.
type Sink interface {
	HandleEvent(ev Event)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(ev Event)

func (f SinkFunc) HandleEvent(ev Event) { f(ev) }

// LogSink writes one log line per event.
type LogSink struct{}

func (LogSink) HandleEvent(ev Event) {
	log.Printf("%s", ev)
}

// CountSink tallies events per kind. The mutex guards only the sink's own
// counters; it is safe to read Counts from other goroutines while the
// dispatch loop is running.
type CountSink struct {
	mu     sync.Mutex
	counts map[string]uint64
}

func NewCountSink() *CountSink {
	return &CountSink{counts: make(map[string]uint64)}
}

func (s *CountSink) HandleEvent(ev Event) {
	s.mu.Lock()
	s.counts[ev.Data.Kind()]++
	s.mu.Unlock()
}

// Counts returns a snapshot of the per-kind tallies.
func (s *CountSink) Counts() map[string]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]uint64, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// Total returns the number of events seen across all kinds.
func (s *CountSink) Total() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total uint64
	for _, v := range s.counts {
		total += v
	}
	return total
}

// FilterSink forwards only events the predicate accepts.
type FilterSink struct {
	Keep func(ev Event) bool
	Next Sink
}

func (s FilterSink) HandleEvent(ev Event) {
	if s.Keep == nil || s.Keep(ev) {
		s.Next.HandleEvent(ev)
	}
}

// MultiSink fans an event out to every sink in order.
type MultiSink []Sink

func (s MultiSink) HandleEvent(ev Event) {
	for _, sink := range s {
		sink.HandleEvent(ev)
	}
}
