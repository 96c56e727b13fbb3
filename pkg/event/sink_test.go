package event

import (
	"sync"
	"testing"
	"time"
)

func testEvent(data EventData) Event {
	return Event{Timestamp: time.Now(), App: "test", Data: data}
}

func TestSinkFunc(t *testing.T) {
	var got []Event
	sink := SinkFunc(func(ev Event) { got = append(got, ev) })

	sink.HandleEvent(testEvent(FocusIn{}))
	if len(got) != 1 {
		t.Fatalf("received %d events, want 1", len(got))
	}
}

func TestCountSink(t *testing.T) {
	sink := NewCountSink()

	sink.HandleEvent(testEvent(KeyPress{Code: 1}))
	sink.HandleEvent(testEvent(KeyPress{Code: 2}))
	sink.HandleEvent(testEvent(PointerMove{X: 1, Y: 2}))

	counts := sink.Counts()
	if counts[KindKeyPress] != 2 {
		t.Errorf("key press count = %d, want 2", counts[KindKeyPress])
	}
	if counts[KindPointerMove] != 1 {
		t.Errorf("pointer move count = %d, want 1", counts[KindPointerMove])
	}
	if sink.Total() != 3 {
		t.Errorf("total = %d, want 3", sink.Total())
	}

	// Counts returns a snapshot, not the live map.
	counts[KindKeyPress] = 99
	if sink.Counts()[KindKeyPress] != 2 {
		t.Error("mutating the snapshot affected the sink's counters")
	}
}

func TestCountSinkConcurrentReads(t *testing.T) {
	sink := NewCountSink()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			sink.HandleEvent(testEvent(KeyPress{Code: uint32(i)}))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			sink.Total()
		}
	}()
	wg.Wait()

	if sink.Total() != 1000 {
		t.Errorf("total = %d, want 1000", sink.Total())
	}
}

func TestFilterSink(t *testing.T) {
	counter := NewCountSink()
	sink := FilterSink{
		Keep: func(ev Event) bool { return ev.Data.Kind() == KindKeyPress },
		Next: counter,
	}

	sink.HandleEvent(testEvent(KeyPress{Code: 1}))
	sink.HandleEvent(testEvent(PointerMove{X: 1, Y: 1}))
	sink.HandleEvent(testEvent(FocusOut{}))

	if counter.Total() != 1 {
		t.Errorf("forwarded %d events, want 1", counter.Total())
	}

	// A nil predicate forwards everything.
	all := NewCountSink()
	FilterSink{Next: all}.HandleEvent(testEvent(FocusIn{}))
	if all.Total() != 1 {
		t.Errorf("nil predicate forwarded %d events, want 1", all.Total())
	}
}

func TestMultiSink(t *testing.T) {
	a := NewCountSink()
	b := NewCountSink()
	sink := MultiSink{a, b}

	sink.HandleEvent(testEvent(KeyPress{Code: 1}))

	if a.Total() != 1 || b.Total() != 1 {
		t.Errorf("fan-out totals = (%d, %d), want (1, 1)", a.Total(), b.Total())
	}
}
