// Package event defines the domain event delivered to sinks: a timestamped
// input or focus action attributed to the application that owns the window
// it happened in.
package event

import (
	"fmt"
	"time"
)

// Kind identifiers for persisted/reported events.
const (
	KindKeyPress     = "key_press"
	KindPointerPress = "pointer_press"
	KindPointerMove  = "pointer_move"
	KindFocusIn      = "focus_in"
	KindFocusOut     = "focus_out"
)

// EventData is a closed variant over the recognized activity types. Exactly
// one implementation exists per recognized wire event.
type EventData interface {
	Kind() string
	fmt.Stringer
}

// KeyPress is a keyboard key going down. Code is the raw keycode.
type KeyPress struct {
	Code uint32
}

func (KeyPress) Kind() string { return KindKeyPress }

func (k KeyPress) String() string { return fmt.Sprintf("KeyPress(%d)", k.Code) }

// PointerPress is a pointer button going down.
type PointerPress struct {
	Button uint8
}

func (PointerPress) Kind() string { return KindPointerPress }

func (p PointerPress) String() string { return fmt.Sprintf("PointerPress(%d)", p.Button) }

// PointerMove is pointer motion, in root-window coordinates.
type PointerMove struct {
	X float64
	Y float64
}

func (PointerMove) Kind() string { return KindPointerMove }

func (p PointerMove) String() string { return fmt.Sprintf("PointerMove(%.0f, %.0f)", p.X, p.Y) }

// FocusIn is a window gaining input focus.
type FocusIn struct{}

func (FocusIn) Kind() string { return KindFocusIn }

func (FocusIn) String() string { return "FocusIn" }

// FocusOut is a window losing input focus.
type FocusOut struct{}

func (FocusOut) Kind() string { return KindFocusOut }

func (FocusOut) String() string { return "FocusOut" }

// Event is a single attributed activity event. It is immutable once
// constructed; sinks receive it by value and must not retain references to
// it beyond the call.
type Event struct {
	// Timestamp is when the event was observed.
	Timestamp time.Time
	// App identifies the application that owns the affected window,
	// taken from the window's WM_CLASS property.
	App string
	// Data is the event-specific payload.
	Data EventData
}

func (e Event) String() string {
	return fmt.Sprintf("[%s] App: %s, Event: %s", e.Timestamp.Format(time.RFC3339), e.App, e.Data)
}
