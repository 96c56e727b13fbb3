package capture

import (
	"io"
	"log"
	"time"

	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"

	"github.com/inputsum/inputsum/pkg/event"
)

// Reply is one unit delivered by the RECORD data stream.
type Reply struct {
	// Category classifies the unit (CategoryFromServer etc).
	Category byte
	// ClientSwapped marks data recorded from a client whose byte order
	// differs from the server's. Such data is never decoded.
	ClientSwapped bool
	// Data is the raw intercepted protocol bytes; zero or more
	// concatenated wire records.
	Data []byte
}

// ReplyStream is a blocking, in-order sequence of RECORD replies. Next
// returns io.EOF when the stream ends cleanly (connection closed or context
// disabled); any other error is terminal.
type ReplyStream interface {
	Next() (*Reply, error)
}

// Resolver maps window handles to application identities. Implemented by
// x11.Resolver over the control connection; faked in tests.
type Resolver interface {
	// WindowClass returns the window's WM_CLASS class name. ok is false
	// when the window has no usable class; attribution is best-effort and
	// a miss is not an error.
	WindowClass(win xproto.Window) (class string, ok bool, err error)
	// ActiveWindow returns the window the window manager considers
	// focused, read from the root window. Failure means the session does
	// not provide the required hint and is fatal.
	ActiveWindow(root xproto.Window) (xproto.Window, error)
}

// Dispatch loop states.
const (
	stateAwaitingStart = iota
	stateStreaming
)

// Dispatcher pulls replies from a stream, decodes them and delivers
// attributed events to a sink.
type Dispatcher struct {
	resolver Resolver
	sink     event.Sink
	now      func() time.Time
}

func NewDispatcher(resolver Resolver, sink event.Sink) *Dispatcher {
	return &Dispatcher{
		resolver: resolver,
		sink:     sink,
		now:      time.Now,
	}
}

// Run consumes the stream until it ends. It returns nil on a clean end of
// stream (io.EOF from the stream, or an end-of-data unit after the recording
// context is disabled) and an error on transport or resolver failure. The
// sink is invoked synchronously on the calling goroutine.
func (d *Dispatcher) Run(stream ReplyStream) error {
	state := stateAwaitingStart

	for {
		reply, err := stream.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "record stream")
		}

		if state == stateAwaitingStart {
			if reply.Category != CategoryStartOfData {
				log.Printf("Expected start of data stream, got category %d", reply.Category)
			} else {
				log.Println("Start of data stream...")
			}
			state = stateStreaming
			if reply.Category == CategoryStartOfData {
				continue
			}
		}

		switch {
		case reply.ClientSwapped:
			log.Println("Byte swapped clients are unsupported, skipping unit")

		case reply.Category == CategoryFromServer:
			if err := d.processData(reply.Data); err != nil {
				return err
			}

		case reply.Category == CategoryEndOfData:
			log.Println("End of data stream")
			return nil

		default:
			log.Printf("Got a reply with an unsupported category: %d", reply.Category)
		}
	}
}

// processData walks the concatenated wire records in one reply. A corrupt
// record abandons the rest of the buffer but not the loop.
func (d *Dispatcher) processData(data []byte) error {
	for off := 0; off < len(data); {
		raw, n, err := DecodeUnit(data[off:])
		if err != nil {
			log.Printf("Corrupt record at offset %d, skipping rest of buffer: %v", off, err)
			return nil
		}
		if raw == nil {
			if data[off] == 0 {
				log.Printf("Unparsed reply of %d bytes in data stream", n)
			}
			off += n
			continue
		}
		off += n

		if err := d.emit(raw); err != nil {
			return err
		}
	}
	return nil
}

// emit attributes one raw event and hands it to the sink. Events whose
// window has no resolvable class are dropped; every delivered event must be
// attributable.
func (d *Dispatcher) emit(raw *RawEvent) error {
	win := raw.Window
	if raw.Tag == xproto.MotionNotify {
		// Motion is reported against the root window, so attribution
		// goes through the window manager's active-window hint.
		active, err := d.resolver.ActiveWindow(raw.Root)
		if err != nil {
			return errors.Wrap(err, "resolve active window")
		}
		win = active
	}

	class, ok, err := d.resolver.WindowClass(win)
	if err != nil {
		return errors.Wrap(err, "resolve window class")
	}
	if !ok {
		return nil
	}

	ev, ok := assemble(raw, class, d.now())
	if !ok {
		return nil
	}
	d.sink.HandleEvent(ev)
	return nil
}

// assemble maps a raw wire event plus its resolved application into the
// domain event. The mapping is total over the recognized tags.
func assemble(raw *RawEvent, app string, now time.Time) (event.Event, bool) {
	var data event.EventData
	switch raw.Tag {
	case xproto.KeyPress:
		data = event.KeyPress{Code: uint32(raw.Detail)}
	case xproto.ButtonPress:
		data = event.PointerPress{Button: raw.Detail}
	case xproto.MotionNotify:
		data = event.PointerMove{X: float64(raw.RootX), Y: float64(raw.RootY)}
	case xproto.FocusIn:
		data = event.FocusIn{}
	case xproto.FocusOut:
		data = event.FocusOut{}
	default:
		return event.Event{}, false
	}

	return event.Event{
		Timestamp: now,
		App:       app,
		Data:      data,
	}, true
}
