// Package capture decodes the opaque byte stream produced by the X11 RECORD
// extension into typed events and attributes each event to the application
// owning the affected window.
package capture

import (
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"
)

// Reply categories within a RECORD data stream.
const (
	CategoryFromServer  = 0
	CategoryStartOfData = 4
	CategoryEndOfData   = 5
)

// replyHeaderLen is the fixed header overhead of a non-event reply embedded
// in the data stream; the unit's 32-bit length field counts additional
// 4-byte words beyond it.
const replyHeaderLen = 32

// eventRecordLen is the fixed size of every core-protocol event and error.
// Unrecognized tags can always be skipped by exactly this much without
// corrupting the cursor.
const eventRecordLen = 32

// RawEvent is one recognized wire event, parsed out of the data stream but
// not yet attributed to an application.
type RawEvent struct {
	// Tag is the wire event type (xproto.KeyPress etc).
	Tag byte
	// Detail is the keycode for key events and the button for button events.
	Detail byte
	// Window is the window the event was delivered to. For motion events
	// the interesting window is Root instead; motion is reported against
	// the root window, not the window under the pointer.
	Window xproto.Window
	// Root is the root window of the screen the event occurred on. Zero
	// for focus events, which do not carry it.
	Root xproto.Window
	// RootX, RootY are the pointer position in root coordinates. Only
	// meaningful for key, button and motion events.
	RootX int16
	RootY int16
}

// DecodeUnit examines the unit at the start of buf and returns the parsed
// event (nil for units that are skipped rather than decoded) together with
// the number of bytes the unit occupies. A unit that extends past the end of
// buf is an error: records never straddle reply boundaries, so a short unit
// means the stream is corrupt.
func DecodeUnit(buf []byte) (*RawEvent, int, error) {
	if len(buf) == 0 {
		return nil, 0, errors.New("empty unit")
	}

	switch buf[0] {
	case 0:
		// A reply travelling inside the data stream. Its length field
		// counts 4-byte words past the fixed 32-byte header.
		if len(buf) < 8 {
			return nil, 0, errors.Errorf("truncated reply unit: %d bytes", len(buf))
		}
		n := int(xgb.Get32(buf[4:]))*4 + replyHeaderLen
		if n > len(buf) {
			return nil, 0, errors.Errorf("reply unit of %d bytes overruns buffer of %d", n, len(buf))
		}
		return nil, n, nil

	case xproto.KeyPress, xproto.ButtonPress, xproto.MotionNotify:
		if len(buf) < eventRecordLen {
			return nil, 0, errors.Errorf("truncated event record: %d bytes", len(buf))
		}
		ev := &RawEvent{
			Tag:    buf[0],
			Detail: buf[1],
			Root:   xproto.Window(xgb.Get32(buf[8:])),
			Window: xproto.Window(xgb.Get32(buf[12:])),
			RootX:  int16(xgb.Get16(buf[20:])),
			RootY:  int16(xgb.Get16(buf[22:])),
		}
		return ev, eventRecordLen, nil

	case xproto.FocusIn, xproto.FocusOut:
		// Focus events carry their window at offset 4, not 12.
		if len(buf) < eventRecordLen {
			return nil, 0, errors.Errorf("truncated event record: %d bytes", len(buf))
		}
		ev := &RawEvent{
			Tag:    buf[0],
			Detail: buf[1],
			Window: xproto.Window(xgb.Get32(buf[4:])),
		}
		return ev, eventRecordLen, nil

	default:
		// Errors and unrecognized core events are all fixed-size.
		if len(buf) < eventRecordLen {
			return nil, 0, errors.Errorf("truncated record: %d bytes", len(buf))
		}
		return nil, eventRecordLen, nil
	}
}
