package capture

import (
	"encoding/binary"
	"testing"

	"github.com/jezek/xgb/xproto"
)

// pointerRecord builds a 32-byte key/button/motion wire record.
func pointerRecord(tag, detail byte, root, window uint32, rootX, rootY int16) []byte {
	buf := make([]byte, 32)
	buf[0] = tag
	buf[1] = detail
	binary.LittleEndian.PutUint32(buf[8:], root)
	binary.LittleEndian.PutUint32(buf[12:], window)
	binary.LittleEndian.PutUint16(buf[20:], uint16(rootX))
	binary.LittleEndian.PutUint16(buf[22:], uint16(rootY))
	return buf
}

// focusRecord builds a 32-byte focus wire record; focus events carry their
// window at offset 4.
func focusRecord(tag, detail byte, window uint32) []byte {
	buf := make([]byte, 32)
	buf[0] = tag
	buf[1] = detail
	binary.LittleEndian.PutUint32(buf[4:], window)
	return buf
}

// replyUnit builds an embedded reply whose length field counts 4-byte words
// past the 32-byte header.
func replyUnit(words uint32) []byte {
	buf := make([]byte, 32+4*words)
	binary.LittleEndian.PutUint32(buf[4:], words)
	return buf
}

func decodeAll(t *testing.T, data []byte) []*RawEvent {
	t.Helper()
	var events []*RawEvent
	for off := 0; off < len(data); {
		ev, n, err := DecodeUnit(data[off:])
		if err != nil {
			t.Fatalf("DecodeUnit at offset %d: %v", off, err)
		}
		if ev != nil {
			events = append(events, ev)
		}
		off += n
	}
	return events
}

func TestDecodeConcatenatedEvents(t *testing.T) {
	var data []byte
	data = append(data, pointerRecord(xproto.KeyPress, 38, 0x99, 0x100, 0, 0)...)
	data = append(data, pointerRecord(xproto.ButtonPress, 3, 0x99, 0x200, 0, 0)...)
	data = append(data, pointerRecord(xproto.MotionNotify, 0, 0x99, 0x300, 15, -7)...)
	data = append(data, focusRecord(xproto.FocusIn, 1, 0x400)...)
	data = append(data, focusRecord(xproto.FocusOut, 2, 0x400)...)

	events := decodeAll(t, data)
	if len(events) != 5 {
		t.Fatalf("decoded %d events, want 5", len(events))
	}

	wantTags := []byte{xproto.KeyPress, xproto.ButtonPress, xproto.MotionNotify, xproto.FocusIn, xproto.FocusOut}
	for i, ev := range events {
		if ev.Tag != wantTags[i] {
			t.Errorf("event %d tag = %d, want %d", i, ev.Tag, wantTags[i])
		}
	}

	if events[0].Detail != 38 {
		t.Errorf("key detail = %d, want 38", events[0].Detail)
	}
	if events[0].Window != 0x100 {
		t.Errorf("key window = 0x%x, want 0x100", events[0].Window)
	}
	if events[2].Root != 0x99 {
		t.Errorf("motion root = 0x%x, want 0x99", events[2].Root)
	}
	if events[2].RootX != 15 || events[2].RootY != -7 {
		t.Errorf("motion coords = (%d, %d), want (15, -7)", events[2].RootX, events[2].RootY)
	}
	if events[3].Window != 0x400 {
		t.Errorf("focus window = 0x%x, want 0x400", events[3].Window)
	}
}

func TestDecodeCursorAdvance(t *testing.T) {
	var data []byte
	const k = 4
	for i := 0; i < k; i++ {
		data = append(data, pointerRecord(xproto.KeyPress, byte(10+i), 1, 2, 0, 0)...)
	}

	off := 0
	for off < len(data) {
		_, n, err := DecodeUnit(data[off:])
		if err != nil {
			t.Fatalf("DecodeUnit: %v", err)
		}
		if n != 32 {
			t.Fatalf("unit length = %d, want 32", n)
		}
		off += n
	}
	if off != 32*k {
		t.Errorf("cursor = %d, want %d", off, 32*k)
	}
}

func TestDecodeReplySkip(t *testing.T) {
	const words = 3
	var data []byte
	data = append(data, replyUnit(words)...)
	data = append(data, pointerRecord(xproto.KeyPress, 42, 1, 2, 0, 0)...)

	ev, n, err := DecodeUnit(data)
	if err != nil {
		t.Fatalf("DecodeUnit: %v", err)
	}
	if ev != nil {
		t.Fatal("reply unit decoded as event")
	}
	if want := words*4 + 32; n != want {
		t.Fatalf("reply unit length = %d, want %d", n, want)
	}

	// The trailing event survives the skip.
	ev, n, err = DecodeUnit(data[n:])
	if err != nil {
		t.Fatalf("DecodeUnit after reply: %v", err)
	}
	if ev == nil || ev.Tag != xproto.KeyPress || ev.Detail != 42 {
		t.Fatalf("trailing event = %+v, want key press 42", ev)
	}
	if n != 32 {
		t.Errorf("event length = %d, want 32", n)
	}
}

func TestDecodeUnknownTagSkip(t *testing.T) {
	unknown := make([]byte, 32)
	unknown[0] = 35 // not a recognized core event

	var data []byte
	data = append(data, unknown...)
	data = append(data, focusRecord(xproto.FocusIn, 0, 7)...)

	ev, n, err := DecodeUnit(data)
	if err != nil {
		t.Fatalf("DecodeUnit: %v", err)
	}
	if ev != nil {
		t.Fatal("unknown tag decoded as event")
	}
	if n != 32 {
		t.Fatalf("unknown tag length = %d, want 32", n)
	}

	ev, _, err = DecodeUnit(data[n:])
	if err != nil {
		t.Fatalf("DecodeUnit after skip: %v", err)
	}
	if ev == nil || ev.Tag != xproto.FocusIn {
		t.Fatalf("trailing event = %+v, want focus in", ev)
	}
}

func TestDecodeTruncated(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"short event", pointerRecord(xproto.KeyPress, 1, 2, 3, 0, 0)[:16]},
		{"short focus", focusRecord(xproto.FocusOut, 0, 1)[:8]},
		{"short unknown", []byte{99, 0, 0, 0}},
		{"short reply header", []byte{0, 0, 0, 0}},
		{"reply overruns buffer", replyUnit(8)[:40]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeUnit(tt.buf); err == nil {
				t.Error("DecodeUnit succeeded on truncated input")
			}
		})
	}
}
