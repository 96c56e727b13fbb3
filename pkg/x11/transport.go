package x11

import (
	"io"
	"log"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/record"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"

	"github.com/inputsum/inputsum/pkg/capture"
)

// Transport owns the two X connections of a recording session and the
// RECORD context set up on them. The control connection carries the context
// requests and all metadata queries; the data connection is a raw channel
// that delivers the recorded stream.
type Transport struct {
	ctrlConn *xgb.Conn
	client   *Client
	context  record.Context
	data     *dataChannel

	mu     sync.Mutex
	closed bool
}

// Connect opens both connections, verifies the RECORD extension and creates
// a recording context covering delivered events from KeyPress through
// FocusOut for all clients. An empty display falls back to $DISPLAY.
func Connect(display string) (*Transport, error) {
	ctrlConn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open control connection")
	}

	t := &Transport{
		ctrlConn: ctrlConn,
		client:   NewClient(ctrlConn),
	}
	if err := t.setup(display); err != nil {
		ctrlConn.Close()
		return nil, err
	}
	return t, nil
}

func (t *Transport) setup(display string) error {
	if err := record.Init(t.ctrlConn); err != nil {
		return errors.Wrap(err, "the X server does not support the RECORD extension")
	}

	id, err := t.ctrlConn.NewId()
	if err != nil {
		return errors.Wrap(err, "failed to allocate recording context id")
	}
	t.context = record.Context(id)

	ranges := []record.Range{{
		DeliveredEvents: record.Range8{
			First: xproto.KeyPress,
			Last:  xproto.FocusOut,
		},
	}}
	clients := []record.ClientSpec{record.CsAllClients}

	err = record.CreateContextChecked(t.ctrlConn, t.context, 0, 1, 1, clients, ranges).Check()
	if err != nil {
		return errors.Wrap(err, "failed to create recording context")
	}

	// Enabling the context turns the data connection into a reply stream;
	// from here on it belongs exclusively to the receive loop.
	t.data, err = openDataChannel(display, t.context)
	if err != nil {
		return errors.Wrap(err, "failed to open data connection")
	}
	return nil
}

// Client returns the metadata-query client bound to the control connection.
func (t *Transport) Client() *Client {
	return t.client
}

// Root returns the default screen's root window.
func (t *Transport) Root() xproto.Window {
	return t.client.Root()
}

// Next implements capture.ReplyStream over the enabled context.
func (t *Transport) Next() (*capture.Reply, error) {
	reply, err := t.data.read()
	if err != nil {
		if t.isClosed() || err == io.EOF {
			return nil, io.EOF
		}
		return nil, err
	}
	return reply, nil
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Close disables and frees the recording context, then closes both
// connections. Closing the data connection unblocks a receive loop waiting
// on it.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	if err := record.DisableContextChecked(t.ctrlConn, t.context).Check(); err != nil {
		log.Printf("Failed to disable recording context: %v", err)
	}
	if err := record.FreeContextChecked(t.ctrlConn, t.context).Check(); err != nil {
		log.Printf("Failed to free recording context: %v", err)
	}
	t.ctrlConn.Sync()

	t.data.Close()
	t.ctrlConn.Close()
	return nil
}
