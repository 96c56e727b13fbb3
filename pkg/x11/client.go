// Package x11 holds the X server facing pieces of the recorder: the
// metadata-query client, the atom cache, the window resolver and the RECORD
// transport.
//
// The RECORD protocol recommends that a recording client open two
// connections and use one for context control and the other for reading
// protocol data. The data connection is permanently consumed by the blocking
// receive loop, so all metadata queries go through the control connection.
package x11

import (
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"
)

// PropertyGetter issues synchronous window-property queries.
type PropertyGetter interface {
	// GetProperty fetches up to longLength 32-bit units of the given
	// property, expected to hold values of type typ.
	GetProperty(win xproto.Window, property, typ xproto.Atom, longLength uint32) ([]byte, error)
}

// Client wraps an X connection for metadata queries.
type Client struct {
	conn *xgb.Conn
	root xproto.Window
}

// NewClient wraps an established connection. The root window is taken from
// the connection's default screen.
func NewClient(conn *xgb.Conn) *Client {
	return &Client{
		conn: conn,
		root: xproto.Setup(conn).DefaultScreen(conn).Root,
	}
}

// Root returns the default screen's root window.
func (c *Client) Root() xproto.Window {
	return c.root
}

// GetProperty implements PropertyGetter.
func (c *Client) GetProperty(win xproto.Window, property, typ xproto.Atom, longLength uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(c.conn, false, win, property, typ, 0, longLength).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

// InternAtom resolves an atom name on this connection.
func (c *Client) InternAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(c.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, errors.Wrapf(err, "failed to intern atom %s", name)
	}
	return reply.Atom, nil
}
