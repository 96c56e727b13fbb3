package x11

import (
	"strings"
	"unicode/utf8"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"
)

const propertyLimit = 256 // 32-bit units; generous for class and name strings

// Resolver answers window-identity questions over the metadata connection.
type Resolver struct {
	props PropertyGetter
	atoms *AtomCache
}

// NewResolver builds a resolver over the control connection's client.
func NewResolver(client *Client) (*Resolver, error) {
	atoms, err := NewAtomCache(client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve atoms")
	}
	return &Resolver{props: client, atoms: atoms}, nil
}

// WindowClass returns the class name from the window's WM_CLASS property.
// Attribution is best-effort: an absent property, a window that no longer
// exists, or class bytes that are not valid text all report ok=false rather
// than an error. Only connection failures surface as errors.
func (r *Resolver) WindowClass(win xproto.Window) (string, bool, error) {
	data, err := r.props.GetProperty(win, xproto.AtomWmClass, xproto.AtomString, propertyLimit)
	if err != nil {
		if _, ok := err.(xgb.Error); ok {
			// The window went away between the recorded event and
			// this lookup.
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "failed to get WM_CLASS")
	}
	if len(data) == 0 {
		return "", false, nil
	}

	// WM_CLASS holds "instance\0class\0"; the class is the application
	// identity. It is not guaranteed to be valid text.
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	if len(parts) < 2 {
		return "", false, nil
	}
	class := parts[1]
	if class == "" || !utf8.ValidString(class) {
		return "", false, nil
	}
	return class, true, nil
}

// ActiveWindow reads the window manager's _NET_ACTIVE_WINDOW hint from the
// root window. The hint must hold exactly one 32-bit window value; its
// absence means the window manager does not support the required hints,
// which is fatal for motion attribution.
func (r *Resolver) ActiveWindow(root xproto.Window) (xproto.Window, error) {
	atom, err := r.atoms.Get(AtomNetActiveWindow)
	if err != nil {
		return 0, err
	}
	data, err := r.props.GetProperty(root, atom, xproto.AtomWindow, 1)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get _NET_ACTIVE_WINDOW")
	}
	if len(data) < 4 {
		return 0, errors.New("_NET_ACTIVE_WINDOW is empty or has incorrect format")
	}
	return xproto.Window(xgb.Get32(data)), nil
}

// WindowName returns the window's title, preferring the EWMH _NET_WM_NAME
// property and falling back to WM_NAME.
func (r *Resolver) WindowName(win xproto.Window) (string, bool, error) {
	nameAtom, err := r.atoms.Get(AtomNetWmName)
	if err != nil {
		return "", false, err
	}
	utf8Atom, err := r.atoms.Get(AtomUtf8String)
	if err != nil {
		return "", false, err
	}

	data, err := r.props.GetProperty(win, nameAtom, utf8Atom, propertyLimit)
	if err != nil {
		if _, ok := err.(xgb.Error); ok {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "failed to get _NET_WM_NAME")
	}
	if len(data) == 0 {
		data, err = r.props.GetProperty(win, xproto.AtomWmName, xproto.AtomString, propertyLimit)
		if err != nil {
			if _, ok := err.(xgb.Error); ok {
				return "", false, nil
			}
			return "", false, errors.Wrap(err, "failed to get WM_NAME")
		}
	}

	name := strings.TrimRight(string(data), "\x00")
	if name == "" || !utf8.ValidString(name) {
		return "", false, nil
	}
	return name, true, nil
}
