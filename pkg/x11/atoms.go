package x11

import (
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"
)

// Atom names the resolver needs. The set is fixed; WM_CLASS is a predefined
// atom and does not appear here.
const (
	AtomNetActiveWindow = "_NET_ACTIVE_WINDOW"
	AtomNetWmName       = "_NET_WM_NAME"
	AtomUtf8String      = "UTF8_STRING"
)

var atomNames = []string{
	AtomNetActiveWindow,
	AtomNetWmName,
	AtomUtf8String,
}

// AtomInterner resolves atom names to session identifiers. Satisfied by
// *Client.
type AtomInterner interface {
	InternAtom(name string) (xproto.Atom, error)
}

// AtomCache maps the fixed atom name set to its identifiers on the current
// session. Populated once at construction and immutable afterwards.
type AtomCache struct {
	atoms map[string]xproto.Atom
}

// NewAtomCache resolves every atom in the fixed set up front. A failed
// intern is a connection-level failure and aborts construction.
func NewAtomCache(interner AtomInterner) (*AtomCache, error) {
	atoms := make(map[string]xproto.Atom, len(atomNames))
	for _, name := range atomNames {
		atom, err := interner.InternAtom(name)
		if err != nil {
			return nil, err
		}
		atoms[name] = atom
	}
	return &AtomCache{atoms: atoms}, nil
}

// Get returns the identifier for a name in the fixed set.
func (c *AtomCache) Get(name string) (xproto.Atom, error) {
	atom, ok := c.atoms[name]
	if !ok {
		return 0, errors.Errorf("atom %s is not in the cached set", name)
	}
	return atom, nil
}
