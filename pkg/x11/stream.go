package x11

import (
	"encoding/binary"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/record"
	"github.com/pkg/errors"

	"github.com/inputsum/inputsum/pkg/capture"
)

// The server answers a single EnableContext request with an unbounded series
// of replies, one per batch of recorded protocol data. A request/reply X
// library hands out one reply per request and discards the rest, so the data
// half of the session speaks the wire protocol itself: one setup handshake,
// one QueryExtension, one EnableContext, then framed reads until the context
// is disabled.

const (
	queryExtensionOpcode = 98
	enableContextMinor   = 5

	xReplyHeaderLen = 32

	authFamilyLocal = 256
	authFamilyWild  = 65535

	mitMagicCookie = "MIT-MAGIC-COOKIE-1"
)

// dataChannel is the data half of a recording session: a raw connection that
// has completed the handshake and carries an enabled recording context.
type dataChannel struct {
	conn net.Conn
}

// openDataChannel dials the display, authenticates, and enables the given
// recording context on the fresh connection.
func openDataChannel(display string, ctx record.Context) (*dataChannel, error) {
	network, addr, host, number, err := displayAddr(display)
	if err != nil {
		return nil, err
	}
	conn, err := net.Dial(network, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot connect to display %s", display)
	}

	authName, authData, err := authority(host, number)
	if err != nil {
		// Servers allowing unauthenticated local clients still accept an
		// empty authorization block.
		authName, authData = "", nil
	} else if authName != mitMagicCookie || len(authData) != 16 {
		conn.Close()
		return nil, errors.Errorf("unsupported auth protocol %s", authName)
	}

	ch, err := setupDataChannel(conn, authName, authData, ctx)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return ch, nil
}

// setupDataChannel runs the handshake and enable sequence on an established
// connection.
func setupDataChannel(conn net.Conn, authName string, authData []byte, ctx record.Context) (*dataChannel, error) {
	if err := handshake(conn, authName, authData); err != nil {
		return nil, err
	}
	opcode, err := queryRecordOpcode(conn)
	if err != nil {
		return nil, err
	}
	if err := sendEnableContext(conn, opcode, ctx); err != nil {
		return nil, err
	}
	return &dataChannel{conn: conn}, nil
}

// read returns the next EnableContext reply from the stream. Anything that is
// not a reply cannot belong to the stream: errors are fatal, stray events are
// skipped.
func (ch *dataChannel) read() (*capture.Reply, error) {
	head := make([]byte, xReplyHeaderLen)
	for {
		if _, err := io.ReadFull(ch.conn, head); err != nil {
			return nil, err
		}
		switch head[0] {
		case 0:
			return nil, errors.Errorf("x error on the data connection (code %d)", head[1])
		case 1:
			payload := make([]byte, int(xgb.Get32(head[4:]))*4)
			if _, err := io.ReadFull(ch.conn, payload); err != nil {
				return nil, err
			}
			return &capture.Reply{
				Category:      head[1],
				ClientSwapped: head[9] == 1,
				Data:          payload,
			}, nil
		default:
			// An event; nothing on this connection asked for any.
		}
	}
}

func (ch *dataChannel) Close() error {
	return ch.conn.Close()
}

// displayAddr translates a DISPLAY string into a dialable address plus the
// host and display number needed for the authority lookup.
func displayAddr(display string) (network, addr, host, number string, err error) {
	if display == "" {
		display = os.Getenv("DISPLAY")
	}
	if display == "" {
		return "", "", "", "", errors.New("empty display string")
	}

	colon := strings.LastIndex(display, ":")
	if colon < 0 {
		return "", "", "", "", errors.Errorf("bad display string: %s", display)
	}

	var socket string
	if display[0] == '/' {
		socket = display[:colon]
	} else if slash := strings.LastIndex(display[:colon], "/"); slash >= 0 {
		network = display[:slash]
		host = display[slash+1 : colon]
	} else {
		host = display[:colon]
	}

	number = display[colon+1:]
	if dot := strings.LastIndex(number, "."); dot >= 0 {
		number = number[:dot]
	}
	num, aerr := strconv.Atoi(number)
	if aerr != nil || num < 0 {
		return "", "", "", "", errors.Errorf("bad display string: %s", display)
	}

	switch {
	case socket != "":
		return "unix", socket + ":" + number, "", number, nil
	case host != "" && host != "unix":
		if network == "" {
			network = "tcp"
		}
		return network, net.JoinHostPort(host, strconv.Itoa(6000+num)), host, number, nil
	default:
		return "unix", "/tmp/.X11-unix/X" + number, "", number, nil
	}
}

// authority finds the MIT-MAGIC-COOKIE-1 entry for the display in the
// Xauthority file.
func authority(hostname, display string) (string, []byte, error) {
	if hostname == "" || hostname == "localhost" {
		h, err := os.Hostname()
		if err != nil {
			return "", nil, err
		}
		hostname = h
	}

	fname := os.Getenv("XAUTHORITY")
	if fname == "" {
		home := os.Getenv("HOME")
		if home == "" {
			return "", nil, errors.New("Xauthority not found: $XAUTHORITY, $HOME not set")
		}
		fname = home + "/.Xauthority"
	}

	f, err := os.Open(fname)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	for {
		var family uint16
		if err := binary.Read(f, binary.BigEndian, &family); err != nil {
			if err == io.EOF {
				return "", nil, errors.Errorf("no authority entry for display %s", display)
			}
			return "", nil, err
		}
		addr, err := authField(f)
		if err != nil {
			return "", nil, err
		}
		disp, err := authField(f)
		if err != nil {
			return "", nil, err
		}
		name, err := authField(f)
		if err != nil {
			return "", nil, err
		}
		data, err := authField(f)
		if err != nil {
			return "", nil, err
		}

		addrMatch := family == authFamilyWild ||
			(family == authFamilyLocal && string(addr) == hostname)
		dispMatch := len(disp) == 0 || string(disp) == display

		if addrMatch && dispMatch {
			return string(name), data, nil
		}
	}
}

// authField reads one length-prefixed field of an Xauthority entry.
func authField(r io.Reader) ([]byte, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// handshake performs the connection setup exchange. The setup body is
// discarded; only the control connection needs screen information.
func handshake(conn io.ReadWriter, authName string, authData []byte) error {
	buf := make([]byte, 12+xgb.Pad(len(authName))+xgb.Pad(len(authData)))
	buf[0] = 0x6c // little-endian
	xgb.Put16(buf[2:], 11)
	xgb.Put16(buf[4:], 0)
	xgb.Put16(buf[6:], uint16(len(authName)))
	xgb.Put16(buf[8:], uint16(len(authData)))
	copy(buf[12:], authName)
	copy(buf[12+xgb.Pad(len(authName)):], authData)
	if _, err := conn.Write(buf); err != nil {
		return errors.Wrap(err, "failed to send setup request")
	}

	head := make([]byte, 8)
	if _, err := io.ReadFull(conn, head); err != nil {
		return errors.Wrap(err, "failed to read setup reply")
	}
	body := make([]byte, int(xgb.Get16(head[6:]))*4)
	if _, err := io.ReadFull(conn, body); err != nil {
		return errors.Wrap(err, "failed to read setup reply")
	}

	if head[0] != 1 {
		reason := ""
		if n := int(head[1]); n <= len(body) {
			reason = string(body[:n])
		}
		return errors.Errorf("x server refused the connection: %s", reason)
	}
	if major := xgb.Get16(head[2:]); major != 11 {
		return errors.Errorf("x protocol version mismatch: %d", major)
	}
	return nil
}

// queryRecordOpcode asks the server for the RECORD extension's major opcode.
func queryRecordOpcode(conn io.ReadWriter) (byte, error) {
	const name = "RECORD"
	buf := make([]byte, 8+xgb.Pad(len(name)))
	buf[0] = queryExtensionOpcode
	xgb.Put16(buf[2:], uint16(len(buf)/4))
	xgb.Put16(buf[4:], uint16(len(name)))
	copy(buf[8:], name)
	if _, err := conn.Write(buf); err != nil {
		return 0, errors.Wrap(err, "failed to send extension query")
	}

	reply := make([]byte, xReplyHeaderLen)
	if _, err := io.ReadFull(conn, reply); err != nil {
		return 0, errors.Wrap(err, "failed to read extension query reply")
	}
	if reply[0] != 1 {
		return 0, errors.Errorf("extension query failed (error code %d)", reply[1])
	}
	if reply[8] != 1 {
		return 0, errors.New("the X server does not support the RECORD extension")
	}
	return reply[9], nil
}

// sendEnableContext issues the EnableContext request that turns the
// connection into a reply stream.
func sendEnableContext(w io.Writer, opcode byte, ctx record.Context) error {
	buf := make([]byte, 8)
	buf[0] = opcode
	buf[1] = enableContextMinor
	xgb.Put16(buf[2:], 2)
	xgb.Put32(buf[4:], uint32(ctx))
	if _, err := w.Write(buf); err != nil {
		return errors.Wrap(err, "failed to enable the recording context")
	}
	return nil
}
