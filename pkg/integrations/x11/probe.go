package x11

import (
	"strings"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"

	"github.com/heimgewebe/mitschreiber/pkg/window"
)

// maxPropertyLength is the GetProperty long-length (32-bit units) for text
const maxPropertyLength = 1024

const (
	atomActiveWindow = "_NET_ACTIVE_WINDOW"
	atomNetWMName    = "_NET_WM_NAME"
	atomWMName       = "WM_NAME"
	atomWMClass      = "WM_CLASS"
	atomUTF8String   = "UTF8_STRING"
)

// propertySource performs one GetProperty round trip
type propertySource interface {
	property(win xproto.Window, prop, typ xproto.Atom, length uint32) ([]byte, error)
}

// atoms are resolved once per connection
type atoms struct {
	activeWindow xproto.Atom
	netWMName    xproto.Atom
	wmName       xproto.Atom
	wmClass      xproto.Atom
	utf8String   xproto.Atom
}

// Probe implements window.Probe over a native X11 connection
type Probe struct {
	conn  *xgb.Conn
	src   propertySource
	root  xproto.Window
	atoms atoms
}

// NewProbe connects to the X server named by $DISPLAY and resolves the atoms
// the probe needs. Any failure closes the connection and is returned.
func NewProbe() (*Probe, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to X server")
	}

	root := xproto.Setup(conn).DefaultScreen(conn).Root

	resolved, err := internAtoms(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Probe{
		conn:  conn,
		src:   connSource{conn: conn},
		root:  root,
		atoms: resolved,
	}, nil
}

func internAtoms(conn *xgb.Conn) (atoms, error) {
	var a atoms
	targets := []struct {
		name string
		dst  *xproto.Atom
	}{
		{atomActiveWindow, &a.activeWindow},
		{atomNetWMName, &a.netWMName},
		{atomWMName, &a.wmName},
		{atomWMClass, &a.wmClass},
		{atomUTF8String, &a.utf8String},
	}

	for _, t := range targets {
		reply, err := xproto.InternAtom(conn, false, uint16(len(t.name)), t.name).Reply()
		if err != nil {
			return a, errors.Wrapf(err, "failed to intern atom %s", t.name)
		}
		if reply == nil || reply.Atom == xproto.AtomNone {
			return a, errors.Errorf("atom %s could not be resolved", t.name)
		}
		*t.dst = reply.Atom
	}

	return a, nil
}

// Backend returns "x11"
func (p *Probe) Backend() string {
	return "x11"
}

// Sample queries the focused window fresh on every call. Individual query
// failures leave the affected field as Unknown.
func (p *Probe) Sample(tick uint64) window.State {
	ts := window.Now()

	active, ok := p.activeWindow()
	if !ok {
		return window.State{
			Timestamp:   ts,
			AppName:     window.Unknown,
			WindowTitle: window.Unknown,
		}
	}

	return window.State{
		Timestamp:   ts,
		AppName:     window.OrUnknown(p.windowClass(active)),
		WindowTitle: window.OrUnknown(p.windowTitle(active)),
	}
}

func (p *Probe) activeWindow() (xproto.Window, bool) {
	data, err := p.src.property(p.root, p.atoms.activeWindow, xproto.AtomWindow, 1)
	if err != nil || len(data) < 4 {
		return 0, false
	}
	win := xproto.Window(xgb.Get32(data))
	return win, win != 0
}

func (p *Probe) windowTitle(win xproto.Window) string {
	data, err := p.src.property(win, p.atoms.netWMName, p.atoms.utf8String, maxPropertyLength)
	if err == nil && len(data) > 0 {
		return string(data)
	}

	data, err = p.src.property(win, p.atoms.wmName, xproto.GetPropertyTypeAny, maxPropertyLength)
	if err == nil && len(data) > 0 {
		return string(data)
	}

	return ""
}

func (p *Probe) windowClass(win xproto.Window) string {
	data, err := p.src.property(win, p.atoms.wmClass, xproto.AtomString, maxPropertyLength)
	if err != nil {
		return ""
	}
	return parseWMClass(data)
}

// parseWMClass picks the class segment of a NUL separated WM_CLASS value,
// falling back to the instance segment when the class is empty.
func parseWMClass(data []byte) string {
	var parts []string
	for _, part := range strings.Split(string(data), "\x00") {
		if part != "" {
			parts = append(parts, part)
		}
	}

	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// Close closes the X connection
func (p *Probe) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}

type connSource struct {
	conn *xgb.Conn
}

func (s connSource) property(win xproto.Window, prop, typ xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(s.conn, false, win, prop, typ, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, nil
	}
	return reply.Value, nil
}
