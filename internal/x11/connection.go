package x11

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// Connection manages the X11 connection and the XFixes cursor subscription.
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	// serial is the last XFixes cursor serial seen, as delivered by
	// CursorNotify events.
	serial atomic.Uint32
}

// NewConnection establishes a connection to the X11 server and subscribes to
// cursor change notifications on the root window. Empty fields in configured
// are resolved from the environment and the login session.
func NewConnection(configured DisplayEnv) (*Connection, error) {
	env, err := ResolveDisplay(os.Environ(), configured)
	if err != nil {
		return nil, err
	}
	// xgb reads the auth cookie location from the process environment.
	if env.XAuthority != "" {
		if err := os.Setenv("XAUTHORITY", env.XAuthority); err != nil {
			return nil, fmt.Errorf("failed to set XAUTHORITY: %w", err)
		}
	}

	xu, err := xgbutil.NewConnDisplay(env.Display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X display %s: %w", env.Display, err)
	}

	c := &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}
	if err := c.initXFixes(); err != nil {
		xu.Conn().Close()
		return nil, err
	}
	return c, nil
}

func (c *Connection) initXFixes() error {
	conn := c.XUtil.Conn()
	if err := xfixes.Init(conn); err != nil {
		return fmt.Errorf("xfixes init failed: %w", err)
	}

	// The server refuses XFixes requests until a version is negotiated.
	// Cursor images and CursorNotify need version 2 or later.
	version, err := xfixes.QueryVersion(conn, 4, 0).Reply()
	if err != nil {
		return fmt.Errorf("xfixes version query failed: %w", err)
	}
	if version.MajorVersion < 2 {
		return fmt.Errorf("xfixes %d.%d is too old for cursor tracking", version.MajorVersion, version.MinorVersion)
	}

	err = xfixes.SelectCursorInputChecked(conn, c.Root, xfixes.CursorNotifyMaskDisplayCursor).Check()
	if err != nil {
		return fmt.Errorf("failed to select cursor input: %w", err)
	}

	// Prime the serial so the first poll has something to compare against.
	reply, err := xfixes.GetCursorImage(conn).Reply()
	if err == nil {
		c.serial.Store(reply.CursorSerial)
	}
	return nil
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
