package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/cursorsync/internal/cursor"
)

// Pointer returns the pointer position relative to the root window, tagged
// with the RandR output under it when one is found.
func (c *Connection) Pointer() (cursor.Point, error) {
	pointer, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return cursor.Point{}, fmt.Errorf("failed to query pointer: %w", err)
	}
	p := cursor.Point{X: int(pointer.RootX), Y: int(pointer.RootY)}

	// RandR can be missing on nested or virtual servers; the position alone
	// is still useful.
	if monitors, err := c.GetMonitors(); err == nil {
		if mon, ok := monitorAt(monitors, p.X, p.Y); ok {
			p.Monitor = mon.Name
		}
	}
	return p, nil
}
