package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xfixes"

	"github.com/1broseidon/cursorsync/internal/cursor"
)

var _ cursor.Source = (*Connection)(nil)

// Seed drains queued CursorNotify events and returns the most recent cursor
// serial. It issues no round trip to the server.
func (c *Connection) Seed() int32 {
	conn := c.XUtil.Conn()
	for {
		ev, xerr := conn.PollForEvent()
		if ev == nil && xerr == nil {
			break
		}
		if notify, ok := ev.(xfixes.CursorNotifyEvent); ok {
			c.serial.Store(notify.CursorSerial)
		}
	}
	return int32(c.serial.Load())
}

// Current fetches the displayed cursor image. The returned handle owns a
// copy of the pixels and does not outlive the caller's operation.
func (c *Connection) Current() (cursor.Handle, error) {
	reply, err := xfixes.GetCursorImage(c.XUtil.Conn()).Reply()
	if err != nil {
		return nil, cursor.Unavailable(cursor.ReasonNoCursor, err)
	}
	if reply == nil {
		return nil, cursor.Unavailable(cursor.ReasonNoCursor, nil)
	}
	if reply.Width == 0 || reply.Height == 0 {
		return nil, cursor.Unavailable(cursor.ReasonNoImage, nil)
	}
	return newCursorImage(int(reply.Width), int(reply.Height), int(reply.Xhot), int(reply.Yhot), reply.CursorImage), nil
}

// cursorImage is an XFixes cursor. X11 has no scale factor between the
// logical image and its pixels, so the image is its own representation.
type cursorImage struct {
	width, height int
	xhot, yhot    int
	// argb holds premultiplied 0xAARRGGBB words, row-major.
	argb []uint32
}

func newCursorImage(width, height, xhot, yhot int, argb []uint32) *cursorImage {
	return &cursorImage{
		width:  width,
		height: height,
		xhot:   xhot,
		yhot:   yhot,
		argb:   argb,
	}
}

func (ci *cursorImage) Size() (float64, float64) {
	return float64(ci.width), float64(ci.height)
}

func (ci *cursorImage) Hotspot() (float64, float64) {
	return float64(ci.xhot), float64(ci.yhot)
}

func (ci *cursorImage) Representation() (cursor.Representation, error) {
	if len(ci.argb) < ci.width*ci.height {
		return nil, cursor.Unavailable(cursor.ReasonNoRepresentation,
			fmt.Errorf("got %d pixels for %dx%d cursor", len(ci.argb), ci.width, ci.height))
	}
	return cursorPixels{ci}, nil
}

type cursorPixels struct {
	*cursorImage
}

func (p cursorPixels) Size() (int, int) {
	return p.width, p.height
}

func (p cursorPixels) ColorAt(x, y int) (cursor.Color, bool) {
	if x < 0 || y < 0 || x >= p.width || y >= p.height {
		return cursor.Color{}, false
	}
	return unpremultiply(p.argb[y*p.width+x]), true
}

// unpremultiply converts a premultiplied ARGB word to straight alpha.
func unpremultiply(px uint32) cursor.Color {
	a := float64(px >> 24 & 0xff)
	if a == 0 {
		return cursor.Color{}
	}
	r := float64(px >> 16 & 0xff)
	g := float64(px >> 8 & 0xff)
	b := float64(px & 0xff)
	return cursor.Color{
		R: ratio(r, a),
		G: ratio(g, a),
		B: ratio(b, a),
		A: a / 255,
	}
}

func ratio(c, a float64) float64 {
	if c >= a {
		return 1
	}
	return c / a
}
