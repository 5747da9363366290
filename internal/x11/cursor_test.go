package x11

import (
	"errors"
	"testing"

	"github.com/1broseidon/cursorsync/internal/cursor"
)

func TestUnpremultiply(t *testing.T) {
	tests := []struct {
		name string
		px   uint32
		want [4]byte
	}{
		{"transparent", 0x00000000, [4]byte{0, 0, 0, 0}},
		{"opaque black", 0xff000000, [4]byte{0, 0, 0, 255}},
		{"opaque white", 0xffffffff, [4]byte{255, 255, 255, 255}},
		{"opaque red", 0xffff0000, [4]byte{255, 0, 0, 255}},
		{"half white", 0x80808080, [4]byte{255, 255, 255, 128}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := unpremultiply(tt.px)
			got := [4]byte{toByte(c.R), toByte(c.G), toByte(c.B), toByte(c.A)}
			if got != tt.want {
				t.Fatalf("unpremultiply(%#08x) = %v, want %v", tt.px, got, tt.want)
			}
		})
	}
}

func toByte(v float64) byte {
	return byte(v * 255)
}

func TestCursorImageFingerprintAndExtract(t *testing.T) {
	const w, h = 16, 16
	argb := make([]uint32, w*h)
	for i := range argb {
		argb[i] = 0xff000000
	}
	img := newCursorImage(w, h, 0, 0, argb)

	_, id, err := cursor.Fingerprint(img)
	if err != nil {
		t.Fatalf("Fingerprint error: %v", err)
	}
	if id != 320 {
		t.Fatalf("Fingerprint = %d, want 320", id)
	}
}

func TestCursorImageShortPixelBuffer(t *testing.T) {
	img := newCursorImage(4, 4, 0, 0, make([]uint32, 3))
	_, err := img.Representation()
	if !errors.Is(err, cursor.ErrUnavailable) {
		t.Fatalf("Representation error = %v, want ErrUnavailable", err)
	}
}

func TestCursorPixelsOutOfBounds(t *testing.T) {
	img := newCursorImage(2, 2, 0, 0, make([]uint32, 4))
	rep, err := img.Representation()
	if err != nil {
		t.Fatalf("Representation error: %v", err)
	}
	if _, ok := rep.ColorAt(2, 0); ok {
		t.Fatal("ColorAt outside the image reported sampleable")
	}
}

func TestMonitorAt(t *testing.T) {
	monitors := []Monitor{
		{ID: 0, Name: "eDP-1", X: 0, Y: 0, Width: 1920, Height: 1080},
		{ID: 1, Name: "HDMI-1", X: 1920, Y: 0, Width: 2560, Height: 1440},
	}

	tests := []struct {
		x, y   int
		want   string
		wantOK bool
	}{
		{x: 0, y: 0, want: "eDP-1", wantOK: true},
		{x: 1919, y: 1079, want: "eDP-1", wantOK: true},
		{x: 1920, y: 0, want: "HDMI-1", wantOK: true},
		{x: 100, y: 1200, wantOK: false},
		{x: -1, y: 0, wantOK: false},
	}
	for _, tt := range tests {
		mon, ok := monitorAt(monitors, tt.x, tt.y)
		if ok != tt.wantOK || mon.Name != tt.want {
			t.Errorf("monitorAt(%d,%d) = %q, %v; want %q, %v", tt.x, tt.y, mon.Name, ok, tt.want, tt.wantOK)
		}
	}
}
