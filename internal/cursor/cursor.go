// Package cursor tracks the shape of the system mouse cursor.
//
// A Source exposes two OS primitives: a cheap generation counter (the seed)
// and the current cursor Handle. A Session turns those into change
// detection, a content-derived Identity and verified bitmap extraction.
package cursor

import "fmt"

// Identity is a content-derived fingerprint of a cursor shape. Two cursors
// with identical geometry and identical sampled colors share an Identity.
type Identity uint64

func (id Identity) String() string {
	return fmt.Sprintf("%d", uint64(id))
}

// Color is a single pixel with channels normalized to [0,1].
type Color struct {
	R, G, B, A float64
}

// Representation is a pixel-sampleable image of a cursor. Its size may differ
// from the logical image size when the OS applies a scale factor.
type Representation interface {
	Size() (width, height int)
	// ColorAt reports false when the pixel cannot be sampled.
	ColorAt(x, y int) (Color, bool)
}

// Handle is the OS cursor object. It is only valid for the duration of the
// call that produced it and must never be kept across calls.
type Handle interface {
	// Size is the logical image size.
	Size() (width, height float64)
	// Hotspot is expressed in the logical image space.
	Hotspot() (x, y float64)
	Representation() (Representation, error)
}

// Source is the OS cursor subsystem a Session reads from.
type Source interface {
	// Seed returns the OS cursor generation counter. It changes whenever
	// the visible cursor changes and must be cheap to call every frame.
	Seed() int32
	// Current resolves the active cursor.
	Current() (Handle, error)
}

// Data is an extracted cursor bitmap. Pixels are RGBA, row-major, top row
// first. Width and Height are the logical image size.
type Data struct {
	Identity Identity `json:"identity" cbor:"1,keyasint"`
	Pixels   []byte   `json:"pixels" cbor:"2,keyasint"`
	HotspotX int      `json:"hotspot_x" cbor:"3,keyasint"`
	HotspotY int      `json:"hotspot_y" cbor:"4,keyasint"`
	Width    int      `json:"width" cbor:"5,keyasint"`
	Height   int      `json:"height" cbor:"6,keyasint"`
}

// Point is a pointer position in screen coordinates.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
	// Monitor names the output under the pointer when the backend knows it.
	Monitor string `json:"monitor,omitempty"`
}

// Tracker is the per-platform cursor capability.
type Tracker interface {
	// PollChanged reports whether the cursor may have changed since the
	// previous call. It never fingerprints.
	PollChanged() bool
	// Reset forgets the last observed seed so the next PollChanged
	// reports a change.
	Reset()
	Fingerprint(h Handle) (Handle, Identity, error)
	// CurrentIdentity resolves and fingerprints the active cursor.
	CurrentIdentity() (Identity, error)
	// Extract returns the bitmap of the active cursor if it still matches
	// expected, and fails with ErrStaleCursor otherwise.
	Extract(expected Identity) (Data, error)
}
