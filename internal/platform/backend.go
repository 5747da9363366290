// Package platform selects the cursor backend for the running OS at build
// time.
package platform

import (
	"errors"

	"github.com/1broseidon/cursorsync/internal/cursor"
)

// ErrUnsupported is returned by Open on systems without a cursor backend.
var ErrUnsupported = errors.New("cursor tracking is not supported on this platform")

// Backend is a cursor.Tracker bound to an OS connection.
type Backend interface {
	cursor.Tracker
	// Name identifies the variant, e.g. "x11" or "appkit".
	Name() string
	// Mode is the identity mode fingerprints are computed with.
	Mode() cursor.IdentityMode
	// LastSeed reports the last generation counter the tracker saw.
	LastSeed() (int32, bool)
	// CurrentSeed reads the generation counter without consuming a change.
	CurrentSeed() int32
	// ExtractCurrent returns the displayed cursor's bitmap from one handle.
	ExtractCurrent() (cursor.Data, error)
	// Position returns the pointer location in screen coordinates.
	Position() (cursor.Point, error)
	Close()
}

// Options configures Open.
type Options struct {
	Identity cursor.IdentityMode
	// Display and XAuthority override X11 display discovery. Ignored
	// elsewhere.
	Display    string
	XAuthority string
}

// Open connects to the OS cursor subsystem.
func Open(opts Options) (Backend, error) {
	return openPlatform(opts)
}

// SessionBackend adapts a cursor.Source into a Backend. Each variant builds
// one around its native source.
type SessionBackend struct {
	*cursor.Session
	name    string
	pointer func() (cursor.Point, error)
	close   func()
}

var _ Backend = (*SessionBackend)(nil)

// NewSessionBackend wraps src. pointer and closeFn may be nil.
func NewSessionBackend(name string, src cursor.Source, mode cursor.IdentityMode, pointer func() (cursor.Point, error), closeFn func()) *SessionBackend {
	return &SessionBackend{
		Session: cursor.NewSession(src, mode),
		name:    name,
		pointer: pointer,
		close:   closeFn,
	}
}

func (b *SessionBackend) Name() string {
	return b.name
}

func (b *SessionBackend) Position() (cursor.Point, error) {
	if b.pointer == nil {
		return cursor.Point{}, ErrUnsupported
	}
	return b.pointer()
}

func (b *SessionBackend) Close() {
	if b.close != nil {
		b.close()
	}
}
