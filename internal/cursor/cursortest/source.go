// Package cursortest provides an in-memory cursor.Source for tests.
package cursortest

import (
	"sync"

	"github.com/1broseidon/cursorsync/internal/cursor"
)

// Image describes a scripted cursor. RepWidth/RepHeight default to the
// logical size when zero.
type Image struct {
	Width, Height      float64
	HotspotX, HotspotY float64
	RepWidth           int
	RepHeight          int
	// Pixels is row-major over the representation.
	Pixels []cursor.Color
	// Missing marks representation pixels that cannot be sampled.
	Missing map[[2]int]bool
}

// Solid returns a w x h cursor filled with c.
func Solid(w, h int, hx, hy float64, c cursor.Color) Image {
	px := make([]cursor.Color, w*h)
	for i := range px {
		px[i] = c
	}
	return Image{
		Width:    float64(w),
		Height:   float64(h),
		HotspotX: hx,
		HotspotY: hy,
		Pixels:   px,
	}
}

var (
	Black = cursor.Color{A: 1}
	White = cursor.Color{R: 1, G: 1, B: 1, A: 1}
)

// Source is a scripted cursor.Source. The seed only moves when Set or Bump
// is called.
type Source struct {
	mu       sync.Mutex
	seed     int32
	img      *Image
	err      error
	current  int
	seedRead int
}

var _ cursor.Source = (*Source)(nil)

// New returns a Source showing img at seed 1.
func New(img Image) *Source {
	return &Source{seed: 1, img: &img}
}

// Set switches the cursor and advances the seed.
func (s *Source) Set(img Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.img = &img
	s.err = nil
	s.seed++
}

// SetSilently switches the cursor without advancing the seed, modelling a
// change that lands between a poll and an extract.
func (s *Source) SetSilently(img Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.img = &img
}

// Bump advances the seed without changing the image.
func (s *Source) Bump() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seed++
}

// Fail makes Current return err until the next Set.
func (s *Source) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// CurrentCalls reports how many times Current was called.
func (s *Source) CurrentCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SeedReads reports how many times Seed was called.
func (s *Source) SeedReads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seedRead
}

func (s *Source) Seed() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seedRead++
	return s.seed
}

// Current returns a fresh handle each time, like the OS does.
func (s *Source) Current() (cursor.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current++
	if s.err != nil {
		return nil, s.err
	}
	if s.img == nil {
		return nil, cursor.Unavailable(cursor.ReasonNoCursor, nil)
	}
	img := *s.img
	return &handle{img: img}, nil
}

type handle struct {
	img Image
}

func (h *handle) Size() (float64, float64) {
	return h.img.Width, h.img.Height
}

func (h *handle) Hotspot() (float64, float64) {
	return h.img.HotspotX, h.img.HotspotY
}

func (h *handle) Representation() (cursor.Representation, error) {
	w, ht := h.img.RepWidth, h.img.RepHeight
	if w == 0 && ht == 0 {
		w, ht = int(h.img.Width), int(h.img.Height)
	}
	if len(h.img.Pixels) < w*ht {
		return nil, cursor.Unavailable(cursor.ReasonNoRepresentation, nil)
	}
	return &rep{w: w, h: ht, px: h.img.Pixels, missing: h.img.Missing}, nil
}

type rep struct {
	w, h    int
	px      []cursor.Color
	missing map[[2]int]bool
}

func (r *rep) Size() (int, int) {
	return r.w, r.h
}

func (r *rep) ColorAt(x, y int) (cursor.Color, bool) {
	if x < 0 || y < 0 || x >= r.w || y >= r.h {
		return cursor.Color{}, false
	}
	if r.missing[[2]int{x, y}] {
		return cursor.Color{}, false
	}
	return r.px[y*r.w+x], true
}
