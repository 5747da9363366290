package daemon

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/1broseidon/cursorsync/internal/cursor"
	"github.com/1broseidon/cursorsync/internal/cursor/cursortest"
	"github.com/1broseidon/cursorsync/internal/platform"
)

const (
	identityA cursor.Identity = 320  // 16x16 black, hotspot (0,0)
	identityB cursor.Identity = 1184 // 32x32 white, hotspot (16,16)
)

var (
	imageA = cursortest.Solid(16, 16, 0, 0, cursortest.Black)
	imageB = cursortest.Solid(32, 32, 16, 16, cursortest.White)
)

func newTestMonitor(t *testing.T, src *cursortest.Source) *Monitor {
	t.Helper()
	return newModeMonitor(t, src, cursor.IdentitySampled)
}

func newModeMonitor(t *testing.T, src cursor.Source, mode cursor.IdentityMode) *Monitor {
	t.Helper()
	backend := platform.NewSessionBackend("test", src, mode, nil, nil)
	m, err := NewMonitor(MonitorConfig{
		Interval:     time.Millisecond,
		CacheEntries: 4,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, backend)
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func expectEvent(t *testing.T, ch <-chan Event, want cursor.Identity) {
	t.Helper()
	select {
	case ev := <-ch:
		if ev.Identity != want {
			t.Fatalf("event identity = %d, want %d", ev.Identity, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for identity %d", want)
	}
}

func expectNoEvent(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestMonitor_PollPublishesIdentityChanges(t *testing.T) {
	src := cursortest.New(imageA)
	m := newTestMonitor(t, src)
	events, cancel := m.Subscribe()
	defer cancel()

	m.PollNow()
	expectEvent(t, events, identityA)

	calls := src.CurrentCalls()
	m.PollNow()
	expectNoEvent(t, events)
	if src.CurrentCalls() != calls {
		t.Fatalf("unchanged seed resolved the cursor again")
	}

	src.Set(imageB)
	m.PollNow()
	expectEvent(t, events, identityB)

	st := m.Status()
	if st.Identity != identityB || !st.HasIdentity {
		t.Fatalf("status identity = %d (%v), want %d", st.Identity, st.HasIdentity, identityB)
	}
	if st.Changes != 2 {
		t.Fatalf("status changes = %d, want 2", st.Changes)
	}
	if st.Backend != "test" || st.Mode != cursor.IdentitySampled {
		t.Fatalf("status backend/mode = %q/%q", st.Backend, st.Mode)
	}
}

func TestMonitor_SeedBumpWithSameCursorIsQuiet(t *testing.T) {
	src := cursortest.New(imageA)
	m := newTestMonitor(t, src)
	events, cancel := m.Subscribe()
	defer cancel()

	m.PollNow()
	expectEvent(t, events, identityA)

	src.Bump()
	m.PollNow()
	expectNoEvent(t, events)

	st := m.Status()
	if st.Changes != 1 {
		t.Fatalf("status changes = %d, want 1", st.Changes)
	}
	if st.Seed != 2 || !st.HasSeed {
		t.Fatalf("status seed = %d (%v), want 2", st.Seed, st.HasSeed)
	}
}

func TestMonitor_UnavailableRetriesNextTick(t *testing.T) {
	src := cursortest.New(imageA)
	src.Fail(cursor.Unavailable(cursor.ReasonNoImage, nil))
	m := newTestMonitor(t, src)
	events, cancel := m.Subscribe()
	defer cancel()

	m.PollNow()
	expectNoEvent(t, events)
	st := m.Status()
	if st.HasIdentity {
		t.Fatalf("identity recorded for unavailable cursor")
	}
	if st.LastError == "" {
		t.Fatalf("expected last error to be recorded")
	}

	// Seed unchanged, but the failed pass must not have consumed it.
	src.Fail(nil)
	m.PollNow()
	expectEvent(t, events, identityA)
	if st := m.Status(); st.LastError != "" {
		t.Fatalf("last error not cleared: %q", st.LastError)
	}
}

func TestMonitor_ExtractUsesCache(t *testing.T) {
	src := cursortest.New(imageA)
	m := newTestMonitor(t, src)

	first, err := m.Extract(identityA)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if first.Width != 16 || first.Height != 16 || len(first.Pixels) != 16*16*4 {
		t.Fatalf("Extract = %dx%d with %d bytes", first.Width, first.Height, len(first.Pixels))
	}

	second, err := m.Extract(identityA)
	if err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	if second.Identity != first.Identity || len(second.Pixels) != len(first.Pixels) {
		t.Fatalf("cached extract differs: %+v", second)
	}

	st := m.Status()
	if st.CacheHits != 1 || st.CacheMisses != 1 {
		t.Fatalf("cache hits/misses = %d/%d, want 1/1", st.CacheHits, st.CacheMisses)
	}
}

func TestMonitor_ExtractStaleForcesRedetection(t *testing.T) {
	src := cursortest.New(imageA)
	m := newTestMonitor(t, src)
	events, cancel := m.Subscribe()
	defer cancel()

	m.PollNow()
	expectEvent(t, events, identityA)

	// The cursor changes without the seed moving yet.
	src.SetSilently(imageB)
	_, err := m.Extract(identityA)
	var stale *cursor.StaleError
	if !errors.As(err, &stale) {
		t.Fatalf("Extract error = %v, want StaleError", err)
	}
	if stale.Expected != identityA || stale.Actual != identityB {
		t.Fatalf("stale = %+v", stale)
	}

	m.PollNow()
	expectEvent(t, events, identityB)

	data, err := m.Extract(identityB)
	if err != nil {
		t.Fatalf("Extract(B): %v", err)
	}
	if data.HotspotX != 16 || data.HotspotY != 16 {
		t.Fatalf("hotspot = (%d,%d), want (16,16)", data.HotspotX, data.HotspotY)
	}
}

func TestMonitor_ExtractCurrent(t *testing.T) {
	src := cursortest.New(imageB)
	m := newTestMonitor(t, src)

	data, err := m.ExtractCurrent()
	if err != nil {
		t.Fatalf("ExtractCurrent: %v", err)
	}
	if data.Identity != identityB {
		t.Fatalf("identity = %d, want %d", data.Identity, identityB)
	}
}

func TestMonitor_ExtractUnavailable(t *testing.T) {
	src := cursortest.New(imageA)
	src.Fail(cursor.Unavailable(cursor.ReasonNoCursor, nil))
	m := newTestMonitor(t, src)

	if _, err := m.Extract(identityA); !errors.Is(err, cursor.ErrUnavailable) {
		t.Fatalf("Extract error = %v, want ErrUnavailable", err)
	}
}

func TestMonitor_ResetReportsChangeAgain(t *testing.T) {
	src := cursortest.New(imageA)
	m := newTestMonitor(t, src)
	events, cancel := m.Subscribe()
	defer cancel()

	m.PollNow()
	expectEvent(t, events, identityA)
	if _, err := m.Extract(identityA); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	m.Reset()
	if st := m.Status(); st.HasIdentity || st.HasSeed {
		t.Fatalf("status after reset = %+v", st)
	}

	m.PollNow()
	expectEvent(t, events, identityA)

	if _, err := m.Extract(identityA); err != nil {
		t.Fatalf("Extract after reset: %v", err)
	}
	if st := m.Status(); st.CacheHits != 0 || st.CacheMisses != 2 {
		t.Fatalf("cache hits/misses = %d/%d, want 0/2", st.CacheHits, st.CacheMisses)
	}
}

func TestMonitor_RunUntilCancelled(t *testing.T) {
	src := cursortest.New(imageA)
	m := newTestMonitor(t, src)
	events, cancel := m.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	expectEvent(t, events, identityA)
	src.Set(imageB)
	expectEvent(t, events, identityB)

	stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMonitor_SubscribeCancelClosesChannel(t *testing.T) {
	m := newTestMonitor(t, cursortest.New(imageA))
	events, cancel := m.Subscribe()
	cancel()
	cancel()

	if _, ok := <-events; ok {
		t.Fatal("expected closed channel")
	}
	m.PollNow()
}

func TestMonitor_Position(t *testing.T) {
	m := newTestMonitor(t, cursortest.New(imageA))
	if _, err := m.Position(); !errors.Is(err, platform.ErrUnsupported) {
		t.Fatalf("Position error = %v, want ErrUnsupported", err)
	}
}

// imageACorner matches imageA everywhere except the bottom-right pixel, which
// the sampled fingerprint never reads.
func imageACorner() cursortest.Image {
	img := cursortest.Solid(16, 16, 0, 0, cursortest.Black)
	img.Pixels[15*16+15] = cursortest.White
	return img
}

func lastPixel(d cursor.Data) []byte {
	return d.Pixels[len(d.Pixels)-4:]
}

func TestMonitor_SampledCollisionIsNotServedFromCache(t *testing.T) {
	src := cursortest.New(imageA)
	m := newTestMonitor(t, src)

	first, err := m.Extract(identityA)
	if err != nil {
		t.Fatalf("Extract(A): %v", err)
	}
	if !bytes.Equal(lastPixel(first), []byte{0, 0, 0, 255}) {
		t.Fatalf("A last pixel = %v", lastPixel(first))
	}

	src.Set(imageACorner())
	second, err := m.Extract(identityA)
	if err != nil {
		t.Fatalf("Extract after colliding change: %v", err)
	}
	if !bytes.Equal(lastPixel(second), []byte{255, 255, 255, 255}) {
		t.Fatalf("last pixel = %v, want the displayed cursor's white corner", lastPixel(second))
	}
	if st := m.Status(); st.CacheHits != 0 || st.CacheMisses != 2 {
		t.Fatalf("cache hits/misses = %d/%d, want 0/2", st.CacheHits, st.CacheMisses)
	}
}

func TestMonitor_ContentCacheSurvivesSeedBump(t *testing.T) {
	src := cursortest.New(imageA)
	m := newModeMonitor(t, src, cursor.IdentityContent)

	first, err := m.ExtractCurrent()
	if err != nil {
		t.Fatalf("ExtractCurrent: %v", err)
	}
	src.Bump()
	if _, err := m.Extract(first.Identity); err != nil {
		t.Fatalf("Extract after bump: %v", err)
	}
	if st := m.Status(); st.CacheHits != 1 || st.CacheMisses != 1 {
		t.Fatalf("cache hits/misses = %d/%d, want 1/1", st.CacheHits, st.CacheMisses)
	}

	src.Set(imageACorner())
	second, err := m.ExtractCurrent()
	if err != nil {
		t.Fatalf("ExtractCurrent after change: %v", err)
	}
	if second.Identity == first.Identity {
		t.Fatal("content identity did not distinguish the corner pixel")
	}
}

func TestMonitor_CachedPixelsAreCopies(t *testing.T) {
	src := cursortest.New(imageA)
	m := newTestMonitor(t, src)

	first, err := m.Extract(identityA)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for i := range first.Pixels {
		first.Pixels[i] = 0x7f
	}

	second, err := m.Extract(identityA)
	if err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	if second.Pixels[3] != 255 {
		t.Fatalf("cached pixels were modified through a returned slice: %v", second.Pixels[:4])
	}
	second.Pixels[3] = 0
	third, _ := m.Extract(identityA)
	if third.Pixels[3] != 255 {
		t.Fatal("cache shares pixels with its callers")
	}
}

// switchingSource changes the displayed cursor right after the first
// Current call without moving the seed.
type switchingSource struct {
	*cursortest.Source
	next     cursortest.Image
	switched bool
}

func (s *switchingSource) Current() (cursor.Handle, error) {
	h, err := s.Source.Current()
	if !s.switched {
		s.switched = true
		s.Source.SetSilently(s.next)
	}
	return h, err
}

func TestMonitor_ExtractCurrentAcrossChange(t *testing.T) {
	src := &switchingSource{Source: cursortest.New(imageA), next: imageB}
	m := newModeMonitor(t, src, cursor.IdentitySampled)

	data, err := m.ExtractCurrent()
	if err != nil {
		t.Fatalf("ExtractCurrent: %v", err)
	}
	if data.Identity != identityB || data.Width != 32 {
		t.Fatalf("ExtractCurrent = identity %d, %dx%d; want the cursor displayed at extraction", data.Identity, data.Width, data.Height)
	}
	if st := m.Status(); st.CacheHits != 0 {
		t.Fatalf("cache hits = %d", st.CacheHits)
	}
}
