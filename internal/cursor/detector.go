package cursor

import (
	"math"
	"sync/atomic"
)

// neverSeen lies outside the int32 range so no OS seed can match it.
const neverSeen int64 = math.MinInt64

// ChangeDetector remembers the last observed cursor seed.
//
// The zero value is not ready; use NewChangeDetector. A detector has a single
// writer, the capture loop that owns it. Readers such as status queries may
// call LastSeed concurrently.
type ChangeDetector struct {
	last atomic.Int64
}

// NewChangeDetector returns a detector in the never-seen state.
func NewChangeDetector() *ChangeDetector {
	d := &ChangeDetector{}
	d.last.Store(neverSeen)
	return d
}

// PollChanged compares seed with the stored value. On a match it returns
// false without touching state; otherwise it stores seed and returns true.
func (d *ChangeDetector) PollChanged(seed int32) bool {
	if d.last.Load() == int64(seed) {
		return false
	}
	d.last.Store(int64(seed))
	return true
}

// Reset returns the detector to the never-seen state.
func (d *ChangeDetector) Reset() {
	d.last.Store(neverSeen)
}

// LastSeed returns the stored seed and whether one has been observed.
func (d *ChangeDetector) LastSeed() (int32, bool) {
	v := d.last.Load()
	if v == neverSeen {
		return 0, false
	}
	return int32(v), true
}
