package cursor

import (
	"math"
	"testing"
)

func TestChangeDetector_Sequence(t *testing.T) {
	d := NewChangeDetector()
	if _, ok := d.LastSeed(); ok {
		t.Fatal("fresh detector reports a seed")
	}

	steps := []struct {
		seed int32
		want bool
	}{
		{0, true}, // sentinel is not a valid seed, so 0 counts as new
		{0, false},
		{7, true},
		{7, false},
		{math.MinInt32, true},
		{math.MaxInt32, true},
		{math.MaxInt32, false},
	}
	for i, st := range steps {
		if got := d.PollChanged(st.seed); got != st.want {
			t.Fatalf("step %d: PollChanged(%d) = %v, want %v", i, st.seed, got, st.want)
		}
	}
	if seed, ok := d.LastSeed(); !ok || seed != math.MaxInt32 {
		t.Fatalf("LastSeed() = %d, %v", seed, ok)
	}

	d.Reset()
	if _, ok := d.LastSeed(); ok {
		t.Fatal("LastSeed after Reset reports a seed")
	}
	if !d.PollChanged(math.MaxInt32) {
		t.Fatal("PollChanged with the pre-reset seed = false, want true")
	}
}

func TestErrorMessages(t *testing.T) {
	err := Unavailable(ReasonNoImage, nil)
	if err.Error() != "cursor unavailable: no image" {
		t.Fatalf("Error() = %q", err.Error())
	}
	stale := &StaleError{Expected: 1, Actual: 2}
	if stale.Error() != "cursor changed: expected identity 1, found 2" {
		t.Fatalf("Error() = %q", stale.Error())
	}
	if Kind(nil) != "" {
		t.Fatal("Kind(nil) should be empty")
	}
}
