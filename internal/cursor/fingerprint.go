package cursor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/zeebo/blake3"
)

// IdentityMode selects how an Identity is derived from a cursor.
type IdentityMode string

const (
	// IdentitySampled sums geometry and two color samples near the hotspot.
	// Cheap, but distinct cursors that share geometry and both samples
	// collide.
	IdentitySampled IdentityMode = "sampled"
	// IdentityContent hashes geometry and every pixel with BLAKE3. Costs a
	// full pixel walk per change.
	IdentityContent IdentityMode = "content"
)

// ParseIdentityMode parses a config value. The empty string means sampled.
func ParseIdentityMode(s string) (IdentityMode, error) {
	switch IdentityMode(s) {
	case "", IdentitySampled:
		return IdentitySampled, nil
	case IdentityContent:
		return IdentityContent, nil
	default:
		return "", fmt.Errorf("unknown identity mode %q (want %s or %s)", s, IdentitySampled, IdentityContent)
	}
}

// sampleWeights separate the two color samples: the diagonal neighbor
// counts 255 times the hotspot pixel.
var sampleWeights = [2]float64{1, 255}

type geometry struct {
	w, h   float64
	hx, hy float64
	rep    Representation
	rw, rh int
}

func readGeometry(h Handle) (geometry, error) {
	if h == nil {
		return geometry{}, Unavailable(ReasonNoCursor, nil)
	}
	var g geometry
	g.w, g.h = h.Size()
	if g.w <= 0 || g.h <= 0 {
		return geometry{}, Unavailable(ReasonNoImage, fmt.Errorf("image size %gx%g", g.w, g.h))
	}
	g.hx, g.hy = h.Hotspot()

	rep, err := h.Representation()
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return geometry{}, err
		}
		return geometry{}, Unavailable(ReasonNoRepresentation, err)
	}
	if rep == nil {
		return geometry{}, Unavailable(ReasonNoRepresentation, nil)
	}
	g.rep = rep
	g.rw, g.rh = rep.Size()
	if g.rw <= 0 || g.rh <= 0 {
		return geometry{}, Unavailable(ReasonNoRepresentation, fmt.Errorf("representation size %dx%d", g.rw, g.rh))
	}
	return g, nil
}

// Fingerprint computes the sampled Identity of h and returns h with it.
func Fingerprint(h Handle) (Handle, Identity, error) {
	g, err := readGeometry(h)
	if err != nil {
		return nil, 0, err
	}
	return h, sampledIdentity(g), nil
}

func sampledIdentity(g geometry) Identity {
	acc := g.w + g.h + g.hx + g.hy + float64(g.rw) + float64(g.rh)

	// Hotspot in representation pixel space.
	px := int(math.Floor(float64(g.rw) * g.hx / g.w))
	py := int(math.Floor(float64(g.rh) * g.hy / g.h))

	for i, weight := range sampleWeights {
		x := clamp(px+i, g.rw-1)
		y := clamp(py+i, g.rh-1)
		c, ok := g.rep.ColorAt(x, y)
		if !ok {
			continue
		}
		acc += (c.R + c.G + c.B + c.A) * weight
	}
	return Identity(acc)
}

// ContentFingerprint derives the Identity from geometry and every pixel of
// the representation.
func ContentFingerprint(h Handle) (Handle, Identity, error) {
	g, err := readGeometry(h)
	if err != nil {
		return nil, 0, err
	}
	return h, contentIdentity(g), nil
}

func contentIdentity(g geometry) Identity {
	hasher := blake3.New()

	var buf [8]byte
	for _, v := range []float64{g.w, g.h, g.hx, g.hy, float64(g.rw), float64(g.rh)} {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		hasher.Write(buf[:])
	}

	// An unsampleable pixel hashes as a lone zero byte so it cannot alias
	// a transparent black one.
	px := make([]byte, 0, 5)
	for y := 0; y < g.rh; y++ {
		for x := 0; x < g.rw; x++ {
			px = px[:0]
			if c, ok := g.rep.ColorAt(x, y); ok {
				px = append(px, 1, channel(c.R), channel(c.G), channel(c.B), channel(c.A))
			} else {
				px = append(px, 0)
			}
			hasher.Write(px)
		}
	}

	sum := hasher.Sum(nil)
	return Identity(binary.LittleEndian.Uint64(sum[:8]))
}

// FingerprintWith dispatches on mode.
func FingerprintWith(mode IdentityMode, h Handle) (Handle, Identity, error) {
	if mode == IdentityContent {
		return ContentFingerprint(h)
	}
	return Fingerprint(h)
}

func clamp(v, max int) int {
	if v > max {
		return max
	}
	if v < 0 {
		return 0
	}
	return v
}

// channel scales a normalized channel to a byte, truncating like the OS
// conversion does.
func channel(v float64) byte {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return byte(v * 255)
	}
}
