package platform

import "github.com/1broseidon/cursorsync/internal/cursor"

// pixelHandle is a cursor copied out of the OS in one call. Native APIs whose
// objects cannot leave the calling thread build one of these instead of
// handing out the native object.
type pixelHandle struct {
	width, height float64
	hotX, hotY    float64
	repW, repH    int
	colors        []cursor.Color
	valid         []bool
}

func (h *pixelHandle) Size() (float64, float64) {
	return h.width, h.height
}

func (h *pixelHandle) Hotspot() (float64, float64) {
	return h.hotX, h.hotY
}

func (h *pixelHandle) Representation() (cursor.Representation, error) {
	if h.repW <= 0 || h.repH <= 0 || len(h.colors) < h.repW*h.repH {
		return nil, cursor.Unavailable(cursor.ReasonNoRepresentation, nil)
	}
	return pixelRep{h}, nil
}

type pixelRep struct {
	*pixelHandle
}

func (r pixelRep) Size() (int, int) {
	return r.repW, r.repH
}

func (r pixelRep) ColorAt(x, y int) (cursor.Color, bool) {
	if x < 0 || y < 0 || x >= r.repW || y >= r.repH {
		return cursor.Color{}, false
	}
	i := y*r.repW + x
	if i < len(r.valid) && !r.valid[i] {
		return cursor.Color{}, false
	}
	return r.colors[i], true
}
