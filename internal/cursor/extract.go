package cursor

// Extract resolves the current cursor from src, verifies it still has the
// expected identity and returns its bitmap.
//
// Pixels the representation cannot sample are skipped rather than
// zero-filled, so Pixels may be shorter than 4*width*height.
func Extract(src Source, mode IdentityMode, expected Identity) (Data, error) {
	g, actual, err := resolve(src, mode)
	if err != nil {
		return Data{}, err
	}
	if actual != expected {
		return Data{}, &StaleError{Expected: expected, Actual: actual}
	}
	return walk(g, actual), nil
}

// ExtractCurrent returns the bitmap of whatever cursor src displays. The
// identity and pixels come from the same handle, so it never reports a
// stale cursor.
func ExtractCurrent(src Source, mode IdentityMode) (Data, error) {
	g, id, err := resolve(src, mode)
	if err != nil {
		return Data{}, err
	}
	return walk(g, id), nil
}

func resolve(src Source, mode IdentityMode) (geometry, Identity, error) {
	h, err := src.Current()
	if err != nil {
		return geometry{}, 0, err
	}
	if h == nil {
		return geometry{}, 0, Unavailable(ReasonNoCursor, nil)
	}

	g, err := readGeometry(h)
	if err != nil {
		return geometry{}, 0, err
	}
	if mode == IdentityContent {
		return g, contentIdentity(g), nil
	}
	return g, sampledIdentity(g), nil
}

func walk(g geometry, id Identity) Data {
	pixels := make([]byte, 0, g.rw*g.rh*4)
	for y := 0; y < g.rh; y++ {
		for x := 0; x < g.rw; x++ {
			c, ok := g.rep.ColorAt(x, y)
			if !ok {
				continue
			}
			pixels = append(pixels, channel(c.R), channel(c.G), channel(c.B), channel(c.A))
		}
	}

	return Data{
		Identity: id,
		Pixels:   pixels,
		HotspotX: int(g.hx),
		HotspotY: int(g.hy),
		Width:    int(g.w),
		Height:   int(g.h),
	}
}
