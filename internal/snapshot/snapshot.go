// Package snapshot encodes extracted cursor bitmaps for files and pipes.
package snapshot

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fxamacker/cbor/v2"

	"github.com/1broseidon/cursorsync/internal/config"
	"github.com/1broseidon/cursorsync/internal/cursor"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	// Core deterministic encoding: the same cursor always produces the same
	// bytes, so snapshots can be compared by hash.
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("snapshot: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("snapshot: CBOR decoder initialization failed: " + err.Error())
	}
}

// Image converts d to an NRGBA image. The pixel buffer may come from a
// representation that is an integer multiple of the logical size (HiDPI);
// the image then has the representation's dimensions.
func Image(d cursor.Data) (*image.NRGBA, error) {
	w, h, err := bufferSize(d)
	if err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	copy(img.Pix, d.Pixels)
	return img, nil
}

func bufferSize(d cursor.Data) (int, int, error) {
	if d.Width <= 0 || d.Height <= 0 {
		return 0, 0, fmt.Errorf("cursor has no size (%dx%d)", d.Width, d.Height)
	}
	if len(d.Pixels)%4 != 0 {
		return 0, 0, fmt.Errorf("pixel buffer length %d is not a multiple of 4", len(d.Pixels))
	}
	n := len(d.Pixels) / 4
	logical := d.Width * d.Height
	if n%logical == 0 {
		k := int(math.Round(math.Sqrt(float64(n / logical))))
		if k > 0 && k*k*logical == n {
			return d.Width * k, d.Height * k, nil
		}
	}
	return 0, 0, fmt.Errorf("pixel buffer holds %d pixels, which does not fit %dx%d", n, d.Width, d.Height)
}

// EncodePNG writes d as a PNG. scale resizes relative to the buffer size;
// upscaling keeps hard pixel edges.
func EncodePNG(w io.Writer, d cursor.Data, scale float64) error {
	img, err := Image(d)
	if err != nil {
		return err
	}
	var out image.Image = img
	if scale > 0 && scale != 1 {
		width := int(math.Round(float64(img.Rect.Dx()) * scale))
		if width < 1 {
			width = 1
		}
		filter := imaging.Lanczos
		if scale > 1 {
			filter = imaging.NearestNeighbor
		}
		out = imaging.Resize(img, width, 0, filter)
	}
	if err := png.Encode(w, out); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// EncodeCBOR writes d with its identity and hotspot intact.
func EncodeCBOR(w io.Writer, d cursor.Data) error {
	data, err := encMode.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode cbor: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// DecodeCBOR reads a snapshot written by EncodeCBOR.
func DecodeCBOR(r io.Reader) (cursor.Data, error) {
	var d cursor.Data
	if err := decMode.NewDecoder(r).Decode(&d); err != nil {
		return cursor.Data{}, fmt.Errorf("failed to decode cbor: %w", err)
	}
	return d, nil
}

// Write encodes d in format. scale applies to PNG only.
func Write(w io.Writer, d cursor.Data, format config.SnapshotFormat, scale float64) error {
	switch format {
	case config.SnapshotPNG, "":
		return EncodePNG(w, d, scale)
	case config.SnapshotCBOR:
		return EncodeCBOR(w, d)
	default:
		return fmt.Errorf("unknown snapshot format %q", format)
	}
}
