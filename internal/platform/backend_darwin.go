//go:build darwin && cgo

package platform

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework AppKit -framework ApplicationServices

#import <AppKit/AppKit.h>
#import <ApplicationServices/ApplicationServices.h>
#include <stdlib.h>

// Private CoreGraphics call; changes whenever the system cursor changes.
extern int CGSCurrentCursorSeed(void);

enum {
	snapOK = 0,
	snapNoCursor = 1,
	snapNoImage = 2,
	snapNoRep = 3,
};

typedef struct {
	int status;
	double width, height;
	double hotX, hotY;
	int repWidth, repHeight;
	double *rgba;
	unsigned char *valid;
} cursorSnapshot;

static int cursorSeed(void) {
	return CGSCurrentCursorSeed();
}

static void pointerLocation(double *x, double *y) {
	CGEventRef e = CGEventCreate(NULL);
	CGPoint p = CGEventGetLocation(e);
	CFRelease(e);
	*x = p.x;
	*y = p.y;
}

static cursorSnapshot snapshotCursor(void) {
	cursorSnapshot s = {0};
	@autoreleasepool {
		NSCursor *c = [NSCursor currentSystemCursor];
		if (c == nil) {
			s.status = snapNoCursor;
			return s;
		}
		NSPoint hot = [c hotSpot];
		NSImage *img = [c image];
		if (img == nil) {
			s.status = snapNoImage;
			return s;
		}
		NSSize size = [img size];
		NSData *tif = [img TIFFRepresentation];
		if (tif == nil) {
			s.status = snapNoRep;
			return s;
		}
		NSBitmapImageRep *rep = [NSBitmapImageRep imageRepWithData:tif];
		if (rep == nil) {
			s.status = snapNoRep;
			return s;
		}
		NSSize repSize = [rep size];
		int rw = (int)repSize.width;
		int rh = (int)repSize.height;
		if (rw <= 0 || rh <= 0) {
			s.status = snapNoRep;
			return s;
		}

		s.width = size.width;
		s.height = size.height;
		s.hotX = hot.x;
		s.hotY = hot.y;
		s.repWidth = rw;
		s.repHeight = rh;
		s.rgba = malloc(sizeof(double) * 4 * rw * rh);
		s.valid = calloc(rw * rh, 1);
		for (int y = 0; y < rh; y++) {
			for (int x = 0; x < rw; x++) {
				NSColor *col = [rep colorAtX:x y:y];
				if (col == nil) {
					continue;
				}
				int i = y * rw + x;
				s.rgba[i*4+0] = [col redComponent];
				s.rgba[i*4+1] = [col greenComponent];
				s.rgba[i*4+2] = [col blueComponent];
				s.rgba[i*4+3] = [col alphaComponent];
				s.valid[i] = 1;
			}
		}
	}
	return s;
}

static void freeSnapshot(cursorSnapshot *s) {
	free(s->rgba);
	free(s->valid);
}
*/
import "C"

import (
	"unsafe"

	"github.com/1broseidon/cursorsync/internal/cursor"
)

type appkitSource struct{}

func (appkitSource) Seed() int32 {
	return int32(C.cursorSeed())
}

// Current copies the cursor out of AppKit. NSCursor objects are autoreleased
// inside the snapshot call, so nothing native escapes it.
func (appkitSource) Current() (cursor.Handle, error) {
	snap := C.snapshotCursor()
	defer C.freeSnapshot(&snap)

	switch snap.status {
	case C.snapNoCursor:
		return nil, cursor.Unavailable(cursor.ReasonNoCursor, nil)
	case C.snapNoImage:
		return nil, cursor.Unavailable(cursor.ReasonNoImage, nil)
	case C.snapNoRep:
		return nil, cursor.Unavailable(cursor.ReasonNoRepresentation, nil)
	}

	rw, rh := int(snap.repWidth), int(snap.repHeight)
	n := rw * rh
	rgba := unsafe.Slice((*float64)(unsafe.Pointer(snap.rgba)), n*4)
	valid := unsafe.Slice((*byte)(unsafe.Pointer(snap.valid)), n)

	h := &pixelHandle{
		width:  float64(snap.width),
		height: float64(snap.height),
		hotX:   float64(snap.hotX),
		hotY:   float64(snap.hotY),
		repW:   rw,
		repH:   rh,
		colors: make([]cursor.Color, n),
		valid:  make([]bool, n),
	}
	for i := 0; i < n; i++ {
		if valid[i] == 0 {
			continue
		}
		h.valid[i] = true
		h.colors[i] = cursor.Color{R: rgba[i*4], G: rgba[i*4+1], B: rgba[i*4+2], A: rgba[i*4+3]}
	}
	return h, nil
}

func appkitPointer() (cursor.Point, error) {
	var x, y C.double
	C.pointerLocation(&x, &y)
	return cursor.Point{X: int(x), Y: int(y)}, nil
}

func openPlatform(opts Options) (Backend, error) {
	return NewSessionBackend("appkit", appkitSource{}, opts.Identity, appkitPointer, nil), nil
}
