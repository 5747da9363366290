//go:build linux

package platform

import (
	"fmt"

	"github.com/1broseidon/cursorsync/internal/x11"
)

func openPlatform(opts Options) (Backend, error) {
	conn, err := x11.NewConnection(x11.DisplayEnv{Display: opts.Display, XAuthority: opts.XAuthority})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return NewSessionBackend("x11", conn, opts.Identity, conn.Pointer, conn.Close), nil
}
