//go:build !linux && !(darwin && cgo)

package platform

func openPlatform(Options) (Backend, error) {
	return nil, ErrUnsupported
}
