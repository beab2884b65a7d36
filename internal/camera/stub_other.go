//go:build !linux

package camera

// Only the V4L2 backend is implemented. On other platforms the kiosk runs
// without a capture device.

func openPlatform(path string) (Device, error) {
	return nil, ErrNoCamera
}

func listPlatform() ([]Info, error) {
	return nil, nil
}
