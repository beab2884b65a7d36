// Package camera owns the capture hardware boundary. A Device delivers
// preview frames while streaming and single still frames while paused;
// streaming and still capture cannot coexist on the V4L2 backend, so the
// caller pauses the stream around every still.
package camera

import (
	"context"
	"errors"
	"image"
)

// ErrNoCamera is returned by Open when no usable capture device exists.
var ErrNoCamera = errors.New("no camera available")

// Device is a camera handle. StartStream and StopStream bracket preview
// delivery; Still must only be called with the stream stopped. Close is
// idempotent and releases the underlying handle.
type Device interface {
	Name() string
	StartStream() error
	StopStream() error
	Frame(ctx context.Context) (image.Image, error)
	Still(ctx context.Context) (image.Image, error)
	Close() error
}

// Info describes an enumerated capture device.
type Info struct {
	Path string
	Name string
}

// Open acquires a camera. With an empty path it enumerates available
// devices and prefers a front-facing sensor; otherwise it opens the given
// device path directly.
func Open(path string) (Device, error) {
	return openPlatform(path)
}

// List enumerates capture devices without opening them.
func List() ([]Info, error) {
	return listPlatform()
}
