package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blackjack/webcam"
)

const (
	pixelFormatMJPEG = webcam.PixelFormat(0x47504A4D) // 'MJPG'
	pixelFormatYUYV  = webcam.PixelFormat(0x56595559) // 'YUYV'

	// Preferred capture resolution. Recognition does not need more and
	// smaller frames keep local detection fast.
	preferredWidth  = 640
	preferredHeight = 480

	// Frames discarded after starting a stream so auto-exposure settles
	// before a still is taken.
	warmupFrames = 2
)

type v4l2Device struct {
	path   string
	name   string
	cam    *webcam.Webcam
	format webcam.PixelFormat
	width  uint32
	height uint32

	mu        sync.Mutex
	streaming bool
	closed    bool
}

// sysfsName reads the human-readable device name from sysfs. Falls back to
// the device path when unavailable.
func sysfsName(devPath string) string {
	base := filepath.Base(devPath)
	raw, err := os.ReadFile(filepath.Join("/sys/class/video4linux", base, "name"))
	if err != nil {
		return devPath
	}
	return strings.TrimSpace(string(raw))
}

func listPlatform() ([]Info, error) {
	paths, err := filepath.Glob("/dev/video*")
	if err != nil {
		return nil, fmt.Errorf("could not enumerate video devices: %w", err)
	}
	sort.Strings(paths)
	infos := make([]Info, 0, len(paths))
	for _, p := range paths {
		infos = append(infos, Info{Path: p, Name: sysfsName(p)})
	}
	return infos, nil
}

func openPlatform(path string) (Device, error) {
	if path != "" {
		return openV4L2(path)
	}

	infos, err := listPlatform()
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, ErrNoCamera
	}

	// Front-facing sensor first, then whatever opens.
	sort.SliceStable(infos, func(i, j int) bool {
		return isFrontFacing(infos[i].Name) && !isFrontFacing(infos[j].Name)
	})

	var lastErr error
	for _, info := range infos {
		dev, err := openV4L2(info.Path)
		if err == nil {
			return dev, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrNoCamera, lastErr)
}

func isFrontFacing(name string) bool {
	return strings.Contains(strings.ToLower(name), "front")
}

func openV4L2(path string) (*v4l2Device, error) {
	cam, err := webcam.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open camera %s: %w", path, err)
	}

	format, ok := pickFormat(cam.GetSupportedFormats())
	if !ok {
		cam.Close()
		return nil, fmt.Errorf("camera %s supports neither MJPEG nor YUYV", path)
	}

	width, height := pickFrameSize(cam.GetSupportedFrameSizes(format))
	format, width, height, err = cam.SetImageFormat(format, width, height)
	if err != nil {
		cam.Close()
		return nil, fmt.Errorf("could not set image format on %s: %w", path, err)
	}

	return &v4l2Device{
		path:   path,
		name:   sysfsName(path),
		cam:    cam,
		format: format,
		width:  width,
		height: height,
	}, nil
}

func pickFormat(supported map[webcam.PixelFormat]string) (webcam.PixelFormat, bool) {
	if _, ok := supported[pixelFormatMJPEG]; ok {
		return pixelFormatMJPEG, true
	}
	if _, ok := supported[pixelFormatYUYV]; ok {
		return pixelFormatYUYV, true
	}
	return 0, false
}

// pickFrameSize chooses the supported size closest to the preferred
// resolution.
func pickFrameSize(sizes []webcam.FrameSize) (uint32, uint32) {
	bestW, bestH := uint32(preferredWidth), uint32(preferredHeight)
	bestDiff := int64(-1)
	for _, s := range sizes {
		w := clampStep(preferredWidth, s.MinWidth, s.MaxWidth, s.StepWidth)
		h := clampStep(preferredHeight, s.MinHeight, s.MaxHeight, s.StepHeight)
		diff := abs64(int64(w)-preferredWidth) + abs64(int64(h)-preferredHeight)
		if bestDiff < 0 || diff < bestDiff {
			bestW, bestH, bestDiff = w, h, diff
		}
	}
	return bestW, bestH
}

func clampStep(want int64, min, max, step uint32) uint32 {
	if want < int64(min) {
		return min
	}
	if want > int64(max) {
		return max
	}
	if step > 1 {
		offset := (uint32(want) - min) / step * step
		return min + offset
	}
	return uint32(want)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func (d *v4l2Device) Name() string {
	return d.name
}

func (d *v4l2Device) StartStream() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("camera %s is closed", d.path)
	}
	if d.streaming {
		return nil
	}
	if err := d.cam.StartStreaming(); err != nil {
		return fmt.Errorf("could not start streaming on %s: %w", d.path, err)
	}
	d.streaming = true
	return nil
}

func (d *v4l2Device) StopStream() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || !d.streaming {
		return nil
	}
	d.streaming = false
	if err := d.cam.StopStreaming(); err != nil {
		return fmt.Errorf("could not stop streaming on %s: %w", d.path, err)
	}
	return nil
}

// Frame reads the next frame while streaming.
func (d *v4l2Device) Frame(ctx context.Context) (image.Image, error) {
	raw, err := d.rawFrame(ctx)
	if err != nil {
		return nil, err
	}
	return d.decode(raw)
}

// Still captures a single frame. The caller must have stopped the preview
// stream; Still runs its own short start/grab/stop cycle.
func (d *v4l2Device) Still(ctx context.Context) (image.Image, error) {
	if err := d.StartStream(); err != nil {
		return nil, err
	}
	defer d.StopStream()

	// Discard warmup frames so exposure settles.
	for i := 0; i < warmupFrames; i++ {
		if _, err := d.rawFrame(ctx); err != nil {
			return nil, err
		}
	}
	return d.Frame(ctx)
}

func (d *v4l2Device) rawFrame(ctx context.Context) ([]byte, error) {
	deadline := time.Now().Add(5 * time.Second)
	if ctxDeadline, ok := ctx.Deadline(); ok {
		deadline = ctxDeadline
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timed out waiting for frame from %s", d.path)
		}

		err := d.cam.WaitForFrame(1)
		switch err.(type) {
		case nil:
		case *webcam.Timeout:
			continue
		default:
			return nil, fmt.Errorf("could not wait for frame on %s: %w", d.path, err)
		}

		frame, err := d.cam.ReadFrame()
		if err != nil {
			return nil, fmt.Errorf("could not read frame from %s: %w", d.path, err)
		}
		if len(frame) == 0 {
			continue
		}
		return frame, nil
	}
}

func (d *v4l2Device) decode(frame []byte) (image.Image, error) {
	switch d.format {
	case pixelFormatMJPEG:
		img, err := jpeg.Decode(bytes.NewReader(frame))
		if err != nil {
			return nil, fmt.Errorf("could not decode MJPEG frame: %w", err)
		}
		return img, nil
	case pixelFormatYUYV:
		return decodeYUYV(frame, int(d.width), int(d.height))
	default:
		return nil, fmt.Errorf("unsupported pixel format %d", d.format)
	}
}

func (d *v4l2Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.streaming {
		d.streaming = false
		_ = d.cam.StopStreaming()
	}
	if err := d.cam.Close(); err != nil {
		return fmt.Errorf("could not close camera %s: %w", d.path, err)
	}
	return nil
}
