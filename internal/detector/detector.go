// Package detector is a local face presence gate. It answers "is there a
// face in this frame" so the capture loop never spends a network
// round-trip without local evidence of a face. It carries no identity or
// matching logic; that lives in the backend.
package detector

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	pigo "github.com/esimov/pigo/core"
)

const (
	shiftFactor = 0.1
	scaleFactor = 1.1
	iouOverlap  = 0.2
)

// ErrClosed is returned by Detect after Close.
var ErrClosed = errors.New("detector is closed")

// Region is one detected face area in pixel coordinates.
type Region struct {
	Row     int
	Col     int
	Size    int
	Quality float32
}

// Options tune the cascade run.
type Options struct {
	MinSize          int
	MaxSize          int
	QualityThreshold float64
}

// Detector wraps a loaded pigo cascade. Safe for use from one goroutine at
// a time, which is all the single-flight capture loop needs.
type Detector struct {
	mu         sync.Mutex
	classifier *pigo.Pigo
	opts       Options
}

// New loads the cascade model from disk. The returned detector holds the
// unpacked model until Close.
func New(cascadePath string, opts Options) (*Detector, error) {
	raw, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("could not read cascade file: %w", err)
	}
	classifier, err := pigo.NewPigo().Unpack(raw)
	if err != nil {
		return nil, fmt.Errorf("could not unpack cascade file: %w", err)
	}
	if opts.MinSize <= 0 {
		opts.MinSize = 60
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 1000
	}
	return &Detector{classifier: classifier, opts: opts}, nil
}

// Detect returns the face regions found in the image, possibly none.
func (d *Detector) Detect(img image.Image) ([]Region, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.classifier == nil {
		return nil, ErrClosed
	}

	pixels := pigo.RgbToGrayscale(img)
	bounds := img.Bounds()
	rows, cols := bounds.Dy(), bounds.Dx()

	params := pigo.CascadeParams{
		MinSize:     d.opts.MinSize,
		MaxSize:     d.opts.MaxSize,
		ShiftFactor: shiftFactor,
		ScaleFactor: scaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, iouOverlap)

	regions := make([]Region, 0, len(dets))
	for _, det := range dets {
		if float64(det.Q) < d.opts.QualityThreshold {
			continue
		}
		regions = append(regions, Region{
			Row:     det.Row,
			Col:     det.Col,
			Size:    det.Scale,
			Quality: det.Q,
		})
	}
	return regions, nil
}

// Close releases the cascade. Idempotent.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.classifier = nil
	return nil
}
