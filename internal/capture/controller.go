// Package capture drives the camera and the recognition pipeline. The
// controller owns the camera lifecycle, a periodic trigger, and
// single-flight recognition attempts: a trigger that fires while an
// attempt is in flight is dropped, never queued, so at most one
// detect-encode-submit pipeline runs at any time.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/attendify/kiosk/internal/attendify"
	"github.com/attendify/kiosk/internal/camera"
	"github.com/attendify/kiosk/internal/detector"
	"github.com/attendify/kiosk/internal/events"
	"github.com/attendify/kiosk/internal/imaging"
)

// DefaultInterval is the periodic trigger interval.
const DefaultInterval = 2 * time.Second

const (
	defaultMaxImageSize = 1024
	previewMaxSize      = 640
	stillTimeout        = 5 * time.Second
)

// FaceDetector is the local face presence gate.
type FaceDetector interface {
	Detect(img image.Image) ([]detector.Region, error)
	Close() error
}

// Recognizer submits a probe image to the backend.
type Recognizer interface {
	SubmitRecognition(ctx context.Context, imageBytes []byte) (*attendify.RecognitionResponse, error)
}

// Options tune the loop.
type Options struct {
	Interval     time.Duration
	MaxImageSize int
}

// Controller is the capture loop state machine. Start acquires the camera
// and detector; Stop releases both and is safe from any state, any number
// of times.
type Controller struct {
	openCamera   func() (camera.Device, error)
	openDetector func() (FaceDetector, error)
	rec          Recognizer
	interval     time.Duration
	maxImageSize int
	broadcaster  *events.Broadcaster[Event]

	mu          sync.Mutex
	state       State
	dev         camera.Device
	det         FaceDetector
	inFlight    bool
	attemptSeq  uint64
	lastOutcome *Outcome
	lastFrame   []byte
	loopCtx     context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// New builds a controller. The camera and detector are opened lazily on
// Start so a failed acquisition leaves nothing to release.
func New(openCamera func() (camera.Device, error), openDetector func() (FaceDetector, error), rec Recognizer, opts Options) *Controller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MaxImageSize <= 0 {
		opts.MaxImageSize = defaultMaxImageSize
	}
	return &Controller{
		openCamera:   openCamera,
		openDetector: openDetector,
		rec:          rec,
		interval:     opts.Interval,
		maxImageSize: opts.MaxImageSize,
		broadcaster:  events.NewBroadcaster[Event](events.DefaultBuffer),
	}
}

// Start acquires the camera and detector and begins previewing and the
// periodic trigger. On acquisition failure the controller stays Idle and
// the error is surfaced; there is no automatic retry.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return errors.New("capture loop already started")
	}

	dev, err := c.openCamera()
	if err != nil {
		return fmt.Errorf("could not acquire camera: %w", err)
	}
	det, err := c.openDetector()
	if err != nil {
		dev.Close()
		return fmt.Errorf("could not initialize face detector: %w", err)
	}
	if err := dev.StartStream(); err != nil {
		dev.Close()
		det.Close()
		return fmt.Errorf("could not start preview stream: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.dev = dev
	c.det = det
	c.loopCtx = ctx
	c.cancel = cancel
	c.state = StatePreviewing

	c.wg.Add(2)
	go c.tickLoop(ctx)
	go c.previewPump(ctx)

	c.emit(Event{Type: EventState, State: StatePreviewing})
	return nil
}

// Stop cancels the periodic trigger, waits out any in-flight attempt, and
// releases the camera and detector. Safe from any state; idempotent.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.state == StateIdle && c.dev == nil {
		c.mu.Unlock()
		return nil
	}
	cancel := c.cancel
	c.cancel = nil
	c.state = StateIdle
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()

	c.mu.Lock()
	dev := c.dev
	det := c.det
	c.dev = nil
	c.det = nil
	c.inFlight = false
	c.mu.Unlock()

	var firstErr error
	if dev != nil {
		if err := dev.Close(); err != nil {
			firstErr = fmt.Errorf("could not release camera: %w", err)
		}
	}
	if det != nil {
		if err := det.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("could not release detector: %w", err)
		}
	}

	c.emit(Event{Type: EventState, State: StateIdle})
	return firstErr
}

// Trigger starts an attempt if the loop is previewing and nothing is in
// flight. Returns false when the trigger was dropped.
func (c *Controller) Trigger() bool {
	c.mu.Lock()
	if c.state != StatePreviewing || c.inFlight {
		c.mu.Unlock()
		return false
	}
	c.attemptSeq++
	att := &Attempt{
		ID:        c.attemptSeq,
		StartedAt: time.Now(),
		Status:    StatusCapturing,
	}
	c.inFlight = true
	c.state = StateAttempting
	dev := c.dev
	det := c.det
	// Stop cancels this context; attempts must not outlive the loop.
	ctx := c.loopCtx
	c.wg.Add(1)
	c.mu.Unlock()

	c.emit(Event{Type: EventState, State: StateAttempting})
	go c.runAttempt(ctx, dev, det, att)
	return true
}

// State returns the controller's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastOutcome returns the most recent terminal outcome, if any.
func (c *Controller) LastOutcome() *Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastOutcome
}

// LastFrame returns the most recent preview frame as JPEG bytes.
func (c *Controller) LastFrame() ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastFrame == nil {
		return nil, false
	}
	return c.lastFrame, true
}

// Snapshot returns a point-in-time status for display.
func (c *Controller) Snapshot() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := Status{
		State:       c.state,
		InFlight:    c.inFlight,
		Attempts:    c.attemptSeq,
		LastOutcome: c.lastOutcome,
	}
	if c.dev != nil {
		status.CameraName = c.dev.Name()
	}
	return status
}

// Subscribe returns a channel of controller events.
func (c *Controller) Subscribe() chan Event {
	return c.broadcaster.AddListener()
}

// Unsubscribe releases a channel obtained from Subscribe.
func (c *Controller) Unsubscribe(ch chan Event) {
	c.broadcaster.RemoveListener(ch)
}

func (c *Controller) emit(ev Event) {
	ev.ID = uuid.NewString()
	c.broadcaster.Send(ev)
}

func (c *Controller) tickLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Trigger()
		}
	}
}

// previewPump keeps the latest preview frame available for the UI while
// the loop is previewing. It backs off while an attempt holds the camera.
func (c *Controller) previewPump(ctx context.Context) {
	defer c.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}

		c.mu.Lock()
		dev := c.dev
		previewing := c.state == StatePreviewing && !c.inFlight
		c.mu.Unlock()

		if dev == nil {
			return
		}
		if !previewing {
			if !sleepCtx(ctx, 50*time.Millisecond) {
				return
			}
			continue
		}

		frameCtx, cancel := context.WithTimeout(ctx, time.Second)
		img, err := dev.Frame(frameCtx)
		cancel()
		if err != nil {
			if !sleepCtx(ctx, 100*time.Millisecond) {
				return
			}
			continue
		}

		if jpegBytes, err := imaging.EncodeJPEG(img, previewMaxSize); err == nil {
			c.mu.Lock()
			c.lastFrame = jpegBytes
			c.mu.Unlock()
		}
	}
}

func (c *Controller) runAttempt(ctx context.Context, dev camera.Device, det FaceDetector, att *Attempt) {
	defer c.wg.Done()

	c.emit(Event{Type: EventAttempt, State: StateAttempting, Attempt: att.clone()})
	outcome := c.executeAttempt(ctx, dev, det, att)
	att.Outcome = outcome

	c.mu.Lock()
	c.inFlight = false
	c.lastOutcome = outcome
	if c.state == StateAttempting {
		c.state = StatePreviewing
	}
	state := c.state
	c.mu.Unlock()

	c.emit(Event{Type: EventOutcome, State: state, Attempt: att.clone(), Outcome: outcome})
	if outcome.Kind == OutcomeLogged {
		// One-shot celebratory signal; fire-and-forget.
		c.emit(Event{Type: EventCelebration, State: state, Outcome: outcome})
	}
	c.emit(Event{Type: EventState, State: state})
}

// executeAttempt runs capture, detect, and submit for one attempt and
// returns its terminal outcome. Detector failures degrade to no-face;
// remote failures fold into an error outcome. Neither crashes the loop,
// and nothing retries here: the next periodic tick is the retry.
func (c *Controller) executeAttempt(ctx context.Context, dev camera.Device, det FaceDetector, att *Attempt) *Outcome {
	// The stream and still capture cannot coexist, so the preview is
	// paused for the duration of the still.
	_ = dev.StopStream()
	stillCtx, cancel := context.WithTimeout(ctx, stillTimeout)
	still, err := dev.Still(stillCtx)
	cancel()
	// Resume preview regardless of the capture result. Fails harmlessly
	// if Stop closed the device in the meantime.
	_ = dev.StartStream()
	if err != nil {
		att.Status = StatusFailed
		return &Outcome{Kind: OutcomeError, ErrorKind: attendify.KindUnknown, At: time.Now()}
	}

	att.Status = StatusDetecting
	c.emit(Event{Type: EventAttempt, State: StateAttempting, Attempt: att.clone()})

	regions, err := det.Detect(still)
	if err != nil {
		// A failing detector must never crash the loop; treat as no face.
		regions = nil
	}
	att.FacesFound = len(regions)
	if len(regions) == 0 {
		// No local evidence of a face: skip the network round-trip.
		att.Status = StatusDone
		return &Outcome{Kind: OutcomeNoFace, At: time.Now()}
	}

	payload, err := imaging.EncodeJPEG(still, c.maxImageSize)
	if err != nil {
		att.Status = StatusFailed
		return &Outcome{Kind: OutcomeError, ErrorKind: attendify.KindUnknown, At: time.Now()}
	}

	att.Status = StatusSubmitting
	c.emit(Event{Type: EventAttempt, State: StateAttempting, Attempt: att.clone()})

	resp, err := c.rec.SubmitRecognition(ctx, payload)
	if err != nil {
		att.Status = StatusFailed
		return &Outcome{Kind: OutcomeError, ErrorKind: attendify.KindOf(err), At: time.Now()}
	}

	att.Status = StatusDone
	switch {
	case resp.AttendanceLogged:
		return &Outcome{Kind: OutcomeLogged, Student: resp.Student, At: time.Now()}
	case resp.Matched:
		return &Outcome{Kind: OutcomeMatchedOutOfWindow, Student: resp.Student, At: time.Now()}
	default:
		return &Outcome{Kind: OutcomeNoMatch, At: time.Now()}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
