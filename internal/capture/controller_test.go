package capture

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/attendify/kiosk/internal/attendify"
	"github.com/attendify/kiosk/internal/camera"
	"github.com/attendify/kiosk/internal/detector"
)

type fakeDevice struct {
	mu         sync.Mutex
	startCalls int
	stopCalls  int
	stillCalls int
	closeCalls int
	stillErr   error
}

func (d *fakeDevice) Name() string { return "fake-camera" }

func (d *fakeDevice) StartStream() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.startCalls++
	return nil
}

func (d *fakeDevice) StopStream() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopCalls++
	return nil
}

func (d *fakeDevice) Frame(ctx context.Context) (image.Image, error) {
	return nil, errors.New("no preview frame")
}

func (d *fakeDevice) Still(ctx context.Context) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stillCalls++
	if d.stillErr != nil {
		return nil, d.stillErr
	}
	return image.NewRGBA(image.Rect(0, 0, 32, 32)), nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeCalls++
	return nil
}

func (d *fakeDevice) closed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeCalls
}

type fakeDetector struct {
	mu         sync.Mutex
	regions    []detector.Region
	err        error
	closeCalls int
}

func (f *fakeDetector) Detect(img image.Image) ([]detector.Region, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regions, f.err
}

func (f *fakeDetector) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	return nil
}

func (f *fakeDetector) closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalls
}

type fakeRecognizer struct {
	mu    sync.Mutex
	calls int
	resp  *attendify.RecognitionResponse
	err   error
	block chan struct{} // when set, SubmitRecognition waits here
}

func (f *fakeRecognizer) SubmitRecognition(ctx context.Context, imageBytes []byte) (*attendify.RecognitionResponse, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	resp, err := f.resp, f.err
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return resp, err
}

func (f *fakeRecognizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func oneFace() []detector.Region {
	return []detector.Region{{Row: 120, Col: 160, Size: 80, Quality: 9.5}}
}

// newTestController wires the fakes with a tick interval long enough that
// only explicit Trigger calls run attempts.
func newTestController(dev *fakeDevice, det *fakeDetector, rec *fakeRecognizer) *Controller {
	return New(
		func() (camera.Device, error) { return dev, nil },
		func() (FaceDetector, error) { return det, nil },
		rec,
		Options{Interval: time.Hour},
	)
}

// runOneAttempt triggers an attempt and reads events until the controller
// returns to previewing, collecting the outcome and any celebrations.
func runOneAttempt(t *testing.T, c *Controller) (*Outcome, int) {
	t.Helper()
	ch := c.Subscribe()
	defer c.Unsubscribe(ch)

	if !c.Trigger() {
		t.Fatal("expected trigger to be accepted")
	}

	var outcome *Outcome
	celebrations := 0
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-ch:
			switch ev.Type {
			case EventOutcome:
				outcome = ev.Outcome
			case EventCelebration:
				celebrations++
			case EventState:
				if ev.State == StatePreviewing && outcome != nil {
					return outcome, celebrations
				}
			}
		case <-deadline:
			t.Fatal("timed out waiting for attempt to finish")
		}
	}
}

func TestTriggerBeforeStartIsDropped(t *testing.T) {
	c := newTestController(&fakeDevice{}, &fakeDetector{}, &fakeRecognizer{})
	if c.Trigger() {
		t.Error("expected trigger to be dropped while idle")
	}
	if c.State() != StateIdle {
		t.Errorf("expected idle state, got %s", c.State())
	}
}

func TestStartFailureStaysIdle(t *testing.T) {
	c := New(
		func() (camera.Device, error) { return nil, camera.ErrNoCamera },
		func() (FaceDetector, error) { return &fakeDetector{}, nil },
		&fakeRecognizer{},
		Options{},
	)
	if err := c.Start(); err == nil {
		t.Fatal("expected start error when no camera is available")
	}
	if c.State() != StateIdle {
		t.Errorf("expected idle state after failed start, got %s", c.State())
	}
	// Stop on a never-started controller must be a harmless no-op.
	if err := c.Stop(); err != nil {
		t.Errorf("expected no-op stop, got: %v", err)
	}
}

func TestDetectorOpenFailureReleasesCamera(t *testing.T) {
	dev := &fakeDevice{}
	c := New(
		func() (camera.Device, error) { return dev, nil },
		func() (FaceDetector, error) { return nil, errors.New("cascade file missing") },
		&fakeRecognizer{},
		Options{},
	)
	if err := c.Start(); err == nil {
		t.Fatal("expected start error when detector cannot be opened")
	}
	if dev.closed() != 1 {
		t.Errorf("expected camera released after failed start, close calls = %d", dev.closed())
	}
	if c.State() != StateIdle {
		t.Errorf("expected idle state, got %s", c.State())
	}
}

func TestNoFaceSkipsRecognition(t *testing.T) {
	dev := &fakeDevice{}
	det := &fakeDetector{} // no regions
	rec := &fakeRecognizer{}
	c := newTestController(dev, det, rec)
	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer c.Stop()

	outcome, celebrations := runOneAttempt(t, c)
	if outcome.Kind != OutcomeNoFace {
		t.Errorf("expected no_face outcome, got %s", outcome.Kind)
	}
	if rec.callCount() != 0 {
		t.Errorf("expected no recognition call without a face, got %d", rec.callCount())
	}
	if celebrations != 0 {
		t.Errorf("expected no celebration, got %d", celebrations)
	}
}

func TestDetectorErrorDegradesToNoFace(t *testing.T) {
	dev := &fakeDevice{}
	det := &fakeDetector{err: errors.New("cascade evaluation failed")}
	rec := &fakeRecognizer{}
	c := newTestController(dev, det, rec)
	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer c.Stop()

	outcome, _ := runOneAttempt(t, c)
	if outcome.Kind != OutcomeNoFace {
		t.Errorf("expected detector failure to degrade to no_face, got %s", outcome.Kind)
	}
	if rec.callCount() != 0 {
		t.Errorf("expected no recognition call, got %d", rec.callCount())
	}
	if c.State() != StatePreviewing {
		t.Errorf("expected loop still previewing, got %s", c.State())
	}
}

func TestLoggedOutcomeEmitsOneCelebration(t *testing.T) {
	dev := &fakeDevice{}
	det := &fakeDetector{regions: oneFace()}
	rec := &fakeRecognizer{resp: &attendify.RecognitionResponse{
		Matched:          true,
		Score:            0.92,
		AttendanceLogged: true,
		Student:          &attendify.StudentInfo{ID: 7, Name: "Jane Obi", RegNo: "SC211-0001"},
	}}
	c := newTestController(dev, det, rec)
	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer c.Stop()

	outcome, celebrations := runOneAttempt(t, c)
	if outcome.Kind != OutcomeLogged {
		t.Errorf("expected logged outcome, got %s", outcome.Kind)
	}
	if outcome.Student == nil || outcome.Student.RegNo != "SC211-0001" {
		t.Errorf("expected matched student on outcome, got %+v", outcome.Student)
	}
	if celebrations != 1 {
		t.Errorf("expected exactly one celebration, got %d", celebrations)
	}
}

func TestMatchedOutOfWindowNoCelebration(t *testing.T) {
	dev := &fakeDevice{}
	det := &fakeDetector{regions: oneFace()}
	rec := &fakeRecognizer{resp: &attendify.RecognitionResponse{
		Matched: true,
		Reason:  "no_active_class",
		Student: &attendify.StudentInfo{ID: 7, Name: "Jane Obi"},
	}}
	c := newTestController(dev, det, rec)
	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer c.Stop()

	outcome, celebrations := runOneAttempt(t, c)
	if outcome.Kind != OutcomeMatchedOutOfWindow {
		t.Errorf("expected matched_out_of_window outcome, got %s", outcome.Kind)
	}
	if celebrations != 0 {
		t.Errorf("expected no celebration for an unlogged match, got %d", celebrations)
	}
}

func TestRemoteErrorFoldsIntoOutcome(t *testing.T) {
	dev := &fakeDevice{}
	det := &fakeDetector{regions: oneFace()}
	rec := &fakeRecognizer{err: &attendify.RemoteError{Kind: attendify.KindTimeout}}
	c := newTestController(dev, det, rec)
	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer c.Stop()

	outcome, _ := runOneAttempt(t, c)
	if outcome.Kind != OutcomeError {
		t.Errorf("expected error outcome, got %s", outcome.Kind)
	}
	if outcome.ErrorKind != attendify.KindTimeout {
		t.Errorf("expected timeout kind on outcome, got %s", outcome.ErrorKind)
	}
	// The loop keeps running; the next tick is the retry.
	if c.State() != StatePreviewing {
		t.Errorf("expected loop still previewing after a remote error, got %s", c.State())
	}
}

func TestStillFailureFoldsIntoOutcome(t *testing.T) {
	dev := &fakeDevice{stillErr: errors.New("device busy")}
	det := &fakeDetector{regions: oneFace()}
	rec := &fakeRecognizer{}
	c := newTestController(dev, det, rec)
	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer c.Stop()

	outcome, _ := runOneAttempt(t, c)
	if outcome.Kind != OutcomeError {
		t.Errorf("expected error outcome on capture failure, got %s", outcome.Kind)
	}
	if rec.callCount() != 0 {
		t.Errorf("expected no recognition call, got %d", rec.callCount())
	}
}

func TestSingleFlight(t *testing.T) {
	dev := &fakeDevice{}
	det := &fakeDetector{regions: oneFace()}
	rec := &fakeRecognizer{
		resp:  &attendify.RecognitionResponse{},
		block: make(chan struct{}),
	}
	c := newTestController(dev, det, rec)
	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer c.Stop()

	ch := c.Subscribe()
	defer c.Unsubscribe(ch)

	if !c.Trigger() {
		t.Fatal("expected first trigger to be accepted")
	}
	// While the attempt holds the recognizer, further triggers are dropped,
	// not queued.
	for i := 0; i < 5; i++ {
		if c.Trigger() {
			t.Fatal("expected trigger to be dropped while an attempt is in flight")
		}
	}

	close(rec.block)

	deadline := time.After(3 * time.Second)
	for done := false; !done; {
		select {
		case ev := <-ch:
			if ev.Type == EventState && ev.State == StatePreviewing {
				done = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for attempt to finish")
		}
	}

	if got := c.Snapshot().Attempts; got != 1 {
		t.Errorf("expected exactly one attempt, got %d", got)
	}
	if rec.callCount() != 1 {
		t.Errorf("expected exactly one recognition call, got %d", rec.callCount())
	}
	// The loop is free again.
	if !c.Trigger() {
		t.Error("expected trigger accepted after previous attempt finished")
	}
}

func TestEventsCarryAttemptSnapshots(t *testing.T) {
	dev := &fakeDevice{}
	det := &fakeDetector{regions: oneFace()}
	rec := &fakeRecognizer{resp: &attendify.RecognitionResponse{
		Matched:          true,
		AttendanceLogged: true,
		Student:          &attendify.StudentInfo{ID: 3, Name: "Jane Obi"},
	}}
	c := newTestController(dev, det, rec)
	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer c.Stop()

	// A second subscriber marshals every event as it arrives, the way the
	// SSE handler does, while the pipeline is still running.
	marshalCh := c.Subscribe()
	marshalDone := make(chan struct{})
	go func() {
		defer close(marshalDone)
		for ev := range marshalCh {
			if _, err := json.Marshal(ev); err != nil {
				t.Errorf("could not marshal event: %v", err)
			}
		}
	}()

	ch := c.Subscribe()
	defer c.Unsubscribe(ch)
	if !c.Trigger() {
		t.Fatal("expected trigger to be accepted")
	}

	var attempts []*Attempt
	deadline := time.After(3 * time.Second)
	var sawOutcome bool
collect:
	for {
		select {
		case ev := <-ch:
			if ev.Attempt != nil {
				attempts = append(attempts, ev.Attempt)
			}
			if ev.Type == EventOutcome {
				sawOutcome = true
			}
			if ev.Type == EventState && ev.State == StatePreviewing && sawOutcome {
				break collect
			}
		case <-deadline:
			t.Fatal("timed out waiting for attempt to finish")
		}
	}

	c.Unsubscribe(marshalCh)
	<-marshalDone

	if len(attempts) < 2 {
		t.Fatalf("expected several attempt-carrying events, got %d", len(attempts))
	}
	// Each event carries its own copy; earlier events must still show the
	// status they were emitted with.
	if attempts[0].Status != StatusCapturing {
		t.Errorf("expected first attempt event frozen at capturing, got %s", attempts[0].Status)
	}
	last := attempts[len(attempts)-1]
	if last.Status != StatusDone {
		t.Errorf("expected final attempt event done, got %s", last.Status)
	}
	for i := 1; i < len(attempts); i++ {
		if attempts[i] == attempts[0] {
			t.Fatal("expected events to carry distinct attempt copies, got a shared pointer")
		}
	}
}

func TestStopReleasesCameraExactlyOnce(t *testing.T) {
	dev := &fakeDevice{}
	det := &fakeDetector{}
	c := newTestController(dev, det, &fakeRecognizer{})
	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}

	if dev.closed() != 1 {
		t.Errorf("expected camera closed exactly once, got %d", dev.closed())
	}
	if det.closed() != 1 {
		t.Errorf("expected detector closed exactly once, got %d", det.closed())
	}
	if c.State() != StateIdle {
		t.Errorf("expected idle state after stop, got %s", c.State())
	}
}

func TestStopWaitsOutInFlightAttempt(t *testing.T) {
	dev := &fakeDevice{}
	det := &fakeDetector{regions: oneFace()}
	rec := &fakeRecognizer{
		resp:  &attendify.RecognitionResponse{},
		block: make(chan struct{}), // never closed; only Stop's cancel releases it
	}
	c := newTestController(dev, det, rec)
	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !c.Trigger() {
		t.Fatal("expected trigger to be accepted")
	}

	// Wait until the attempt reaches the recognizer before stopping.
	waitDeadline := time.Now().Add(2 * time.Second)
	for rec.callCount() == 0 {
		if time.Now().After(waitDeadline) {
			t.Fatal("attempt never reached the recognizer")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if dev.closed() != 1 {
		t.Errorf("expected camera closed exactly once, got %d", dev.closed())
	}
	if c.State() != StateIdle {
		t.Errorf("expected idle state after stop, got %s", c.State())
	}
}

func TestRestartAfterStop(t *testing.T) {
	dev := &fakeDevice{}
	det := &fakeDetector{}
	c := newTestController(dev, det, &fakeRecognizer{})

	for i := 0; i < 2; i++ {
		if err := c.Start(); err != nil {
			t.Fatalf("Start %d failed: %v", i+1, err)
		}
		if c.State() != StatePreviewing {
			t.Fatalf("expected previewing state, got %s", c.State())
		}
		if err := c.Stop(); err != nil {
			t.Fatalf("Stop %d failed: %v", i+1, err)
		}
	}
	if dev.closed() != 2 {
		t.Errorf("expected one close per stop, got %d", dev.closed())
	}
}
