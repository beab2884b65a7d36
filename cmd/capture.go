package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/attendify/kiosk/internal/camera"
	"github.com/attendify/kiosk/internal/capture"
	"github.com/attendify/kiosk/internal/detector"
	"github.com/attendify/kiosk/internal/session"
	"github.com/attendify/kiosk/internal/web"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Run the attendance capture loop",
	Long: `Run the kiosk capture loop: every interval a still is taken from the
camera, checked locally for face presence, and submitted for recognition
when a face is found. Requires accepted consent and a logged-in session.

With --listen, a local status web UI is served alongside the loop
(status JSON, live event stream, camera preview, manual trigger).`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.Flags().Bool("listen", false, "Serve the kiosk status web UI")
	captureCmd.Flags().String("device", "", "Camera device path (default: auto-detect, front-facing preferred)")
}

// describeOutcome renders one terminal outcome for the kiosk log.
func describeOutcome(outcome *capture.Outcome) string {
	switch outcome.Kind {
	case capture.OutcomeLogged:
		if outcome.Student != nil {
			return fmt.Sprintf("attendance logged for %s (%s)", outcome.Student.Name, outcome.Student.RegNo)
		}
		return "attendance logged"
	case capture.OutcomeMatchedOutOfWindow:
		return "face recognized, but no class is in session"
	case capture.OutcomeNoMatch:
		return "face not recognized"
	case capture.OutcomeNoFace:
		return "no face detected"
	default:
		return fmt.Sprintf("recognition failed: %s", outcome.ErrorKind)
	}
}

func runCapture(cmd *cobra.Command, args []string) error {
	sess, client, cfg, err := newSessionController()
	if err != nil {
		return err
	}
	if err := requireGate(sess, session.GateAuthenticated); err != nil {
		return err
	}

	devicePath := mustGetString(cmd, "device")
	if devicePath == "" {
		devicePath = cfg.Camera.Device
	}

	loop := capture.New(
		func() (camera.Device, error) { return camera.Open(devicePath) },
		func() (capture.FaceDetector, error) {
			return detector.New(cfg.Detector.CascadePath, detector.Options{
				MinSize:          cfg.Detector.MinSize,
				MaxSize:          cfg.Detector.MaxSize,
				QualityThreshold: cfg.Detector.QualityThreshold,
			})
		},
		client,
		capture.Options{
			Interval:     cfg.Capture.Interval,
			MaxImageSize: cfg.Capture.MaxImageSize,
		},
	)

	if err := loop.Start(); err != nil {
		return err
	}
	defer loop.Stop()

	fmt.Printf("Capture loop running (camera: %s, interval: %s)\n",
		loop.Snapshot().CameraName, cfg.Capture.Interval)

	var server *web.Server
	if mustGetBool(cmd, "listen") {
		server = web.NewServer(cfg.Web.Host, cfg.Web.Port, loop, sess, client)
		go func() {
			if err := server.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "web server error: %v\n", err)
			}
		}()
		fmt.Printf("Status UI on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	eventCh := loop.Subscribe()
	defer loop.Unsubscribe(eventCh)

	fmt.Println("Press Ctrl+C to stop")
	for {
		select {
		case <-sigChan:
			fmt.Println("\nShutting down...")
			if server != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				if err := server.Shutdown(shutdownCtx); err != nil {
					fmt.Fprintf(os.Stderr, "error during shutdown: %v\n", err)
				}
				cancel()
			}
			return loop.Stop()
		case event, ok := <-eventCh:
			if !ok {
				return loop.Stop()
			}
			switch event.Type {
			case capture.EventOutcome:
				fmt.Printf("[attempt %d] %s\n", event.Attempt.ID, describeOutcome(event.Outcome))
			case capture.EventCelebration:
				fmt.Println("  \\o/ attendance recorded")
			}
		}
	}
}
