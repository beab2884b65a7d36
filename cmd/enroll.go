package cmd

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/unicode/norm"

	"github.com/attendify/kiosk/internal/attendify"
	"github.com/attendify/kiosk/internal/imaging"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll --name <name> --reg-no <reg-no> --image <path>",
	Short: "Enroll a student with a facial image",
	Long: `Enroll a new student on the Attendify backend. The facial image is
resized locally before upload. Enrollment implies consent; the backend
rejects requests without it.

Example:
  attendify-kiosk enroll --name "Jane Doe" --reg-no EMB-IT-0042 \
    --course IT --year 2 --semester 1 --image jane.jpg`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	enrollCmd.Flags().String("name", "", "Student full name")
	enrollCmd.Flags().String("reg-no", "", "Registration number")
	enrollCmd.Flags().String("course", "", "Course code")
	enrollCmd.Flags().Int("year", 1, "Year of study")
	enrollCmd.Flags().Int("semester", 1, "Semester")
	enrollCmd.Flags().String("image", "", "Path to the facial image")
	enrollCmd.Flags().String("username", "", "Login username for the student (defaults to reg-no)")
	enrollCmd.Flags().String("password", "", "Login password for the student")
}

// loadFacialImage reads, resizes, and base64-encodes an image for an
// enrollment payload.
func loadFacialImage(path string, maxSize int) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("could not read image %s: %w", path, err)
	}
	resized, err := imaging.Resize(raw, maxSize)
	if err != nil {
		return "", fmt.Errorf("could not process image %s: %w", path, err)
	}
	return base64.StdEncoding.EncodeToString(resized), nil
}

func runEnroll(cmd *cobra.Command, args []string) error {
	name := mustGetString(cmd, "name")
	regNo := mustGetString(cmd, "reg-no")
	course := mustGetString(cmd, "course")
	imagePath := mustGetString(cmd, "image")
	if name == "" || regNo == "" || course == "" || imagePath == "" {
		return errors.New("--name, --reg-no, --course, and --image are required")
	}

	_, client, cfg, err := newSessionController()
	if err != nil {
		return err
	}

	encoded, err := loadFacialImage(imagePath, cfg.Capture.MaxImageSize)
	if err != nil {
		return err
	}

	req := attendify.EnrollmentRequest{
		Name:              norm.NFC.String(strings.TrimSpace(name)),
		RegNo:             regNo,
		Course:            course,
		Year:              mustGetInt(cmd, "year"),
		Semester:          mustGetInt(cmd, "semester"),
		FacialImageBase64: encoded,
		Consent:           true,
		Username:          mustGetString(cmd, "username"),
		Password:          mustGetString(cmd, "password"),
	}

	resp, err := client.SubmitEnrollment(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("enrollment failed: %w", err)
	}
	if resp.Error != "" {
		return fmt.Errorf("enrollment rejected: %s", resp.Error)
	}

	fmt.Printf("Enrolled %s (student id %d)\n", req.Name, resp.StudentID)
	return nil
}

// isImageFile checks if a file has a supported image extension.
func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".bmp":
		return true
	}
	return false
}
