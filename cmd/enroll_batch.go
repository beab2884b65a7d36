package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/text/unicode/norm"

	"github.com/attendify/kiosk/internal/attendify"
)

var enrollBatchCmd = &cobra.Command{
	Use:   "batch <folder-path>",
	Short: "Enroll every image in a folder",
	Long: `Bulk-enroll students from a folder of facial images. Each file name
(without extension) is used as the registration number, with underscores
in the name part turned into spaces:

  EMB-IT-0042_Jane_Doe.jpg  ->  reg no EMB-IT-0042, name "Jane Doe"

Files whose registration number already exists are reported and skipped
by the backend.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrollBatch,
}

func init() {
	enrollCmd.AddCommand(enrollBatchCmd)
	enrollBatchCmd.Flags().String("course", "", "Course code for all enrolled students")
	enrollBatchCmd.Flags().Int("year", 1, "Year of study")
	enrollBatchCmd.Flags().Int("semester", 1, "Semester")
}

// splitEnrollmentFilename derives (regNo, name) from an image file name.
func splitEnrollmentFilename(filename string) (string, string) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	regNo, rest, found := strings.Cut(base, "_")
	if !found {
		return base, base
	}
	return regNo, strings.ReplaceAll(rest, "_", " ")
}

func runEnrollBatch(cmd *cobra.Command, args []string) error {
	folderPath := args[0]
	course := mustGetString(cmd, "course")
	if course == "" {
		return fmt.Errorf("--course is required")
	}

	info, err := os.Stat(folderPath)
	if err != nil {
		return fmt.Errorf("cannot access folder %s: %w", folderPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", folderPath)
	}

	entries, err := os.ReadDir(folderPath)
	if err != nil {
		return fmt.Errorf("could not read folder %s: %w", folderPath, err)
	}
	var filePaths []string
	for _, entry := range entries {
		if !entry.IsDir() && isImageFile(entry.Name()) {
			filePaths = append(filePaths, filepath.Join(folderPath, entry.Name()))
		}
	}
	if len(filePaths) == 0 {
		return fmt.Errorf("no images found in %s", folderPath)
	}

	_, client, cfg, err := newSessionController()
	if err != nil {
		return err
	}

	bar := progressbar.Default(int64(len(filePaths)), "enrolling")
	var failed int
	for _, path := range filePaths {
		regNo, name := splitEnrollmentFilename(filepath.Base(path))

		encoded, err := loadFacialImage(path, cfg.Capture.MaxImageSize)
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nskipping %s: %v\n", path, err)
			failed++
			_ = bar.Add(1)
			continue
		}

		resp, err := client.SubmitEnrollment(cmd.Context(), attendify.EnrollmentRequest{
			Name:              norm.NFC.String(name),
			RegNo:             regNo,
			Course:            course,
			Year:              mustGetInt(cmd, "year"),
			Semester:          mustGetInt(cmd, "semester"),
			FacialImageBase64: encoded,
			Consent:           true,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nfailed %s: %v\n", regNo, err)
			failed++
		} else if resp.Error != "" {
			fmt.Fprintf(os.Stderr, "\nrejected %s: %s\n", regNo, resp.Error)
			failed++
		}
		_ = bar.Add(1)
	}

	fmt.Printf("Enrolled %d of %d students\n", len(filePaths)-failed, len(filePaths))
	if failed > 0 {
		return fmt.Errorf("%d enrollments failed", failed)
	}
	return nil
}
