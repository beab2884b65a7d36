package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/attendify/kiosk/internal/session"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Fetch attendance reports",
}

var reportStudentCmd = &cobra.Command{
	Use:   "student",
	Short: "Show the logged-in student's attendance",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, client, _, err := newSessionController()
		if err != nil {
			return err
		}
		if err := requireGate(sess, session.GateAuthenticated); err != nil {
			return err
		}

		report, err := client.StudentReport(cmd.Context())
		if err != nil {
			return fmt.Errorf("could not fetch report: %w", err)
		}
		if report.Error != "" {
			return fmt.Errorf("report rejected: %s", report.Error)
		}

		fmt.Printf("Attendance for student %d\n", report.StudentID)
		for _, entry := range report.Logs {
			fmt.Printf("  class %-4d %-8s %s\n", entry.ClassID, entry.Status, entry.Timestamp)
		}
		fmt.Printf("Summary: %d present, %d absent\n", report.Summary.Present, report.Summary.Absent)
		return nil
	},
}

var reportAdminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Show attendance totals across all classes",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, client, _, err := newSessionController()
		if err != nil {
			return err
		}
		if err := requireGate(sess, session.GateAuthenticated); err != nil {
			return err
		}

		report, err := client.AdminReport(cmd.Context())
		if err != nil {
			return fmt.Errorf("could not fetch report: %w", err)
		}
		if report.Error != "" {
			return fmt.Errorf("report rejected: %s", report.Error)
		}

		fmt.Printf("Total records: %d (%d present, %d absent, %.1f%% absenteeism)\n",
			report.TotalRecords, report.Present, report.Absent, report.AbsenteeismRate*100)

		classIDs := make([]string, 0, len(report.ByClass))
		for classID := range report.ByClass {
			classIDs = append(classIDs, classID)
		}
		sort.Strings(classIDs)
		for _, classID := range classIDs {
			tally := report.ByClass[classID]
			fmt.Printf("  class %-4s %d present, %d absent\n", classID, tally.Present, tally.Absent)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportStudentCmd)
	reportCmd.AddCommand(reportAdminCmd)
}
