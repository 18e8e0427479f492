package fitrose

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SblYMblK/FitRose/internal/store"
)

var doctorFix bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the database for inconsistencies",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			report, err := store.RunDoctor(sqldb, doctorFix)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Mismatched day totals: %d\n", report.MismatchedDays)
			fmt.Fprintf(cmd.OutOrStdout(), "Orphan meals: %d\n", report.OrphanMeals)
			fmt.Fprintf(cmd.OutOrStdout(), "Invalid estimate rows: %d\n", report.InvalidEstimates)
			fmt.Fprintf(cmd.OutOrStdout(), "Active-day conflicts: %d\n", report.ActiveDayConflict)
			if doctorFix {
				fmt.Fprintf(cmd.OutOrStdout(), "Recomputed day totals: %d\n", report.RecomputedDays)
				// Second pass so the exit code reflects the state after fixes.
				report, err = store.RunDoctor(sqldb, false)
				if err != nil {
					return err
				}
			}
			if report.MismatchedDays > 0 || report.OrphanMeals > 0 || report.InvalidEstimates > 0 || report.ActiveDayConflict > 0 {
				return fmt.Errorf("database has integrity problems")
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Recompute totals and repair what is safe to repair")
}
