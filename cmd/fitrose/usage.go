package fitrose

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/SblYMblK/FitRose/internal/store"
)

var (
	usageSince string
	usageUntil string
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Summarize bot usage from logged events",
	RunE: func(cmd *cobra.Command, args []string) error {
		since, until := usageSince, usageUntil
		if until == "" {
			until = time.Now().Format("2006-01-02")
		}
		if since == "" {
			end, err := time.Parse("2006-01-02", until)
			if err != nil {
				return fmt.Errorf("invalid --until date (expected YYYY-MM-DD)")
			}
			since = end.AddDate(0, 0, -29).Format("2006-01-02")
		}

		return withDB(func(sqldb *sql.DB) error {
			total, err := store.CountEvents(sqldb, store.EventFilter{Start: since, End: until})
			if err != nil {
				return err
			}
			users, err := store.ActiveUsersBetween(sqldb, since, until)
			if err != nil {
				return err
			}
			registrations, err := store.CountEvents(sqldb, store.EventFilter{Type: "registration_completed", Start: since, End: until})
			if err != nil {
				return err
			}
			finalized, err := store.CountEvents(sqldb, store.EventFilter{Type: "day_finalized", Start: since, End: until})
			if err != nil {
				return err
			}
			meals, err := store.MealEventBreakdown(sqldb, since, until)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Window: %s to %s\n", since, until)
			fmt.Fprintf(out, "Events: %d\n", total)
			fmt.Fprintf(out, "Active users: %d\n", users)
			fmt.Fprintf(out, "Registrations: %d\n", registrations)
			fmt.Fprintf(out, "Days finalized: %d\n", finalized)
			fmt.Fprintf(out, "Meals logged: %d\n", meals.Total)
			entryTypes := make([]string, 0, len(meals.ByEntryType))
			for entryType := range meals.ByEntryType {
				entryTypes = append(entryTypes, entryType)
			}
			sort.Strings(entryTypes)
			for _, entryType := range entryTypes {
				fmt.Fprintf(out, "  %s: %d\n", entryType, meals.ByEntryType[entryType])
			}
			fmt.Fprintf(out, "Corrected estimates: %d\n", meals.Corrected)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(usageCmd)
	usageCmd.Flags().StringVar(&usageSince, "since", "", "Window start day YYYY-MM-DD (default: 29 days before --until)")
	usageCmd.Flags().StringVar(&usageUntil, "until", "", "Window end day YYYY-MM-DD (default: today)")
}
