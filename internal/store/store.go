// Package store persists user profiles, day logs, meals and usage events on
// sqlite. Functions take a *sql.DB directly; every multi-statement write runs
// in a single transaction so readers never observe a day log whose totals
// disagree with its meals. Lookups that can legitimately miss return nil
// instead of an error.
package store

import (
	"fmt"
	"time"
)

func validateDay(day string) error {
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return fmt.Errorf("invalid day %q (expected YYYY-MM-DD)", day)
	}
	return nil
}
