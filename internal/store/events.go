package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// EventFilter narrows event queries. Start and End are inclusive days in
// YYYY-MM-DD form; empty fields mean unbounded.
type EventFilter struct {
	Type  string
	Start string
	End   string
}

type MealEventStats struct {
	Total       int
	Corrected   int
	ByEntryType map[string]int
}

func LogEvent(db *sql.DB, userID int64, eventType string, payload map[string]any) error {
	raw := "{}"
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode event payload: %w", err)
		}
		raw = string(encoded)
	}
	if _, err := db.Exec(`INSERT INTO events(user_id, event_type, payload_json) VALUES(?, ?, ?)`, userID, eventType, raw); err != nil {
		return fmt.Errorf("log event %s: %w", eventType, err)
	}
	return nil
}

func (f EventFilter) validate() error {
	if f.Start != "" {
		if err := validateDay(f.Start); err != nil {
			return err
		}
	}
	if f.End != "" {
		if err := validateDay(f.End); err != nil {
			return err
		}
	}
	return nil
}

func (f EventFilter) whereClause(conds []string, params []any) ([]string, []any) {
	if f.Type != "" {
		conds = append(conds, "event_type = ?")
		params = append(params, f.Type)
	}
	if f.Start != "" {
		conds = append(conds, "datetime(created_at) >= datetime(?)")
		params = append(params, f.Start)
	}
	if f.End != "" {
		conds = append(conds, "datetime(created_at) < datetime(?, '+1 day')")
		params = append(params, f.End)
	}
	return conds, params
}

func CountEvents(db *sql.DB, f EventFilter) (int, error) {
	if err := f.validate(); err != nil {
		return 0, err
	}
	conds, params := f.whereClause(nil, nil)
	query := `SELECT COUNT(1) FROM events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	var count int
	if err := db.QueryRow(query, params...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

func ActiveUsersBetween(db *sql.DB, start, end string) (int, error) {
	if err := validateDay(start); err != nil {
		return 0, err
	}
	if err := validateDay(end); err != nil {
		return 0, err
	}
	var count int
	err := db.QueryRow(`
SELECT COUNT(DISTINCT user_id)
FROM events
WHERE datetime(created_at) >= datetime(?) AND datetime(created_at) < datetime(?, '+1 day')
`, start, end).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active users: %w", err)
	}
	return count, nil
}

// mealEventPayloads decodes payloads of meal_logged events in the window.
// Broken payloads decode to an empty map rather than failing the report.
func mealEventPayloads(db *sql.DB, start, end string) ([]map[string]any, error) {
	f := EventFilter{Type: "meal_logged", Start: start, End: end}
	if err := f.validate(); err != nil {
		return nil, err
	}
	conds, params := f.whereClause(nil, nil)
	rows, err := db.Query(`SELECT payload_json FROM events WHERE `+strings.Join(conds, " AND "), params...)
	if err != nil {
		return nil, fmt.Errorf("query meal events: %w", err)
	}
	defer rows.Close()

	payloads := make([]map[string]any, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan meal event: %w", err)
		}
		payload := map[string]any{}
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &payload); err != nil {
				payload = map[string]any{}
			}
		}
		payloads = append(payloads, payload)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meal events: %w", err)
	}
	return payloads, nil
}

func MealsByType(db *sql.DB, start, end string) (map[string]int, error) {
	payloads, err := mealEventPayloads(db, start, end)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, payload := range payloads {
		mealType, _ := payload["meal_type"].(string)
		if mealType == "" {
			mealType = "unknown"
		}
		counts[mealType]++
	}
	return counts, nil
}

func MealEventBreakdown(db *sql.DB, start, end string) (MealEventStats, error) {
	stats := MealEventStats{ByEntryType: make(map[string]int)}
	payloads, err := mealEventPayloads(db, start, end)
	if err != nil {
		return stats, err
	}
	for _, payload := range payloads {
		stats.Total++
		entryType, _ := payload["entry_type"].(string)
		if entryType == "" {
			entryType = "unknown"
		}
		stats.ByEntryType[entryType]++
		if correctedTruthy(payload["corrected"]) {
			stats.Corrected++
		}
	}
	return stats, nil
}

func correctedTruthy(v any) bool {
	switch c := v.(type) {
	case bool:
		return c
	case string:
		switch strings.ToLower(c) {
		case "1", "true", "yes":
			return true
		}
		return false
	case float64:
		return c != 0
	}
	return false
}
