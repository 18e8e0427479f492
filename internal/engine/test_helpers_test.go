package engine_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/SblYMblK/FitRose/internal/db"
	"github.com/SblYMblK/FitRose/internal/engine"
	"github.com/SblYMblK/FitRose/internal/metrics"
	"github.com/SblYMblK/FitRose/internal/model"
	"github.com/SblYMblK/FitRose/internal/oracle"
	"github.com/SblYMblK/FitRose/internal/store"
)

// testToday is the pinned clock for every engine test.
var testToday = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type fakeOracle struct {
	estimate model.NutritionEstimate
	refined  model.NutritionEstimate
	advice   oracle.Advice
	fail     bool

	textCalls    int
	imageCalls   int
	refineCalls  int
	summaryCalls int

	lastDescription string
	lastImage       []byte
	lastCorrections string
}

func (f *fakeOracle) EstimateFromText(ctx context.Context, description string) (model.NutritionEstimate, error) {
	f.textCalls++
	f.lastDescription = description
	if f.fail {
		return model.NutritionEstimate{}, errors.New("backend down")
	}
	return f.estimate, nil
}

func (f *fakeOracle) EstimateFromImage(ctx context.Context, description string, image []byte) (model.NutritionEstimate, error) {
	f.imageCalls++
	f.lastDescription = description
	f.lastImage = image
	if f.fail {
		return model.NutritionEstimate{}, errors.New("backend down")
	}
	return f.estimate, nil
}

func (f *fakeOracle) RefineEstimate(ctx context.Context, corrections string, previous model.NutritionEstimate, description string, image []byte) (model.NutritionEstimate, error) {
	f.refineCalls++
	f.lastCorrections = corrections
	f.lastDescription = description
	f.lastImage = image
	if f.fail {
		return model.NutritionEstimate{}, errors.New("backend down")
	}
	return f.refined, nil
}

func (f *fakeOracle) SummarizeDay(ctx context.Context, target, actual model.DayTotals) (oracle.Advice, error) {
	f.summaryCalls++
	if f.fail {
		return oracle.Advice{}, errors.New("backend down")
	}
	return f.advice, nil
}

func newTestEngine(t *testing.T) (*engine.Engine, *sql.DB, *fakeOracle) {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	fake := &fakeOracle{
		estimate: model.NutritionEstimate{
			Calories: 450, ProteinG: 25, FatG: 12, CarbG: 55,
			Notes: "Овсянка с бананом",
			Items: []model.EstimateItem{{Name: "Овсянка", Calories: 450}},
		},
		refined: model.NutritionEstimate{Calories: 320, ProteinG: 20, FatG: 8, CarbG: 40},
		advice:  oracle.Advice{Summary: "Хороший день.", Recommendations: "Добавьте овощей."},
	}
	e := engine.New(conn, fake, zap.NewNop())
	e.Now = func() time.Time { return testToday }
	return e, conn, fake
}

func seedUser(t *testing.T, conn *sql.DB, userID int64) model.UserProfile {
	t.Helper()
	m, err := metrics.Build(70, 175, 30, metrics.SexMale, metrics.ActivityLight, metrics.GoalMaintain)
	if err != nil {
		t.Fatalf("build metrics: %v", err)
	}
	profile := model.UserProfile{
		TelegramID: userID,
		Age:        30,
		Sex:        metrics.SexMale,
		HeightCm:   175,
		WeightKg:   70,
		Activity:   metrics.ActivityLight,
		Goal:       metrics.GoalMaintain,
		Metrics:    m,
	}
	if err := store.UpsertUser(conn, profile); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return profile
}

// seedMeal inserts one committed meal for the given day through the store,
// bypassing the dialogue.
func seedMeal(t *testing.T, conn *sql.DB, userID int64, day string, slot model.MealSlot, calories float64) {
	t.Helper()
	dayLogID, err := store.SetActiveDay(conn, userID, day)
	if err != nil {
		t.Fatalf("set active day: %v", err)
	}
	_, err = store.AddMealEntry(conn, store.AddMealInput{
		DayLogID:  dayLogID,
		Slot:      slot,
		Modality:  model.ModalityText,
		UserInput: "тест",
		Estimate:  model.NutritionEstimate{Calories: calories, ProteinG: 10, FatG: 5, CarbG: 20},
	})
	if err != nil {
		t.Fatalf("add meal: %v", err)
	}
}

func mustReply(t *testing.T, msgs []engine.Message, err error) []engine.Message {
	t.Helper()
	if err != nil {
		t.Fatalf("engine call failed: %v", err)
	}
	if len(msgs) == 0 {
		t.Fatal("engine returned no messages")
	}
	return msgs
}

// allText joins every message text so substring checks do not depend on
// message boundaries.
func allText(msgs []engine.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, "\n---\n")
}

func wantContains(t *testing.T, msgs []engine.Message, substr string) {
	t.Helper()
	if !strings.Contains(allText(msgs), substr) {
		t.Fatalf("reply does not contain %q:\n%s", substr, allText(msgs))
	}
}

func wantText(t *testing.T, msgs []engine.Message, idx int, text string) {
	t.Helper()
	if idx >= len(msgs) {
		t.Fatalf("want message %d, got only %d:\n%s", idx, len(msgs), allText(msgs))
	}
	if msgs[idx].Text != text {
		t.Fatalf("message %d = %q, want %q", idx, msgs[idx].Text, text)
	}
}

func buttonTokens(msg engine.Message) []string {
	tokens := make([]string, 0)
	for _, row := range msg.Buttons {
		for _, b := range row {
			tokens = append(tokens, b.Token)
		}
	}
	return tokens
}

func hasToken(msg engine.Message, token string) bool {
	for _, tok := range buttonTokens(msg) {
		if tok == token {
			return true
		}
	}
	return false
}
