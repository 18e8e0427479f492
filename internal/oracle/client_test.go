package oracle_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SblYMblK/FitRose/internal/model"
	"github.com/SblYMblK/FitRose/internal/oracle"
)

func completionBody(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 0,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			},
		},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
	})
	if err != nil {
		t.Fatalf("marshal completion: %v", err)
	}
	return body
}

// newTestClient points the SDK at a local server and captures every request
// body it receives.
func newTestClient(t *testing.T, content string) (*oracle.Client, *[][]byte) {
	t.Helper()
	requests := &[][]byte{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read request body: %v", err)
		}
		*requests = append(*requests, b)
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionBody(t, content))
	}))
	t.Cleanup(srv.Close)
	client := oracle.New(oracle.Config{
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		BaseURL: srv.URL,
	}, nil)
	return client, requests
}

func lastRequest(t *testing.T, requests *[][]byte) map[string]any {
	t.Helper()
	if len(*requests) == 0 {
		t.Fatal("no requests were sent")
	}
	var payload map[string]any
	if err := json.Unmarshal((*requests)[len(*requests)-1], &payload); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	return payload
}

func TestEstimateFromTextDecodesCompletion(t *testing.T) {
	t.Parallel()
	client, requests := newTestClient(t, `{"calories": 450, "protein": 25, "fat": 12, "carbs": 55, "notes": "Овсянка с бананом", "items": [{"name": "Овсянка", "calories": 300}]}`)

	est, err := client.EstimateFromText(context.Background(), "овсянка с бананом")
	if err != nil {
		t.Fatalf("EstimateFromText: %v", err)
	}
	if est.Calories != 450 || est.ProteinG != 25 || est.FatG != 12 || est.CarbG != 55 {
		t.Fatalf("unexpected macros: %+v", est)
	}
	if est.Notes != "Овсянка с бананом" {
		t.Fatalf("unexpected notes: %q", est.Notes)
	}
	if len(est.Items) != 1 || est.Items[0].Name != "Овсянка" {
		t.Fatalf("unexpected items: %+v", est.Items)
	}

	req := lastRequest(t, requests)
	if req["model"] != "gpt-4o-mini" {
		t.Fatalf("model = %v", req["model"])
	}
	format, ok := req["response_format"].(map[string]any)
	if !ok || format["type"] != "json_object" {
		t.Fatalf("response_format = %v", req["response_format"])
	}
	messages, ok := req["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("messages = %v", req["messages"])
	}
	user := messages[1].(map[string]any)
	text, _ := user["content"].(string)
	if !strings.Contains(text, "овсянка с бананом") {
		t.Fatalf("user prompt does not carry the description: %q", text)
	}
}

func TestEstimateFromImageSendsDataURL(t *testing.T) {
	t.Parallel()
	client, requests := newTestClient(t, `{"calories": 600}`)

	est, err := client.EstimateFromImage(context.Background(), "борщ со сметаной", []byte{0xff, 0xd8, 0xff})
	if err != nil {
		t.Fatalf("EstimateFromImage: %v", err)
	}
	if est.Calories != 600 {
		t.Fatalf("calories = %v", est.Calories)
	}

	req := lastRequest(t, requests)
	messages := req["messages"].([]any)
	user := messages[1].(map[string]any)
	parts, ok := user["content"].([]any)
	if !ok || len(parts) != 2 {
		t.Fatalf("expected text+image parts, got %v", user["content"])
	}
	textPart := parts[0].(map[string]any)
	if textPart["type"] != "text" {
		t.Fatalf("first part = %v", textPart)
	}
	if !strings.Contains(textPart["text"].(string), "борщ со сметаной") {
		t.Fatalf("caption missing from prompt: %v", textPart["text"])
	}
	imagePart := parts[1].(map[string]any)
	if imagePart["type"] != "image_url" {
		t.Fatalf("second part = %v", imagePart)
	}
	url := imagePart["image_url"].(map[string]any)["url"].(string)
	if !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Fatalf("image url is not a data URL: %q", url)
	}
}

func TestRefineEstimateCarriesHistory(t *testing.T) {
	t.Parallel()
	client, requests := newTestClient(t, `{"calories": 320, "protein": 20, "fat": 8, "carbs": 40}`)

	previous := model.NutritionEstimate{Calories: 500, ProteinG: 30, Notes: "первая оценка"}
	corrections := "- порция была в два раза меньше\n- без масла"
	est, err := client.RefineEstimate(context.Background(), corrections, previous, "гречка с курицей", nil)
	if err != nil {
		t.Fatalf("RefineEstimate: %v", err)
	}
	if est.Calories != 320 {
		t.Fatalf("calories = %v", est.Calories)
	}

	req := lastRequest(t, requests)
	messages := req["messages"].([]any)
	prompt := messages[1].(map[string]any)["content"].(string)
	for _, want := range []string{"гречка с курицей", "порция была в два раза меньше", "без масла", `"calories":500`} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("refine prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestRefineEstimateReattachesPhoto(t *testing.T) {
	t.Parallel()
	client, requests := newTestClient(t, `{"calories": 100}`)

	_, err := client.RefineEstimate(context.Background(), "- это был суп", model.NutritionEstimate{}, "", []byte{0x01})
	if err != nil {
		t.Fatalf("RefineEstimate: %v", err)
	}

	req := lastRequest(t, requests)
	messages := req["messages"].([]any)
	parts, ok := messages[1].(map[string]any)["content"].([]any)
	if !ok || len(parts) != 2 {
		t.Fatalf("expected text+image parts, got %v", messages[1])
	}
	if parts[1].(map[string]any)["type"] != "image_url" {
		t.Fatalf("photo part missing: %v", parts[1])
	}
}

func TestSummarizeDayFlattensLooseTypes(t *testing.T) {
	t.Parallel()
	client, requests := newTestClient(t, `{"summary": "Отличный день!", "recommendations": ["Больше белка", "Меньше сахара"]}`)

	target := model.DayTotals{Calories: 2016, ProteinG: 140, FatG: 84, CarbG: 175}
	actual := model.DayTotals{Calories: 1850, ProteinG: 120, FatG: 70, CarbG: 160}
	advice, err := client.SummarizeDay(context.Background(), target, actual)
	if err != nil {
		t.Fatalf("SummarizeDay: %v", err)
	}
	if advice.Summary != "Отличный день!" {
		t.Fatalf("summary = %q", advice.Summary)
	}
	if advice.Recommendations != "Больше белка\nМеньше сахара" {
		t.Fatalf("recommendations = %q", advice.Recommendations)
	}

	req := lastRequest(t, requests)
	messages := req["messages"].([]any)
	prompt := messages[1].(map[string]any)["content"].(string)
	for _, want := range []string{"2016", "1850", "140", "120"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("summary prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	client := oracle.New(oracle.Config{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: srv.URL}, nil)

	_, err := client.EstimateFromText(context.Background(), "каша")
	if !errors.Is(err, oracle.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestNonJSONCompletionIsUnavailable(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t, "вот примерно 400 ккал")

	_, err := client.EstimateFromText(context.Background(), "каша")
	if !errors.Is(err, oracle.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
