package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medprep-exam-service/internal/app"
	"medprep-exam-service/internal/domain"
	"medprep-exam-service/internal/infra/memory"
)

func TestExamRESTFlow(t *testing.T) {
	bank := transportBank()
	srv := newTestServer(t, bank)
	defer srv.Close()

	correctByID := make(map[string]string, len(bank))
	for _, q := range bank {
		correctByID[q.ID] = q.CorrectOption
	}

	var started struct {
		SessionID        string                    `json:"sessionId"`
		Questions        []domain.ShuffledQuestion `json:"questions"`
		RemainingSeconds int                       `json:"remainingSeconds"`
	}
	res := postJSON(t, srv.URL+"/api/exams", map[string]interface{}{"userId": "u1"})
	decodeBody(t, res, http.StatusCreated, &started)
	if started.SessionID == "" {
		t.Fatal("expected a session id")
	}
	if len(started.Questions) != 4 {
		t.Fatalf("expected 4 questions, got %d", len(started.Questions))
	}
	if started.RemainingSeconds != 600 {
		t.Fatalf("expected 600s remaining, got %d", started.RemainingSeconds)
	}

	q := started.Questions[0]
	res = postJSON(t, srv.URL+"/api/exams/"+started.SessionID+"/answers", map[string]interface{}{
		"questionId":     q.ID,
		"selectedOption": correctByID[q.ID],
	})
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("answer: expected 204, got %d", res.StatusCode)
	}
	res.Body.Close()

	res = postJSON(t, srv.URL+"/api/exams/"+started.SessionID+"/navigate", map[string]interface{}{"index": 2})
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("navigate: expected 204, got %d", res.StatusCode)
	}
	res.Body.Close()

	var state struct {
		State        string `json:"state"`
		CurrentIndex int    `json:"currentIndex"`
	}
	res = getURL(t, srv.URL+"/api/exams/"+started.SessionID)
	decodeBody(t, res, http.StatusOK, &state)
	if state.State != "running" {
		t.Fatalf("expected running session, got %q", state.State)
	}
	if state.CurrentIndex != 2 {
		t.Fatalf("expected current index 2, got %d", state.CurrentIndex)
	}

	var result domain.ExamResult
	res = postJSON(t, srv.URL+"/api/exams/"+started.SessionID+"/submit", struct{}{})
	decodeBody(t, res, http.StatusOK, &result)
	if result.Score != 100 || result.CorrectCount != 1 {
		t.Fatalf("expected 100 points for one correct answer, got %+v", result)
	}
	if result.TotalQuestions != 4 || result.Accuracy != 25 {
		t.Fatalf("unexpected tallies: %+v", result)
	}

	var fetched domain.ExamResult
	res = getURL(t, srv.URL+"/api/results/"+result.ID)
	decodeBody(t, res, http.StatusOK, &fetched)
	if fetched.ID != result.ID || fetched.Score != result.Score {
		t.Fatalf("stored result mismatch: %+v vs %+v", fetched, result)
	}
}

func TestStartExamReportsInventoryShortfall(t *testing.T) {
	srv := newTestServer(t, transportBank())
	defer srv.Close()

	var body struct {
		Error     string `json:"error"`
		Requested int    `json:"requested"`
		Available int    `json:"available"`
	}
	res := postJSON(t, srv.URL+"/api/exams", map[string]interface{}{
		"userId":      "u1",
		"targetCount": 50,
	})
	decodeBody(t, res, http.StatusUnprocessableEntity, &body)
	if body.Requested != 50 || body.Available != 6 {
		t.Fatalf("expected requested=50 available=6, got %+v", body)
	}
}

func TestGetExamUnknownSession(t *testing.T) {
	srv := newTestServer(t, transportBank())
	defer srv.Close()

	res := getURL(t, srv.URL+"/api/exams/nope")
	defer res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.StatusCode)
	}
}

func newTestServer(t *testing.T, bank []domain.Question) *httptest.Server {
	t.Helper()
	weights := []domain.SubjectWeight{{Subject: "anatomy", Fraction: 1.0}}
	questions := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(bank), time.Minute)
	outbox := memory.NewOutbox()

	exams := app.NewExamService(questions, memory.NewResultStore(), outbox, app.ExamConfig{
		TargetCount:     4,
		DurationSeconds: 600,
		Weights:         weights,
	})
	battles := app.NewBattleService(memory.NewRoomStore(), memory.NewScoreStore(), questions, outbox, app.BattleConfig{
		QuestionCount: 2,
		Weights:       weights,
	})

	return httptest.NewServer(NewRouter(NewAPIHandler(exams), NewWSHandler(battles)))
}

func transportBank() []domain.Question {
	out := make([]domain.Question, 0, 6)
	for i := 0; i < 6; i++ {
		out = append(out, domain.Question{
			ID:            fmt.Sprintf("anatomy-%d", i),
			Text:          fmt.Sprintf("Anatomy question %d", i),
			Options:       []string{"A", "B", "C", "D"},
			CorrectOption: "C",
			SubjectID:     "anatomy",
		})
	}
	return out
}

func postJSON(t *testing.T, url string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	res, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return res
}

func getURL(t *testing.T, url string) *http.Response {
	t.Helper()
	res, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return res
}

func decodeBody(t *testing.T, res *http.Response, wantStatus int, out interface{}) {
	t.Helper()
	defer res.Body.Close()
	if res.StatusCode != wantStatus {
		t.Fatalf("expected status %d, got %d", wantStatus, res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
