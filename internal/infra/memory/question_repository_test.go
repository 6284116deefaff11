package memory

import (
	"context"
	"testing"
	"time"

	"medprep-exam-service/internal/domain"
)

func TestQuestionRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuestionLoader: NewStaticQuestionLoader(sampleBank()),
	}
	repo := NewQuestionRepository(loader, time.Minute)

	if _, err := repo.FetchQuestions(context.Background(), domain.QuestionFilter{}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.FetchQuestions(context.Background(), domain.QuestionFilter{}); err != nil {
		t.Fatalf("fetch 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuestionRepositoryKeysByFilter(t *testing.T) {
	loader := &countingLoader{
		QuestionLoader: NewStaticQuestionLoader(sampleBank()),
	}
	repo := NewQuestionRepository(loader, time.Minute)

	anatomy, err := repo.FetchQuestions(context.Background(), domain.QuestionFilter{SubjectIDs: []string{"anatomy"}})
	if err != nil {
		t.Fatalf("fetch anatomy: %v", err)
	}
	for _, q := range anatomy {
		if q.SubjectID != "anatomy" {
			t.Fatalf("filter leaked subject %s", q.SubjectID)
		}
	}

	if _, err := repo.FetchQuestions(context.Background(), domain.QuestionFilter{SubjectIDs: []string{"physiology"}}); err != nil {
		t.Fatalf("fetch physiology: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected distinct cache entries per filter, loader calls %d", loader.calls)
	}
}

type countingLoader struct {
	QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestions(ctx, filter)
}

func sampleBank() []domain.Question {
	return []domain.Question{
		{
			ID:            "anatomy-1",
			Text:          "Which nerve innervates the diaphragm?",
			Options:       []string{"Vagus", "Phrenic", "Intercostal", "Accessory"},
			CorrectOption: "Phrenic",
			SubjectID:     "anatomy",
			ChapterID:     "thorax",
		},
		{
			ID:            "physiology-1",
			Text:          "Where is erythropoietin produced?",
			Options:       []string{"Liver", "Spleen", "Kidney", "Marrow"},
			CorrectOption: "Kidney",
			SubjectID:     "physiology",
			ChapterID:     "renal",
		},
	}
}
