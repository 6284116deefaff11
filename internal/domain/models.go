package domain

import "time"

// Question is an MCQ as stored in the question bank. Immutable once fetched.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption string   `json:"correctOption"`
	Explanation   string   `json:"explanation"`
	SubjectID     string   `json:"subjectId"`
	ChapterID     string   `json:"chapterId"`
}

// ShuffledQuestion is the session-scoped view of a Question with its options
// re-ordered. CorrectIndex always points at the element equal to the source
// question's CorrectOption.
type ShuffledQuestion struct {
	ID              string   `json:"id"`
	Text            string   `json:"text"`
	ShuffledOptions []string `json:"options"`
	CorrectIndex    int      `json:"-"`
	Explanation     string   `json:"-"`
	SubjectID       string   `json:"subjectId"`
	ChapterID       string   `json:"chapterId"`
}

// SubjectWeight fixes the fraction of a paper a subject should contribute.
// Fractions are designer constants and need not sum exactly to 1.0.
type SubjectWeight struct {
	Subject  string  `yaml:"subject" json:"subject"`
	Fraction float64 `yaml:"fraction" json:"fraction"`
}

// QuestionFilter narrows a question bank fetch.
type QuestionFilter struct {
	SubjectIDs []string
	ChapterIDs []string
}

// AttemptRecord is the append-only per-question outcome written at submission.
type AttemptRecord struct {
	QuestionID     string `json:"questionId"`
	SelectedAnswer string `json:"selectedAnswer"`
	IsCorrect      bool   `json:"isCorrect"`
	TimeTaken      int    `json:"timeTaken"` // seconds
}

// ExamResult is the final outcome of a full-length paper attempt.
type ExamResult struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	Score          int             `json:"score"`
	CorrectCount   int             `json:"correctCount"`
	TotalQuestions int             `json:"totalQuestions"`
	Accuracy       float64         `json:"accuracy"`
	CompletedAt    time.Time       `json:"completedAt"`
	Attempts       []AttemptRecord `json:"attempts"`
}

// ParticipantScore is a snapshot of one battle participant's score. The
// client copy is never authoritative; the store owns it.
type ParticipantScore struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// BattleResult is the final per-participant record for a battle room.
type BattleResult struct {
	RoomID         string    `json:"roomId"`
	UserID         string    `json:"userId"`
	FinalScore     int       `json:"finalScore"`
	Rank           int       `json:"rank"`
	CorrectCount   int       `json:"correctCount"`
	TotalQuestions int       `json:"totalQuestions"`
	Accuracy       float64   `json:"accuracy"`
	CompletedAt    time.Time `json:"completedAt"`
}

// Leaderboard captures the ordered scoreboard for a battle room.
type Leaderboard struct {
	RoomID    string             `json:"roomId"`
	Entries   []ParticipantScore `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
