package app

import "testing"

func TestScoreAnswer(t *testing.T) {
	cases := []struct {
		name             string
		correct          bool
		secondsRemaining int
		want             int
	}{
		{name: "correct with bonus", correct: true, secondsRemaining: 10, want: 120},
		{name: "correct at buzzer", correct: true, secondsRemaining: 0, want: 100},
		{name: "negative seconds clamped", correct: true, secondsRemaining: -5, want: 100},
		{name: "wrong answer", correct: false, secondsRemaining: 10, want: 0},
		{name: "timeout", correct: false, secondsRemaining: 0, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ScoreAnswer(tc.correct, tc.secondsRemaining); got != tc.want {
				t.Fatalf("ScoreAnswer(%v, %d) = %d, want %d", tc.correct, tc.secondsRemaining, got, tc.want)
			}
		})
	}
}

func TestAccuracy(t *testing.T) {
	if got := Accuracy(5, 5); got != 100 {
		t.Fatalf("expected 100%%, got %v", got)
	}
	if got := Accuracy(1, 4); got != 25 {
		t.Fatalf("expected 25%%, got %v", got)
	}
	if got := Accuracy(0, 0); got != 0 {
		t.Fatalf("expected 0%% for empty paper, got %v", got)
	}
}
