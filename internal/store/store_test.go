package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/quizforge/quizforge/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func saveTestQuiz(t *testing.T, s *Store, subject, topic string) model.Quiz {
	t.Helper()
	quiz, err := s.SaveQuiz(model.Quiz{
		Subject:    subject,
		Topic:      topic,
		Difficulty: model.DifficultyMedium,
		Questions: []model.Question{
			{
				Text:          "Capital of France?",
				Kind:          model.KindMultipleChoice,
				Options:       []string{"Paris", "Lyon", "Nice", "Lille"},
				CorrectAnswer: "Paris",
				Points:        5,
			},
		},
	})
	if err != nil {
		t.Fatalf("saveTestQuiz: %v", err)
	}
	return quiz
}

func TestQuizRoundTrip(t *testing.T) {
	s := newTestStore(t)

	quiz := saveTestQuiz(t, s, "Geography", "European capitals")
	if quiz.ID == "" {
		t.Fatal("SaveQuiz should assign an ID")
	}
	if quiz.CreatedAt.IsZero() {
		t.Fatal("SaveQuiz should assign a timestamp")
	}

	got, err := s.GetQuiz(quiz.ID)
	if err != nil {
		t.Fatalf("GetQuiz: %v", err)
	}
	if got.Subject != "Geography" || got.Topic != "European capitals" {
		t.Errorf("unexpected quiz: %+v", got)
	}
	if len(got.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(got.Questions))
	}
	if got.Questions[0].CorrectAnswer != "Paris" {
		t.Errorf("unexpected question payload: %+v", got.Questions[0])
	}

	// Not found.
	if _, err := s.GetQuiz("missing"); err != sql.ErrNoRows {
		t.Errorf("expected ErrNoRows, got %v", err)
	}
}

func TestListQuizzes(t *testing.T) {
	s := newTestStore(t)

	quizzes, err := s.ListQuizzes()
	if err != nil {
		t.Fatalf("ListQuizzes: %v", err)
	}
	if len(quizzes) != 0 {
		t.Fatalf("expected empty list, got %d", len(quizzes))
	}

	saveTestQuiz(t, s, "Geography", "Capitals")
	saveTestQuiz(t, s, "History", "Rome")

	quizzes, err = s.ListQuizzes()
	if err != nil {
		t.Fatalf("ListQuizzes: %v", err)
	}
	if len(quizzes) != 2 {
		t.Fatalf("expected 2 quizzes, got %d", len(quizzes))
	}
	// The listing carries summaries, not question payloads.
	if quizzes[0].Questions != nil {
		t.Error("list entries should not include questions")
	}
}

func TestSubmissionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	quiz := saveTestQuiz(t, s, "Geography", "Capitals")

	sub, err := s.SaveSubmission(model.Submission{
		QuizID:  quiz.ID,
		Answers: []model.StudentAnswer{{QuestionIndex: 0, AnswerText: "Paris"}},
		Report: model.GradingReport{
			OverallScorePercent: 100,
			PointsEarned:        5,
			PointsPossible:      5,
			CorrectCount:        1,
			PerQuestion: []model.QuestionResult{
				{QuestionNumber: 1, IsCorrect: true, PointsEarned: 5, CorrectAnswer: "Paris", StudentAnswer: "Paris"},
			},
			GeneralFeedback: "Great job!",
			GradedBy:        model.GradedByFallback,
			GradedAt:        time.Now().UTC(),
		},
	})
	if err != nil {
		t.Fatalf("SaveSubmission: %v", err)
	}
	if sub.ID == "" {
		t.Fatal("SaveSubmission should assign an ID")
	}

	got, err := s.GetSubmission(sub.ID)
	if err != nil {
		t.Fatalf("GetSubmission: %v", err)
	}
	if got.QuizID != quiz.ID {
		t.Errorf("expected quiz ID %q, got %q", quiz.ID, got.QuizID)
	}
	if got.Report.GradedBy != model.GradedByFallback {
		t.Errorf("expected graded_by fallback, got %q", got.Report.GradedBy)
	}
	if got.Report.OverallScorePercent != 100 {
		t.Errorf("unexpected report: %+v", got.Report)
	}
	if len(got.Answers) != 1 || got.Answers[0].AnswerText != "Paris" {
		t.Errorf("unexpected answers: %+v", got.Answers)
	}

	if _, err := s.GetSubmission("missing"); err != sql.ErrNoRows {
		t.Errorf("expected ErrNoRows, got %v", err)
	}
}

func TestListSubmissions(t *testing.T) {
	s := newTestStore(t)
	quiz := saveTestQuiz(t, s, "Geography", "Capitals")
	other := saveTestQuiz(t, s, "History", "Rome")

	for i := 0; i < 2; i++ {
		_, err := s.SaveSubmission(model.Submission{
			QuizID: quiz.ID,
			Report: model.GradingReport{GradedBy: model.GradedByAI, GradedAt: time.Now().UTC()},
		})
		if err != nil {
			t.Fatalf("SaveSubmission: %v", err)
		}
	}

	subs, err := s.ListSubmissions(quiz.ID)
	if err != nil {
		t.Fatalf("ListSubmissions: %v", err)
	}
	if len(subs) != 2 {
		t.Errorf("expected 2 submissions, got %d", len(subs))
	}

	subs, err = s.ListSubmissions(other.ID)
	if err != nil {
		t.Fatalf("ListSubmissions: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("expected no submissions for other quiz, got %d", len(subs))
	}
}
