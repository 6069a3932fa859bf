package assess

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/quizforge/quizforge/internal/model"
)

const validQuestionsJSON = `[
  {
    "question": "What is the capital of France?",
    "type": "multiple_choice",
    "options": ["Paris", "Lyon", "Nice", "Lille"],
    "correct_answer": "Paris",
    "points": 5
  },
  {
    "question": "Name the largest planet in the solar system.",
    "type": "short_answer",
    "correct_answer": "Jupiter",
    "points": 3
  }
]`

func TestParseGeneratedQuestions(t *testing.T) {
	questions, err := ParseGeneratedQuestions(validQuestionsJSON)
	if err != nil {
		t.Fatalf("ParseGeneratedQuestions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}

	q := questions[0]
	if q.Kind != model.KindMultipleChoice {
		t.Errorf("expected kind multiple_choice, got %q", q.Kind)
	}
	if !reflect.DeepEqual(q.Options, []string{"Paris", "Lyon", "Nice", "Lille"}) {
		t.Errorf("unexpected options: %v", q.Options)
	}
	if q.CorrectAnswer != "Paris" {
		t.Errorf("expected correct answer Paris, got %q", q.CorrectAnswer)
	}
	if q.Points != 5 {
		t.Errorf("expected 5 points, got %g", q.Points)
	}

	if questions[1].Options != nil {
		t.Errorf("short_answer question should have no options, got %v", questions[1].Options)
	}
}

func TestParseGeneratedQuestionsFenced(t *testing.T) {
	fenced := "```json\n" + validQuestionsJSON + "\n```"

	plain, err := ParseGeneratedQuestions(validQuestionsJSON)
	if err != nil {
		t.Fatalf("parse plain: %v", err)
	}
	stripped, err := ParseGeneratedQuestions(fenced)
	if err != nil {
		t.Fatalf("parse fenced: %v", err)
	}
	if !reflect.DeepEqual(plain, stripped) {
		t.Error("fenced and fence-free input should parse identically")
	}
}

func TestStripFencesIdempotent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fences", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  \n```json\n[1]\n```\n  ", "[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripFences(tt.in)
			if got != tt.want {
				t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := stripFences(got); again != got {
				t.Errorf("stripFences not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestParseGeneratedQuestionsErrors(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantKind ParseErrorKind
	}{
		{"prose", "I cannot help with that.", ParseInvalidJSON},
		{"truncated", `[{"question": "Q"`, ParseInvalidJSON},
		{"object not array", `{"question": "Q"}`, ParseNotAList},
		{"empty array", `[]`, ParseNotAList},
		{"missing question", `[{"type": "short_answer", "correct_answer": "A"}]`, ParseMissingField},
		{"missing type", `[{"question": "Q", "correct_answer": "A"}]`, ParseMissingField},
		{"missing correct_answer", `[{"question": "Q", "type": "short_answer"}]`, ParseMissingField},
		{"blank correct_answer", `[{"question": "Q", "type": "short_answer", "correct_answer": " "}]`, ParseMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGeneratedQuestions(tt.raw)
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *ParseError, got %v", err)
			}
			if parseErr.Kind != tt.wantKind {
				t.Errorf("expected kind %q, got %q", tt.wantKind, parseErr.Kind)
			}
		})
	}
}

func TestParseGeneratedQuestionsMissingFieldIndex(t *testing.T) {
	raw := `[
	  {"question": "Q1", "type": "short_answer", "correct_answer": "A"},
	  {"question": "Q2", "type": "short_answer"}
	]`

	_, err := ParseGeneratedQuestions(raw)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if parseErr.Index != 1 {
		t.Errorf("expected index 1, got %d", parseErr.Index)
	}
	if parseErr.Field != "correct_answer" {
		t.Errorf("expected field correct_answer, got %q", parseErr.Field)
	}
}

func TestParseGeneratedQuestionsDefaultsPoints(t *testing.T) {
	raw := `[{"question": "Q", "type": "short_answer", "correct_answer": "A"}]`
	questions, err := ParseGeneratedQuestions(raw)
	if err != nil {
		t.Fatalf("ParseGeneratedQuestions: %v", err)
	}
	if questions[0].Points != 1 {
		t.Errorf("expected default of 1 point, got %g", questions[0].Points)
	}
}

func TestParseGeneratedQuestionsLenientOptions(t *testing.T) {
	// Default mode does not check option lists even for choice kinds.
	raw := `[{"question": "Q", "type": "multiple_choice", "correct_answer": "A"}]`
	if _, err := ParseGeneratedQuestions(raw); err != nil {
		t.Errorf("lenient parse should accept missing options: %v", err)
	}
}

func TestParseGeneratedQuestionsStrict(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{
			"valid",
			`[{"question": "Q", "type": "multiple_choice", "options": ["A", "B", "C", "D"], "correct_answer": "A", "points": 1}]`,
			false,
		},
		{
			"missing options",
			`[{"question": "Q", "type": "multiple_choice", "correct_answer": "A"}]`,
			true,
		},
		{
			"single option",
			`[{"question": "Q", "type": "true_false", "options": ["True"], "correct_answer": "True"}]`,
			true,
		},
		{
			"answer not among options",
			`[{"question": "Q", "type": "multiple_choice", "options": ["A", "B"], "correct_answer": "C"}]`,
			true,
		},
		{
			"short answer unaffected",
			`[{"question": "Q", "type": "short_answer", "correct_answer": "A"}]`,
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGeneratedQuestionsStrict(tt.raw)
			if tt.wantErr && err == nil {
				t.Error("expected an error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseGradingReport(t *testing.T) {
	raw := "```json\n" + `{
	  "overall_score_percent": 66.67,
	  "points_earned": 12,
	  "points_possible": 18,
	  "correct_count": 2,
	  "per_question": [
	    {"question_number": 1, "is_correct": true, "points_earned": 5, "correct_answer": "Paris", "student_answer": "Paris", "explanation": "Right.", "improvement_tip": ""}
	  ],
	  "general_feedback": "Good work.",
	  "strengths": ["geography"],
	  "areas_for_improvement": ["physics"]
	}` + "\n```"

	report, err := ParseGradingReport(context.Background(), raw)
	if err != nil {
		t.Fatalf("ParseGradingReport: %v", err)
	}
	if report.GradedBy != model.GradedByAI {
		t.Errorf("expected graded_by ai, got %q", report.GradedBy)
	}
	if report.OverallScorePercent != 66.67 {
		t.Errorf("expected score 66.67, got %g", report.OverallScorePercent)
	}
	if report.PointsEarned != 12 || report.PointsPossible != 18 {
		t.Errorf("unexpected points: %g/%g", report.PointsEarned, report.PointsPossible)
	}
	if len(report.PerQuestion) != 1 || !report.PerQuestion[0].IsCorrect {
		t.Errorf("unexpected per_question: %+v", report.PerQuestion)
	}
	if report.GeneralFeedback != "Good work." {
		t.Errorf("unexpected feedback: %q", report.GeneralFeedback)
	}
}

func TestParseGradingReportDefaults(t *testing.T) {
	// Partial output is kept, with defaults for the absent fields.
	report, err := ParseGradingReport(context.Background(), `{"points_earned": 4}`)
	if err != nil {
		t.Fatalf("ParseGradingReport: %v", err)
	}
	if report.PointsEarned != 4 {
		t.Errorf("expected 4 points earned, got %g", report.PointsEarned)
	}
	if report.OverallScorePercent != 0 || report.PointsPossible != 0 || report.CorrectCount != 0 {
		t.Error("absent numeric fields should default to zero")
	}
	if report.PerQuestion == nil || report.Strengths == nil || report.AreasForImprovement == nil {
		t.Error("absent list fields should default to empty, not nil")
	}
	if report.GeneralFeedback == "" {
		t.Error("absent feedback should get a default message")
	}
}

func TestParseGradingReportErrors(t *testing.T) {
	for _, raw := range []string{
		"I cannot help with that.",
		`[1, 2, 3]`,
		"```json\nnot json\n```",
	} {
		_, err := ParseGradingReport(context.Background(), raw)
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("ParseGradingReport(%q): expected *ParseError, got %v", raw, err)
		}
	}
}
