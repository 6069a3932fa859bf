package model

import "time"

// QuestionKind represents the kind of a quiz question.
type QuestionKind string

const (
	// KindMultipleChoice is a question with a fixed set of options.
	KindMultipleChoice QuestionKind = "multiple_choice"
	// KindTrueFalse is a question with exactly the options True and False.
	KindTrueFalse QuestionKind = "true_false"
	// KindShortAnswer is a free-text question.
	KindShortAnswer QuestionKind = "short_answer"
)

// IsValid reports whether k is a known question kind.
func (k QuestionKind) IsValid() bool {
	switch k {
	case KindMultipleChoice, KindTrueFalse, KindShortAnswer:
		return true
	}
	return false
}

// HasOptions reports whether questions of this kind carry an options list.
func (k QuestionKind) HasOptions() bool {
	return k == KindMultipleChoice || k == KindTrueFalse
}

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question represents a single quiz question with its answer key.
type Question struct {
	Text          string       `json:"question"`
	Kind          QuestionKind `json:"type"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer"`
	Points        float64      `json:"points"`
}

// StudentAnswer is a student's answer to the question at QuestionIndex
// (0-based into the quiz's question list). A missing answer for an index
// is treated as an empty answer.
type StudentAnswer struct {
	QuestionIndex int    `json:"question_index"`
	AnswerText    string `json:"answer_text"`
}

// GenerationRequest describes the quiz to generate.
type GenerationRequest struct {
	Subject      string         `json:"subject"`
	Topic        string         `json:"topic"`
	NumQuestions int            `json:"num_questions"`
	Difficulty   Difficulty     `json:"difficulty"`
	Kinds        []QuestionKind `json:"question_kinds"`
}

// GradedBy tags the provenance of a grading report.
type GradedBy string

const (
	// GradedByAI marks a report produced by the text-generation service.
	GradedByAI GradedBy = "ai"
	// GradedByFallback marks a report produced by the local grading engine.
	GradedByFallback GradedBy = "fallback"
)

// QuestionResult is the per-question entry of a grading report.
type QuestionResult struct {
	QuestionNumber int     `json:"question_number"`
	IsCorrect      bool    `json:"is_correct"`
	PointsEarned   float64 `json:"points_earned"`
	CorrectAnswer  string  `json:"correct_answer"`
	StudentAnswer  string  `json:"student_answer"`
	Explanation    string  `json:"explanation"`
	ImprovementTip string  `json:"improvement_tip"`
}

// GradingReport is the result of grading a quiz submission. The shape is
// identical whether the report came from the AI or from the fallback
// engine; GradedBy is the only provenance marker.
type GradingReport struct {
	OverallScorePercent float64          `json:"overall_score_percent"`
	PointsEarned        float64          `json:"points_earned"`
	PointsPossible      float64          `json:"points_possible"`
	CorrectCount        int              `json:"correct_count"`
	PerQuestion         []QuestionResult `json:"per_question"`
	GeneralFeedback     string           `json:"general_feedback"`
	Strengths           []string         `json:"strengths"`
	AreasForImprovement []string         `json:"areas_for_improvement"`
	GradedBy            GradedBy         `json:"graded_by"`
	GradedAt            time.Time        `json:"graded_at"`
}

// Quiz is a generated quiz as persisted by the store.
type Quiz struct {
	ID         string     `json:"id"`
	Subject    string     `json:"subject"`
	Topic      string     `json:"topic"`
	Difficulty Difficulty `json:"difficulty"`
	Questions  []Question `json:"questions"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Submission couples a graded set of answers with its report, as
// persisted by the store.
type Submission struct {
	ID        string          `json:"id"`
	QuizID    string          `json:"quiz_id"`
	Answers   []StudentAnswer `json:"answers"`
	Report    GradingReport   `json:"report"`
	CreatedAt time.Time       `json:"created_at"`
}
