package assess

import (
	"context"
	"math"
	"strings"

	"github.com/quizforge/quizforge/internal/i18n"
	"github.com/quizforge/quizforge/internal/model"
)

// similarityThreshold is the cut-off for the short-answer character
// similarity rule.
const similarityThreshold = 0.8

// feedbackThreshold is the single score threshold separating the
// encouraging feedback message from the keep-practicing one.
const feedbackThreshold = 70.0

// GradeLocally grades a submission without the text-generation service.
// Deterministic and side-effect free; the context only carries the
// localizer for the feedback strings.
func GradeLocally(ctx context.Context, questions []model.Question, answers []model.StudentAnswer) model.GradingReport {
	var earned, possible float64
	correctCount := 0
	perQuestion := make([]model.QuestionResult, 0, len(questions))

	for i, q := range questions {
		student := rawAnswerFor(answers, i)
		correct := isAnswerCorrect(q, student)

		pts := 0.0
		if correct {
			pts = q.Points
			correctCount++
		}
		earned += pts
		possible += q.Points

		res := model.QuestionResult{
			QuestionNumber: i + 1,
			IsCorrect:      correct,
			PointsEarned:   pts,
			CorrectAnswer:  q.CorrectAnswer,
			StudentAnswer:  student,
		}
		if correct {
			res.Explanation = i18n.T(ctx, "GradeCorrect")
		} else {
			res.Explanation = i18n.Td(ctx, "GradeIncorrect", map[string]any{"Answer": q.CorrectAnswer})
			res.ImprovementTip = i18n.T(ctx, "GradeTip")
		}
		perQuestion = append(perQuestion, res)
	}

	score := 0.0
	if possible > 0 {
		score = math.Round(earned/possible*10000) / 100
	}

	feedback := i18n.T(ctx, "FeedbackPractice")
	if score >= feedbackThreshold {
		feedback = i18n.T(ctx, "FeedbackGood")
	}

	return model.GradingReport{
		OverallScorePercent: score,
		PointsEarned:        earned,
		PointsPossible:      possible,
		CorrectCount:        correctCount,
		PerQuestion:         perQuestion,
		GeneralFeedback:     feedback,
		// The local engine cannot synthesize qualitative feedback.
		Strengths:           []string{},
		AreasForImprovement: []string{},
		GradedBy:            model.GradedByFallback,
	}
}

// isAnswerCorrect applies the local matching rules for one question.
func isAnswerCorrect(q model.Question, studentAnswer string) bool {
	student := normalize(studentAnswer)
	correct := normalize(q.CorrectAnswer)

	// A blank answer never matches; without this the substring rule
	// below would accept it against any answer key.
	if student == "" {
		return false
	}

	if q.Kind != model.KindShortAnswer {
		return student == correct
	}

	if student == correct {
		return true
	}
	if strings.Contains(correct, student) {
		return true
	}
	// Common-character count over the length of the correct answer.
	// The ratio is asymmetric and must stay that way so regrades stay
	// consistent with previously issued scores.
	if len([]rune(correct)) > 0 {
		ratio := float64(commonRuneCount(student, correct)) / float64(len([]rune(correct)))
		if ratio > similarityThreshold {
			return true
		}
	}
	return false
}

// normalize trims whitespace and lowercases.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// commonRuneCount counts how many runes the two strings share, with
// multiplicity.
func commonRuneCount(a, b string) int {
	counts := make(map[rune]int)
	for _, r := range a {
		counts[r]++
	}
	common := 0
	for _, r := range b {
		if counts[r] > 0 {
			counts[r]--
			common++
		}
	}
	return common
}

// rawAnswerFor returns the answer text for the 0-based question index,
// or the empty string when absent.
func rawAnswerFor(answers []model.StudentAnswer, index int) string {
	for _, a := range answers {
		if a.QuestionIndex == index {
			return a.AnswerText
		}
	}
	return ""
}
