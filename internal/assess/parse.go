package assess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/quizforge/quizforge/internal/i18n"
	"github.com/quizforge/quizforge/internal/model"
)

// ParseErrorKind classifies failures to parse model output as the target
// schema. These are distinct from gateway errors: the text arrived, it
// just wasn't usable.
type ParseErrorKind string

const (
	// ParseInvalidJSON means the text did not decode as JSON at all.
	ParseInvalidJSON ParseErrorKind = "invalid_json"
	// ParseNotAList means the text decoded but was not a non-empty array.
	ParseNotAList ParseErrorKind = "not_a_list"
	// ParseMissingField means a question element lacked a required field.
	ParseMissingField ParseErrorKind = "missing_field"
)

// ParseError is a typed parse/validation failure.
type ParseError struct {
	Kind  ParseErrorKind
	Index int    // element index, set for ParseMissingField
	Field string // offending field, set for ParseMissingField
	Err   error
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case ParseMissingField:
		return fmt.Sprintf("parse %s: question %d has no %q", e.Kind, e.Index, e.Field)
	default:
		if e.Err != nil {
			return fmt.Sprintf("parse %s: %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("parse %s", e.Kind)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// Models wrap JSON in markdown fences more often than not, with or
// without a language tag.
var (
	openFenceRe  = regexp.MustCompile("^```[a-zA-Z]*[ \t]*\r?\n?")
	closeFenceRe = regexp.MustCompile("\r?\n?```$")
)

// stripFences removes a leading/trailing markdown code fence and trims
// whitespace. Idempotent on fence-free text.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = openFenceRe.ReplaceAllString(s, "")
	s = closeFenceRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// generatedQuestion is the raw decoded question element before
// validation.
type generatedQuestion struct {
	Question      *string  `json:"question"`
	Type          *string  `json:"type"`
	Options       []string `json:"options"`
	CorrectAnswer *string  `json:"correct_answer"`
	Points        float64  `json:"points"`
}

// ParseGeneratedQuestions decodes generated text as a question list and
// validates required fields. There is no fallback for generation: any
// *ParseError here fails the whole request.
func ParseGeneratedQuestions(raw string) ([]model.Question, error) {
	return parseGenerated(raw, false)
}

// ParseGeneratedQuestionsStrict additionally requires that choice-kind
// questions carry at least 2 options including the declared correct
// answer. The default parser leaves that to the prompt contract.
func ParseGeneratedQuestionsStrict(raw string) ([]model.Question, error) {
	return parseGenerated(raw, true)
}

func parseGenerated(raw string, strict bool) ([]model.Question, error) {
	s := stripFences(raw)

	var top any
	if err := json.Unmarshal([]byte(s), &top); err != nil {
		return nil, &ParseError{Kind: ParseInvalidJSON, Err: err}
	}
	arr, ok := top.([]any)
	if !ok {
		return nil, &ParseError{Kind: ParseNotAList, Err: fmt.Errorf("decoded %T, want array", top)}
	}
	if len(arr) == 0 {
		return nil, &ParseError{Kind: ParseNotAList, Err: errors.New("empty question list")}
	}

	var items []generatedQuestion
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, &ParseError{Kind: ParseInvalidJSON, Err: err}
	}

	questions := make([]model.Question, 0, len(items))
	for i, it := range items {
		switch {
		case it.Question == nil || strings.TrimSpace(*it.Question) == "":
			return nil, &ParseError{Kind: ParseMissingField, Index: i, Field: "question"}
		case it.Type == nil || strings.TrimSpace(*it.Type) == "":
			return nil, &ParseError{Kind: ParseMissingField, Index: i, Field: "type"}
		case it.CorrectAnswer == nil || strings.TrimSpace(*it.CorrectAnswer) == "":
			return nil, &ParseError{Kind: ParseMissingField, Index: i, Field: "correct_answer"}
		}

		q := model.Question{
			Text:          *it.Question,
			Kind:          model.QuestionKind(*it.Type),
			Options:       it.Options,
			CorrectAnswer: *it.CorrectAnswer,
			Points:        it.Points,
		}
		if q.Points <= 0 {
			q.Points = 1
		}
		if !q.Kind.HasOptions() {
			q.Options = nil
		}

		if strict && q.Kind.HasOptions() {
			if len(q.Options) < 2 {
				return nil, &ParseError{Kind: ParseMissingField, Index: i, Field: "options"}
			}
			if !containsOption(q.Options, q.CorrectAnswer) {
				return nil, &ParseError{Kind: ParseMissingField, Index: i, Field: "correct_answer"}
			}
		}

		questions = append(questions, q)
	}

	return questions, nil
}

func containsOption(options []string, answer string) bool {
	for _, o := range options {
		if o == answer {
			return true
		}
	}
	return false
}

// aiReport is the raw decoded grading report. Absent fields keep their
// zero values and are defaulted after decoding: partial output that is
// otherwise usable is not thrown away.
type aiReport struct {
	OverallScorePercent float64                `json:"overall_score_percent"`
	PointsEarned        float64                `json:"points_earned"`
	PointsPossible      float64                `json:"points_possible"`
	CorrectCount        int                    `json:"correct_count"`
	PerQuestion         []model.QuestionResult `json:"per_question"`
	GeneralFeedback     string                 `json:"general_feedback"`
	Strengths           []string               `json:"strengths"`
	AreasForImprovement []string               `json:"areas_for_improvement"`
}

// ParseGradingReport decodes generated text as a grading report. Any
// decode failure signals the caller to grade locally instead; it is
// never a hard error for the overall correction flow.
func ParseGradingReport(ctx context.Context, raw string) (model.GradingReport, error) {
	s := stripFences(raw)

	var rep aiReport
	if err := json.Unmarshal([]byte(s), &rep); err != nil {
		return model.GradingReport{}, &ParseError{Kind: ParseInvalidJSON, Err: err}
	}

	if rep.GeneralFeedback == "" {
		rep.GeneralFeedback = i18n.T(ctx, "FeedbackGraded")
	}
	if rep.PerQuestion == nil {
		rep.PerQuestion = []model.QuestionResult{}
	}
	if rep.Strengths == nil {
		rep.Strengths = []string{}
	}
	if rep.AreasForImprovement == nil {
		rep.AreasForImprovement = []string{}
	}

	return model.GradingReport{
		OverallScorePercent: rep.OverallScorePercent,
		PointsEarned:        rep.PointsEarned,
		PointsPossible:      rep.PointsPossible,
		CorrectCount:        rep.CorrectCount,
		PerQuestion:         rep.PerQuestion,
		GeneralFeedback:     rep.GeneralFeedback,
		Strengths:           rep.Strengths,
		AreasForImprovement: rep.AreasForImprovement,
		GradedBy:            model.GradedByAI,
	}, nil
}
