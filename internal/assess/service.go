// Package assess implements the AI-assisted assessment pipeline: prompt
// construction, parsing and validation of generated text, a local
// fallback grader, and the orchestrator tying them to the gateway.
package assess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quizforge/quizforge/internal/llm"
	"github.com/quizforge/quizforge/internal/model"
)

// TextGenerator is the outbound capability the pipeline needs: one
// prompt in, generated text or an error out.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, opts llm.CallOptions) (string, error)
}

// Service orchestrates quiz generation and grading.
type Service struct {
	llm    TextGenerator
	strict bool
}

// NewService creates the orchestrator. With strictValidation set, the
// generation validator also checks option lists for choice questions.
func NewService(client TextGenerator, strictValidation bool) *Service {
	return &Service{llm: client, strict: strictValidation}
}

// Generate builds a quiz from the request. There is no fallback for
// generation: fabricated questions without a vetted answer key would be
// worse than failing loudly, so any gateway or parse failure is
// returned to the caller as a typed error.
func (s *Service) Generate(ctx context.Context, req model.GenerationRequest) ([]model.Question, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	prompt := BuildGenerationPrompt(req)
	raw, err := s.llm.GenerateText(ctx, prompt, llm.GenerationOptions())
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}

	var questions []model.Question
	if s.strict {
		questions, err = ParseGeneratedQuestionsStrict(raw)
	} else {
		questions, err = ParseGeneratedQuestions(raw)
	}
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}

	if len(questions) != req.NumQuestions {
		slog.Warn("generated question count differs from request",
			"want", req.NumQuestions, "got", len(questions))
	}
	return questions, nil
}

// Grade grades a submission. It never fails from the caller's point of
// view: if anything in the AI path goes wrong the local engine grades
// instead, and only GradedBy tells the two apart.
func (s *Service) Grade(ctx context.Context, questions []model.Question, answers []model.StudentAnswer) model.GradingReport {
	report, ok := s.gradeWithAI(ctx, questions, answers)
	if !ok {
		report = GradeLocally(ctx, questions, answers)
	}
	report.GradedAt = time.Now().UTC()
	return report
}

// gradeWithAI runs the AI grading path. Any failure, including a panic,
// reports ok=false so the caller degrades to the local engine.
func (s *Service) gradeWithAI(ctx context.Context, questions []model.Question, answers []model.StudentAnswer) (report model.GradingReport, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in AI grading path, using local grader", "panic", r)
			ok = false
		}
	}()

	prompt := BuildCorrectionPrompt(questions, answers)
	raw, err := s.llm.GenerateText(ctx, prompt, llm.CorrectionOptions())
	if err != nil {
		slog.Warn("AI grading call failed, using local grader", "error", err)
		return model.GradingReport{}, false
	}

	report, err = ParseGradingReport(ctx, raw)
	if err != nil {
		slog.Warn("AI grading response unusable, using local grader", "error", err)
		return model.GradingReport{}, false
	}
	return report, true
}

func validateRequest(req model.GenerationRequest) error {
	if req.NumQuestions <= 0 {
		return errors.New("num_questions must be positive")
	}
	if len(req.Kinds) == 0 {
		return errors.New("at least one question kind is required")
	}
	for _, k := range req.Kinds {
		if !k.IsValid() {
			return fmt.Errorf("unknown question kind %q", k)
		}
	}
	switch req.Difficulty {
	case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
	default:
		return fmt.Errorf("unknown difficulty %q", req.Difficulty)
	}
	return nil
}
