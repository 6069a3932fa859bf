package assess

import (
	"fmt"
	"strings"

	"github.com/quizforge/quizforge/internal/model"
)

// noAnswerSentinel is what the correction prompt shows for a question
// the student left blank.
const noAnswerSentinel = "No answer provided"

// BuildGenerationPrompt renders a generation request into a single
// instruction string. Pure: identical input yields a byte-identical
// prompt.
func BuildGenerationPrompt(req model.GenerationRequest) string {
	kinds := make([]string, len(req.Kinds))
	for i, k := range req.Kinds {
		kinds[i] = string(k)
	}

	var sb strings.Builder
	sb.WriteString("You are an expert quiz author.\n\n")
	sb.WriteString(fmt.Sprintf("Create exactly %d quiz questions for the subject %q on the topic %q.\n",
		req.NumQuestions, req.Subject, req.Topic))
	sb.WriteString(fmt.Sprintf("Difficulty: %s.\n", req.Difficulty))
	sb.WriteString("Allowed question types: " + strings.Join(kinds, ", ") + ".\n\n")

	sb.WriteString("Return a JSON array where each element has exactly these fields:\n")
	sb.WriteString(`[
  {
    "question": "<question text>",
    "type": "<multiple_choice|true_false|short_answer>",
    "options": ["<option 1>", "<option 2>", "..."],
    "correct_answer": "<the correct answer>",
    "points": <point value, a positive number>
  }
]`)
	sb.WriteString("\n\nHard constraints:\n")
	sb.WriteString("- Return ONLY the JSON array. No prose, no explanations, no markdown code fences.\n")
	sb.WriteString("- multiple_choice questions must have exactly 4 options.\n")
	sb.WriteString(`- true_false questions must have exactly the options ["True","False"].` + "\n")
	sb.WriteString("- short_answer questions must omit the options field.\n")
	sb.WriteString("- correct_answer must match one of the options verbatim when options are present.\n")

	return sb.String()
}

// BuildCorrectionPrompt renders the questions and the student's answers
// into a grading instruction, including the expected report schema.
// Pure and deterministic, like BuildGenerationPrompt.
func BuildCorrectionPrompt(questions []model.Question, answers []model.StudentAnswer) string {
	var sb strings.Builder
	sb.WriteString("You are an experienced teacher grading a student's quiz. ")
	sb.WriteString("Grade each answer against the answer key below.\n\n")

	for i, q := range questions {
		sb.WriteString(fmt.Sprintf("Question %d: %s\n", i+1, q.Text))
		sb.WriteString("Type: " + string(q.Kind) + "\n")
		if len(q.Options) > 0 {
			sb.WriteString("Options: " + strings.Join(q.Options, " | ") + "\n")
		}
		sb.WriteString("Correct answer: " + q.CorrectAnswer + "\n")
		sb.WriteString("Student answer: " + studentAnswerFor(answers, i) + "\n")
		sb.WriteString(fmt.Sprintf("Points: %g\n\n", q.Points))
	}

	sb.WriteString("For short_answer questions accept paraphrases that convey the same meaning; ")
	sb.WriteString("for the other types require the correct option.\n\n")

	sb.WriteString("Return a JSON object with exactly these fields:\n")
	sb.WriteString(`{
  "overall_score_percent": <number 0-100>,
  "points_earned": <number>,
  "points_possible": <number>,
  "correct_count": <integer>,
  "per_question": [
    {
      "question_number": <1-based integer>,
      "is_correct": <true|false>,
      "points_earned": <number>,
      "correct_answer": "<the correct answer>",
      "student_answer": "<the student's answer>",
      "explanation": "<why the answer is right or wrong>",
      "improvement_tip": "<short study tip>"
    }
  ],
  "general_feedback": "<overall feedback for the student>",
  "strengths": ["<strength>", "..."],
  "areas_for_improvement": ["<area>", "..."]
}`)
	sb.WriteString("\n\nper_question must have one entry per question, in order.\n")
	sb.WriteString("Return ONLY the JSON object. No prose, no markdown code fences.\n")

	return sb.String()
}

// studentAnswerFor returns the answer text for the 0-based question
// index, or the no-answer sentinel when absent or blank.
func studentAnswerFor(answers []model.StudentAnswer, index int) string {
	for _, a := range answers {
		if a.QuestionIndex == index {
			if strings.TrimSpace(a.AnswerText) == "" {
				return noAnswerSentinel
			}
			return a.AnswerText
		}
	}
	return noAnswerSentinel
}
