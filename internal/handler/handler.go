// Package handler exposes the assessment pipeline as a small JSON API.
// Courses, users, and authentication live elsewhere; this is only the
// generate/grade boundary.
package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quizforge/quizforge/internal/assess"
	"github.com/quizforge/quizforge/internal/model"
	"github.com/quizforge/quizforge/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store *store.Store
	svc   *assess.Service
}

// New creates a new Handler.
func New(s *store.Store, svc *assess.Service) *Handler {
	return &Handler{store: s, svc: svc}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/quizzes", h.handleGenerate)
	r.Get("/api/quizzes", h.handleListQuizzes)
	r.Get("/api/quizzes/{quizID}", h.handleGetQuiz)
	r.Post("/api/quizzes/{quizID}/grade", h.handleGrade)
	r.Get("/api/submissions/{submissionID}", h.handleGetSubmission)
	r.Get("/api/quizzes/{quizID}/submissions", h.handleListSubmissions)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req model.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	questions, err := h.svc.Generate(r.Context(), req)
	if err != nil {
		slog.Error("quiz generation failed", "subject", req.Subject, "topic", req.Topic, "error", err)
		// Generation has no fallback; the caller is told to retry.
		writeError(w, http.StatusBadGateway, "could not generate quiz, try again")
		return
	}

	quiz, err := h.store.SaveQuiz(model.Quiz{
		Subject:    req.Subject,
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
		Questions:  questions,
	})
	if err != nil {
		slog.Error("save quiz failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not save quiz")
		return
	}

	writeJSON(w, http.StatusCreated, quiz)
}

func (h *Handler) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.store.ListQuizzes()
	if err != nil {
		slog.Error("list quizzes failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list quizzes")
		return
	}
	if quizzes == nil {
		quizzes = []model.Quiz{}
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.store.GetQuiz(chi.URLParam(r, "quizID"))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "quiz not found")
		return
	}
	if err != nil {
		slog.Error("get quiz failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load quiz")
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

type gradeRequest struct {
	Answers []model.StudentAnswer `json:"answers"`
}

func (h *Handler) handleGrade(w http.ResponseWriter, r *http.Request) {
	quizID := chi.URLParam(r, "quizID")
	quiz, err := h.store.GetQuiz(quizID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "quiz not found")
		return
	}
	if err != nil {
		slog.Error("get quiz failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load quiz")
		return
	}

	var req gradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Grading always produces a report; only graded_by says whether the
	// AI or the local engine produced it.
	report := h.svc.Grade(r.Context(), quiz.Questions, req.Answers)

	sub, err := h.store.SaveSubmission(model.Submission{
		QuizID:  quizID,
		Answers: req.Answers,
		Report:  report,
	})
	if err != nil {
		slog.Error("save submission failed", "quiz_id", quizID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not save submission")
		return
	}

	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := h.store.GetSubmission(chi.URLParam(r, "submissionID"))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "submission not found")
		return
	}
	if err != nil {
		slog.Error("get submission failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load submission")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.store.ListSubmissions(chi.URLParam(r, "quizID"))
	if err != nil {
		slog.Error("list submissions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list submissions")
		return
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
