// Package store persists generated quizzes and grading reports in
// SQLite. Question lists and reports are stored as JSON columns; the
// pipeline itself never reads them back mid-flight.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quizforge/quizforge/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS quizzes (
		id TEXT PRIMARY KEY,
		subject TEXT NOT NULL,
		topic TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		questions TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		quiz_id TEXT NOT NULL,
		answers TEXT NOT NULL,
		graded_by TEXT NOT NULL,
		report TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (quiz_id) REFERENCES quizzes(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveQuiz stores a quiz, assigning an ID and timestamp if unset, and
// returns the stored value.
func (s *Store) SaveQuiz(q model.Quiz) (model.Quiz, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}

	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return model.Quiz{}, fmt.Errorf("marshal questions: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO quizzes (id, subject, topic, difficulty, questions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		q.ID, q.Subject, q.Topic, q.Difficulty, string(questions), q.CreatedAt,
	)
	if err != nil {
		return model.Quiz{}, err
	}
	return q, nil
}

// GetQuiz retrieves a quiz by ID. Returns sql.ErrNoRows when absent.
func (s *Store) GetQuiz(id string) (model.Quiz, error) {
	var q model.Quiz
	var questions string
	err := s.db.QueryRow(
		`SELECT id, subject, topic, difficulty, questions, created_at FROM quizzes WHERE id = ?`, id,
	).Scan(&q.ID, &q.Subject, &q.Topic, &q.Difficulty, &questions, &q.CreatedAt)
	if err != nil {
		return model.Quiz{}, err
	}
	if err := json.Unmarshal([]byte(questions), &q.Questions); err != nil {
		return model.Quiz{}, fmt.Errorf("unmarshal questions for quiz %s: %w", id, err)
	}
	return q, nil
}

// ListQuizzes returns all quizzes, newest first, without their question
// payloads.
func (s *Store) ListQuizzes() ([]model.Quiz, error) {
	rows, err := s.db.Query(
		`SELECT id, subject, topic, difficulty, created_at FROM quizzes ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quizzes []model.Quiz
	for rows.Next() {
		var q model.Quiz
		if err := rows.Scan(&q.ID, &q.Subject, &q.Topic, &q.Difficulty, &q.CreatedAt); err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

// SaveSubmission stores a graded submission, assigning an ID and
// timestamp if unset, and returns the stored value.
func (s *Store) SaveSubmission(sub model.Submission) (model.Submission, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}

	answers, err := json.Marshal(sub.Answers)
	if err != nil {
		return model.Submission{}, fmt.Errorf("marshal answers: %w", err)
	}
	report, err := json.Marshal(sub.Report)
	if err != nil {
		return model.Submission{}, fmt.Errorf("marshal report: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO submissions (id, quiz_id, answers, graded_by, report, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.QuizID, string(answers), sub.Report.GradedBy, string(report), sub.CreatedAt,
	)
	if err != nil {
		return model.Submission{}, err
	}
	return sub, nil
}

// GetSubmission retrieves a graded submission by ID. Returns
// sql.ErrNoRows when absent.
func (s *Store) GetSubmission(id string) (model.Submission, error) {
	var sub model.Submission
	var answers, report string
	var gradedBy string
	err := s.db.QueryRow(
		`SELECT id, quiz_id, answers, graded_by, report, created_at FROM submissions WHERE id = ?`, id,
	).Scan(&sub.ID, &sub.QuizID, &answers, &gradedBy, &report, &sub.CreatedAt)
	if err != nil {
		return model.Submission{}, err
	}
	if err := json.Unmarshal([]byte(answers), &sub.Answers); err != nil {
		return model.Submission{}, fmt.Errorf("unmarshal answers for submission %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(report), &sub.Report); err != nil {
		return model.Submission{}, fmt.Errorf("unmarshal report for submission %s: %w", id, err)
	}
	return sub, nil
}

// ListSubmissions returns all submissions for a quiz, newest first.
func (s *Store) ListSubmissions(quizID string) ([]model.Submission, error) {
	rows, err := s.db.Query(
		`SELECT id FROM submissions WHERE quiz_id = ? ORDER BY created_at DESC`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	subs := make([]model.Submission, 0, len(ids))
	for _, id := range ids {
		sub, err := s.GetSubmission(id)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}
