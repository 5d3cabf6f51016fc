// Package models defines data structures used throughout the exam prep backend.
package models

import (
	"fmt"
	"time"
)

// TaskKind identifies one of the generation pipelines.
type TaskKind string

// Generation task kinds
const (
	TaskQuestion TaskKind = "question"
	TaskDoubt    TaskKind = "doubt"
	TaskTest     TaskKind = "test"
	TaskConcept  TaskKind = "concept"
)

// ValidAnswerKeys lists the accepted answer identifiers for multiple-choice records.
var ValidAnswerKeys = []string{"A", "B", "C", "D"}

// QuestionRecord represents a single multiple-choice practice question.
type QuestionRecord struct {
	Question      string   `json:"question" yaml:"question" validate:"required"`
	Options       []string `json:"options" yaml:"options" validate:"required,len=4,dive,required"`
	CorrectAnswer string   `json:"correctAnswer" yaml:"correct_answer" validate:"required,oneof=A B C D"`
	Explanation   string   `json:"explanation" yaml:"explanation" validate:"required"`
	Topic         string   `json:"topic" yaml:"topic"`
	Difficulty    string   `json:"difficulty" yaml:"difficulty"`
	Subject       string   `json:"subject" yaml:"subject"`
	ExamType      string   `json:"examType" yaml:"exam_type"`
}

// Validate checks the structural invariants of a question record.
func (q *QuestionRecord) Validate() error {
	if q.Question == "" {
		return fmt.Errorf("question text is empty")
	}
	if len(q.Options) != 4 {
		return fmt.Errorf("expected 4 options, got %d", len(q.Options))
	}
	for i, opt := range q.Options {
		if opt == "" {
			return fmt.Errorf("option %d is empty", i)
		}
	}
	if !isValidAnswerKey(q.CorrectAnswer) {
		return fmt.Errorf("correctAnswer %q is not one of A, B, C, D", q.CorrectAnswer)
	}
	if q.Explanation == "" {
		return fmt.Errorf("explanation is empty")
	}
	return nil
}

// TestQuestionRecord represents one question inside a generated mock test.
type TestQuestionRecord struct {
	ID            int      `json:"id" yaml:"id"`
	Question      string   `json:"question" yaml:"question"`
	Options       []string `json:"options" yaml:"options"`
	Correct       string   `json:"correct" yaml:"correct"`
	Marks         float64  `json:"marks" yaml:"marks"`
	NegativeMarks float64  `json:"negativeMarks" yaml:"negative_marks"`
	Explanation   string   `json:"explanation" yaml:"explanation"`
}

// Validate checks the structural invariants of a test question record.
func (t *TestQuestionRecord) Validate() error {
	if t.ID <= 0 {
		return fmt.Errorf("id must be a positive integer, got %d", t.ID)
	}
	if t.Question == "" {
		return fmt.Errorf("question text is empty")
	}
	if len(t.Options) != 4 {
		return fmt.Errorf("expected 4 options, got %d", len(t.Options))
	}
	for i, opt := range t.Options {
		if opt == "" {
			return fmt.Errorf("option %d is empty", i)
		}
	}
	if !isValidAnswerKey(t.Correct) {
		return fmt.Errorf("correct %q is not one of A, B, C, D", t.Correct)
	}
	if t.Marks <= 0 {
		return fmt.Errorf("marks must be positive, got %v", t.Marks)
	}
	if t.NegativeMarks < 0 {
		return fmt.Errorf("negativeMarks must be non-negative, got %v", t.NegativeMarks)
	}
	return nil
}

// GeneratedTest represents a complete mock test with derived scoring fields.
// TotalMarks and Duration are computed server-side from the question list and
// never taken from model output.
type GeneratedTest struct {
	ExamType       string               `json:"examType" yaml:"exam_type"`
	Subject        string               `json:"subject" yaml:"subject"`
	TotalQuestions int                  `json:"totalQuestions" yaml:"total_questions"`
	TotalMarks     float64              `json:"totalMarks" yaml:"total_marks"`
	Duration       float64              `json:"duration" yaml:"duration"`
	Questions      []TestQuestionRecord `json:"questions" yaml:"questions"`
}

// QuestionGenRequest is the request body for question generation.
type QuestionGenRequest struct {
	ExamType   string `json:"examType"`
	Subject    string `json:"subject"`
	Difficulty string `json:"difficulty"`
	Topic      string `json:"topic"`
}

// DoubtRequest is the request body for doubt solving.
type DoubtRequest struct {
	Question     string `json:"question"`
	Subject      string `json:"subject"`
	StudentGrade string `json:"studentGrade"`
}

// TestGenRequest is the request body for mock test generation.
type TestGenRequest struct {
	ExamType string `json:"examType"`
	Subject  string `json:"subject"`
	Count    int    `json:"count"`
}

// ConceptRequest is the request body for concept explanation.
type ConceptRequest struct {
	Concept string `json:"concept"`
	Subject string `json:"subject"`
	Level   string `json:"level"`
}

// QuestionResult is a successful question generation with its server timestamp.
type QuestionResult struct {
	Record      QuestionRecord
	GeneratedAt time.Time
}

// DoubtResult is a successful doubt solution with its server timestamp.
type DoubtResult struct {
	Question string
	Solution string
	SolvedAt time.Time
}

// TestResult is a successful test generation with its server timestamp.
type TestResult struct {
	Test        GeneratedTest
	GeneratedAt time.Time
}

// ConceptResult is a successful concept explanation with its server timestamp.
type ConceptResult struct {
	Concept     string
	Explanation string
	ExplainedAt time.Time
}

// GenerationRecord is a persisted row describing one generation attempt.
type GenerationRecord struct {
	ID        int       `json:"id"`
	TaskKind  string    `json:"task_kind"`
	ClientIP  string    `json:"client_ip"`
	Succeeded bool      `json:"succeeded"`
	ErrorCode string    `json:"error_code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func isValidAnswerKey(key string) bool {
	for _, k := range ValidAnswerKeys {
		if key == k {
			return true
		}
	}
	return false
}
