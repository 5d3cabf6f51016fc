package services

import (
	"fmt"
	"math/rand"

	"github.com/go-playground/validator/v10"

	"examprep/internal/models"
)

// FallbackService serves hand-authored questions when the upstream is
// unreachable. The pool is validated against the same invariants as
// generated records at construction time, so a bad literal fails fast at
// startup instead of surfacing to a client mid-outage.
type FallbackService struct {
	pool []models.QuestionRecord
}

// NewFallbackService builds the fallback pool. Panics if any pool entry
// violates the question record invariants.
func NewFallbackService() *FallbackService {
	pool := []models.QuestionRecord{
		{
			Question:      "What is the value of ∫(x²)dx from 0 to 1?",
			Options:       []string{"1/3", "1/2", "2/3", "1"},
			CorrectAnswer: "A",
			Explanation:   "The integral of x² is (x³/3). Evaluating from 0 to 1 gives (1³/3) - (0³/3) = 1/3.",
			Topic:         "Calculus",
			Difficulty:    "medium",
			Subject:       "Mathematics",
			ExamType:      "JEE",
		},
		{
			Question:      "Ohm's Law states that:",
			Options:       []string{"V = IR", "I = VR", "R = VI", "V = I/R"},
			CorrectAnswer: "A",
			Explanation:   "Ohm's Law states that voltage (V) is equal to current (I) multiplied by resistance (R).",
			Topic:         "Electricity",
			Difficulty:    "easy",
			Subject:       "Physics",
			ExamType:      "NEET",
		},
		{
			Question:      "Who is known as the Father of Indian Constitution?",
			Options:       []string{"Mahatma Gandhi", "Jawaharlal Nehru", "B.R. Ambedkar", "Sardar Patel"},
			CorrectAnswer: "C",
			Explanation:   "Dr. B.R. Ambedkar was the chairman of the drafting committee of the Indian Constitution.",
			Topic:         "Indian Polity",
			Difficulty:    "easy",
			Subject:       "General Knowledge",
			ExamType:      "UPSC",
		},
	}

	validate := validator.New()
	for i, record := range pool {
		if err := validate.Struct(record); err != nil {
			panic(fmt.Sprintf("fallback question %d failed struct validation: %v", i, err))
		}
		if err := record.Validate(); err != nil {
			panic(fmt.Sprintf("fallback question %d invalid: %v", i, err))
		}
	}

	return &FallbackService{pool: pool}
}

// Sample returns one question chosen uniformly at random from the pool.
func (f *FallbackService) Sample() models.QuestionRecord {
	return f.pool[rand.Intn(len(f.pool))]
}

// Questions returns a copy of the full pool.
func (f *FallbackService) Questions() []models.QuestionRecord {
	out := make([]models.QuestionRecord, len(f.pool))
	copy(out, f.pool)
	return out
}
