package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validQuestion() QuestionRecord {
	return QuestionRecord{
		Question:      "What is the derivative of x^2?",
		Options:       []string{"2x", "x", "x^2", "2"},
		CorrectAnswer: "A",
		Explanation:   "Apply the power rule: d/dx x^n = n*x^(n-1).",
		Topic:         "Calculus",
		Difficulty:    "easy",
		Subject:       "Mathematics",
		ExamType:      "JEE",
	}
}

func TestQuestionRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*QuestionRecord)
		wantErr string
	}{
		{
			name:   "valid record",
			mutate: func(_ *QuestionRecord) {},
		},
		{
			name:    "empty question",
			mutate:  func(q *QuestionRecord) { q.Question = "" },
			wantErr: "question text is empty",
		},
		{
			name:    "two options",
			mutate:  func(q *QuestionRecord) { q.Options = []string{"a", "b"} },
			wantErr: "expected 4 options, got 2",
		},
		{
			name:    "five options",
			mutate:  func(q *QuestionRecord) { q.Options = append(q.Options, "extra") },
			wantErr: "expected 4 options, got 5",
		},
		{
			name:    "blank option",
			mutate:  func(q *QuestionRecord) { q.Options[2] = "" },
			wantErr: "option 2 is empty",
		},
		{
			name:    "lowercase answer key",
			mutate:  func(q *QuestionRecord) { q.CorrectAnswer = "a" },
			wantErr: "not one of A, B, C, D",
		},
		{
			name:    "answer key out of range",
			mutate:  func(q *QuestionRecord) { q.CorrectAnswer = "E" },
			wantErr: "not one of A, B, C, D",
		},
		{
			name:    "missing explanation",
			mutate:  func(q *QuestionRecord) { q.Explanation = "" },
			wantErr: "explanation is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuestion()
			tt.mutate(&q)
			err := q.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestTestQuestionRecord_Validate(t *testing.T) {
	valid := TestQuestionRecord{
		ID:            1,
		Question:      "A body moves with constant velocity. What is its acceleration?",
		Options:       []string{"Zero", "Constant non-zero", "Increasing", "Decreasing"},
		Correct:       "A",
		Marks:         4,
		NegativeMarks: 1,
		Explanation:   "Constant velocity means no change in velocity, so acceleration is zero.",
	}

	t.Run("valid record", func(t *testing.T) {
		q := valid
		assert.NoError(t, q.Validate())
	})

	t.Run("zero id", func(t *testing.T) {
		q := valid
		q.ID = 0
		err := q.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "positive integer")
	})

	t.Run("negative marks value", func(t *testing.T) {
		q := valid
		q.Marks = -2
		err := q.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "marks must be positive")
	})

	t.Run("negative negativeMarks", func(t *testing.T) {
		q := valid
		q.NegativeMarks = -1
		err := q.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-negative")
	})

	t.Run("wrong option count", func(t *testing.T) {
		q := valid
		q.Options = q.Options[:3]
		err := q.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected 4 options")
	})
}
