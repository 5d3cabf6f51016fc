// Package services provides embedded templates for upstream prompts
package services

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"examprep/internal/config"
	"examprep/internal/models"
)

//go:embed templates/*.tmpl
var promptTemplatesFS embed.FS

// Template names as constants
const (
	QuestionPromptTemplate = "question_prompt.tmpl"
	DoubtPromptTemplate    = "doubt_prompt.tmpl"
	TestPromptTemplate     = "test_prompt.tmpl"
	ConceptPromptTemplate  = "concept_prompt.tmpl"
)

// Per-task defaults applied when the caller omits a field.
const (
	DefaultQuestionExamType   = "JEE"
	DefaultQuestionSubject    = "Mathematics"
	DefaultQuestionDifficulty = "medium"
	DefaultQuestionTopic      = "Algebra"

	DefaultDoubtSubject = "General"
	DefaultDoubtGrade   = "12th"

	DefaultTestExamType = "JEE Mains"
	DefaultTestSubject  = "Physics"

	DefaultConceptSubject = "Science"
	DefaultConceptLevel   = "Intermediate"
)

// PromptData holds data for rendering prompt templates
type PromptData struct {
	// Question generation
	ExamType   string
	Subject    string
	Difficulty string
	Topic      string

	// Doubt solving
	Question     string
	StudentGrade string

	// Test generation
	Count int

	// Concept explanation
	Concept string
	Level   string
}

// PromptManager manages prompt templates
type PromptManager struct {
	templates *template.Template
}

// NewPromptManager creates a new template manager
func NewPromptManager() (*PromptManager, error) {
	templates, err := template.New("").ParseFS(promptTemplatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	return &PromptManager{templates: templates}, nil
}

// RenderTemplate renders a template with the given data
func (pm *PromptManager) RenderTemplate(templateName string, data PromptData) (string, error) {
	var buf strings.Builder
	if err := pm.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildQuestionPrompt builds the question-generation prompt, filling in
// defaults for any omitted field.
func (pm *PromptManager) BuildQuestionPrompt(req models.QuestionGenRequest) (string, error) {
	data := PromptData{
		ExamType:   valueOr(req.ExamType, DefaultQuestionExamType),
		Subject:    valueOr(req.Subject, DefaultQuestionSubject),
		Difficulty: valueOr(req.Difficulty, DefaultQuestionDifficulty),
		Topic:      valueOr(req.Topic, DefaultQuestionTopic),
	}
	return pm.RenderTemplate(QuestionPromptTemplate, data)
}

// BuildDoubtPrompt builds the doubt-solving prompt. The question text is the
// caller's responsibility to validate; this only fills defaults.
func (pm *PromptManager) BuildDoubtPrompt(req models.DoubtRequest) (string, error) {
	data := PromptData{
		Question:     req.Question,
		Subject:      valueOr(req.Subject, DefaultDoubtSubject),
		StudentGrade: valueOr(req.StudentGrade, DefaultDoubtGrade),
	}
	return pm.RenderTemplate(DoubtPromptTemplate, data)
}

// BuildTestPrompt builds the mock-test prompt.
func (pm *PromptManager) BuildTestPrompt(req models.TestGenRequest) (string, error) {
	count := req.Count
	if count <= 0 {
		count = config.DefaultTestQuestionCount
	}
	data := PromptData{
		ExamType: valueOr(req.ExamType, DefaultTestExamType),
		Subject:  valueOr(req.Subject, DefaultTestSubject),
		Count:    count,
	}
	return pm.RenderTemplate(TestPromptTemplate, data)
}

// BuildConceptPrompt builds the concept-explanation prompt.
func (pm *PromptManager) BuildConceptPrompt(req models.ConceptRequest) (string, error) {
	data := PromptData{
		Concept: req.Concept,
		Subject: valueOr(req.Subject, DefaultConceptSubject),
		Level:   valueOr(req.Level, DefaultConceptLevel),
	}
	return pm.RenderTemplate(ConceptPromptTemplate, data)
}

// BuildPrompt dispatches to the task-specific builder.
func (pm *PromptManager) BuildPrompt(kind models.TaskKind, data PromptData) (string, error) {
	switch kind {
	case models.TaskQuestion:
		return pm.RenderTemplate(QuestionPromptTemplate, data)
	case models.TaskDoubt:
		return pm.RenderTemplate(DoubtPromptTemplate, data)
	case models.TaskTest:
		return pm.RenderTemplate(TestPromptTemplate, data)
	case models.TaskConcept:
		return pm.RenderTemplate(ConceptPromptTemplate, data)
	default:
		return "", fmt.Errorf("unknown task kind: %s", kind)
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
