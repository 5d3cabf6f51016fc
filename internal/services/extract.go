package services

import (
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"examprep/internal/config"
	"examprep/internal/models"
	contextutils "examprep/internal/utils"
)

// JSON Schema definitions for validating extracted model output.
// Decoded payloads are checked against these before being promoted to typed
// records, so unvalidated model fields never travel further into the system.
const (
	// QuestionRecordSchema validates a single generated practice question.
	QuestionRecordSchema = `{
		"type": "object",
		"properties": {
			"question": {"type": "string", "minLength": 1},
			"options": {"type": "array", "items": {"type": "string", "minLength": 1}, "minItems": 4, "maxItems": 4},
			"correctAnswer": {"type": "string", "enum": ["A", "B", "C", "D"]},
			"explanation": {"type": "string", "minLength": 1},
			"topic": {"type": "string"},
			"difficulty": {"type": "string"},
			"subject": {"type": "string"},
			"examType": {"type": "string"}
		},
		"required": ["question", "options", "correctAnswer", "explanation"]
	}`

	// TestQuestionsSchema validates the array of mock-test questions.
	// marks and negativeMarks are optional here; missing values are
	// defaulted after decoding.
	TestQuestionsSchema = `{
		"type": "array",
		"minItems": 1,
		"items": {
			"type": "object",
			"properties": {
				"id": {"type": "integer", "minimum": 1},
				"question": {"type": "string", "minLength": 1},
				"options": {"type": "array", "items": {"type": "string", "minLength": 1}, "minItems": 4, "maxItems": 4},
				"correct": {"type": "string", "enum": ["A", "B", "C", "D"]},
				"marks": {"type": "number", "exclusiveMinimum": 0},
				"negativeMarks": {"type": "number", "minimum": 0},
				"explanation": {"type": "string"}
			},
			"required": ["id", "question", "options", "correct"]
		}
	}`
)

// PayloadShape selects the delimiter pair the extractor scans for.
type PayloadShape int

// Supported payload shapes
const (
	ShapeObject PayloadShape = iota
	ShapeArray
)

// ExtractPayload finds the outermost balanced bracket span of the expected
// shape inside rawText. The scan starts at the leftmost opening delimiter and
// walks to its matching close, ignoring delimiters inside quoted strings, so
// nested structures and braces embedded in explanation text are handled
// correctly. Anything before or after the span (prose, code fences, trailing
// commentary) is discarded.
func ExtractPayload(rawText string, shape PayloadShape) (string, error) {
	opener, closer := byte('{'), byte('}')
	if shape == ShapeArray {
		opener, closer = '[', ']'
	}

	start := strings.IndexByte(rawText, opener)
	if start < 0 {
		return "", contextutils.WrapErrorf(contextutils.ErrNoPayloadFound, "no %q found in model output", string(opener))
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(rawText); i++ {
		ch := rawText[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == opener:
			depth++
		case ch == closer:
			depth--
			if depth == 0 {
				return rawText[start : i+1], nil
			}
		}
	}

	return "", contextutils.WrapErrorf(contextutils.ErrNoPayloadFound, "model output has an unterminated %q span", string(opener))
}

// ExtractQuestion extracts and validates a question record from raw model
// output.
func ExtractQuestion(rawText string) (*models.QuestionRecord, error) {
	span, err := ExtractPayload(rawText, ShapeObject)
	if err != nil {
		return nil, err
	}

	if err := validateAgainstSchema(QuestionRecordSchema, span); err != nil {
		return nil, err
	}

	var record models.QuestionRecord
	if err := json.Unmarshal([]byte(span), &record); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrMalformedPayload, "failed to decode question payload: %v", err)
	}
	if err := record.Validate(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrSchemaViolation, "question payload invalid: %v", err)
	}
	return &record, nil
}

// provisional test question; marks fields are pointers so that missing
// values can be told apart from explicit zeros.
type rawTestQuestion struct {
	ID            int      `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	Correct       string   `json:"correct"`
	Marks         *float64 `json:"marks"`
	NegativeMarks *float64 `json:"negativeMarks"`
	Explanation   string   `json:"explanation"`
}

// ExtractTestQuestions extracts and validates the question array of a mock
// test from raw model output. Missing marks default to 4 and missing
// negativeMarks to 1. Question ids must be positive and unique.
func ExtractTestQuestions(rawText string) ([]models.TestQuestionRecord, error) {
	span, err := ExtractPayload(rawText, ShapeArray)
	if err != nil {
		return nil, err
	}

	if err := validateAgainstSchema(TestQuestionsSchema, span); err != nil {
		return nil, err
	}

	var raw []rawTestQuestion
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrMalformedPayload, "failed to decode test payload: %v", err)
	}

	seen := make(map[int]bool, len(raw))
	questions := make([]models.TestQuestionRecord, 0, len(raw))
	for _, rq := range raw {
		if seen[rq.ID] {
			return nil, contextutils.WrapErrorf(contextutils.ErrSchemaViolation, "duplicate question id %d", rq.ID)
		}
		seen[rq.ID] = true

		record := models.TestQuestionRecord{
			ID:            rq.ID,
			Question:      rq.Question,
			Options:       rq.Options,
			Correct:       rq.Correct,
			Marks:         config.DefaultQuestionMarks,
			NegativeMarks: config.DefaultNegativeMarks,
			Explanation:   rq.Explanation,
		}
		if rq.Marks != nil {
			record.Marks = *rq.Marks
		}
		if rq.NegativeMarks != nil {
			record.NegativeMarks = *rq.NegativeMarks
		}
		if err := record.Validate(); err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrSchemaViolation, "test question %d invalid: %v", rq.ID, err)
		}
		questions = append(questions, record)
	}
	return questions, nil
}

// ExtractText returns the raw completion trimmed of surrounding whitespace.
// Used by the free-text pipelines, which have no structural contract.
func ExtractText(rawText string) (string, error) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return "", contextutils.WrapError(contextutils.ErrNoPayloadFound, "model returned empty text")
	}
	return text, nil
}

func validateAgainstSchema(schema, document string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewStringLoader(document),
	)
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrMalformedPayload, "payload span did not parse: %v", err)
	}
	if !result.Valid() {
		var errorMessages []string
		for _, e := range result.Errors() {
			errorMessages = append(errorMessages, e.String())
		}
		return contextutils.WrapErrorf(contextutils.ErrSchemaViolation, "payload failed schema validation: %s", strings.Join(errorMessages, "; "))
	}
	return nil
}
