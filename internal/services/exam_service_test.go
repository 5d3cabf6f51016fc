package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examprep/internal/models"
	"examprep/internal/observability"
	contextutils "examprep/internal/utils"
)

// mockUpstream records calls and returns a canned response.
type mockUpstream struct {
	calls    int
	lastKind models.TaskKind
	response string
	err      error
}

func (m *mockUpstream) Generate(_ context.Context, kind models.TaskKind, _ string) (string, error) {
	m.calls++
	m.lastKind = kind
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockUpstream) Probe(_ context.Context) error {
	return m.err
}

func newTestExamService(t *testing.T, upstream UpstreamClientInterface) *ExamService {
	t.Helper()
	prompts, err := NewPromptManager()
	require.NoError(t, err)
	return NewExamService(upstream, prompts, observability.NewLogger(nil))
}

func TestExamService_GenerateQuestion_Success(t *testing.T) {
	upstream := &mockUpstream{response: "Of course! " + validQuestionJSON}
	svc := newTestExamService(t, upstream)

	result, err := svc.GenerateQuestion(context.Background(), models.QuestionGenRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, upstream.calls)
	assert.Equal(t, models.TaskQuestion, upstream.lastKind)
	assert.Equal(t, "A", result.Record.CorrectAnswer)
	assert.False(t, result.GeneratedAt.IsZero())
}

func TestExamService_GenerateQuestion_ExtractionFailure(t *testing.T) {
	upstream := &mockUpstream{response: "I cannot produce a question right now."}
	svc := newTestExamService(t, upstream)

	_, err := svc.GenerateQuestion(context.Background(), models.QuestionGenRequest{})
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrNoPayloadFound))
	assert.Equal(t, 1, upstream.calls, "extraction failure must not trigger a retry")
}

func TestExamService_SolveDoubt_MissingQuestion(t *testing.T) {
	upstream := &mockUpstream{response: "unused"}
	svc := newTestExamService(t, upstream)

	_, err := svc.SolveDoubt(context.Background(), models.DoubtRequest{Subject: "Physics"})
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrMissingRequired))
	assert.Equal(t, 0, upstream.calls, "missing question must not reach the upstream")
}

func TestExamService_SolveDoubt_Success(t *testing.T) {
	upstream := &mockUpstream{response: "Step 1: apply Newton's second law.\nFinal answer: 10 N."}
	svc := newTestExamService(t, upstream)

	result, err := svc.SolveDoubt(context.Background(), models.DoubtRequest{Question: "Find the force."})
	require.NoError(t, err)
	assert.Equal(t, models.TaskDoubt, upstream.lastKind)
	assert.Equal(t, "Find the force.", result.Question)
	assert.Contains(t, result.Solution, "Newton")
	assert.False(t, result.SolvedAt.IsZero())
}

func TestExamService_GenerateTest_DerivedFields(t *testing.T) {
	// Five questions at 4 marks each. The model also reports nonsense
	// aggregate fields in its commentary; only the derived values count.
	payload := `Here are your questions, totalMarks is 999:
[
	{"id":1,"question":"Q1?","options":["a","b","c","d"],"correct":"A","marks":4,"negativeMarks":1,"explanation":"E"},
	{"id":2,"question":"Q2?","options":["a","b","c","d"],"correct":"B","marks":4,"negativeMarks":1,"explanation":"E"},
	{"id":3,"question":"Q3?","options":["a","b","c","d"],"correct":"C","marks":4,"negativeMarks":1,"explanation":"E"},
	{"id":4,"question":"Q4?","options":["a","b","c","d"],"correct":"D","marks":4,"negativeMarks":1,"explanation":"E"},
	{"id":5,"question":"Q5?","options":["a","b","c","d"],"correct":"A","marks":4,"negativeMarks":1,"explanation":"E"}
]`
	upstream := &mockUpstream{response: payload}
	svc := newTestExamService(t, upstream)

	result, err := svc.GenerateTest(context.Background(), models.TestGenRequest{})
	require.NoError(t, err)

	assert.Equal(t, "JEE Mains", result.Test.ExamType)
	assert.Equal(t, "Physics", result.Test.Subject)
	assert.Equal(t, 5, result.Test.TotalQuestions)
	assert.Equal(t, 20.0, result.Test.TotalMarks)
	assert.Equal(t, 7.5, result.Test.Duration)
}

func TestExamService_GenerateTest_MissingMarksDefaulted(t *testing.T) {
	payload := `[
	{"id":1,"question":"Q1?","options":["a","b","c","d"],"correct":"A","explanation":"E"},
	{"id":2,"question":"Q2?","options":["a","b","c","d"],"correct":"B","marks":2,"explanation":"E"}
]`
	upstream := &mockUpstream{response: payload}
	svc := newTestExamService(t, upstream)

	result, err := svc.GenerateTest(context.Background(), models.TestGenRequest{Count: 2})
	require.NoError(t, err)
	assert.Equal(t, 6.0, result.Test.TotalMarks, "missing marks default to 4")
	assert.Equal(t, 3.0, result.Test.Duration)
}

func TestExamService_ExplainConcept_Success(t *testing.T) {
	upstream := &mockUpstream{response: "Photosynthesis converts light energy into chemical energy."}
	svc := newTestExamService(t, upstream)

	result, err := svc.ExplainConcept(context.Background(), models.ConceptRequest{Concept: "Photosynthesis"})
	require.NoError(t, err)
	assert.Equal(t, models.TaskConcept, upstream.lastKind)
	assert.Equal(t, "Photosynthesis", result.Concept)
	assert.Contains(t, result.Explanation, "light energy")
	assert.False(t, result.ExplainedAt.IsZero())
}

func TestExamService_UpstreamErrorPropagates(t *testing.T) {
	upstream := &mockUpstream{err: contextutils.WrapError(contextutils.ErrUpstreamTimeout, "upstream call abandoned")}
	svc := newTestExamService(t, upstream)

	_, err := svc.GenerateQuestion(context.Background(), models.QuestionGenRequest{})
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrUpstreamTimeout))
}
