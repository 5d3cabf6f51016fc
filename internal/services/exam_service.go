package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"examprep/internal/config"
	"examprep/internal/models"
	"examprep/internal/observability"
	contextutils "examprep/internal/utils"
)

// ExamServiceInterface exposes the four generation pipelines.
type ExamServiceInterface interface {
	GenerateQuestion(ctx context.Context, req models.QuestionGenRequest) (*models.QuestionResult, error)
	SolveDoubt(ctx context.Context, req models.DoubtRequest) (*models.DoubtResult, error)
	GenerateTest(ctx context.Context, req models.TestGenRequest) (*models.TestResult, error)
	ExplainConcept(ctx context.Context, req models.ConceptRequest) (*models.ConceptResult, error)
}

// ExamService runs the generation pipelines: validate input, build the
// prompt, call upstream, extract and validate the payload, attach a server
// timestamp. Failures are returned to the caller, which applies fallback
// policy; no pipeline retries the upstream on its own.
type ExamService struct {
	upstream UpstreamClientInterface
	prompts  *PromptManager
	logger   *observability.Logger
}

// NewExamService creates the pipeline service.
func NewExamService(upstream UpstreamClientInterface, prompts *PromptManager, logger *observability.Logger) *ExamService {
	return &ExamService{
		upstream: upstream,
		prompts:  prompts,
		logger:   logger,
	}
}

// GenerateQuestion produces one practice question.
func (s *ExamService) GenerateQuestion(ctx context.Context, req models.QuestionGenRequest) (result0 *models.QuestionResult, err error) {
	ctx, span := observability.TraceExamFunction(ctx, "GenerateQuestion",
		observability.AttributeTaskKind(string(models.TaskQuestion)),
		observability.AttributeExamType(req.ExamType),
		observability.AttributeSubject(req.Subject),
	)
	defer observability.FinishSpan(span, &err)

	prompt, err := s.prompts.BuildQuestionPrompt(req)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to build question prompt")
	}

	raw, err := s.upstream.Generate(ctx, models.TaskQuestion, prompt)
	if err != nil {
		return nil, err
	}

	record, err := ExtractQuestion(raw)
	if err != nil {
		s.logger.Warn(ctx, "Question payload rejected", map[string]interface{}{
			"error":      err.Error(),
			"raw_length": len(raw),
		})
		return nil, err
	}

	return &models.QuestionResult{
		Record:      *record,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// SolveDoubt answers a student question with a free-text solution. The
// question text is required; a missing question returns immediately without
// any upstream call.
func (s *ExamService) SolveDoubt(ctx context.Context, req models.DoubtRequest) (result0 *models.DoubtResult, err error) {
	ctx, span := observability.TraceExamFunction(ctx, "SolveDoubt",
		observability.AttributeTaskKind(string(models.TaskDoubt)),
		observability.AttributeSubject(req.Subject),
	)
	defer observability.FinishSpan(span, &err)

	if req.Question == "" {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "Question is required")
	}

	prompt, err := s.prompts.BuildDoubtPrompt(req)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to build doubt prompt")
	}

	raw, err := s.upstream.Generate(ctx, models.TaskDoubt, prompt)
	if err != nil {
		return nil, err
	}

	solution, err := ExtractText(raw)
	if err != nil {
		return nil, err
	}

	return &models.DoubtResult{
		Question: req.Question,
		Solution: solution,
		SolvedAt: time.Now().UTC(),
	}, nil
}

// GenerateTest produces a mock test. TotalMarks and Duration are derived
// from the extracted question list, never taken from model output.
func (s *ExamService) GenerateTest(ctx context.Context, req models.TestGenRequest) (result0 *models.TestResult, err error) {
	ctx, span := observability.TraceExamFunction(ctx, "GenerateTest",
		observability.AttributeTaskKind(string(models.TaskTest)),
		observability.AttributeExamType(req.ExamType),
		observability.AttributeSubject(req.Subject),
		attribute.Int("test.requested_count", req.Count),
	)
	defer observability.FinishSpan(span, &err)

	examType := valueOr(req.ExamType, DefaultTestExamType)
	subject := valueOr(req.Subject, DefaultTestSubject)

	prompt, err := s.prompts.BuildTestPrompt(req)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to build test prompt")
	}

	raw, err := s.upstream.Generate(ctx, models.TaskTest, prompt)
	if err != nil {
		return nil, err
	}

	questions, err := ExtractTestQuestions(raw)
	if err != nil {
		s.logger.Warn(ctx, "Test payload rejected", map[string]interface{}{
			"error":      err.Error(),
			"raw_length": len(raw),
		})
		return nil, err
	}

	totalMarks := 0.0
	for _, q := range questions {
		totalMarks += q.Marks
	}

	test := models.GeneratedTest{
		ExamType:       examType,
		Subject:        subject,
		TotalQuestions: len(questions),
		TotalMarks:     totalMarks,
		Duration:       float64(len(questions)) * config.MinutesPerTestQuestion,
		Questions:      questions,
	}

	span.SetAttributes(
		attribute.Int("test.total_questions", test.TotalQuestions),
		attribute.Float64("test.total_marks", test.TotalMarks),
	)

	return &models.TestResult{
		Test:        test,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// ExplainConcept produces a free-text explanation of a concept.
func (s *ExamService) ExplainConcept(ctx context.Context, req models.ConceptRequest) (result0 *models.ConceptResult, err error) {
	ctx, span := observability.TraceExamFunction(ctx, "ExplainConcept",
		observability.AttributeTaskKind(string(models.TaskConcept)),
		observability.AttributeSubject(req.Subject),
	)
	defer observability.FinishSpan(span, &err)

	prompt, err := s.prompts.BuildConceptPrompt(req)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to build concept prompt")
	}

	raw, err := s.upstream.Generate(ctx, models.TaskConcept, prompt)
	if err != nil {
		return nil, err
	}

	explanation, err := ExtractText(raw)
	if err != nil {
		return nil, err
	}

	return &models.ConceptResult{
		Concept:     req.Concept,
		Explanation: explanation,
		ExplainedAt: time.Now().UTC(),
	}, nil
}
