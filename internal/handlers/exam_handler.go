package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"examprep/internal/config"
	"examprep/internal/database"
	"examprep/internal/models"
	"examprep/internal/observability"
	"examprep/internal/services"
	contextutils "examprep/internal/utils"
)

// ExamHandler serves the generation endpoints.
type ExamHandler struct {
	examService services.ExamServiceInterface
	upstream    services.UpstreamClientInterface
	fallback    *services.FallbackService
	history     *database.GenerationStore
	cfg         *config.Config
	logger      *observability.Logger
}

// NewExamHandler creates the handler. history may be nil when persistence is
// not configured.
func NewExamHandler(
	examService services.ExamServiceInterface,
	upstream services.UpstreamClientInterface,
	fallback *services.FallbackService,
	history *database.GenerationStore,
	cfg *config.Config,
	logger *observability.Logger,
) *ExamHandler {
	return &ExamHandler{
		examService: examService,
		upstream:    upstream,
		fallback:    fallback,
		history:     history,
		cfg:         cfg,
		logger:      logger,
	}
}

type questionResponse struct {
	Success bool `json:"success"`
	models.QuestionRecord
	GeneratedAt time.Time `json:"generatedAt"`
}

type testResponse struct {
	Success bool `json:"success"`
	models.GeneratedTest
	GeneratedAt time.Time `json:"generatedAt"`
}

// HealthCheck reports service liveness and upstream reachability. Works with
// zero configuration; a missing API key simply reports a disconnected
// upstream.
func (h *ExamHandler) HealthCheck(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "HealthCheck")
	defer span.End()

	upstreamConnected := h.upstream.Probe(ctx) == nil

	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"timestamp":         time.Now().UTC(),
		"upstreamConnected": upstreamConnected,
		"message":           "Exam Prep Platform API is running",
	})
}

// SampleQuestions returns the hand-authored question pool without calling
// the upstream.
func (h *ExamHandler) SampleQuestions(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "SampleQuestions")
	defer span.End()

	c.JSON(http.StatusOK, h.fallback.Questions())
}

// GenerateQuestion handles POST /api/generate-question. On any pipeline
// failure it attaches a fallback question so the caller still has content.
func (h *ExamHandler) GenerateQuestion(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "GenerateQuestion")
	defer span.End()

	var req models.QuestionGenRequest
	if err := h.bindOptionalJSON(c, &req); err != nil {
		return
	}

	result, err := h.examService.GenerateQuestion(ctx, req)
	h.record(c, models.TaskQuestion, err)
	if err != nil {
		h.logger.Error(ctx, "Question generation failed", err, map[string]interface{}{
			"client_ip": c.ClientIP(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":          false,
			"error":            "Failed to generate question",
			"message":          errorMessage(err),
			"fallbackQuestion": h.fallback.Sample(),
		})
		return
	}

	c.JSON(http.StatusOK, questionResponse{
		Success:        true,
		QuestionRecord: result.Record,
		GeneratedAt:    result.GeneratedAt,
	})
}

// SolveDoubt handles POST /api/solve-doubt. The question field is required.
func (h *ExamHandler) SolveDoubt(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "SolveDoubt")
	defer span.End()

	var req models.DoubtRequest
	if err := h.bindOptionalJSON(c, &req); err != nil {
		return
	}

	result, err := h.examService.SolveDoubt(ctx, req)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrMissingRequired) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Question is required"})
			return
		}
		h.record(c, models.TaskDoubt, err)
		h.logger.Error(ctx, "Doubt solving failed", err, map[string]interface{}{
			"client_ip": c.ClientIP(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to solve doubt",
			"message": errorMessage(err),
		})
		return
	}
	h.record(c, models.TaskDoubt, nil)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"question": result.Question,
		"solution": result.Solution,
		"solvedAt": result.SolvedAt,
	})
}

// GenerateTest handles POST /api/generate-test.
func (h *ExamHandler) GenerateTest(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "GenerateTest")
	defer span.End()

	var req models.TestGenRequest
	if err := h.bindOptionalJSON(c, &req); err != nil {
		return
	}

	result, err := h.examService.GenerateTest(ctx, req)
	h.record(c, models.TaskTest, err)
	if err != nil {
		h.logger.Error(ctx, "Test generation failed", err, map[string]interface{}{
			"client_ip": c.ClientIP(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to generate test",
			"message": errorMessage(err),
		})
		return
	}

	c.JSON(http.StatusOK, testResponse{
		Success:       true,
		GeneratedTest: result.Test,
		GeneratedAt:   result.GeneratedAt,
	})
}

// ExplainConcept handles POST /api/explain-concept.
func (h *ExamHandler) ExplainConcept(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "ExplainConcept")
	defer span.End()

	var req models.ConceptRequest
	if err := h.bindOptionalJSON(c, &req); err != nil {
		return
	}

	result, err := h.examService.ExplainConcept(ctx, req)
	h.record(c, models.TaskConcept, err)
	if err != nil {
		h.logger.Error(ctx, "Concept explanation failed", err, map[string]interface{}{
			"client_ip": c.ClientIP(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to explain concept",
			"message": errorMessage(err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"concept":     result.Concept,
		"explanation": result.Explanation,
		"explainedAt": result.ExplainedAt,
	})
}

// RecentHistory handles GET /api/history. Returns an empty list when
// persistence is not configured.
func (h *ExamHandler) RecentHistory(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "RecentHistory")
	defer span.End()

	records, err := h.history.Recent(ctx, 50)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if records == nil {
		records = []models.GenerationRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"history": records})
}

// bindOptionalJSON decodes the request body if one is present. An absent or
// empty body leaves the request at its zero value so defaults apply; a body
// that fails to parse answers 400 and reports false.
func (h *ExamHandler) bindOptionalJSON(c *gin.Context, obj interface{}) error {
	err := c.ShouldBindJSON(obj)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"message": err.Error(),
	})
	return err
}

// record persists one generation attempt when a history store is configured.
func (h *ExamHandler) record(c *gin.Context, kind models.TaskKind, genErr error) {
	if h.history == nil {
		return
	}
	rec := models.GenerationRecord{
		TaskKind:  string(kind),
		ClientIP:  c.ClientIP(),
		Succeeded: genErr == nil,
	}
	if genErr != nil {
		rec.ErrorCode = string(contextutils.GetErrorCode(genErr))
	}
	h.history.Record(c.Request.Context(), rec)
}

// errorMessage returns the human-readable message of an error, preferring
// the AppError message over the full wrapped chain.
func errorMessage(err error) string {
	var appErr *contextutils.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}
