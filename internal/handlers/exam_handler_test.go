package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examprep/internal/config"
	"examprep/internal/models"
	"examprep/internal/observability"
	"examprep/internal/services"
	contextutils "examprep/internal/utils"
)

type stubUpstream struct {
	calls    int
	response string
	err      error
	probeErr error
}

func (s *stubUpstream) Generate(_ context.Context, _ models.TaskKind, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubUpstream) Probe(_ context.Context) error {
	return s.probeErr
}

const stubQuestionJSON = `{
	"question": "What is 2+2?",
	"options": ["4", "3", "5", "22"],
	"correctAnswer": "A",
	"explanation": "Basic addition gives 4.",
	"topic": "Arithmetic",
	"difficulty": "easy",
	"subject": "Mathematics",
	"examType": "JEE"
}`

func newTestRouter(t *testing.T, upstream services.UpstreamClientInterface, quota int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := observability.NewLogger(nil)
	cfg := &config.Config{}
	cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	cfg.RateLimit.Quota = quota

	prompts, err := services.NewPromptManager()
	require.NoError(t, err)

	examService := services.NewExamService(upstream, prompts, logger)
	fallback := services.NewFallbackService()
	limiter := services.NewRateLimiter(quota, logger)
	handler := NewExamHandler(examService, upstream, fallback, nil, cfg, logger)

	return NewRouter(cfg, handler, limiter, logger)
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	t.Run("upstream reachable", func(t *testing.T) {
		router := newTestRouter(t, &stubUpstream{}, 100)

		w := doJSON(router, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, true, body["upstreamConnected"])
		assert.Equal(t, "Exam Prep Platform API is running", body["message"])
		assert.NotEmpty(t, body["timestamp"])
	})

	t.Run("upstream unreachable still returns ok", func(t *testing.T) {
		upstream := &stubUpstream{probeErr: contextutils.WrapError(contextutils.ErrUpstreamAuth, "no API key configured")}
		router := newTestRouter(t, upstream, 100)

		w := doJSON(router, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, false, body["upstreamConnected"])
	})
}

func TestSampleQuestions_ZeroConfiguration(t *testing.T) {
	// No API key, no store; the endpoint must still serve content.
	upstream := &stubUpstream{err: contextutils.WrapError(contextutils.ErrUpstreamAuth, "no API key configured")}
	router := newTestRouter(t, upstream, 100)

	w := doJSON(router, http.MethodGet, "/api/sample-questions", "")
	require.Equal(t, http.StatusOK, w.Code)

	var questions []models.QuestionRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &questions))
	require.NotEmpty(t, questions)
	for _, q := range questions {
		assert.NoError(t, q.Validate())
	}
	assert.Equal(t, 0, upstream.calls)
}

func TestGenerateQuestion_Success(t *testing.T) {
	router := newTestRouter(t, &stubUpstream{response: "Here you go: " + stubQuestionJSON}, 100)

	w := doJSON(router, http.MethodPost, "/api/generate-question", `{"subject":"Mathematics"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "What is 2+2?", body["question"])
	assert.Equal(t, "A", body["correctAnswer"])
	assert.NotEmpty(t, body["generatedAt"])

	// Fallback never fires on a success path.
	_, hasFallback := body["fallbackQuestion"]
	assert.False(t, hasFallback)
}

func TestGenerateQuestion_FailureAttachesFallback(t *testing.T) {
	upstream := &stubUpstream{err: contextutils.WrapError(contextutils.ErrUpstreamTimeout, "upstream call abandoned after 30s")}
	router := newTestRouter(t, upstream, 100)

	w := doJSON(router, http.MethodPost, "/api/generate-question", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Failed to generate question", body["error"])
	assert.NotEmpty(t, body["message"])

	fallbackRaw, ok := body["fallbackQuestion"]
	require.True(t, ok, "failure response must carry a fallback question")
	fallbackJSON, err := json.Marshal(fallbackRaw)
	require.NoError(t, err)
	var fallbackQuestion models.QuestionRecord
	require.NoError(t, json.Unmarshal(fallbackJSON, &fallbackQuestion))
	assert.NoError(t, fallbackQuestion.Validate())
}

func TestSolveDoubt_MissingQuestion(t *testing.T) {
	upstream := &stubUpstream{response: "unused"}
	router := newTestRouter(t, upstream, 100)

	w := doJSON(router, http.MethodPost, "/api/solve-doubt", `{"subject":"Physics"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Question is required"}`, w.Body.String())
	assert.Equal(t, 0, upstream.calls, "missing question must not reach the upstream")
}

func TestSolveDoubt_Success(t *testing.T) {
	router := newTestRouter(t, &stubUpstream{response: "Step 1: rearrange the equation."}, 100)

	w := doJSON(router, http.MethodPost, "/api/solve-doubt", `{"question":"Solve x+1=2"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Solve x+1=2", body["question"])
	assert.Contains(t, body["solution"], "rearrange")
	assert.NotEmpty(t, body["solvedAt"])
}

func TestGenerateTest_DerivedFields(t *testing.T) {
	payload := `[
		{"id":1,"question":"Q1?","options":["a","b","c","d"],"correct":"A","marks":4,"negativeMarks":1,"explanation":"E"},
		{"id":2,"question":"Q2?","options":["a","b","c","d"],"correct":"B","marks":4,"negativeMarks":1,"explanation":"E"}
	]`
	router := newTestRouter(t, &stubUpstream{response: payload}, 100)

	w := doJSON(router, http.MethodPost, "/api/generate-test", `{"count":2}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "JEE Mains", body["examType"])
	assert.Equal(t, "Physics", body["subject"])
	assert.Equal(t, 2.0, body["totalQuestions"])
	assert.Equal(t, 8.0, body["totalMarks"])
	assert.Equal(t, 3.0, body["duration"])
}

func TestExplainConcept_Success(t *testing.T) {
	router := newTestRouter(t, &stubUpstream{response: "Gravity pulls masses together."}, 100)

	w := doJSON(router, http.MethodPost, "/api/explain-concept", `{"concept":"Gravity"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Gravity", body["concept"])
	assert.Contains(t, body["explanation"], "Gravity")
	assert.NotEmpty(t, body["explainedAt"])
}

func TestRateLimit_GatesAPIGroup(t *testing.T) {
	router := newTestRouter(t, &stubUpstream{response: stubQuestionJSON}, 2)

	// First two requests admitted, third denied.
	for i := 0; i < 2; i++ {
		w := doJSON(router, http.MethodGet, "/api/sample-questions", "")
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doJSON(router, http.MethodGet, "/api/sample-questions", "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"Rate limit exceeded","message":"Please wait a minute before making more requests"}`, w.Body.String())

	// Health is not gated.
	h := doJSON(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, h.Code)
}

func TestRateLimit_DeniedBeforeUpstreamCall(t *testing.T) {
	upstream := &stubUpstream{response: stubQuestionJSON}
	router := newTestRouter(t, upstream, 1)

	w := doJSON(router, http.MethodPost, "/api/generate-question", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, upstream.calls)

	w = doJSON(router, http.MethodPost, "/api/generate-question", "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 1, upstream.calls, "denied request must not reach the upstream")
}

func TestInvalidJSONBody(t *testing.T) {
	upstream := &stubUpstream{response: stubQuestionJSON}
	router := newTestRouter(t, upstream, 100)

	w := doJSON(router, http.MethodPost, "/api/generate-question", `{"subject": `)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, upstream.calls)
}

func TestHistoryEndpoint_WithoutStore(t *testing.T) {
	router := newTestRouter(t, &stubUpstream{}, 100)

	w := doJSON(router, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"history":[]}`, w.Body.String())
}
