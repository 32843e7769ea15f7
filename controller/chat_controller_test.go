package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github/itish2003/ragchat/models"
	"github/itish2003/ragchat/observability"
	"github/itish2003/ragchat/services"
	"github/itish2003/ragchat/sessions"
)

type echoPipeline struct{ answer string }

func (p echoPipeline) Invoke(_ context.Context, req services.PipelineRequest) (services.Output, error) {
	if p.answer != "" {
		return services.PipelineResult{Answer: p.answer}, nil
	}
	return services.PipelineResult{Answer: "You asked: " + req.Question}, nil
}

type testServer struct {
	*httptest.Server
	client *http.Client
}

func newTestServer(t *testing.T, pipeline services.Invoker) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	chat := services.NewChatService(pipeline, sessions.NewMemoryStore(time.Hour), services.ChatSettings{ChunkSize: 28}, zap.NewNop())
	metrics := observability.NewMetrics("test")
	ctrl := NewChatController(chat, metrics, func() bool { return true }, zap.NewNop())
	router := NewRouter(ctrl, metrics, RouterConfig{
		CORSOrigins:   []string{"http://localhost:3000"},
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
	}, zap.NewNop())

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testServer{Server: srv, client: client}
}

func (s *testServer) postJSON(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := s.client.Post(s.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) messages(t *testing.T) []models.ChatTurn {
	t.Helper()
	resp, err := s.client.Get(s.URL + "/api/messages")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body models.MessagesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Messages
}

func TestMessagesStartEmpty(t *testing.T) {
	srv := newTestServer(t, echoPipeline{})
	msgs := srv.messages(t)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestChatAPIReturnsConversation(t *testing.T) {
	srv := newTestServer(t, echoPipeline{})

	resp := srv.postJSON(t, "/api/chat", `{"question":"What is hypertension?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body models.MessagesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []models.ChatTurn{
		{Role: models.RoleUser, Content: "What is hypertension?"},
		{Role: models.RoleAssistant, Content: "You asked: What is hypertension?"},
	}, body.Messages)

	// The session cookie carries the history into later requests.
	assert.Len(t, srv.messages(t), 2)
}

func TestMessagesAreIdempotent(t *testing.T) {
	srv := newTestServer(t, echoPipeline{})
	srv.postJSON(t, "/api/chat", `{"question":"What is hypertension?"}`)

	first := srv.messages(t)
	second := srv.messages(t)
	assert.Len(t, first, 2)
	assert.Equal(t, first, second)
}

func TestChatAPIRejectsEmptyQuestion(t *testing.T) {
	srv := newTestServer(t, echoPipeline{})

	for _, body := range []string{`{"question":""}`, `{"question":"   "}`, `{}`, `not json`} {
		resp := srv.postJSON(t, "/api/chat", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var errBody models.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
		assert.Equal(t, "Question is required", errBody.Error)
	}
	assert.Empty(t, srv.messages(t))
}

func TestChatStreamWritesChunkedPlainText(t *testing.T) {
	answer := strings.Repeat("Hypertension is high blood pressure. ", 4)
	srv := newTestServer(t, echoPipeline{answer: answer})

	resp := srv.postJSON(t, "/api/chat/stream", `{"question":"What is hypertension?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "no", resp.Header.Get("X-Accel-Buffering"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, answer, string(raw))

	msgs := srv.messages(t)
	require.Len(t, msgs, 2)
	assert.Equal(t, answer, msgs[1].Content)
}

func TestChatStreamRejectsEmptyQuestion(t *testing.T) {
	srv := newTestServer(t, echoPipeline{})
	resp := srv.postJSON(t, "/api/chat/stream", `{"question":" "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClearAPI(t *testing.T) {
	srv := newTestServer(t, echoPipeline{})
	srv.postJSON(t, "/api/chat", `{"question":"Q1"}`)
	require.Len(t, srv.messages(t), 2)

	resp := srv.postJSON(t, "/api/clear", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body models.MessagesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotNil(t, body.Messages)
	assert.Empty(t, body.Messages)
	assert.Empty(t, srv.messages(t))
}

func TestFormFlowRedirectsAndRenders(t *testing.T) {
	srv := newTestServer(t, echoPipeline{})

	resp, err := srv.client.PostForm(srv.URL+"/chat", url.Values{"question": {"What is asthma?"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp, err = srv.client.PostForm(srv.URL+"/chat", url.Values{"prompt": {"legacy field"}})
	require.NoError(t, err)
	resp.Body.Close()

	page, err := srv.client.Get(srv.URL + "/")
	require.NoError(t, err)
	defer page.Body.Close()
	html, err := io.ReadAll(page.Body)
	require.NoError(t, err)
	assert.Contains(t, string(html), "You asked: What is asthma?")
	assert.Contains(t, string(html), "legacy field")

	resp, err = srv.client.Get(srv.URL + "/clear")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Empty(t, srv.messages(t))
}

func TestSessionsDoNotLeakBetweenClients(t *testing.T) {
	srv := newTestServer(t, echoPipeline{})
	srv.postJSON(t, "/api/chat", `{"question":"private"}`)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	other := &testServer{Server: srv.Server, client: &http.Client{Jar: jar}}
	assert.Empty(t, other.messages(t))
	assert.Len(t, srv.messages(t), 2)
}

func TestCORSAllowsConfiguredOriginWithCredentials(t *testing.T) {
	srv := newTestServer(t, echoPipeline{})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/chat", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := srv.client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, echoPipeline{})

	resp, err := srv.client.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	var health models.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.True(t, health.PipelineReady)

	srv.postJSON(t, "/api/chat", `{"question":"Q"}`)
	metrics, err := srv.client.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	raw, err := io.ReadAll(metrics.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `test_chat_requests_total{endpoint="api_chat",outcome="ok"} 1`)
}
