package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/rapport/internal/apperr"
	"github.com/lazypower/rapport/internal/auth"
	"github.com/lazypower/rapport/internal/config"
	"github.com/lazypower/rapport/internal/engine"
	"github.com/lazypower/rapport/internal/llm"
	"github.com/lazypower/rapport/internal/sentiment"
	"github.com/lazypower/rapport/internal/store"
)

var fixedNow = time.Date(2024, 7, 15, 18, 30, 0, 0, time.UTC)

type testEnv struct {
	srv    *Server
	tokens *auth.Tokens
	llm    *llm.MockClient
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock := &llm.MockClient{Func: func(ctx context.Context, prompt string) (*llm.Response, error) {
		switch {
		case strings.Contains(prompt, "great job"):
			return &llm.Response{Content: `{"sentiment":"positive","confidence":0.8,"emotions":["pride"],"keyPhrases":["great job"]}`}, nil
		case strings.Contains(prompt, "offline"):
			return nil, errors.New("connection refused")
		default:
			return &llm.Response{Content: `{"sentiment":"negative","confidence":0.3,"emotions":["annoyed"],"keyPhrases":["late"]}`}, nil
		}
	}}
	eng := engine.New(db, sentiment.NewClassifier(mock, time.Second, zerolog.Nop()), zerolog.Nop())
	eng.Now = func() time.Time { return fixedNow }

	tokens, err := auth.New(config.AuthConfig{JWTSecret: "test-secret", Issuer: "rapport", Audience: "rapport-api"}, time.Hour)
	require.NoError(t, err)

	return &testEnv{
		srv: New(eng, tokens, Options{
			Version:        "test-version",
			AllowedOrigins: []string{"http://localhost:3000"},
			Log:            zerolog.Nop(),
		}),
		tokens: tokens,
		llm:    mock,
	}
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *errorBody      `json:"error"`
}

func (e *testEnv) do(t *testing.T, owner, method, path, body string) (int, response) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if owner != "" {
		tok, err := e.tokens.Issue(owner)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	e.srv.ServeHTTP(w, req)

	var resp response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return w.Code, resp
}

func (e *testEnv) createProfile(t *testing.T, owner, name string) store.Profile {
	t.Helper()
	code, resp := e.do(t, owner, "POST", "/api/profiles", `{"name":"`+name+`","category":"friend"}`)
	require.Equal(t, http.StatusCreated, code, "error: %+v", resp.Error)
	var p store.Profile
	require.NoError(t, json.Unmarshal(resp.Data, &p))
	return p
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(t, "", "GET", "/api/health", "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)

	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test-version", body["version"])
	assert.Equal(t, true, body["db"])
}

func TestAPIRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	routes := []struct{ method, path string }{
		{"GET", "/api/profiles"},
		{"POST", "/api/profiles"},
		{"GET", "/api/profiles/abc"},
		{"GET", "/api/interactions"},
		{"GET", "/api/interactions/pulse?profileId=abc"},
		{"POST", "/api/insights/analyze"},
	}
	for _, rt := range routes {
		code, resp := env.do(t, "", rt.method, rt.path, "")
		assert.Equal(t, http.StatusUnauthorized, code, "%s %s", rt.method, rt.path)
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, apperr.KindUnauthorized, resp.Error.Kind)
	}
}

func TestProfileLifecycle(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProfile(t, "u1", "Ana")
	assert.Equal(t, "Ana", p.Name)
	assert.Equal(t, "u1", p.OwnerID)

	code, resp := env.do(t, "u1", "POST", "/api/profiles", `{"name":"Ana"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, apperr.KindDuplicateName, resp.Error.Kind)

	// Another owner may reuse the name.
	env.createProfile(t, "u2", "Ana")

	code, resp = env.do(t, "u1", "PUT", "/api/profiles/"+p.ID, `{"notes":"met at the conference"}`)
	require.Equal(t, http.StatusOK, code)
	var updated store.Profile
	require.NoError(t, json.Unmarshal(resp.Data, &updated))
	assert.Equal(t, "met at the conference", updated.Notes)
	assert.Equal(t, "Ana", updated.Name)

	code, resp = env.do(t, "u1", "GET", "/api/profiles", "")
	require.Equal(t, http.StatusOK, code)
	var list []store.ProfileSummary
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)

	code, _ = env.do(t, "u1", "DELETE", "/api/profiles/"+p.ID, "")
	require.Equal(t, http.StatusOK, code)

	code, resp = env.do(t, "u1", "GET", "/api/profiles/"+p.ID, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, apperr.KindNotFound, resp.Error.Kind)
}

func TestCreateProfileValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing name", `{"category":"friend"}`, "name"},
		{"blank name", `{"name":"   "}`, "name"},
		{"bad category", `{"name":"Ana","category":"enemy"}`, "category"},
		{"unknown field", `{"name":"Ana","age":3}`, ""},
		{"not json", `{name`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := env.do(t, "u1", "POST", "/api/profiles", tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, apperr.KindValidation, resp.Error.Kind)
			assert.Equal(t, tt.field, resp.Error.Field)
		})
	}
}

func TestProfilesAreOwnerScoped(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProfile(t, "u1", "Ana")

	for _, path := range []string{"/api/profiles/" + p.ID, "/api/profiles/" + p.ID + "/stats"} {
		code, resp := env.do(t, "u2", "GET", path, "")
		assert.Equal(t, http.StatusNotFound, code, path)
		assert.Equal(t, apperr.KindNotFound, resp.Error.Kind)
	}

	code, _ := env.do(t, "u2", "DELETE", "/api/profiles/"+p.ID, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = env.do(t, "u1", "GET", "/api/profiles/"+p.ID, "")
	assert.Equal(t, http.StatusOK, code)
}

func TestSubmitAndListInteractions(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProfile(t, "u1", "Ana")

	code, resp := env.do(t, "u1", "POST", "/api/interactions",
		`{"profileId":"`+p.ID+`","description":"great job today","type":"meeting"}`)
	require.Equal(t, http.StatusCreated, code, "error: %+v", resp.Error)
	var it store.Interaction
	require.NoError(t, json.Unmarshal(resp.Data, &it))
	assert.InDelta(t, 0.8, it.Sentiment.Score, 1e-9)
	assert.Equal(t, "positive", it.Sentiment.Label)
	assert.Equal(t, "meeting", it.Type)
	assert.True(t, it.Date.Equal(fixedNow))

	code, _ = env.do(t, "u1", "POST", "/api/interactions",
		`{"profileId":"`+p.ID+`","description":"ran a bit late","date":"2024-07-10"}`)
	require.Equal(t, http.StatusCreated, code)

	code, resp = env.do(t, "u1", "GET", "/api/interactions?profileId="+p.ID, "")
	require.Equal(t, http.StatusOK, code)
	var items []store.Interaction
	require.NoError(t, json.Unmarshal(resp.Data, &items))
	require.Len(t, items, 2)
	assert.Equal(t, it.ID, items[0].ID, "newest first")
	assert.Equal(t, "Ana", items[0].ProfileName)

	code, resp = env.do(t, "u1", "GET", "/api/interactions?startDate=2024-07-09&endDate=2024-07-10", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(resp.Data, &items))
	require.Len(t, items, 1)
	assert.InDelta(t, -0.3, items[0].Sentiment.Score, 1e-9)

	code, resp = env.do(t, "u1", "GET", "/api/interactions?type=call", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(resp.Data))

	code, resp = env.do(t, "u1", "GET", "/api/profiles/"+p.ID+"/stats", "")
	require.Equal(t, http.StatusOK, code)
	var stats engine.Stats
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	assert.Equal(t, 2, stats.TotalInteractions)
	assert.Equal(t, 1, stats.PositiveCount)
	assert.Equal(t, 1, stats.NegativeCount)
}

func TestSubmitInteractionErrors(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProfile(t, "u1", "Ana")

	tests := []struct {
		name   string
		body   string
		status int
		kind   apperr.Kind
		field  string
	}{
		{"missing description", `{"profileId":"` + p.ID + `"}`, http.StatusBadRequest, apperr.KindValidation, "description"},
		{"missing profile", `{"description":"hello"}`, http.StatusBadRequest, apperr.KindValidation, "profileId"},
		{"bad type", `{"profileId":"` + p.ID + `","description":"hi","type":"letter"}`, http.StatusBadRequest, apperr.KindValidation, "type"},
		{"bad date", `{"profileId":"` + p.ID + `","description":"hi","date":"yesterday"}`, http.StatusBadRequest, apperr.KindValidation, "date"},
		{"unknown profile", `{"profileId":"nope","description":"hi"}`, http.StatusNotFound, apperr.KindNotFound, ""},
		{"classifier offline", `{"profileId":"` + p.ID + `","description":"offline"}`, http.StatusServiceUnavailable, apperr.KindClassificationUnavailable, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := env.do(t, "u1", "POST", "/api/interactions", tt.body)
			assert.Equal(t, tt.status, code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.kind, resp.Error.Kind)
			assert.Equal(t, tt.field, resp.Error.Field)
		})
	}

	code, resp := env.do(t, "u1", "GET", "/api/interactions?profileId="+p.ID, "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(resp.Data), "failed submissions must not persist")
}

func TestListInteractionsBadQuery(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct{ query, field string }{
		{"startDate=soon", "startDate"},
		{"endDate=2024-13-01", "endDate"},
		{"limit=-1", "limit"},
	}
	for _, tt := range tests {
		code, resp := env.do(t, "u1", "GET", "/api/interactions?"+tt.query, "")
		assert.Equal(t, http.StatusBadRequest, code, tt.query)
		require.NotNil(t, resp.Error)
		assert.Equal(t, tt.field, resp.Error.Field)
	}
}

func TestPulseEndpoint(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProfile(t, "u1", "Ana")

	for _, date := range []string{"2024-07-15T10:00:00Z", "2024-07-15T08:00:00Z", "2024-07-13T08:00:00Z"} {
		code, _ := env.do(t, "u1", "POST", "/api/interactions",
			`{"profileId":"`+p.ID+`","description":"great job","date":"`+date+`"}`)
		require.Equal(t, http.StatusCreated, code)
	}

	code, resp := env.do(t, "u1", "GET", "/api/interactions/pulse?profileId="+p.ID, "")
	require.Equal(t, http.StatusOK, code)
	var series engine.PulseSeries
	require.NoError(t, json.Unmarshal(resp.Data, &series))
	assert.Equal(t, "daily", series.Timeframe)
	require.Len(t, series.Metrics, 2)
	assert.True(t, series.Metrics[0].Date.Before(series.Metrics[1].Date))
	assert.Equal(t, "green", series.Metrics[0].ColorBand)

	code, resp = env.do(t, "u1", "GET", "/api/interactions/pulse?profileId="+p.ID+"&timeframe=weekly", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(resp.Data, &series))
	assert.Len(t, series.Metrics, 3)

	code, resp = env.do(t, "u1", "GET", "/api/interactions/pulse?profileId="+p.ID+"&timeframe=yearly", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "timeframe", resp.Error.Field)

	code, resp = env.do(t, "u1", "GET", "/api/interactions/pulse", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "profileId", resp.Error.Field)
}

func TestAnalyzeEndpoint(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(t, "u1", "POST", "/api/insights/analyze", `{"text":"great job on the launch"}`)
	require.Equal(t, http.StatusOK, code)
	var insight engine.Insight
	require.NoError(t, json.Unmarshal(resp.Data, &insight))
	assert.Equal(t, "positive", insight.Sentiment)
	assert.InDelta(t, 0.8, insight.Score, 1e-9)
	assert.Equal(t, "green", insight.ColorBand)

	code, resp = env.do(t, "u1", "POST", "/api/insights/analyze", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "text", resp.Error.Field)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "", "GET", "/api/health", "")

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	env.srv.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `rapport_http_requests_total{method="GET",route="/api/health",status="200"}`)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("OPTIONS", "/api/profiles", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	env.srv.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	code, resp := env.do(t, "", "GET", "/nope", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, resp.Success)
}
