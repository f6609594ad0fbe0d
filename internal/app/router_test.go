package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"memeup_backend/internal/model"
	"memeup_backend/internal/service"
	"memeup_backend/internal/testutil"
	"memeup_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Kind    string          `json:"kind"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t     *testing.T
	app   *App
	token string
	user  *model.User
	level *model.Level
	task  *model.Task
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.OpenDB(t)
	a := New(testutil.Config(), db, nil)

	section := testutil.NewSection(t, db, "Classics", 1)
	level := testutil.NewLevel(t, db, section.ID, "Level 1", 1)
	task := testutil.NewTask(t, db, level.ID, 1, [3]int{10, 0, 0})
	user := testutil.NewUser(t, db, "alice", "")
	token, err := util.GenerateJWT(user.ID, model.Player, testutil.TestSecret, time.Hour)
	require.NoError(t, err)

	return &testServer{t: t, app: a, token: token, user: user, level: level, task: task}
}

func (s *testServer) do(method, path string, body interface{}, token string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestGameRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodGet, "/api/game/sections", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", env.Kind)

	w, _ = s.do(http.MethodGet, "/api/game/sections", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMissingIdentityIsPreconditionFailed(t *testing.T) {
	s := newTestServer(t)
	token, err := util.GenerateJWT("", model.Player, testutil.TestSecret, time.Hour)
	require.NoError(t, err)

	w, env := s.do(http.MethodPost, "/api/game/levels/"+s.level.ID+"/start", nil, token)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Equal(t, "PreconditionFailed", env.Kind)
}

func TestGameResponsesAreNotCached(t *testing.T) {
	s := newTestServer(t)

	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/api/game/levels/" + s.level.ID + "/intro"},
		{http.MethodPost, "/api/game/levels/" + s.level.ID + "/start"},
		{http.MethodGet, "/api/game/levels/" + s.level.ID + "/next"},
		{http.MethodPost, "/api/game/levels/" + s.level.ID + "/replay"},
		{http.MethodPost, "/api/game/tasks/" + s.task.ID + "/submit"},
	} {
		w, _ := s.do(r.method, r.path, nil, s.token)
		assert.Contains(t, w.Header().Get("Cache-Control"), "no-store", r.path)
		assert.Contains(t, w.Header().Values("Vary"), "Authorization", r.path)
	}
}

func TestPlayLevelOverHTTP(t *testing.T) {
	s := newTestServer(t)
	base := "/api/game/levels/" + s.level.ID

	w, env := s.do(http.MethodGet, base+"/intro", nil, s.token)
	require.Equal(t, http.StatusOK, w.Code)
	intro := decode[service.LevelIntroDTO](t, env)
	assert.Equal(t, model.LevelNotStarted, intro.Status)

	w, env = s.do(http.MethodPost, base+"/start", nil, s.token)
	require.Equal(t, http.StatusOK, w.Code)
	delivery := decode[service.TaskDeliveryResponse](t, env)
	require.NotNil(t, delivery.Task)
	assert.NotContains(t, string(env.Data), "isCorrect")

	body := map[string]string{
		"attemptToken":     delivery.Task.AttemptToken,
		"selectedOptionId": testutil.CorrectOption(s.task),
	}
	w, env = s.do(http.MethodPost, "/api/game/tasks/"+s.task.ID+"/submit", body, s.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[service.TaskSubmitResponse](t, env)
	assert.Equal(t, service.ResultCorrect, result.Result)
	assert.True(t, result.LevelCompleted)

	w, env = s.do(http.MethodPost, "/api/game/tasks/"+s.task.ID+"/submit", body, s.token)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "AlreadyFinalized", env.Kind)

	w, env = s.do(http.MethodPost, base+"/replay", nil, s.token)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "CooldownActive", env.Kind)
	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Positive(t, retryAfter)

	w, env = s.do(http.MethodGet, "/api/game/leaderboard", nil, s.token)
	require.Equal(t, http.StatusOK, w.Code)
	board := decode[[]service.LeaderboardEntryDTO](t, env)
	require.Len(t, board, 1)
	assert.Equal(t, 10, board[0].Score)

	w, env = s.do(http.MethodGet, "/api/game/sections", nil, s.token)
	require.Equal(t, http.StatusOK, w.Code)
	sections := decode[[]service.GameSectionDTO](t, env)
	require.Len(t, sections, 1)
	assert.True(t, sections[0].IsCompleted)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	locked := testutil.NewLevel(t, s.app.DB, s.level.SectionID, "Level 2", 2)
	testutil.NewTask(t, s.app.DB, locked.ID, 1, [3]int{10, 0, 0})

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		kind   string
	}{
		{"malformed level id", http.MethodGet, "/api/game/levels/abc/intro", nil, http.StatusNotFound, "NotFound"},
		{"unknown level", http.MethodPost, "/api/game/levels/" + model.GenerateUUID() + "/start", nil, http.StatusNotFound, "NotFound"},
		{"locked level", http.MethodPost, "/api/game/levels/" + locked.ID + "/start", nil, http.StatusForbidden, "LevelLocked"},
		{"replay before completion", http.MethodPost, "/api/game/levels/" + s.level.ID + "/replay", nil, http.StatusBadRequest, "LevelNotCompleted"},
		{"submit without token", http.MethodPost, "/api/game/tasks/" + s.task.ID + "/submit", map[string]string{}, http.StatusBadRequest, "BadRequest"},
		{"submit unknown token", http.MethodPost, "/api/game/tasks/" + s.task.ID + "/submit",
			map[string]string{"attemptToken": model.GenerateUUID(), "selectedOptionId": "x"}, http.StatusNotFound, "NotFound"},
		{"unsupported period", http.MethodGet, "/api/game/leaderboard?period=Weekly", nil, http.StatusBadRequest, "BadRequest"},
		{"bad section filter", http.MethodGet, "/api/game/leaderboard?sectionId=oops", nil, http.StatusBadRequest, "BadRequest"},
		{"unknown section", http.MethodGet, "/api/game/sections/" + model.GenerateUUID() + "/levels", nil, http.StatusNotFound, "NotFound"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(tt.method, tt.path, tt.body, s.token)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.kind, env.Kind)
		})
	}
}

func TestInvalidSelectionOverHTTP(t *testing.T) {
	s := newTestServer(t)

	_, env := s.do(http.MethodPost, "/api/game/levels/"+s.level.ID+"/start", nil, s.token)
	delivery := decode[service.TaskDeliveryResponse](t, env)

	w, env := s.do(http.MethodPost, "/api/game/tasks/"+s.task.ID+"/submit",
		map[string]string{"attemptToken": delivery.Task.AttemptToken}, s.token)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "InvalidSelection", env.Kind)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[map[string]interface{}](t, env)
	assert.Equal(t, "ok", health["status"])
}

func TestConfigReloadUpdatesRules(t *testing.T) {
	s := newTestServer(t)
	cfg := testutil.Config()
	cfg.Game.ReplayCooldownSeconds = 90

	s.app.reload(cfg)

	assert.Equal(t, 90, s.app.Services.Rules.Get().ReplayCooldownSeconds)
}
