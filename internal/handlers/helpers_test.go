package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"live-quiz-backend/internal/handlers"
	"live-quiz-backend/internal/services"
	"live-quiz-backend/internal/testutil"
	"live-quiz-backend/internal/ws"
)

type testApp struct {
	engine   *gin.Engine
	hub      *ws.Hub
	sessions *services.SessionService
}

// newTestApp mounts the session and websocket handlers on a bare engine
// backed by sqlite and miniredis.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	_, store := testutil.NewTestStore(t)
	log := zap.NewNop()

	hub := ws.NewHub(log)
	sessions := services.NewSessionService(services.NewCatalogService(db), store, hub, log, 6)

	sessionHandler := handlers.NewSessionHandler(sessions, log)
	wsHandler := handlers.NewWSHandler(hub, sessions, log)

	engine := gin.New()
	engine.GET("/ws", wsHandler.HandleWebSocket)
	api := engine.Group("/api/v1")
	api.GET("/state/:pin", sessionHandler.GetState)
	api.GET("/sessions", sessionHandler.ListSessions)
	api.POST("/sessions", sessionHandler.CreateSession)
	api.GET("/sessions/:id", sessionHandler.GetSession)
	api.PUT("/sessions/:id/status", sessionHandler.UpdateStatus)
	api.GET("/sessions/:id/players", sessionHandler.ListPlayers)
	api.GET("/sessions/:id/questions", sessionHandler.ListQuestions)
	api.POST("/sessions/:id/questions", sessionHandler.AddQuestion)

	return &testApp{engine: engine, hub: hub, sessions: sessions}
}

func (a *testApp) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func requireErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	var resp handlers.ErrorResponse
	decodeBody(t, rec, &resp)
	require.Equal(t, code, resp.Code)
	require.NotEmpty(t, resp.Error)
}
