package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hochfrequenz/fiztarefa/internal/domain"
	"github.com/hochfrequenz/fiztarefa/internal/focus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *focus.Session) {
	t.Helper()
	session, err := focus.Open(focus.Options{DatabasePath: ":memory:"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		session.Close()
	})

	return NewServer(session, session.Store(), "127.0.0.1:0", nil), session
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) focus.Status {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var status focus.Status
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	return status
}

func TestStatusHandler(t *testing.T) {
	s, _ := newTestServer(t)

	status := decodeStatus(t, do(t, s, "GET", "/api/status", ""))
	assert.Equal(t, "25:00", status.Clock)
	assert.Equal(t, "work", string(status.State.Phase))
	assert.Equal(t, 25, status.Settings.WorkMinutes)

	w := do(t, s, "POST", "/api/status", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestTimerCommands(t *testing.T) {
	s, _ := newTestServer(t)

	status := decodeStatus(t, do(t, s, "POST", "/api/timer/start", ""))
	assert.True(t, status.State.IsRunning)

	status = decodeStatus(t, do(t, s, "POST", "/api/timer/pause", ""))
	assert.False(t, status.State.IsRunning)

	status = decodeStatus(t, do(t, s, "POST", "/api/timer/skip", ""))
	assert.Equal(t, "short-break", string(status.State.Phase))
	assert.Equal(t, 1, status.State.CyclesCompleted)

	status = decodeStatus(t, do(t, s, "POST", "/api/timer/reset", ""))
	assert.Equal(t, "work", string(status.State.Phase))
	assert.Equal(t, 1, status.State.CyclesCompleted, "reset keeps the cycle count")

	w := do(t, s, "GET", "/api/timer/start", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestSelectPhaseHandler(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, "POST", "/api/timer/phase", `{"phase":"nap"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, "POST", "/api/timer/phase", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	status := decodeStatus(t, do(t, s, "POST", "/api/timer/phase", `{"phase":"long-break"}`))
	assert.Equal(t, "long-break", string(status.State.Phase))
	assert.Equal(t, "15:00", status.Clock)
	assert.Equal(t, 0, status.State.CyclesCompleted)
}

func TestTaskLifecycle(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, "POST", "/api/tasks", `{"title":"Write report"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var task domain.Task
	require.NoError(t, json.NewDecoder(w.Body).Decode(&task))
	assert.Equal(t, "Write report", task.Title)

	w = do(t, s, "POST", "/api/tasks", `{"title":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, "GET", "/api/tasks/"+task.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, "POST", "/api/tasks/"+task.ID+"/complete", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var completed domain.Task
	require.NoError(t, json.NewDecoder(w.Body).Decode(&completed))
	assert.True(t, completed.Completed)

	var open []domain.Task
	w = do(t, s, "GET", "/api/tasks", "")
	require.NoError(t, json.NewDecoder(w.Body).Decode(&open))
	assert.Empty(t, open)

	var all []domain.Task
	w = do(t, s, "GET", "/api/tasks?all=1", "")
	require.NoError(t, json.NewDecoder(w.Body).Decode(&all))
	assert.Len(t, all, 1)

	w = do(t, s, "POST", "/api/tasks/"+task.ID+"/complete", `{"completed":false}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, "DELETE", "/api/tasks/"+task.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, s, "GET", "/api/tasks/"+task.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, "DELETE", "/api/tasks/"+task.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, "PUT", "/api/tasks/"+task.ID, "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestFocusTaskHandler(t *testing.T) {
	s, session := newTestServer(t)

	task, err := session.Store().CreateTask("Review PR", "")
	require.NoError(t, err)

	status := decodeStatus(t, do(t, s, "POST", "/api/timer/task", `{"task_id":"`+task.ShortID()+`"}`))
	assert.Equal(t, task.ID, status.State.CurrentTaskID)
	require.NotNil(t, status.Task)
	assert.Equal(t, "Review PR", status.Task.Title)

	w := do(t, s, "POST", "/api/timer/task", `{"task_id":"zzzzzzzz"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	status = decodeStatus(t, do(t, s, "POST", "/api/timer/task", `{"task_id":""}`))
	assert.Empty(t, status.State.CurrentTaskID)
}

func TestListsHandler(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, "POST", "/api/lists", `{"name":"Work","color":"red"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, "POST", "/api/lists", `{"name":"Work","color":"#3b82f6"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var lists []domain.List
	w = do(t, s, "GET", "/api/lists", "")
	require.NoError(t, json.NewDecoder(w.Body).Decode(&lists))
	require.Len(t, lists, 1)
	assert.Equal(t, "#3b82f6", lists[0].Color)
}

func TestCreateTask_UnknownList(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, "POST", "/api/tasks", `{"title":"orphan","list_id":"no-such-list"}`)
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "no-such-list")

	w = do(t, s, "GET", "/api/tasks?all=1", "")
	assert.JSONEq(t, "[]", w.Body.String())
}

func startStream(t *testing.T, s *Server, session *focus.Session) *httptest.Server {
	t.Helper()
	events, unsubscribe := session.Runner().Subscribe(8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Stream(ctx, events) }()

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		cancel()
		<-done
		unsubscribe()
		srv.Close()
	})
	return srv
}

func TestSSEHandler(t *testing.T) {
	s, session := newTestServer(t)
	srv := startStream(t, s, session)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	readEvent := func() string {
		for lines.Scan() {
			if name, ok := strings.CutPrefix(lines.Text(), "event: "); ok {
				return name
			}
		}
		t.Fatalf("stream ended: %v", lines.Err())
		return ""
	}

	assert.Equal(t, EventTimer, readEvent())

	require.NoError(t, session.Skip(context.Background()))
	assert.Equal(t, EventPhaseComplete, readEvent())
}

func TestWebSocketHandler(t *testing.T) {
	s, session := newTestServer(t)
	srv := startStream(t, s, session)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var event struct {
		Type string         `json:"type"`
		Data TimerEventData `json:"data"`
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, EventTimer, event.Type)
	assert.Equal(t, "25:00", event.Data.Status.Clock)

	require.NoError(t, session.Start(context.Background()))
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, EventTimer, event.Type)
	assert.True(t, event.Data.Status.State.IsRunning)

	require.NoError(t, session.Skip(context.Background()))
	for event.Type != EventPhaseComplete {
		require.NoError(t, conn.ReadJSON(&event))
	}
	require.NotNil(t, event.Data.Transition)
	assert.Equal(t, "short-break", string(event.Data.Transition.To))
}
