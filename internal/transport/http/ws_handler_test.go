package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"foundry-course-service/internal/app"
	"foundry-course-service/internal/domain"
	"foundry-course-service/internal/infra/memory"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func TestWebSocketNavigationFlow(t *testing.T) {
	server, _, progress, writer := newTestServer(t)

	conn := dial(t, server, "/ws?courseId=c1&userId=u1")

	_, state := readUntil(t, conn, "state")
	if state["view"] != "overview" {
		t.Fatalf("expected overview, got %v", state["view"])
	}

	send(t, conn, "selectSubModule", map[string]any{"moduleId": "m1", "subModuleId": "s1"})
	_, state = readUntil(t, conn, "state")
	if state["view"] != "submodule" || state["subModuleId"] != "s1" {
		t.Fatalf("expected submodule s1, got %v", state)
	}

	send(t, conn, "takeQuiz", map[string]any{"moduleId": "m1"})
	_, state = readUntil(t, conn, "state")
	if state["quiz"] == nil {
		t.Fatalf("expected open quiz, got %v", state)
	}

	send(t, conn, "quizNext", nil)
	if _, payload := readUntil(t, conn, "error"); !strings.Contains(payload["message"].(string), "unanswered") {
		t.Fatalf("expected unanswered error, got %v", payload)
	}

	send(t, conn, "quizAnswer", map[string]any{"option": 2})
	send(t, conn, "quizNext", nil)
	send(t, conn, "quizAnswer", map[string]any{"option": 0})
	send(t, conn, "quizNext", nil)
	send(t, conn, "quizSubmit", nil)

	_, result := readUntil(t, conn, "quizResult")
	if result["passed"] != true || result["moduleCompleted"] != true {
		t.Fatalf("expected passed quiz completing m1, got %v", result)
	}

	send(t, conn, "completeAssessment", nil)
	if _, notice := readUntil(t, conn, "notice"); notice["message"] != noticeCourseComplete {
		t.Fatalf("expected course complete notice, got %v", notice)
	}

	_ = conn.Close()
	writer.Wait()
	completed, _ := progress.FetchCompleted(t.Context(), "u1")
	if strings.Join(completed, ",") != "q-m1,s1" {
		t.Fatalf("expected persisted s1 and q-m1, got %v", completed)
	}
}

func TestWebSocketNotices(t *testing.T) {
	server, _, _, _ := newTestServer(t)
	conn := dial(t, server, "/ws?courseId=c1&anonymous=1")
	readUntil(t, conn, "state")

	send(t, conn, "takeQuiz", map[string]any{"moduleId": "m2"})
	if _, notice := readUntil(t, conn, "notice"); notice["message"] != domain.ErrNoQuizAvailable.Error() {
		t.Fatalf("expected no quiz notice, got %v", notice)
	}

	send(t, conn, "breadcrumb", map[string]any{"kind": "home"})
	if _, notice := readUntil(t, conn, "notice"); notice["message"] != noticeLeaveCourse {
		t.Fatalf("expected leave notice, got %v", notice)
	}

	send(t, conn, "bogus", nil)
	if _, payload := readUntil(t, conn, "error"); payload["message"] != "unsupported message type" {
		t.Fatalf("expected unsupported error, got %v", payload)
	}
}

func TestWebSocketCourseNotFound(t *testing.T) {
	server, _, _, _ := newTestServer(t)
	conn := dial(t, server, "/ws?courseId=missing&userId=u1")

	_, payload := readUntil(t, conn, "courseNotFound")
	if payload["courseId"] != "missing" {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestWebSocketSetsIdentityCookie(t *testing.T) {
	server, _, _, _ := newTestServer(t)

	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?courseId=c1"
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == userCookieName && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %s cookie in handshake response", userCookieName)
	}
}

func TestWebSocketRequiresCourseID(t *testing.T) {
	server, _, _, _ := newTestServer(t)
	resp, err := http.Get(server.URL + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPumpStopsWhenClientWritesFail(t *testing.T) {
	log := zap.NewNop()
	loader := memory.NewStaticCourseLoader(map[string]domain.Course{"c1": sampleCourse()})
	progress := memory.NewProgressStore()
	service := app.NewCourseService(
		memory.NewCourseRepository(loader, time.Minute),
		memory.NewSessionStore(),
		progress,
		loader,
		app.NewAsyncProgressWriter(progress, log, time.Second),
		log,
	)
	session, err := service.Open(context.Background(), "c1", "u1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	conn := &brokenConn{}
	done := make(chan struct{})
	go func() {
		NewWSHandler(service, log).pump(conn, session)
		service.Close(session)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("connection handler hung after write failure")
	}
	if !conn.isClosed() {
		t.Fatalf("expected connection closed after write failure")
	}
	if session.InUse() {
		t.Fatalf("expected session released")
	}
}

// brokenConn accepts every read until closed and fails every write.
type brokenConn struct {
	mu     sync.Mutex
	closed bool
}

var errBrokenPipe = errors.New("broken pipe")

func (c *brokenConn) ReadJSON(v any) error {
	if c.isClosed() {
		return errBrokenPipe
	}
	*(v.(*inboundMessage)) = inboundMessage{Type: "ping"}
	return nil
}

func (c *brokenConn) WriteJSON(any) error {
	return errBrokenPipe
}

func (c *brokenConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *brokenConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func newTestServer(t *testing.T) (*httptest.Server, *memory.StaticCourseLoader, *memory.ProgressStore, *app.AsyncProgressWriter) {
	t.Helper()
	log := zap.NewNop()
	loader := memory.NewStaticCourseLoader(map[string]domain.Course{"c1": sampleCourse()})
	progress := memory.NewProgressStore()
	writer := app.NewAsyncProgressWriter(progress, log, time.Second)
	service := app.NewCourseService(
		memory.NewCourseRepository(loader, time.Minute),
		memory.NewSessionStore(),
		progress,
		loader,
		writer,
		log,
	)
	server := httptest.NewServer(NewRouter(service, log))
	t.Cleanup(server.Close)
	return server, loader, progress, writer
}

func dial(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil skips messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) (string, map[string]any) {
	t.Helper()
	for i := 0; i < 20; i++ {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %s: %v", want, err)
		}
		if msg.Type != want {
			continue
		}
		var payload map[string]any
		_ = json.Unmarshal(msg.Payload, &payload)
		return msg.Type, payload
	}
	t.Fatalf("no %s message received", want)
	return "", nil
}

func sampleCourse() domain.Course {
	return domain.Course{
		ID:   "c1",
		Name: "Woodworking",
		Modules: []domain.Module{
			{
				ID:    "m1",
				Title: "Safety",
				SubModules: []domain.SubModule{
					{ID: "s1", Title: "Safety Equipment"},
				},
				Quiz: domain.Quiz{
					ID: "q-m1",
					Questions: []domain.Question{
						{ID: "qq1", Prompt: "Eye protection?", Options: []string{"No", "Maybe", "Goggles"}, CorrectAnswer: 2},
						{ID: "qq2", Prompt: "Clamp the work?", Options: []string{"Yes", "No"}, CorrectAnswer: 0},
					},
				},
			},
			{
				ID:         "m2",
				Title:      "Finishing",
				SubModules: []domain.SubModule{{ID: "s2", Title: "Sanding"}},
				Quiz:       domain.Quiz{ID: "q-m2"},
			},
		},
	}
}
