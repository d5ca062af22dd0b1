package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"foundry-course-service/internal/app"
	"foundry-course-service/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	noticeCourseComplete = "Course complete!"
	noticeLeaveCourse    = "leave course"
)

type WSHandler struct {
	service  *app.CourseService
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.CourseService, log *zap.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectModulePayload struct {
	Target string `json:"target"`
}

type selectSubModulePayload struct {
	ModuleID    string `json:"moduleId"`
	SubModuleID string `json:"subModuleId"`
}

type takeQuizPayload struct {
	ModuleID string `json:"moduleId"`
}

type quizAnswerPayload struct {
	Option int `json:"option"`
}

type breadcrumbPayload struct {
	Kind domain.CrumbKind `json:"kind"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type noticePayload struct {
	Message string `json:"message"`
}

type courseNotFoundPayload struct {
	CourseID string `json:"courseId"`
}

// ServeWS upgrades HTTP requests to websockets and attaches them to the learner's
// navigation session for the requested course.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	courseID := r.URL.Query().Get("courseId")
	if courseID == "" {
		http.Error(w, "missing courseId", http.StatusBadRequest)
		return
	}
	userID, cookie := identify(r)

	var header http.Header
	if cookie != nil {
		header = http.Header{"Set-Cookie": []string{cookie.String()}}
	}
	conn, err := h.upgrader.Upgrade(w, r, header)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	session, err := h.service.Open(r.Context(), courseID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrCourseNotFound) {
			_ = conn.WriteJSON(outboundMessage[courseNotFoundPayload]{Type: "courseNotFound", Payload: courseNotFoundPayload{CourseID: courseID}})
			return
		}
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.service.Close(session)

	h.pump(conn, session)
}

// jsonConn is the part of a websocket connection the pump uses.
type jsonConn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// pump relays inbound messages to the session and state updates to the client until
// either side goes away. A failed write closes the connection so the read loop ends.
func (h *WSHandler) pump(conn jsonConn, session *app.Session) {
	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write failed", zap.Error(err))
				_ = conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: snap}:
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

read:
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		for _, msg := range h.dispatch(session, inbound) {
			select {
			case send <- msg:
			case <-writerDone:
				break read
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// dispatch applies one inbound message to the session. State changes reach the
// client through the subscription; the returned messages are the direct replies.
func (h *WSHandler) dispatch(session *app.Session, inbound inboundMessage) []outboundMessage[any] {
	var replies []outboundMessage[any]
	reply := func(typ string, payload any) {
		replies = append(replies, outboundMessage[any]{Type: typ, Payload: payload})
	}
	invalid := func() []outboundMessage[any] {
		reply("error", errorPayload{Message: "invalid " + inbound.Type + " payload"})
		return replies
	}

	var op func(t *app.Tracker) error
	switch inbound.Type {
	case "selectModule":
		var p selectModulePayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return invalid()
		}
		op = func(t *app.Tracker) error {
			t.SelectModule(domain.ParseTarget(p.Target))
			return nil
		}
	case "selectSubModule":
		var p selectSubModulePayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return invalid()
		}
		op = func(t *app.Tracker) error {
			t.SelectSubModule(p.ModuleID, p.SubModuleID)
			return nil
		}
	case "takeQuiz":
		var p takeQuizPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return invalid()
		}
		op = func(t *app.Tracker) error { return t.TakeQuiz(p.ModuleID) }
	case "quizAnswer":
		var p quizAnswerPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return invalid()
		}
		op = withQuiz(func(q *app.QuizAttempt) error {
			q.SelectAnswer(p.Option)
			return nil
		})
	case "quizNext":
		op = withQuiz(func(q *app.QuizAttempt) error { return q.Next() })
	case "quizPrevious":
		op = withQuiz(func(q *app.QuizAttempt) error {
			q.Previous()
			return nil
		})
	case "quizRetake":
		op = withQuiz(func(q *app.QuizAttempt) error {
			q.Retake()
			return nil
		})
	case "quizClose":
		op = func(t *app.Tracker) error {
			t.CloseQuiz()
			return nil
		}
	case "quizSubmit":
		op = func(t *app.Tracker) error {
			outcome, err := t.FinishQuiz()
			if err != nil {
				return err
			}
			reply("quizResult", outcome)
			return nil
		}
	case "next":
		op = func(t *app.Tracker) error {
			t.GoNext()
			return nil
		}
	case "previous":
		op = func(t *app.Tracker) error {
			t.GoPrevious()
			return nil
		}
	case "completeAssessment":
		op = func(t *app.Tracker) error {
			if t.CompleteFinalAssessment() {
				reply("notice", noticePayload{Message: noticeCourseComplete})
			}
			return nil
		}
	case "breadcrumb":
		var p breadcrumbPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return invalid()
		}
		op = func(t *app.Tracker) error {
			if t.SelectBreadcrumb(p.Kind) {
				reply("notice", noticePayload{Message: noticeLeaveCourse})
			}
			return nil
		}
	default:
		reply("error", errorPayload{Message: "unsupported message type"})
		return replies
	}

	if _, err := session.Update(op); err != nil {
		switch {
		case errors.Is(err, domain.ErrNoQuizAvailable):
			reply("notice", noticePayload{Message: err.Error()})
		default:
			reply("error", errorPayload{Message: err.Error()})
		}
	}
	return replies
}

func withQuiz(fn func(q *app.QuizAttempt) error) func(t *app.Tracker) error {
	return func(t *app.Tracker) error {
		q, ok := t.Quiz()
		if !ok {
			return domain.ErrNoActiveQuiz
		}
		return fn(q)
	}
}
