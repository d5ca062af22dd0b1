package http

import (
	"net/http"

	"foundry-course-service/internal/app"
	"go.uber.org/zap"
)

// NewRouter wires the REST and websocket endpoints.
func NewRouter(service *app.CourseService, log *zap.Logger) http.Handler {
	ws := NewWSHandler(service, log)
	courses := NewCourseHandler(service, log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /ws", ws.ServeWS)
	mux.HandleFunc("GET /courses", courses.ListCourses)
	mux.HandleFunc("GET /courses/{id}", courses.GetCourse)
	mux.HandleFunc("POST /courses/{id}/publish", courses.Publish)
	return mux
}
