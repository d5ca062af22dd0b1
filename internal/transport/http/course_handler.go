package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"foundry-course-service/internal/app"
	"foundry-course-service/internal/domain"
	"go.uber.org/zap"
)

// CourseHandler serves the catalogue and publish endpoints.
type CourseHandler struct {
	service *app.CourseService
	log     *zap.Logger
}

func NewCourseHandler(service *app.CourseService, log *zap.Logger) *CourseHandler {
	return &CourseHandler{service: service, log: log}
}

type publishResponse struct {
	Published bool `json:"published"`
}

func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.service.Catalog(r.Context())
	if err != nil {
		h.log.Error("list courses failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list courses")
		return
	}
	if courses == nil {
		courses = []domain.CourseSummary{}
	}
	writeJSON(w, http.StatusOK, courses)
}

func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	course, err := h.service.Course(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrCourseNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, course)
}

// Publish is a one-shot action; the client only learns whether it succeeded.
func (h *CourseHandler) Publish(w http.ResponseWriter, r *http.Request) {
	published := h.service.Publish(r.Context(), r.PathValue("id"))
	writeJSON(w, http.StatusOK, publishResponse{Published: published})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorPayload{Message: msg})
}
