package students

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/platform/httpx"
	"github.com/edutrack/edutrack/internal/shared"
)

// Handler manages student endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers student routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{userID}", h.get)
	r.Patch("/{userID}", h.update)
	r.Delete("/{userID}", h.deactivate)
	r.Get("/{userID}/enrollments", h.enrollments)
	r.Post("/enrollments", h.enroll)
	r.Patch("/enrollments/{id}", h.updateEnrollment)
	r.Delete("/enrollments/{id}", h.deleteEnrollment)
}

func requireActor(w http.ResponseWriter, r *http.Request) (authz.Actor, bool) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return authz.Actor{}, false
	}
	return actor, true
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	filters := authz.ListFilters{Search: q.Get("search")}
	includeInactive := q.Get("include_inactive") == "true"

	items, pagination, err := h.service.List(r.Context(), actor, filters, shared.NewPagination(page, perPage, 0), includeInactive)
	if err != nil {
		h.logger.Error("list students failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"students": items, "pagination": pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "")
		return
	}
	student, err := h.service.Get(r.Context(), actor, userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, student)
}

type createStudentRequest struct {
	Email         string  `json:"email" validate:"required"`
	FullName      string  `json:"full_name" validate:"required"`
	Password      string  `json:"password" validate:"required"`
	SchoolID      int64   `json:"school_id" validate:"required"`
	GradeID       int64   `json:"grade_id" validate:"required"`
	DateOfBirth   string  `json:"date_of_birth" validate:"required"`
	AdmissionDate string  `json:"admission_date" validate:"required"`
	Address       *string `json:"address"`
	MedicalNotes  *string `json:"medical_notes"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req createStudentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", "")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		fields := map[string]string{}
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fields[fieldErr.Field()] = "invalid value"
		}
		httpx.ValidationProblem(w, fields)
		return
	}
	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		httpx.ValidationProblem(w, map[string]string{"date_of_birth": "expected YYYY-MM-DD"})
		return
	}
	admission, err := time.Parse("2006-01-02", req.AdmissionDate)
	if err != nil {
		httpx.ValidationProblem(w, map[string]string{"admission_date": "expected YYYY-MM-DD"})
		return
	}
	student, err := h.service.Create(r.Context(), actor, CreateStudentInput{
		Email:         req.Email,
		FullName:      req.FullName,
		Password:      req.Password,
		SchoolID:      req.SchoolID,
		GradeID:       req.GradeID,
		DateOfBirth:   dob,
		AdmissionDate: admission,
		Address:       req.Address,
		MedicalNotes:  req.MedicalNotes,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, student)
}

type updateStudentRequest struct {
	Email         *string `json:"email"`
	FullName      *string `json:"full_name"`
	SchoolID      *int64  `json:"school_id"`
	Address       *string `json:"address"`
	AdmissionDate *string `json:"admission_date"`
	CurrentStatus *string `json:"current_status"`
	MedicalNotes  *string `json:"medical_notes"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "")
		return
	}
	var req updateStudentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", "")
		return
	}
	in := UpdateStudentInput{
		Email:         req.Email,
		FullName:      req.FullName,
		SchoolID:      req.SchoolID,
		Address:       req.Address,
		CurrentStatus: req.CurrentStatus,
		MedicalNotes:  req.MedicalNotes,
	}
	if req.AdmissionDate != nil {
		admission, err := time.Parse("2006-01-02", *req.AdmissionDate)
		if err != nil {
			httpx.ValidationProblem(w, map[string]string{"admission_date": "expected YYYY-MM-DD"})
			return
		}
		in.AdmissionDate = &admission
	}
	student, err := h.service.Update(r.Context(), actor, userID, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, student)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "")
		return
	}
	if err := h.service.Deactivate(r.Context(), actor, userID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) enrollments(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "")
		return
	}
	items, err := h.service.Enrollments(r.Context(), actor, userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"enrollments": items})
}

type enrollRequest struct {
	StudentUserID  int64  `json:"student_user_id" validate:"required"`
	ClassroomID    int64  `json:"class_room_id" validate:"required"`
	AcademicYearID int64  `json:"academic_year_id" validate:"required"`
	Status         string `json:"status"`
}

func (h *Handler) enroll(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req enrollRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", "")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		fields := map[string]string{}
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fields[fieldErr.Field()] = "invalid value"
		}
		httpx.ValidationProblem(w, fields)
		return
	}
	enrollment, err := h.service.Enroll(r.Context(), actor, CreateEnrollmentInput{
		StudentUserID:  req.StudentUserID,
		ClassroomID:    req.ClassroomID,
		AcademicYearID: req.AcademicYearID,
		Status:         req.Status,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, enrollment)
}

type updateEnrollmentRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) updateEnrollment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "")
		return
	}
	var req updateEnrollmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", "")
		return
	}
	if req.Status == "" {
		httpx.ValidationProblem(w, map[string]string{"status": "status is required"})
		return
	}
	enrollment, err := h.service.UpdateEnrollment(r.Context(), actor, id, req.Status)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, enrollment)
}

func (h *Handler) deleteEnrollment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "")
		return
	}
	if err := h.service.DeleteEnrollment(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
