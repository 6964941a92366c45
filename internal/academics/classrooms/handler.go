package classrooms

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/platform/httpx"
	"github.com/edutrack/edutrack/internal/shared"
)

// Handler manages classroom endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers classroom routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.deactivate)
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
		h.logger.Error("list classrooms failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"classrooms": items, "pagination": pagination})
}

type createClassroomRequest struct {
	SchoolID       int64  `json:"school_id" validate:"required"`
	AcademicYearID int64  `json:"academic_year_id" validate:"required"`
	GradeID        int64  `json:"grade_id" validate:"required"`
	Name           string `json:"name" validate:"required"`
	TeacherID      *int64 `json:"teacher_id"`
	Capacity       *int   `json:"capacity" validate:"omitempty,min=1"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req createClassroomRequest
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
	room, err := h.service.Create(r.Context(), actor, CreateClassroomInput{
		SchoolID:       req.SchoolID,
		AcademicYearID: req.AcademicYearID,
		GradeID:        req.GradeID,
		Name:           req.Name,
		TeacherID:      req.TeacherID,
		Capacity:       req.Capacity,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, room)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "")
		return
	}
	room, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, room)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "")
		return
	}
	if err := h.service.Deactivate(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
