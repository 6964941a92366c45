package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/edutrack/edutrack/internal/academics/classrooms"
	"github.com/edutrack/edutrack/internal/academics/courses"
	"github.com/edutrack/edutrack/internal/academics/grades"
	"github.com/edutrack/edutrack/internal/academics/years"
	"github.com/edutrack/edutrack/internal/accounts"
	"github.com/edutrack/edutrack/internal/auth"
	"github.com/edutrack/edutrack/internal/guardians"
	"github.com/edutrack/edutrack/internal/messaging"
	"github.com/edutrack/edutrack/internal/notifications"
	"github.com/edutrack/edutrack/internal/observability"
	"github.com/edutrack/edutrack/internal/schools"
	"github.com/edutrack/edutrack/internal/shared"
	"github.com/edutrack/edutrack/internal/students"
	"github.com/edutrack/edutrack/internal/workstreams"
	"github.com/edutrack/edutrack/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Actors         ActorSource
	Metrics        *observability.Metrics

	AuthHandler          *auth.Handler
	AccountsHandler      *accounts.Handler
	WorkstreamsHandler   *workstreams.Handler
	SchoolsHandler       *schools.Handler
	YearsHandler         *years.Handler
	GradesHandler        *grades.Handler
	CoursesHandler       *courses.Handler
	ClassroomsHandler    *classrooms.Handler
	GuardiansHandler     *guardians.Handler
	StudentsHandler      *students.Handler
	MessagingHandler     *messaging.Handler
	NotificationsHandler *notifications.Handler
	JobHandler           *jobs.Handler
}

// NewRouter constructs the chi.Router with eduTrack defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Actors:         params.Actors,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", params.AccountsHandler.MountRoutes)
		r.Route("/work-streams", params.WorkstreamsHandler.MountRoutes)
		r.Route("/schools", params.SchoolsHandler.MountRoutes)
		r.Route("/academic-years", params.YearsHandler.MountRoutes)
		r.Route("/grades", params.GradesHandler.MountRoutes)
		r.Route("/courses", params.CoursesHandler.MountRoutes)
		r.Route("/classrooms", params.ClassroomsHandler.MountRoutes)
		r.Route("/guardians", params.GuardiansHandler.MountRoutes)
		r.Route("/students", params.StudentsHandler.MountRoutes)
		r.Route("/messages", params.MessagingHandler.MountRoutes)
		r.Route("/notifications", params.NotificationsHandler.MountRoutes)
	})
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
