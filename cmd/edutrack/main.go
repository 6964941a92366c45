package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/edutrack/edutrack/internal/academics/classrooms"
	"github.com/edutrack/edutrack/internal/academics/courses"
	"github.com/edutrack/edutrack/internal/academics/grades"
	"github.com/edutrack/edutrack/internal/academics/years"
	"github.com/edutrack/edutrack/internal/accounts"
	"github.com/edutrack/edutrack/internal/app"
	"github.com/edutrack/edutrack/internal/auth"
	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/guardians"
	"github.com/edutrack/edutrack/internal/messaging"
	"github.com/edutrack/edutrack/internal/notifications"
	"github.com/edutrack/edutrack/internal/observability"
	"github.com/edutrack/edutrack/internal/platform/cache"
	"github.com/edutrack/edutrack/internal/platform/db"
	"github.com/edutrack/edutrack/internal/schools"
	"github.com/edutrack/edutrack/internal/shared"
	"github.com/edutrack/edutrack/internal/students"
	"github.com/edutrack/edutrack/internal/workstreams"
	"github.com/edutrack/edutrack/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "edutrack_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})

	metrics := observability.NewMetrics()

	guardiansRepo := guardians.NewRepository(dbpool)
	resolver := authz.NewResolver(guardiansRepo)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	notificationsRepo := notifications.NewRepository(dbpool)
	notificationsService := notifications.NewService(notificationsRepo, jobClient, logger)
	notificationsHandler := notifications.NewHandler(logger, notificationsService)

	accountsRepo := accounts.NewRepository(dbpool)
	accountsService := accounts.NewService(accountsRepo, resolver, notificationsService)
	accountsHandler := accounts.NewHandler(logger, accountsService)

	workstreamsRepo := workstreams.NewRepository(dbpool)
	workstreamsService := workstreams.NewService(workstreamsRepo)
	workstreamsHandler := workstreams.NewHandler(logger, workstreamsService)

	schoolsRepo := schools.NewRepository(dbpool)
	schoolsService := schools.NewService(schoolsRepo, resolver)
	schoolsHandler := schools.NewHandler(logger, schoolsService)

	yearsRepo := years.NewRepository(dbpool)
	yearsService := years.NewService(yearsRepo, resolver)
	yearsHandler := years.NewHandler(logger, yearsService)

	gradesRepo := grades.NewRepository(dbpool)
	gradesService := grades.NewService(gradesRepo)
	gradesHandler := grades.NewHandler(logger, gradesService)

	coursesRepo := courses.NewRepository(dbpool)
	coursesService := courses.NewService(coursesRepo, resolver)
	coursesHandler := courses.NewHandler(logger, coursesService)

	classroomsRepo := classrooms.NewRepository(dbpool)
	classroomsService := classrooms.NewService(classroomsRepo, resolver)
	classroomsHandler := classrooms.NewHandler(logger, classroomsService)

	guardiansService := guardians.NewService(guardiansRepo, resolver)
	guardiansHandler := guardians.NewHandler(logger, guardiansService)

	studentsRepo := students.NewRepository(dbpool)
	studentsService := students.NewService(studentsRepo, resolver)
	studentsHandler := students.NewHandler(logger, studentsService)

	messagingRepo := messaging.NewRepository(dbpool)
	messagingService := messaging.NewService(messagingRepo, resolver, notificationsService)
	messagingHandler := messaging.NewHandler(logger, messagingService)

	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		SessionManager:       sessionManager,
		CSRFManager:          csrfManager,
		Actors:               accountsRepo,
		Metrics:              metrics,
		AuthHandler:          authHandler,
		AccountsHandler:      accountsHandler,
		WorkstreamsHandler:   workstreamsHandler,
		SchoolsHandler:       schoolsHandler,
		YearsHandler:         yearsHandler,
		GradesHandler:        gradesHandler,
		CoursesHandler:       coursesHandler,
		ClassroomsHandler:    classroomsHandler,
		GuardiansHandler:     guardiansHandler,
		StudentsHandler:      studentsHandler,
		MessagingHandler:     messagingHandler,
		NotificationsHandler: notificationsHandler,
		JobHandler:           jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
