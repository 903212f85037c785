package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/writersinn/taskhub/internal/auth"
	"github.com/writersinn/taskhub/internal/cache"
	"github.com/writersinn/taskhub/internal/config"
	"github.com/writersinn/taskhub/internal/http/handlers"
	"github.com/writersinn/taskhub/internal/http/middlewares"
	"github.com/writersinn/taskhub/internal/observability"
	"github.com/writersinn/taskhub/internal/queue/redisclient"
	"github.com/writersinn/taskhub/internal/repo/postgres"
	"github.com/writersinn/taskhub/internal/uploads"
)

// Deps carries everything the router wires together. main builds these once
// and hands them over.
type Deps struct {
	Cfg      config.Config
	Log      *slog.Logger
	Pool     *pgxpool.Pool
	Prom     *observability.Prom
	Registry *prometheus.Registry
	Redis    *redisclient.Client // optional; nil falls back to in-memory rate limiting
	Uploads  uploads.Store
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware([]string{d.Cfg.FrontendOrigin}))
	r.Use(middlewares.MaxBodyBytes(10 << 20)) // uploads top out at 10MB

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(otelgin.Middleware("taskhub-api"))

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(d.Pool, d.Prom)
	tasksRepo := postgres.NewTasksRepo(d.Pool, d.Prom)
	assignmentsRepo := postgres.NewAssignmentsRepo(d.Pool, d.Prom, d.Cfg.Cooldown(), d.Cfg.DeadlineOffset())
	sessionsRepo := postgres.NewSessionsRepo(d.Pool, d.Prom)
	jobsRepo := postgres.NewJobsRepo(d.Pool, d.Prom)

	// auth plumbing
	jwtManager := auth.NewManager(d.Cfg.JWTSecret, time.Duration(d.Cfg.JWTAccessTTLMinutes)*time.Minute)
	magic := auth.NewMagicLink(d.Cfg.JWTSecret)
	authMW := middlewares.NewAuthMiddleware(jwtManager)

	// login endpoints get a tight fixed window per IP; when Redis is around
	// the counters are shared across replicas
	loginLimiter := middlewares.NewRateLimiter(5, time.Minute)
	adminLoginLimiter := middlewares.NewRateLimiter(10, time.Minute)

	if d.Redis != nil {
		loginLimiter.WithCounter(d.Redis, "rl:login")
		adminLoginLimiter.WithCounter(d.Redis, "rl:admin_login")
	}

	taskListing := cache.New(5 * time.Second)

	// wire up handlers
	healthHandler := handlers.NewHealthHandler(d.Pool)
	usersHandler := handlers.NewUsersHandler(usersRepo)
	authHandler := handlers.NewAuthHandler(usersRepo, sessionsRepo, jobsRepo, magic, jwtManager, d.Cfg)
	tasksHandler := handlers.NewTasksHandler(tasksRepo, usersRepo, d.Uploads, taskListing)
	assignmentsHandler := handlers.NewAssignmentsHandler(assignmentsRepo, usersRepo, tasksRepo, jobsRepo, d.Uploads, taskListing)
	exportHandler := handlers.NewExportHandler(usersRepo)
	adminJobsHandler := handlers.NewAdminJobsHandler(jobsRepo)

	// ops
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/readyz", healthHandler.Readyz)

	if d.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	requireJSON := middlewares.RequireJSON()

	// public surface
	r.POST("/add-user", requireJSON, usersHandler.AddUser)
	r.POST("/login", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), requireJSON, authHandler.Login)
	r.GET("/verify/:token", authHandler.Verify)
	r.GET("/tasks", tasksHandler.List)
	r.GET("/available-tasks/:email", tasksHandler.Available)
	r.POST("/take-task", requireJSON, assignmentsHandler.TakeTask)
	r.POST("/submit-task", assignmentsHandler.SubmitTask) // multipart
	r.GET("/assignments/:email", assignmentsHandler.ListForUser)
	r.GET("/user/:email", usersHandler.GetByEmail)

	// admin surface
	r.POST("/admin/login", adminLoginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), requireJSON, authHandler.AdminLogin)

	admin := r.Group("/", authMW.RequireAuth(), authMW.RequireRole("admin"))
	admin.POST("/admin/add-task", tasksHandler.AddTask) // multipart
	admin.POST("/admin/mark-subscribed", requireJSON, usersHandler.MarkSubscribed)
	admin.GET("/admin/export-subscribed", exportHandler.ExportSubscribed)
	admin.DELETE("/admin/subscribed", exportHandler.PurgeSubscribed)
	admin.GET("/users", usersHandler.List)

	// queue operations: dead notification jobs need an operator path back in
	admin.GET("/admin/jobs", adminJobsHandler.List)
	admin.GET("/admin/jobs/:id", adminJobsHandler.GetByID)
	admin.POST("/admin/jobs/:id/retry", adminJobsHandler.Retry)
	admin.POST("/admin/jobs/reprocess-dead", adminJobsHandler.ReprocessDead)

	return r
}
