package app

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cognis/internal/config"
	"cognis/internal/domain"
	"cognis/internal/middleware"
	"cognis/internal/modules/artifacts"
	"cognis/internal/modules/audit"
	"cognis/internal/modules/auth"
	"cognis/internal/modules/cases"
	"cognis/internal/modules/conversation"
	"cognis/internal/modules/dashboard"
	"cognis/internal/modules/health"
	"cognis/internal/modules/ufdr"
	"cognis/internal/pkg/jwt"
	"cognis/internal/pkg/ratelimit"
	"cognis/internal/pkg/response"
	"cognis/internal/repository"
	"cognis/internal/telemetry"
)

// App is the assembled HTTP service.
type App struct {
	Router *gin.Engine
	Auth   *auth.Service
	Tokens *jwt.Service

	recorder *middleware.AuditRecorder
}

// New wires repositories, services and routes. rdb is optional; without it
// login throttling is per process.
func New(cfg *config.Config, db *gorm.DB, rdb redis.UniversalClient) (*App, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}

	tokens, err := jwt.New(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.JWTAccessTTL)
	if err != nil {
		return nil, err
	}

	storage, err := ufdr.NewStorage(cfg.StoragePath)
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepository(db)
	caseRepo := repository.NewCaseRepository(db)
	fileRepo := repository.NewFileRepository(db)
	artifactRepo := repository.NewArtifactRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	var limiter ratelimit.Limiter
	if rdb != nil {
		limiter = ratelimit.NewRedis(rdb, cfg.LoginRateLimit, cfg.LoginRateWindow)
	} else {
		limiter = ratelimit.NewInMemory(cfg.LoginRateLimit, cfg.LoginRateWindow)
	}

	guard := middleware.NewGuard(tokens, userRepo)
	recorder := middleware.NewAuditRecorder(auditRepo, cfg.AuditQueueSize)

	authService := auth.NewService(userRepo, tokens)
	authHandler := auth.NewHandler(authService, middleware.RateLimit(limiter, "login"))
	casesHandler := cases.NewHandler(cases.NewService(caseRepo))
	ufdrHandler := ufdr.NewHandler(ufdr.NewService(fileRepo, caseRepo, storage, cfg.MaxUploadSize))
	artifactService := artifacts.NewService(fileRepo, artifactRepo)
	artifactsHandler := artifacts.NewHandler(artifactService)
	conversationHandler := conversation.NewHandler(conversation.NewService(artifactService))
	dashboardHandler := dashboard.NewHandler(dashboard.NewService(userRepo, caseRepo, fileRepo, artifactRepo, fileRepo))
	auditHandler := audit.NewHandler(audit.NewService(auditRepo))
	healthHandler := health.NewHandler(sqlDB)

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	// The recorder must wrap everything else to see the final status.
	r.Use(
		recorder.Middleware(),
		gin.Logger(),
		middleware.ErrorLogger(),
		middleware.CORS(cfg.CORSAllowedOrigins),
		middleware.Metrics(),
		telemetry.Middleware(),
	)

	healthHandler.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(telemetry.MetricsHandler()))
	authHandler.RegisterPublicRoutes(&r.RouterGroup)

	protected := r.Group("/")
	protected.Use(guard.RequireAuth())
	{
		adminOnly := guard.RequireRole(domain.RoleAdmin)

		authHandler.RegisterProtectedRoutes(protected)
		casesHandler.RegisterRoutes(protected, adminOnly)
		ufdrHandler.RegisterRoutes(protected)
		artifactsHandler.RegisterRoutes(protected)
		conversationHandler.RegisterRoutes(protected)
		dashboardHandler.RegisterRoutes(protected)
		auditHandler.RegisterRoutes(protected, adminOnly)
	}

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Route not found")
	})

	return &App{Router: r, Auth: authService, Tokens: tokens, recorder: recorder}, nil
}

// Close flushes pending audit entries. Call it after the HTTP server has
// stopped accepting requests.
func (a *App) Close() {
	a.recorder.Close()
}
