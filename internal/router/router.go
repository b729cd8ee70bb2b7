package router

import (
	"time"

	"transitdesk/internal/audit"
	"transitdesk/internal/config"
	"transitdesk/internal/handler"
	"transitdesk/internal/middleware"
	"transitdesk/internal/model"
	"transitdesk/internal/repository"
	"transitdesk/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(cfg.RateLimitPerMinute, time.Minute))

	// ── Repositories ─────────────────────────────────────────────────────────
	shiftRepo := repository.NewShiftRepository(db)
	salesLedger := repository.NewSalesLedger(db)

	// ── Services ─────────────────────────────────────────────────────────────
	events := audit.NewRedisPublisher(rdb)
	shiftSvc := service.NewShiftService(shiftRepo, salesLedger, events)
	approvalSvc := service.NewApprovalService(shiftRepo, events)

	// ── Handlers ─────────────────────────────────────────────────────────────
	shiftsH := handler.NewShiftsHandler(shiftSvc)
	reportsH := handler.NewReportsHandler(approvalSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		counterStaff := middleware.RequireRole(model.RoleOperator, model.RoleManager, model.RoleAdmin)
		backOffice := middleware.RequireRole(model.RoleAccountant, model.RoleManager, model.RoleAdmin)
		anyStaff := middleware.RequireRole(model.RoleOperator, model.RoleAccountant, model.RoleManager, model.RoleAdmin)

		shifts := v1.Group("/shifts")
		{
			shifts.POST("/start", counterStaff, shiftsH.Start)
			shifts.POST("/:id/activate", counterStaff, shiftsH.Activate)
			shifts.POST("/:id/pause", counterStaff, shiftsH.Pause)
			shifts.POST("/:id/resume", counterStaff, shiftsH.Resume)
			shifts.POST("/:id/close", counterStaff, shiftsH.Close)
			shifts.GET("/active", counterStaff, shiftsH.GetActive)
			shifts.GET("", backOffice, shiftsH.History)
			shifts.GET("/:id", anyStaff, shiftsH.GetByID)
			shifts.GET("/:id/sales", anyStaff, shiftsH.ListSales)
		}

		reports := v1.Group("/reports")
		{
			reports.GET("/:id", anyStaff, reportsH.Get)
			// Each approval is gated to exactly the role that signs it.
			reports.POST("/:id/approve-accountant", middleware.RequireRole(model.RoleAccountant), reportsH.ApproveAccountant)
			reports.POST("/:id/approve-manager", middleware.RequireRole(model.RoleManager), reportsH.ApproveManager)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
