// internal/routes/router.go
package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"punchclock_backend/internal/config"
	"punchclock_backend/internal/directory"
	"punchclock_backend/internal/handlers"
	"punchclock_backend/internal/middleware"
	"punchclock_backend/internal/punch"
)

func NewRouter(db *gorm.DB, cfg config.Config, svc *punch.Service) *gin.Engine {
	r := gin.Default()

	dir := directory.New(db)
	authH := handlers.NewAuthHandler(dir, cfg.JWTSecret)
	punchH := handlers.NewPunchHandler(svc)
	adminH := handlers.NewAdminHandler(db, svc.Ledger)

	r.GET("/health", handlers.Health)

	api := r.Group("/api/v1")
	{
		api.POST("/auth/login", authH.Login)
	}

	att := r.Group("/api/v1/attendance")
	att.Use(middleware.AuthRequired(cfg.JWTSecret))
	{
		att.POST("/punch", punchH.Scan)
		att.POST("/manual/redeem", punchH.Redeem)
		att.GET("/today", punchH.Today)
		att.POST("/manual/issue", middleware.RequireManager(dir), punchH.IssueManualCode)
	}

	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.AuthRequired(cfg.JWTSecret), middleware.RequireManager(dir))
	{
		admin.GET("/devices/:id/chain", adminH.VerifyChain)
		admin.GET("/devices/:id/events", adminH.ListDeviceEvents)
	}

	return r
}
