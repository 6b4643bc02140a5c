package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"thinkpath/gatekeeper/internal/config"
	"thinkpath/gatekeeper/internal/handler/middleware"
)

func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	verifier middleware.TokenVerifier,
	accessHandler *AccessHandler,
	adminHandler *AdminHandler,
) (*gin.Engine, error) {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Routes for any verified identity
	authed := r.Group("/")
	authed.Use(middleware.BearerAuth(verifier, logger))
	{
		authed.GET("/me", accessHandler.Me)
		authed.POST("/signup/invite", accessHandler.SignupInvite)
		authed.POST("/onboarding/complete", accessHandler.CompleteOnboarding)
	}

	// Admin routes (bearer + subject allow-list)
	if adminHandler != nil {
		admin := r.Group("/admin")
		admin.Use(middleware.BearerAuth(verifier, logger))
		admin.Use(middleware.AdminAuth(cfg.Admin.Subjects))
		{
			admin.POST("/invite-codes", adminHandler.CreateInviteCodes)
			admin.GET("/invite-codes", adminHandler.ListInviteCodes)
		}
	}

	return r, nil
}
