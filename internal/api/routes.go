package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"slidestudio/internal/api/middleware"
	"slidestudio/internal/auth"
	"slidestudio/internal/catalog"
	"slidestudio/internal/config"
	"slidestudio/internal/editor"
	"slidestudio/internal/media"
	"slidestudio/internal/notify"
	"slidestudio/internal/repository"
	"slidestudio/internal/slider"
)

// Dependencies 汇总路由需要的服务。Redis、Media、Enqueuer 与 Objects 可以为空。
type Dependencies struct {
	Config   *config.Config
	Repo     *repository.Repository
	Auth     *auth.AuthService
	Redis    redis.UniversalClient
	Sessions *editor.Manager
	Catalog  *catalog.Catalog
	Slider   *slider.Service
	Media    *media.Service
	Notifier notify.Notifier
	Enqueuer TaskEnqueuer
	Objects  ObjectCleaner
	Logger   *slog.Logger
}

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.Discard{}
	}

	var resolver MediaResolver
	if deps.Media != nil {
		resolver = deps.Media
	}

	authHandler := NewAuthHandler(deps.Repo, deps.Auth, deps.Redis, logger,
		cfg.Auth.LoginRateLimitPerHour, cfg.Auth.LoginLockThreshold, cfg.Auth.LoginLockTTL, cfg.API.CookieDomain)
	wsHandler := NewWsHandler(deps.Redis, deps.Auth, logger, cfg.API.AllowedOrigins)
	editorHandler := NewEditorHandler(deps.Sessions, deps.Catalog, deps.Repo, resolver, notifier, deps.Enqueuer,
		cfg.Editor.HistoryLimit, cfg.Worker.MaxRetry, logger)
	designHandler := NewDesignHandler(deps.Repo, deps.Catalog, resolver, deps.Objects)
	templateHandler := NewTemplateHandler(deps.Catalog)
	sliderHandler := NewSliderHandler(deps.Slider)

	authMiddleware := middleware.AuthMiddleware(deps.Auth)
	passwordGate := middleware.RequirePasswordChangeCompletedMiddleware()
	requireAdmin := middleware.RequireAdmin()

	v1 := router.Group("/v1")
	{
		if deps.Redis != nil {
			v1.GET("/ws", wsHandler.HandleConnection)
		}

		v1.GET("/public/slider", sliderHandler.PublicItems)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
			authGroup.GET("/me", authMiddleware, authHandler.Me)
			authGroup.POST("/change-password", authMiddleware, authHandler.ChangePassword)
		}

		member := v1.Group("")
		member.Use(authMiddleware, passwordGate)
		{
			member.GET("/designs", designHandler.ListDesigns)
			member.GET("/designs/:id", designHandler.GetDesign)
			member.GET("/designs/:id/preview", designHandler.PreviewDesign)
			member.GET("/designs/:id/export", designHandler.ExportDesign)

			member.GET("/templates", templateHandler.ListTemplates)
			member.GET("/templates/:id", templateHandler.GetTemplate)
		}

		admin := v1.Group("")
		admin.Use(authMiddleware, passwordGate, requireAdmin)
		{
			admin.DELETE("/designs/:id", designHandler.DeleteDesign)

			admin.POST("/templates", templateHandler.CreateTemplate)
			admin.DELETE("/templates/:id", templateHandler.DeleteTemplate)

			admin.GET("/slider", sliderHandler.ListItems)
			admin.POST("/slider", sliderHandler.CreateItem)
			admin.PUT("/slider/:id", sliderHandler.UpdateItem)
			admin.POST("/slider/:id/move", sliderHandler.MoveItem)
			admin.DELETE("/slider/:id", sliderHandler.DeleteItem)

			if deps.Media != nil {
				mediaHandler := NewMediaHandler(deps.Media, deps.Redis)
				admin.POST("/media", mediaHandler.Upload)
				admin.GET("/media", mediaHandler.List)
				admin.DELETE("/media/:id", mediaHandler.Delete)
			}
		}

		sessions := admin.Group("/editor/sessions")
		{
			sessions.POST("", editorHandler.OpenSession)
			sessions.GET("/:sid", editorHandler.GetSession)
			sessions.DELETE("/:sid", editorHandler.CloseSession)

			sessions.POST("/:sid/elements", editorHandler.AddElement)
			sessions.PATCH("/:sid/elements/:eid", editorHandler.UpdateElement)
			sessions.DELETE("/:sid/elements/:eid", editorHandler.RemoveElement)
			sessions.POST("/:sid/elements/:eid/duplicate", editorHandler.DuplicateElement)

			sessions.POST("/:sid/select", editorHandler.Select)
			sessions.POST("/:sid/tool", editorHandler.SetTool)
			sessions.POST("/:sid/canvas-click", editorHandler.CanvasClick)
			sessions.POST("/:sid/gestures", editorHandler.Gesture)
			sessions.POST("/:sid/text-edit", editorHandler.TextEdit)
			sessions.POST("/:sid/keys", editorHandler.KeyDown)
			sessions.POST("/:sid/undo", editorHandler.Undo)
			sessions.POST("/:sid/redo", editorHandler.Redo)
			sessions.PATCH("/:sid/metadata", editorHandler.UpdateMetadata)

			sessions.GET("/:sid/preview", editorHandler.Preview)
			sessions.GET("/:sid/export", editorHandler.Export)
			sessions.POST("/:sid/save", editorHandler.Save)
		}
	}
}
