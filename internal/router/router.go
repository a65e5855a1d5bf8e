package router

import (
	"net/http"
	"time"

	_ "github.com/3Eeeecho/go-cms/docs"
	"github.com/3Eeeecho/go-cms/internal/config"
	"github.com/3Eeeecho/go-cms/internal/handlers"
	"github.com/3Eeeecho/go-cms/internal/middlewares"
	"github.com/3Eeeecho/go-cms/internal/pkg/xerr"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RouterConfig 包含初始化路由所需的所有依赖
type RouterConfig struct {
	cfg           *config.Config
	uploadHandler *handlers.UploadHandler
	adminHandler  *handlers.AdminHandler
}

func NewRouterConfig(cfg *config.Config, uploadHandler *handlers.UploadHandler, adminHandler *handlers.AdminHandler) *RouterConfig {
	return &RouterConfig{
		cfg:           cfg,
		uploadHandler: uploadHandler,
		adminHandler:  adminHandler,
	}
}

func InitRouter(routerCfg *RouterConfig) *gin.Engine {
	// 设置 Gin 模式，开发环境为 debug，生产环境为 release
	if mode := routerCfg.cfg.Server.Mode; mode != "" {
		gin.SetMode(mode)
	}

	router := gin.Default() // 使用默认的 Gin 引擎，包含 Logger 和 Recovery 中间件

	// 全局中间件
	router.Use(cors.New(corsConfig(routerCfg.cfg.Server.AllowOrigins)))

	// Health Check 路由
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	{
		// 需要认证的路由组
		authenticated := v1.Group("/")
		authenticated.Use(middlewares.AuthMiddleware(&routerCfg.cfg.JWT))

		// 分片上传路由
		uploadGroup := authenticated.Group("/upload")
		{
			h := routerCfg.uploadHandler
			uploadGroup.POST("/init", h.Init)
			uploadGroup.PUT("/:upload_id/chunks/:index", h.PutChunk)
			uploadGroup.GET("/:upload_id/progress", h.Progress)
			uploadGroup.GET("/:upload_id", h.Get)
			uploadGroup.POST("/:upload_id/merge", h.Merge)
			uploadGroup.DELETE("/:upload_id", h.Cancel)
		}

		// 运维路由，仅管理员可用
		adminGroup := authenticated.Group("/admin")
		adminGroup.Use(middlewares.AdminOnly())
		{
			adminGroup.POST("/upload/sweep", routerCfg.adminHandler.SweepUploads)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		xerr.Error(c, http.StatusNotFound, xerr.NotFoundCode, "Route not found")
	})

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", handlers.ChunkHashHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
