package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/3Eeeecho/go-cms/internal/config"
	"github.com/3Eeeecho/go-cms/internal/handlers"
	"github.com/3Eeeecho/go-cms/internal/pkg/lock"
	"github.com/3Eeeecho/go-cms/internal/pkg/logger"
	"github.com/3Eeeecho/go-cms/internal/pkg/mq"
	"github.com/3Eeeecho/go-cms/internal/pkg/telemetry"
	"github.com/3Eeeecho/go-cms/internal/repositories"
	"github.com/3Eeeecho/go-cms/internal/router"
	"github.com/3Eeeecho/go-cms/internal/services/media"
	"github.com/3Eeeecho/go-cms/internal/services/upload"
	"github.com/3Eeeecho/go-cms/internal/setup"
	"github.com/3Eeeecho/go-cms/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	cfg               *config.Config
	router            *gin.Engine
	httpServer        *http.Server
	db                *gorm.DB
	redisClient       *redis.Client
	rabbitMQClient    *mq.RabbitMQClient
	reaper            upload.ExpiryReaper
	shutdownTelemetry telemetry.ShutdownFunc
}

// NewServer 负责构建所有依赖
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	s := &Server{cfg: cfg}

	// 初始化数据库连接
	db, err := setup.InitDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	s.db = db

	// 初始化存储后端
	store, err := setup.InitStorage(cfg)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// 初始化锁，多实例部署时必须使用 redis
	var locker lock.KeyedLocker
	switch cfg.Upload.LockBackend {
	case "redis":
		s.redisClient, err = setup.InitRedis(ctx, &cfg.Redis)
		if err != nil {
			s.close()
			return nil, err
		}
		locker = lock.NewRedisLocker(s.redisClient, cfg.Upload.LockTTL)
	default:
		locker = lock.NewMemoryLocker()
	}

	// 初始化 rabbitmq，未配置时不发布登记事件
	var publisher mq.Publisher
	if cfg.RabbitMQ.URL != "" {
		s.rabbitMQClient, err = mq.NewRabbitMQClient(cfg.RabbitMQ.URL)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		publisher = s.rabbitMQClient
	}

	// 初始化指标导出
	s.shutdownTelemetry, err = telemetry.InitMeterProvider(ctx, &cfg.Telemetry)
	if err != nil {
		s.close()
		return nil, err
	}

	//  初始化 Repositories
	sessionRepo := repositories.NewSessionRepository(db)
	chunkRepo := repositories.NewChunkRepository(db)
	mediaRepo := repositories.NewMediaRepository(db)
	tm := repositories.NewTransactionManager(db)

	//  初始化 Services
	deps := &upload.Deps{
		Config:   cfg.Upload,
		Sessions: sessionRepo,
		Chunks:   chunkRepo,
		TM:       tm,
		Store:    store,
		Locker:   locker,
		Metrics:  telemetry.NewUploadMetrics(),
	}
	registrar := media.NewRegistrar(mediaRepo, publisher, cfg.RabbitMQ.FinalizedQueue)
	uploadService := upload.NewUploadService(deps, registrar)
	s.reaper = upload.NewExpiryReaper(deps)

	//  初始化 Handlers
	uploadHandler := handlers.NewUploadHandler(uploadService, cfg.Upload.MaxChunkSize)
	adminHandler := handlers.NewAdminHandler(uploadService)

	// 初始化 Gin 引擎和注册路由
	s.router = router.InitRouter(router.NewRouterConfig(cfg, uploadHandler, adminHandler))

	addr := ":" + cfg.Server.Port
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	return s, nil
}

// Run 启动服务器和 Worker，并处理优雅关机
func (s *Server) Run(ctx context.Context, stopChan chan os.Signal) {
	defer s.close()

	// 启动所有后台 Worker
	workers := worker.StartAllWorkers(ctx, &s.cfg.Upload, s.reaper)

	// 启动 HTTP 服务器
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server is running", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// 等待停止信号
	select {
	case <-stopChan:
	case <-ctx.Done():
	case err := <-serveErr:
		logger.Error("Server failed", zap.Error(err))
	}
	logger.Info("Shutting down server...")

	// 优雅关机，先停止接收请求，再停止后台任务
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	workers.Stop()
	logger.Info("Server exited gracefully")
}

// close 释放外部连接，可以在构建失败的中途调用
func (s *Server) close() {
	if s.shutdownTelemetry != nil {
		if err := s.shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("failed to flush metrics", zap.Error(err))
		}
	}
	if s.rabbitMQClient != nil {
		s.rabbitMQClient.Close()
	}
	if s.redisClient != nil {
		setup.CloseRedis(s.redisClient)
	}
	if s.db != nil {
		setup.CloseDatabase(s.db)
	}
}
