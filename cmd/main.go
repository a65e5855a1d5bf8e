package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/3Eeeecho/go-cms/cmd/server"
	"github.com/3Eeeecho/go-cms/internal/config"
	"github.com/3Eeeecho/go-cms/internal/pkg/logger"
	"go.uber.org/zap"
)

// @title go-cms upload API
// @version 1.0
// @description 分片上传、断点续传与合并发布接口
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("加载配置出错", zap.Error(err))
	}

	//初始化日志系统
	if err = os.MkdirAll("logs", 0755); err != nil {
		logger.Fatal("初始化日志系统失败", zap.Error(err))
	}
	logger.InitLogger(cfg.Log.OutputPath, cfg.Log.ErrorPath, cfg.Log.Level)
	defer logger.Sync() // 确保在应用退出时刷新所有缓冲的日志条目

	logger.Info("启动内容管理上传服务...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 创建并构建应用服务器实例
	srv, err := server.NewServer(ctx, cfg)
	if err != nil {
		logger.Fatal("无法启动应用程序", zap.Error(err))
	}

	// 创建一个通道用于接收停止信号
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	srv.Run(ctx, stopChan)

	logger.Info("上传服务已退出。")
}
