package cmd

import (
	"fmt"
	"sync"

	"connprobe/internal/config"
	"connprobe/internal/logger"
)

var (
	globalConfig *config.Config
	initOnce     sync.Once
	initError    error
)

// InitSystem 加载配置并初始化日志系统（控制台+内存缓冲，可选轮转文件）
func InitSystem() error {
	initOnce.Do(func() {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			initError = err
			return
		}
		globalConfig = cfg

		if err := logger.Init(cfg.Log.Level, cfg.Log.Path, cfg.Log.MaxDays); err != nil {
			initError = fmt.Errorf("日志初始化失败: %w", err)
			return
		}
		if cfg.Log.Path != "" {
			logger.Info("日志系统初始化成功（文件+控制台）")
		} else {
			logger.Info("日志系统初始化成功（仅控制台）")
		}

		logger.Infof("已加载端点: %d 个", len(cfg.Endpoints))
		if cfg.Webhook.URL != "" {
			logger.Infof("检测报告回调: %s", cfg.Webhook.URL)
		}
		logger.Info("系统初始化完成")
	})
	return initError
}

// GetConfig 获取全局配置
func GetConfig() *config.Config {
	return globalConfig
}
