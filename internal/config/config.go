package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"connprobe/internal/probe"
)

// Config 运行配置
type Config struct {
	Endpoints []probe.Endpoint // 端点列表，加载后只读
	Webhook   WebhookConfig
	Log       LogConfig
	Listen    string // serve模式的监听地址
}

// WebhookConfig 检测报告回调配置
type WebhookConfig struct {
	URL     string // 为空表示不回调
	Timeout int    // 请求超时（秒）
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string
	Path    string // 为空表示仅控制台输出
	MaxDays int
}

// Load 加载运行配置
//
// source是endpoints文件的位置：本地路径、http(s):// URL或
// s3://bucket/key对象。日志与回调等环境项可通过.env覆盖。
func Load(source string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Listen = getEnvString("LISTEN_ADDR", ":8080")

	cfg.Webhook.URL = os.Getenv("WEBHOOK_URL")
	cfg.Webhook.Timeout = getEnvInt("WEBHOOK_TIMEOUT", 10)

	cfg.Log.Level = getEnvString("LOG_LEVEL", "info")
	cfg.Log.Path = getEnvString("LOG_PATH", "")
	cfg.Log.MaxDays = getEnvInt("LOG_MAX_DAYS", 30)

	endpoints, err := loadEndpoints(source)
	if err != nil {
		return nil, err
	}
	cfg.Endpoints = endpoints

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
