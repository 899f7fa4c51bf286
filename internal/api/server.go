package api

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"connprobe/internal/config"
	"connprobe/internal/logger"
	"connprobe/internal/runner"
)

//go:embed web
var webFS embed.FS

// Server Web API 服务器
type Server struct {
	cfg    *config.Config
	runner *runner.Runner
	router *mux.Router
	server *http.Server
}

// NewServer 创建 API 服务器
func NewServer(cfg *config.Config, r *runner.Runner) *Server {
	s := &Server{
		cfg:    cfg,
		runner: r,
		router: mux.NewRouter(),
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:        cfg.Listen,
		Handler:     s.router,
		ReadTimeout: 10 * time.Second,
		// 写超时需覆盖最长的探测时限（HTTP探测30秒）
		WriteTimeout: 45 * time.Second,
	}

	return s
}

// registerRoutes 注册路由
func (s *Server) registerRoutes() {
	s.router.Use(corsMiddleware)

	// 内嵌前端页面
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/endpoints", s.handleGetEndpoints).Methods("GET")
	api.HandleFunc("/endpoints/{index}/test", s.handleTestEndpoint).Methods("POST")
	api.HandleFunc("/status", s.handleGetStatus).Methods("GET")
	api.HandleFunc("/logs", s.handleGetLogs).Methods("GET")
	api.HandleFunc("/logs/clear", s.handleClearLogs).Methods("POST")
}

// Start 启动 API 服务器
func (s *Server) Start() error {
	logger.Infof("[API] Web 管理界面启动: http://localhost%s", s.server.Addr)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("[API] 服务器错误: %v", err)
		}
	}()
	return nil
}

// Stop 停止 API 服务器
func (s *Server) Stop() error {
	logger.Info("[API] 正在停止 Web 服务器...")
	return s.server.Close()
}

// corsMiddleware CORS 中间件
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleIndex 首页
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	content, err := webFS.ReadFile("web/index.html")
	if err != nil {
		logger.Errorf("无法读取内置 index.html: %v", err)
		http.Error(w, "Web 界面加载失败", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(content)
}

// endpointSummary 返回给前端的端点视图
type endpointSummary struct {
	Index            int    `json:"index"`
	Name             string `json:"name"`
	ConnectionString string `json:"connectionString"`
	Type             string `json:"connectionType"`
	IgnoreSSLErrors  bool   `json:"ignoreSslErrors"`
	InFlight         bool   `json:"inFlight"` // 该端点是否有检测在途
}

// handleGetEndpoints 获取配置的端点列表（保持配置顺序）
func (s *Server) handleGetEndpoints(w http.ResponseWriter, r *http.Request) {
	summaries := make([]endpointSummary, 0, len(s.cfg.Endpoints))
	for i, endpoint := range s.cfg.Endpoints {
		summaries = append(summaries, endpointSummary{
			Index:            i,
			Name:             endpoint.Name,
			ConnectionString: endpoint.ConnectionString,
			Type:             endpoint.Type,
			IgnoreSSLErrors:  endpoint.IgnoreSSLErrors,
			InFlight:         s.runner.IsInFlight(i),
		})
	}

	respondSuccess(w, "获取端点列表成功", summaries)
}

// handleTestEndpoint 对单个端点执行一次检测
//
// 同一端点已有检测在途时返回409，前端据此保持按钮禁用。
// 检测本身的失败不是HTTP错误：结果原样放在data.result里返回。
func (s *Server) handleTestEndpoint(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil || index < 0 || index >= len(s.cfg.Endpoints) {
		respondError(w, "端点下标不存在", http.StatusNotFound)
		return
	}

	endpoint := s.cfg.Endpoints[index]
	invocationID := uuid.New().String()

	logger.Infof("[API] 触发检测: %s (invocation: %s)", endpoint.Name, invocationID)

	result, err := s.runner.TestEndpoint(r.Context(), index, endpoint)
	if errors.Is(err, runner.ErrTestInFlight) {
		respondError(w, "该端点已有一次检测在进行中", http.StatusConflict)
		return
	}
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondSuccess(w, "检测完成", map[string]interface{}{
		"invocationId": invocationID,
		"index":        index,
		"name":         endpoint.Name,
		"result":       result,
	})
}

// handleGetStatus 获取运行状态
func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"running":        true,
		"timestamp":      time.Now().Unix(),
		"endpoint_count": len(s.cfg.Endpoints),
		"webhook_url":    s.cfg.Webhook.URL,
	}

	respondSuccess(w, "获取状态成功", status)
}

// handleGetLogs 获取内存日志
func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	linesStr := r.URL.Query().Get("lines")
	lines := 100 // 默认返回最后100行
	if linesStr != "" {
		fmt.Sscanf(linesStr, "%d", &lines)
	}

	buffer := logger.GetBuffer()
	if buffer == nil {
		respondError(w, "日志缓冲区未初始化", http.StatusInternalServerError)
		return
	}

	logs := buffer.GetLogs(lines)

	var content string
	for _, log := range logs {
		content += fmt.Sprintf("[%s] [%s] %s\n",
			log.Timestamp.Format("2006-01-02 15:04:05"),
			log.Level,
			log.Message)
	}

	respondSuccess(w, "获取日志成功", map[string]interface{}{
		"content": content,
		"count":   len(logs),
		"lines":   lines,
	})
}

// handleClearLogs 清空内存日志
func (s *Server) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	buffer := logger.GetBuffer()
	if buffer == nil {
		respondError(w, "日志缓冲区未初始化", http.StatusInternalServerError)
		return
	}

	buffer.Clear()
	logger.Info("[API] 内存日志已清空")
	respondSuccess(w, "日志清理成功", nil)
}

// respondSuccess 成功响应
func respondSuccess(w http.ResponseWriter, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": message,
		"data":    data,
	})
}

// respondError 错误响应
func respondError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}
