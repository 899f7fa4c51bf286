package probe

import (
	"context"
	"strings"
	"time"

	"connprobe/internal/errfmt"
)

// Kind 连接类型
type Kind string

const (
	KindMSSQL  Kind = "mssql"
	KindOracle Kind = "oracle"
	KindHTTP   Kind = "http"
	KindHTTPS  Kind = "https"
	KindPing   Kind = "ping"
)

// 各协议的固定检测时限
const (
	sqlConnectTimeout = 10 * time.Second // 数据库连接建立超时
	httpTimeout       = 30 * time.Second // HTTP请求整体超时
	pingTimeout       = 3 * time.Second  // ICMP往返超时
)

// unsupportedMessage 未识别连接类型的固定失败文案
const unsupportedMessage = "Unsupported connection type."

// ParseKind 大小写不敏感地解析连接类型
func ParseKind(s string) (Kind, bool) {
	kind := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch kind {
	case KindMSSQL, KindOracle, KindHTTP, KindHTTPS, KindPing:
		return kind, true
	}
	return "", false
}

// Endpoint 一个待检测的端点定义，加载后只读
type Endpoint struct {
	Name             string `json:"name" yaml:"name"`                         // 显示名称
	ConnectionString string `json:"connectionString" yaml:"connectionString"` // 连接描述串，语法取决于连接类型
	Type             string `json:"connectionType" yaml:"connectionType"`     // 连接类型: mssql/oracle/http/https/ping
	IgnoreSSLErrors  bool   `json:"ignoreSslErrors" yaml:"ignoreSslErrors"`   // 跳过证书校验，仅对mssql/http/https生效
}

// Result 统一的检测结果
type Result struct {
	Success      bool   `json:"success"`                // 是否成功
	ErrorMessage string `json:"errorMessage,omitempty"` // 失败原因，仅失败时设置
}

// success 构造成功结果
func success() *Result {
	return &Result{Success: true}
}

// failure 构造失败结果
func failure(message string) *Result {
	return &Result{ErrorMessage: message}
}

// failureFrom 将错误链渲染为失败结果
func failureFrom(err error) *Result {
	return failure(errfmt.Format(err))
}

// Checker 检测器接口，每种协议族一个实现
type Checker interface {
	// Check 对端点执行一次有界时间的连通性检测
	Check(ctx context.Context, endpoint Endpoint) *Result
}

// Registry 连接类型到检测器的映射表
type Registry struct {
	checkers map[Kind]Checker
}

// NewRegistry 创建包含全部五种连接类型的检测器注册表
//
// http与https共用同一个HTTPChecker实例，复用底层连接池。
func NewRegistry() *Registry {
	httpChecker := NewHTTPChecker()

	return &Registry{
		checkers: map[Kind]Checker{
			KindMSSQL:  NewMSSQLChecker(),
			KindOracle: NewOracleChecker(),
			KindHTTP:   httpChecker,
			KindHTTPS:  httpChecker,
			KindPing:   NewPingChecker(),
		},
	}
}

// Register 注册或覆盖指定连接类型的检测器
func (r *Registry) Register(kind Kind, checker Checker) {
	r.checkers[kind] = checker
}

// Dispatch 按端点声明的连接类型选择并调用对应检测器
//
// 未识别的类型直接返回固定失败结果，不发起任何I/O。
// 底层检测器的一切失败都已转换为Result，本层不向调用方抛错。
func (r *Registry) Dispatch(ctx context.Context, endpoint Endpoint) *Result {
	kind, ok := ParseKind(endpoint.Type)
	if !ok {
		return failure(unsupportedMessage)
	}

	checker, ok := r.checkers[kind]
	if !ok {
		return failure(unsupportedMessage)
	}

	return checker.Check(ctx, endpoint)
}
