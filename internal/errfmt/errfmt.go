package errfmt

import (
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
)

// Kind 错误分类
type Kind string

const (
	KindConfiguration             Kind = "ConfigurationError"        // 配置文件缺失/无法解析（启动阶段致命）
	KindConnectionFailure         Kind = "ConnectionFailure"         // 探测过程中的认证/网络/超时错误
	KindMalformedConnectionString Kind = "MalformedConnectionString" // 连接字符串无法按方言语法解析
)

// maxDepth Inner链的最大展开深度，防止病态的循环错误链导致无限递归
const maxDepth = 32

// Error 带分类的错误，携带原因链和创建时的调用栈
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	stack   []uintptr
}

// New 创建分类错误
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		stack:   callers(),
	}
}

// Newf 创建格式化的分类错误
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap 包装底层错误并附加分类
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Cause:   cause,
		stack:   callers(),
	}
}

// Error 实现error接口
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap 返回原因错误，支持errors.Is/As
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsKind 判断错误链中是否存在指定分类的错误
func IsKind(err error, kind Kind) bool {
	for depth := 0; err != nil && depth < maxDepth; depth++ {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		err = unwrap(err)
	}
	return false
}

// Format 将错误链渲染为确定性的多行诊断文本
//
// 每一层输出 "<类型名>: <消息>"，存在原因错误时追加 "Inner: " 递归展开，
// 最后追加该层创建时的调用栈（仅分类错误携带）。输出只取决于错误链内容。
func Format(err error) string {
	if err == nil {
		return ""
	}
	return format(err, 0)
}

func format(err error, depth int) string {
	var sb strings.Builder

	sb.WriteString(name(err))
	sb.WriteString(": ")
	sb.WriteString(message(err))

	// 递归展开原因链（深度受限，循环链在maxDepth处截断）
	if cause := unwrap(err); cause != nil && depth < maxDepth {
		sb.WriteString("\nInner: ")
		sb.WriteString(format(cause, depth+1))
	}

	// 调用栈最后追加
	if e, ok := err.(*Error); ok && len(e.stack) > 0 {
		sb.WriteString("\n")
		sb.WriteString(formatStack(e.stack))
	}

	return sb.String()
}

// name 返回该层错误的显示名：分类错误用Kind，其余用Go类型名
func name(err error) string {
	if e, ok := err.(*Error); ok {
		return string(e.Kind)
	}
	t := reflect.TypeOf(err)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.String()
}

// message 返回该层自身的消息，去掉尾部重复的原因文本
func message(err error) string {
	msg := err.Error()
	if cause := unwrap(err); cause != nil {
		if suffix := ": " + cause.Error(); strings.HasSuffix(msg, suffix) {
			msg = strings.TrimSuffix(msg, suffix)
		}
	}
	return msg
}

func unwrap(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}

func callers() []uintptr {
	pc := make([]uintptr, 8)
	// 跳过runtime.Callers、callers本身和New/Wrap构造函数
	n := runtime.Callers(3, pc)
	return pc[:n]
}

func formatStack(pcs []uintptr) string {
	var lines []string
	frames := runtime.CallersFrames(pcs)
	for {
		fr, more := frames.Next()
		if fr.Function != "" {
			lines = append(lines, fmt.Sprintf("    at %s (%s:%d)", fr.Function, filepath.Base(fr.File), fr.Line))
		}
		if !more {
			break
		}
	}
	return strings.Join(lines, "\n")
}
