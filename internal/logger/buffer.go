package logger

import (
	"container/ring"
	"sync"
	"time"
)

// LogEntry 日志条目
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// LogBuffer 内存日志缓冲区，固定容量，写满后覆盖最旧的条目
type LogBuffer struct {
	buffer *ring.Ring
	mu     sync.RWMutex
	size   int
}

var globalBuffer *LogBuffer

// InitBuffer 初始化全局日志缓冲区
func InitBuffer(size int) {
	globalBuffer = &LogBuffer{
		buffer: ring.New(size),
		size:   size,
	}
}

// AddLog 追加一条日志
func (lb *LogBuffer) AddLog(level, message string) {
	if lb == nil {
		return
	}

	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.buffer.Value = LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
	}
	lb.buffer = lb.buffer.Next()
}

// GetLogs 获取最近的N条日志，从旧到新
func (lb *LogBuffer) GetLogs(n int) []LogEntry {
	if lb == nil {
		return []LogEntry{}
	}

	lb.mu.RLock()
	defer lb.mu.RUnlock()

	var logs []LogEntry
	lb.buffer.Do(func(v interface{}) {
		if v != nil {
			logs = append(logs, v.(LogEntry))
		}
	})

	// 超出N条时只保留最新的部分
	if n >= 0 && len(logs) > n {
		logs = logs[len(logs)-n:]
	}

	return logs
}

// Clear 清空日志缓冲区
func (lb *LogBuffer) Clear() {
	if lb == nil {
		return
	}

	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.buffer = ring.New(lb.size)
}

// GetBuffer 获取全局缓冲区
func GetBuffer() *LogBuffer {
	return globalBuffer
}
