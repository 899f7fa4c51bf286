package probe

import (
	"context"
	"fmt"

	goping "github.com/go-ping/ping"

	"connprobe/internal/errfmt"
)

// PingChecker ICMP Ping检测器
type PingChecker struct{}

// NewPingChecker 创建Ping检测器
func NewPingChecker() *PingChecker {
	return &PingChecker{}
}

// Check 发送一个ICMP回显请求，时限内收到应答即视为通过
//
// 目标解析失败或发包失败走统一的错误格式化；发包成功但未收到
// 应答渲染为 "Ping failed: <状态描述>"。
func (c *PingChecker) Check(ctx context.Context, endpoint Endpoint) *Result {
	pinger, err := goping.NewPinger(endpoint.ConnectionString)
	if err != nil {
		return failureFrom(errfmt.Wrap(errfmt.KindConnectionFailure,
			"解析Ping目标失败", err))
	}

	// Linux系统使用特权模式发送原始ICMP包
	pinger.SetPrivileged(true)
	pinger.Count = 1
	pinger.Timeout = pingTimeout

	if err := pinger.Run(); err != nil {
		return failureFrom(errfmt.Wrap(errfmt.KindConnectionFailure,
			"发送ICMP请求失败", err))
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv > 0 {
		return success()
	}

	return failure("Ping failed: " + pingStatus(stats))
}

// pingStatus 描述未收到应答时的状态
func pingStatus(stats *goping.Statistics) string {
	return fmt.Sprintf("no echo reply within %s (sent %d, received %d)",
		pingTimeout, stats.PacketsSent, stats.PacketsRecv)
}
