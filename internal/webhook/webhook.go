package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"connprobe/internal/config"
	"connprobe/internal/logger"
	"connprobe/internal/runner"
)

// reportPayload 回调请求体
type reportPayload struct {
	Timestamp int64          `json:"timestamp"` // 报告生成时间（Unix秒）
	Total     int            `json:"total"`     // 检测的端点总数
	Failed    int            `json:"failed"`    // 失败的端点数
	Entries   []runner.Entry `json:"entries"`   // 逐端点结果，与配置同序
}

// Client 检测报告回调客户端
type Client struct {
	cfg        config.WebhookConfig
	httpClient *http.Client
}

// NewClient 创建回调客户端
func NewClient(cfg config.WebhookConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SendReport 把一次批量检测的报告POST到配置的URL
//
// 只尝试一次，不重试；未配置URL时直接跳过。
func (c *Client) SendReport(ctx context.Context, report *runner.Report) error {
	if c.cfg.URL == "" {
		logger.Debug("[WEBHOOK] 未配置URL，跳过报告回调")
		return nil
	}

	payload := reportPayload{
		Timestamp: time.Now().Unix(),
		Total:     len(report.Entries),
		Failed:    report.Failed(),
		Entries:   report.Entries,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化检测报告失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("创建回调请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	logger.Infof("[WEBHOOK] 发送检测报告: %s (失败 %d/%d)", c.cfg.URL, payload.Failed, payload.Total)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Errorf("[WEBHOOK] ✗ 发送失败: %v", err)
		return fmt.Errorf("发送检测报告失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warnf("[WEBHOOK] 响应状态码异常: %d", resp.StatusCode)
		return fmt.Errorf("回调响应状态码异常: %d", resp.StatusCode)
	}

	logger.Infof("[WEBHOOK] ✓ 检测报告已送达 (状态码: %d)", resp.StatusCode)
	return nil
}
