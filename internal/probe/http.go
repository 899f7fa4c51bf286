package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"connprobe/internal/errfmt"
)

// 失败响应的正文摘录上限
const (
	bodyExcerptChars = 500      // 摘录的最大字符数，超出部分截断并加省略号
	bodyReadLimit    = 64 << 10 // 为取摘录最多读取的字节数
)

// emptyBodyPlaceholder 空白响应体的固定占位文案
const emptyBodyPlaceholder = "<empty>"

// HTTPChecker HTTP/HTTPS检测器
//
// 校验证书与跳过校验各维护一个长生命周期的客户端，进程内所有
// HTTP探测共享，复用底层连接池，可并发使用。
type HTTPChecker struct {
	client         *http.Client // 正常校验证书
	insecureClient *http.Client // 跳过证书校验，仅当端点声明ignoreSslErrors时使用
}

// NewHTTPChecker 创建HTTP检测器
func NewHTTPChecker() *HTTPChecker {
	// 跳过证书验证的Transport，用于自签名证书的内部服务
	insecureTransport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true,
		},
	}

	return &HTTPChecker{
		client: &http.Client{
			Timeout:       httpTimeout,
			CheckRedirect: noRedirect,
		},
		insecureClient: &http.Client{
			Timeout:       httpTimeout,
			Transport:     insecureTransport,
			CheckRedirect: noRedirect,
		},
	}
}

// noRedirect 不跟随重定向，3xx响应按原样判定
func noRedirect(req *http.Request, via []*http.Request) error {
	return http.ErrUseLastResponse
}

// Check 对URL发起一次GET请求，2xx视为通过
//
// 非2xx渲染为 "HTTP <状态码> - <原因短语>" 加正文摘录；
// 网络层错误（DNS、拒绝连接、TLS握手、超时）走统一的错误格式化。
func (c *HTTPChecker) Check(ctx context.Context, endpoint Endpoint) *Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.ConnectionString, nil)
	if err != nil {
		return failureFrom(errfmt.Wrap(errfmt.KindMalformedConnectionString,
			"无效的URL", err))
	}

	client := c.client
	if endpoint.IgnoreSSLErrors {
		client = c.insecureClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return failureFrom(errfmt.Wrap(errfmt.KindConnectionFailure,
			"HTTP请求失败", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return success()
	}

	return failure(httpFailureMessage(resp))
}

// httpFailureMessage 渲染非2xx响应的失败文案
func httpFailureMessage(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}

	return fmt.Sprintf("HTTP %d - %s\n%s", resp.StatusCode, reason, bodyExcerpt(resp.Body))
}

// bodyExcerpt 读取响应体摘录
//
// 空白正文渲染为占位文案，超过上限的正文按字符数截断并追加省略号。
// 摘录尽力而为，读取中断时使用已读到的部分。
func bodyExcerpt(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, bodyReadLimit))

	text := string(raw)
	if strings.TrimSpace(text) == "" {
		return emptyBodyPlaceholder
	}

	if utf8.RuneCountInString(text) <= bodyExcerptChars {
		return text
	}
	return string([]rune(text)[:bodyExcerptChars]) + "..."
}
