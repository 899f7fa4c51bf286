package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"connprobe/internal/config"
	"connprobe/internal/logger"
	"connprobe/internal/probe"
	"connprobe/internal/runner"
)

// envelope API统一响应结构
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type checkerFunc func(ctx context.Context, endpoint probe.Endpoint) *probe.Result

func (f checkerFunc) Check(ctx context.Context, endpoint probe.Endpoint) *probe.Result {
	return f(ctx, endpoint)
}

func newTestServer(endpoints []probe.Endpoint, checker probe.Checker) *Server {
	registry := probe.NewRegistry()
	if checker != nil {
		registry.Register(probe.KindHTTP, checker)
		registry.Register(probe.KindHTTPS, checker)
	}
	cfg := &config.Config{Endpoints: endpoints, Listen: ":0"}
	return NewServer(cfg, runner.NewRunner(registry))
}

func doRequest(s *Server, method, path string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var body envelope
	json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestGetEndpointsKeepsOrder(t *testing.T) {
	s := newTestServer([]probe.Endpoint{
		{Name: "订单库", ConnectionString: "server=db01;database=orders", Type: "mssql", IgnoreSSLErrors: true},
		{Name: "网关", ConnectionString: "https://gateway.internal/health", Type: "https"},
		{Name: "核心交换机", ConnectionString: "10.0.0.1", Type: "ping"},
	}, nil)

	rec, body := doRequest(s, "GET", "/api/endpoints")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !body.Success {
		t.Fatalf("success = false, message = %q", body.Message)
	}

	var summaries []endpointSummary
	if err := json.Unmarshal(body.Data, &summaries); err != nil {
		t.Fatalf("解析data失败: %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("返回 %d 个端点, 期望 3", len(summaries))
	}
	wantNames := []string{"订单库", "网关", "核心交换机"}
	for i, want := range wantNames {
		if summaries[i].Name != want {
			t.Errorf("summaries[%d].Name = %q, want %q", i, summaries[i].Name, want)
		}
		if summaries[i].Index != i {
			t.Errorf("summaries[%d].Index = %d, want %d", i, summaries[i].Index, i)
		}
		if summaries[i].InFlight {
			t.Errorf("summaries[%d].InFlight = true, 期望空闲", i)
		}
	}
	if !summaries[0].IgnoreSSLErrors {
		t.Error("summaries[0].IgnoreSSLErrors = false, want true")
	}
}

func TestTestEndpointReturnsResult(t *testing.T) {
	ok := checkerFunc(func(ctx context.Context, endpoint probe.Endpoint) *probe.Result {
		return &probe.Result{Success: true}
	})
	s := newTestServer([]probe.Endpoint{
		{Name: "网关", ConnectionString: "https://gateway.internal/health", Type: "https"},
	}, ok)

	rec, body := doRequest(s, "POST", "/api/endpoints/0/test")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !body.Success {
		t.Fatalf("success = false, message = %q", body.Message)
	}

	var data struct {
		InvocationID string        `json:"invocationId"`
		Index        int           `json:"index"`
		Name         string        `json:"name"`
		Result       *probe.Result `json:"result"`
	}
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("解析data失败: %v", err)
	}
	if data.InvocationID == "" {
		t.Error("invocationId 为空")
	}
	if data.Name != "网关" {
		t.Errorf("name = %q, want 网关", data.Name)
	}
	if data.Result == nil || !data.Result.Success {
		t.Errorf("result = %+v, 期望成功", data.Result)
	}
}

func TestTestEndpointIndexOutOfRange(t *testing.T) {
	s := newTestServer([]probe.Endpoint{
		{Name: "网关", ConnectionString: "https://gateway.internal/health", Type: "https"},
	}, nil)

	for _, path := range []string{"/api/endpoints/5/test", "/api/endpoints/abc/test", "/api/endpoints/-1/test"} {
		rec, body := doRequest(s, "POST", path)
		if rec.Code != http.StatusNotFound {
			t.Errorf("POST %s: status = %d, want 404", path, rec.Code)
		}
		if body.Success {
			t.Errorf("POST %s: success = true, 期望失败", path)
		}
	}
}

func TestTestEndpointConflictWhileRunning(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	blocking := checkerFunc(func(ctx context.Context, endpoint probe.Endpoint) *probe.Result {
		close(started)
		<-release
		return &probe.Result{Success: true}
	})
	s := newTestServer([]probe.Endpoint{
		{Name: "网关", ConnectionString: "https://gateway.internal/health", Type: "https"},
	}, blocking)

	type outcome struct {
		code    int
		success bool
	}
	first := make(chan outcome)
	go func() {
		rec, body := doRequest(s, "POST", "/api/endpoints/0/test")
		first <- outcome{rec.Code, body.Success}
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("第一次检测未启动")
	}

	// 检测在途时重复触发应返回409
	rec, body := doRequest(s, "POST", "/api/endpoints/0/test")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	if body.Success {
		t.Error("success = true, 期望失败")
	}
	if body.Message != "该端点已有一次检测在进行中" {
		t.Errorf("message = %q", body.Message)
	}

	// 端点列表应标记该端点在途
	_, listBody := doRequest(s, "GET", "/api/endpoints")
	var summaries []endpointSummary
	json.Unmarshal(listBody.Data, &summaries)
	if len(summaries) != 1 || !summaries[0].InFlight {
		t.Errorf("summaries = %+v, 期望 inFlight=true", summaries)
	}

	close(release)
	select {
	case got := <-first:
		if got.code != http.StatusOK || !got.success {
			t.Errorf("第一次检测: code=%d success=%v, 期望 200/true", got.code, got.success)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("第一次检测未结束")
	}

	// 检测结束后在途标记应清除
	_, afterBody := doRequest(s, "GET", "/api/endpoints")
	var after []endpointSummary
	json.Unmarshal(afterBody.Data, &after)
	if len(after) != 1 || after[0].InFlight {
		t.Errorf("检测结束后 summaries = %+v, 期望 inFlight=false", after)
	}
}

func TestTestEndpointUnsupportedType(t *testing.T) {
	s := newTestServer([]probe.Endpoint{
		{Name: "旧系统", ConnectionString: "ftp://files.internal", Type: "ftp"},
	}, nil)

	rec, body := doRequest(s, "POST", "/api/endpoints/0/test")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !body.Success {
		t.Fatalf("success = false, message = %q", body.Message)
	}

	var data struct {
		Result *probe.Result `json:"result"`
	}
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("解析data失败: %v", err)
	}
	if data.Result == nil || data.Result.Success {
		t.Fatalf("result = %+v, 期望失败", data.Result)
	}
	if data.Result.ErrorMessage != "Unsupported connection type." {
		t.Errorf("errorMessage = %q", data.Result.ErrorMessage)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer([]probe.Endpoint{
		{Name: "网关", ConnectionString: "https://gateway.internal/health", Type: "https"},
		{Name: "核心交换机", ConnectionString: "10.0.0.1", Type: "ping"},
	}, nil)

	rec, body := doRequest(s, "GET", "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var data struct {
		Running       bool  `json:"running"`
		EndpointCount int   `json:"endpoint_count"`
		Timestamp     int64 `json:"timestamp"`
	}
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("解析data失败: %v", err)
	}
	if !data.Running {
		t.Error("running = false")
	}
	if data.EndpointCount != 2 {
		t.Errorf("endpoint_count = %d, want 2", data.EndpointCount)
	}
}

func TestLogsEndpoints(t *testing.T) {
	logger.InitBuffer(100)
	buffer := logger.GetBuffer()
	buffer.AddLog("info", "检测端点: 网关")
	buffer.AddLog("error", "✗ 订单库 失败")

	s := newTestServer(nil, nil)

	_, body := doRequest(s, "GET", "/api/logs")
	if !body.Success {
		t.Fatalf("success = false, message = %q", body.Message)
	}
	var data struct {
		Content string `json:"content"`
		Count   int    `json:"count"`
	}
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("解析data失败: %v", err)
	}
	if data.Count != 2 {
		t.Errorf("count = %d, want 2", data.Count)
	}
	if !strings.Contains(data.Content, "检测端点: 网关") || !strings.Contains(data.Content, "订单库") {
		t.Errorf("content 缺少日志行: %q", data.Content)
	}

	rec, clearBody := doRequest(s, "POST", "/api/logs/clear")
	if rec.Code != http.StatusOK || !clearBody.Success {
		t.Fatalf("清空日志失败: code=%d", rec.Code)
	}

	_, after := doRequest(s, "GET", "/api/logs")
	var afterData struct {
		Count int `json:"count"`
	}
	json.Unmarshal(after.Data, &afterData)
	if afterData.Count != 0 {
		t.Errorf("清空后 count = %d, want 0", afterData.Count)
	}
}

func TestIndexServesEmbeddedPage(t *testing.T) {
	s := newTestServer(nil, nil)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "连接检测") {
		t.Error("页面缺少标题")
	}
}
