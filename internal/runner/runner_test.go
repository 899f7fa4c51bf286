package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"connprobe/internal/probe"
)

// checkerFunc 函数式检测器
type checkerFunc func(ctx context.Context, endpoint probe.Endpoint) *probe.Result

func (f checkerFunc) Check(ctx context.Context, endpoint probe.Endpoint) *probe.Result {
	return f(ctx, endpoint)
}

// blockingChecker 可人为阻塞的检测器，用于观察在途状态
type blockingChecker struct {
	started chan struct{}
	release chan struct{}
}

func (c *blockingChecker) Check(ctx context.Context, endpoint probe.Endpoint) *probe.Result {
	c.started <- struct{}{}
	<-c.release
	return &probe.Result{Success: true}
}

func registryWith(checker probe.Checker) *probe.Registry {
	registry := probe.NewRegistry()
	registry.Register(probe.KindHTTP, checker)
	return registry
}

func TestTestEndpointRejectsConcurrentSameKey(t *testing.T) {
	checker := &blockingChecker{started: make(chan struct{}, 1), release: make(chan struct{})}
	r := NewRunner(registryWith(checker))
	endpoint := probe.Endpoint{Name: "web", ConnectionString: "http://intranet/health", Type: "http"}

	type outcome struct {
		result *probe.Result
		err    error
	}
	first := make(chan outcome, 1)
	go func() {
		result, err := r.TestEndpoint(context.Background(), 0, endpoint)
		first <- outcome{result: result, err: err}
	}()

	// 等第一次检测进入在途状态
	<-checker.started

	if !r.IsInFlight(0) {
		t.Fatal("首次检测期间IsInFlight应为true")
	}
	if _, err := r.TestEndpoint(context.Background(), 0, endpoint); !errors.Is(err, ErrTestInFlight) {
		t.Fatalf("同一端点的并发触发应返回ErrTestInFlight, got %v", err)
	}

	close(checker.release)
	got := <-first
	if got.err != nil {
		t.Fatalf("首次检测不应报错: %v", got.err)
	}
	if !got.result.Success {
		t.Fatal("首次检测应正常完成")
	}
	if r.IsInFlight(0) {
		t.Fatal("检测完成后应释放在途标记")
	}
}

func TestTestEndpointReleasedAfterCompletion(t *testing.T) {
	calls := 0
	registry := registryWith(checkerFunc(func(ctx context.Context, ep probe.Endpoint) *probe.Result {
		calls++
		return &probe.Result{Success: true}
	}))
	r := NewRunner(registry)
	endpoint := probe.Endpoint{Name: "web", Type: "http"}

	for i := 0; i < 3; i++ {
		if _, err := r.TestEndpoint(context.Background(), 0, endpoint); err != nil {
			t.Fatalf("第 %d 次顺序触发不应被拒绝: %v", i+1, err)
		}
	}
	if calls != 3 {
		t.Fatalf("检测器调用 %d 次, want 3", calls)
	}
}

func TestTestEndpointDifferentKeysRunConcurrently(t *testing.T) {
	checker := &blockingChecker{started: make(chan struct{}, 2), release: make(chan struct{})}
	r := NewRunner(registryWith(checker))

	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		go func(key int) {
			r.TestEndpoint(context.Background(), key, probe.Endpoint{Name: "web", Type: "http"})
			done <- struct{}{}
		}(i)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-checker.started:
		case <-time.After(2 * time.Second):
			t.Fatal("不同端点的检测应能同时进入在途状态")
		}
	}

	close(checker.release)
	<-done
	<-done
}

func TestRunAllPreservesOrder(t *testing.T) {
	registry := registryWith(checkerFunc(func(ctx context.Context, ep probe.Endpoint) *probe.Result {
		if ep.Name == "beta" {
			return &probe.Result{Success: true}
		}
		return &probe.Result{ErrorMessage: "failed: " + ep.Name}
	}))
	r := NewRunner(registry)

	endpoints := []probe.Endpoint{
		{Name: "alpha", Type: "http"},
		{Name: "beta", Type: "http"},
		{Name: "gamma", Type: "http"},
	}

	report := r.RunAll(context.Background(), endpoints)

	if len(report.Entries) != 3 {
		t.Fatalf("报告条目 %d 个, want 3", len(report.Entries))
	}
	for i, endpoint := range endpoints {
		if report.Entries[i].Endpoint.Name != endpoint.Name {
			t.Fatalf("条目 %d 的端点 = %q, want %q", i, report.Entries[i].Endpoint.Name, endpoint.Name)
		}
	}
	if report.Entries[0].Result.ErrorMessage != "failed: alpha" {
		t.Fatalf("条目0的失败原因错乱: %q", report.Entries[0].Result.ErrorMessage)
	}
	if report.Failed() != 2 {
		t.Fatalf("Failed() = %d, want 2", report.Failed())
	}
}

func TestRunAllUnsupportedTypeEntry(t *testing.T) {
	r := NewRunner(probe.NewRegistry())

	report := r.RunAll(context.Background(), []probe.Endpoint{
		{Name: "legacy", ConnectionString: "whatever", Type: "ftp"},
	})

	entry := report.Entries[0]
	if entry.Result.Success {
		t.Fatal("未识别类型的端点应记为失败")
	}
	if entry.Result.ErrorMessage != "Unsupported connection type." {
		t.Fatalf("errorMessage = %q", entry.Result.ErrorMessage)
	}
}

func TestRunAllEmptyList(t *testing.T) {
	r := NewRunner(probe.NewRegistry())

	report := r.RunAll(context.Background(), nil)

	if len(report.Entries) != 0 {
		t.Fatalf("空端点列表的报告应没有条目, got %d", len(report.Entries))
	}
	if report.Failed() != 0 {
		t.Fatalf("Failed() = %d, want 0", report.Failed())
	}
}
