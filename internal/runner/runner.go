package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"connprobe/internal/logger"
	"connprobe/internal/probe"
)

// ErrTestInFlight 同一端点已有一次检测在进行中
var ErrTestInFlight = errors.New("该端点已有一次检测在进行中")

// Runner 探测执行器，维护每个端点的在途状态
//
// 端点本身加载后只读，Runner只在内存中记录哪些触发位正在检测，
// 用于实现同一端点的触发互斥（disable-while-running）。
type Runner struct {
	registry *probe.Registry
	inFlight map[int]bool
	mu       sync.Mutex
}

// NewRunner 创建探测执行器
func NewRunner(registry *probe.Registry) *Runner {
	return &Runner{
		registry: registry,
		inFlight: make(map[int]bool),
	}
}

// TestEndpoint 对单个端点执行一次检测
//
// key标识端点的触发位（通常是端点在列表中的下标）。同一key上
// 并发的第二次调用立即返回ErrTestInFlight，不发起检测；不同key
// 的检测相互独立，可以并发执行。
func (r *Runner) TestEndpoint(ctx context.Context, key int, endpoint probe.Endpoint) (*probe.Result, error) {
	if err := r.acquire(key); err != nil {
		return nil, err
	}
	defer r.release(key)

	logger.Infof("检测端点: %s (类型: %s)", endpoint.Name, endpoint.Type)
	start := time.Now()

	result := r.registry.Dispatch(ctx, endpoint)

	if result.Success {
		logger.Infof("✓ %s 通过 (耗时: %v)", endpoint.Name, time.Since(start))
	} else {
		logger.Warnf("✗ %s 失败 (耗时: %v)", endpoint.Name, time.Since(start))
	}

	return result, nil
}

// IsInFlight 查询指定触发位是否有检测在途
func (r *Runner) IsInFlight(key int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight[key]
}

func (r *Runner) acquire(key int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inFlight[key] {
		return ErrTestInFlight
	}
	r.inFlight[key] = true
	return nil
}

func (r *Runner) release(key int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.inFlight, key)
}

// Entry 单个端点的检测结论
type Entry struct {
	Endpoint probe.Endpoint `json:"endpoint"`
	Result   *probe.Result  `json:"result"`
}

// Report 一次批量检测的汇总，条目顺序与端点列表一致
type Report struct {
	Entries  []Entry       `json:"entries"`
	Duration time.Duration `json:"duration"`
}

// Failed 统计失败的条目数
func (r *Report) Failed() int {
	failed := 0
	for _, entry := range r.Entries {
		if !entry.Result.Success {
			failed++
		}
	}
	return failed
}

// RunAll 并发检测全部端点，返回与输入同序的报告
//
// 各端点的检测之间没有共享可变状态，结果按下标写入各自的槽位。
// 某个触发位恰好在途时，该条目记为失败并带上互斥说明。
func (r *Runner) RunAll(ctx context.Context, endpoints []probe.Endpoint) *Report {
	logger.Infof("========== 开始检测 %d 个端点 ==========", len(endpoints))
	start := time.Now()

	entries := make([]Entry, len(endpoints))

	var wg sync.WaitGroup
	for i, endpoint := range endpoints {
		wg.Add(1)
		go func(key int, ep probe.Endpoint) {
			defer wg.Done()

			result, err := r.TestEndpoint(ctx, key, ep)
			if err != nil {
				result = &probe.Result{ErrorMessage: err.Error()}
			}
			entries[key] = Entry{Endpoint: ep, Result: result}
		}(i, endpoint)
	}
	wg.Wait()

	report := &Report{Entries: entries, Duration: time.Since(start)}

	logger.Infof("========== 检测完成: %d/%d 通过 (耗时: %v) ==========",
		len(entries)-report.Failed(), len(entries), report.Duration)

	return report
}
