package diag

import (
	"strconv"
	"sync"
)

// 进程内指标（计数器，无导出端点）：
// - op_total{comp,stage,result}
// - error_total{comp,code}
// - op_duration_ms{comp,stage}（累计）

var metrics = struct {
	mu     sync.Mutex
	ops    map[string]int64
	errs   map[string]int64
	durSum map[string]int64
}{ops: map[string]int64{}, errs: map[string]int64{}, durSum: map[string]int64{}}

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) {
	metrics.mu.Lock()
	metrics.ops[comp+"/"+stage+"/"+result]++
	metrics.mu.Unlock()
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	metrics.mu.Lock()
	metrics.errs[comp+"/"+code]++
	metrics.mu.Unlock()
}

// ObserveDuration 记录阶段耗时（毫秒，累计）。
func ObserveDuration(comp, stage string, durMS int64) {
	metrics.mu.Lock()
	metrics.durSum[comp+"/"+stage] += durMS
	metrics.mu.Unlock()
}

// MetricsSnapshot 为某一时刻的指标副本。
type MetricsSnapshot struct {
	Ops      map[string]int64
	Errors   map[string]int64
	DurMSSum map[string]int64
}

// Snapshot 返回当前指标的副本。
func Snapshot() MetricsSnapshot {
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	return MetricsSnapshot{Ops: copyMap(metrics.ops), Errors: copyMap(metrics.errs), DurMSSum: copyMap(metrics.durSum)}
}

// ResetMetrics 清空指标（每次运行开始时调用）。
func ResetMetrics() {
	metrics.mu.Lock()
	metrics.ops = map[string]int64{}
	metrics.errs = map[string]int64{}
	metrics.durSum = map[string]int64{}
	metrics.mu.Unlock()
}

// KV 将快照展平为日志键值。
func (s MetricsSnapshot) KV() map[string]string {
	out := make(map[string]string, len(s.Ops)+len(s.Errors)+len(s.DurMSSum))
	for k, v := range s.Ops {
		out["op_total/"+k] = strconv.FormatInt(v, 10)
	}
	for k, v := range s.Errors {
		out["error_total/"+k] = strconv.FormatInt(v, 10)
	}
	for k, v := range s.DurMSSum {
		out["op_duration_ms/"+k] = strconv.FormatInt(v, 10)
	}
	return out
}

func copyMap(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
