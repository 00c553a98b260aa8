package flaky

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync/atomic"

	"iconopt/pkg/contract"
)

// ErrInjected 为注入的失败。
var ErrInjected = errors.New("flaky: injected failure")

// Options 定义可选项。
type Options struct {
	// FailOn: 第 N 次调用失败（1 起）；0 表示不按次数失败。
	FailOn int `json:"fail_on"`
	// FailMarker: 文档包含该子串时失败（空串不生效）。
	FailMarker string `json:"fail_marker"`
	// LogPath: 调试用日志文件，记录每次调用结果（可选）。
	LogPath string `json:"log_path,omitempty"`
}

// Optimizer 是带状态的故障注入实现：命中条件时返回 ErrInjected，否则原样返回。
// 用于验证批处理的首错中止语义。
type Optimizer struct {
	failOn  int32
	marker  []byte
	logPath string
	count   atomic.Int32
}

// New 构造 Optimizer。
func New(raw json.RawMessage) (contract.Optimizer, error) {
	var o Options
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, err
		}
	}
	if o.FailOn < 0 {
		return nil, errors.New("flaky: fail_on must be >= 0")
	}
	return &Optimizer{failOn: int32(o.FailOn), marker: []byte(o.FailMarker), logPath: o.LogPath}, nil
}

func (f *Optimizer) log(s string) {
	if f.logPath == "" {
		return
	}
	// 追加写入，忽略错误。
	_ = appendFile(f.logPath, s+"\n")
}

// appendFile 以追加方式写入。
func appendFile(path, s string) error {
	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer fh.Close()
	_, err = fh.WriteString(s)
	return err
}

// Optimize 实现 contract.Optimizer。
func (f *Optimizer) Optimize(ctx context.Context, doc []byte) ([]byte, error) {
	n := f.count.Add(1)
	if f.failOn > 0 && n == f.failOn {
		f.log("fail_on")
		return nil, ErrInjected
	}
	if len(f.marker) > 0 && bytes.Contains(doc, f.marker) {
		f.log("fail_marker")
		return nil, ErrInjected
	}
	f.log("ok")
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

var _ contract.Optimizer = (*Optimizer)(nil)
