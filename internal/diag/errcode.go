package diag

import (
	"context"
	"errors"
	"io/fs"

	"iconopt/pkg/contract"
)

// Code 是最小错误分类代码。
// 仅用于日志/指标汇总，与退出码解耦。
type Code string

const (
	CodeUnknown   Code = "unknown"
	CodeRead      Code = "read"
	CodeOptimize  Code = "optimize"
	CodeWrite     Code = "write"
	CodeInvariant Code = "invariant"
	CodeCancel    Code = "cancel"
	CodeIO        Code = "io"
)

// Classify 将错误归为最小分类。
// 仅依赖哨兵错误与标准库错误类型，不做字符串匹配。
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	// 取消/超时优先
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancel
	}
	switch {
	case errors.Is(err, contract.ErrRead):
		return CodeRead
	case errors.Is(err, contract.ErrOptimize):
		return CodeOptimize
	case errors.Is(err, contract.ErrWrite):
		return CodeWrite
	case errors.Is(err, contract.ErrInvalidInput), errors.Is(err, contract.ErrPathInvalid):
		return CodeInvariant
	}
	var perr *fs.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	return CodeUnknown
}
