package contract

import (
	"errors"
	"fmt"
)

// 单文档致命错误分类。任一命中即中止整个批次。
var (
	// ErrRead: 文档不可读（不存在、无权限等）。
	ErrRead = errors.New("read failure")
	// ErrOptimize: 结构优化器拒绝输入（如 XML 不合法）；原文件保持不变。
	ErrOptimize = errors.New("optimization failure")
	// ErrWrite: 优化结果无法写回原路径。
	ErrWrite = errors.New("write failure")
)

// 通用分类。
var (
	// ErrPathInvalid: 目标路径无效或越出允许的根目录。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvalidInput: 调用参数/组件装配不满足前置条件。
	ErrInvalidInput = errors.New("invalid input")
)

// DocError 携带失败文档路径与错误种类。
// errors.Is 对 Kind 与底层 Err 均成立。
type DocError struct {
	Kind error
	Path string
	Err  error
}

func (e *DocError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Path, e.Err)
}

// Unwrap 同时暴露种类与原因。
func (e *DocError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewDocError 构造 DocError；err 为 nil 时返回 nil。
func NewDocError(kind error, path string, err error) error {
	if err == nil {
		return nil
	}
	return &DocError{Kind: kind, Path: path, Err: err}
}
