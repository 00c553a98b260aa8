package contract

import (
	"context"
	"io"
)

// Reader: 文档来源抽象。
// 约束：
// 1) Discover 一次性物化完整路径列表（处理开始前完成），中途失败不留遍历状态；
// 2) 每个匹配文件恰好出现一次（多根重叠时去重）；
// 3) 不做解码/业务解析，Open 仅提供字节流；
// 4) 不在内部起并发。
type Reader interface {
	Discover(ctx context.Context, roots []string) ([]string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}
