package contract

import (
	"context"
	"io"
)

// Writer: 将优化结果写回原路径（覆盖）。
// 约束：
//  1. 同一路径单写者；
//  2. 要么完整写入新内容，要么原文件保持不变（原子替换）；
//  3. ctx 取消需尽快返回；
//  4. 错误直接上抛（不做重试/回退）。
type Writer interface {
	Write(ctx context.Context, path string, r io.Reader) error
}
