package contract

import "context"

// Optimizer: 结构优化器（委托外部库）。
// 约束：
//  1. 输出与输入渲染等价，仅做体积缩减；
//  2. 纯计算，不做 I/O；
//  3. 输入非法时返回错误，不得返回部分结果；
//  4. 在颜色替换之后调用，占位色必须保留。
type Optimizer interface {
	Optimize(ctx context.Context, doc []byte) ([]byte, error)
}
