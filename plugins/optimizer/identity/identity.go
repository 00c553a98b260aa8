package identity

import (
	"bytes"
	"context"
	"encoding/json"

	"iconopt/pkg/contract"
)

// Options: 最小调试配置（可选）。
type Options struct {
	// TrimSpace: 去除首尾空白（仅用于联调，默认原样返回）。
	TrimSpace bool `json:"trim_space"`
}

// Optimizer 原样返回输入，用于只做颜色替换或离线联调。
type Optimizer struct {
	trim bool
}

func New(raw json.RawMessage) (contract.Optimizer, error) {
	var o Options
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, err
		}
	}
	return &Optimizer{trim: o.TrimSpace}, nil
}

func (o *Optimizer) Optimize(ctx context.Context, doc []byte) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	out := doc
	if o.trim {
		out = bytes.TrimSpace(doc)
	}
	cp := make([]byte, len(out))
	copy(cp, out)
	return cp, nil
}
