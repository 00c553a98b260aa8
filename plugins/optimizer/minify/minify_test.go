package minify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"iconopt/pkg/contract"
)

const icon = `<?xml version="1.0" encoding="UTF-8"?>
<!-- exported by a design tool -->
<svg xmlns="http://www.w3.org/2000/svg"   width="24"   height="24" viewBox="0 0 24 24">
  <g>
    <path fill="currentColor" d="M 0.000 0.000 L 24.000 0.000 L 24.000 24.000 Z"/>
  </g>
</svg>
`

// UT-MIN-01: 结构优化缩减体积并保留占位色
func TestOptimizeShrinksAndKeepsPlaceholder(t *testing.T) {
	m, err := New(nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := m.Optimize(context.Background(), []byte(icon))
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if len(out) >= len(icon) {
		t.Fatalf("expect smaller output: %d >= %d", len(out), len(icon))
	}
	if !strings.Contains(strings.ToLower(string(out)), "currentcolor") {
		t.Fatalf("placeholder stripped: %s", out)
	}
	if strings.Contains(string(out), "exported by") {
		t.Fatalf("comment should be removed: %s", out)
	}
}

// UT-MIN-02: 多遍优化收敛：对输出再次优化不再变小
func TestOptimizeConverges(t *testing.T) {
	m, _ := New(&Options{MaxPasses: 5})
	first, err := m.Optimize(context.Background(), []byte(icon))
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	second, err := m.Optimize(context.Background(), first)
	if err != nil {
		t.Fatalf("optimize again: %v", err)
	}
	if len(second) > len(first) {
		t.Fatalf("second run grew output: %d > %d", len(second), len(first))
	}
}

// UT-MIN-03: 非良构输入被拒绝
func TestOptimizeMalformed(t *testing.T) {
	m, _ := New(nil)
	for _, in := range []string{
		`<svg><path fill="#000"></svg>`,
		`<svg><path d="M0 0"/>`,
		`not an svg at all`,
		``,
	} {
		if _, err := m.Optimize(context.Background(), []byte(in)); err == nil {
			t.Fatalf("expect error for %q", in)
		}
	}
}

// UT-MIN-04: HTML 实体不视为非法
func TestOptimizeHTMLEntity(t *testing.T) {
	m, _ := New(nil)
	in := `<svg xmlns="http://www.w3.org/2000/svg"><title>a&nbsp;b</title><path d="M0 0"/></svg>`
	if _, err := m.Optimize(context.Background(), []byte(in)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// UT-MIN-05: 关闭预检后宽松处理
func TestOptimizeSkipValidate(t *testing.T) {
	m, _ := New(&Options{SkipValidate: true})
	if _, err := m.Optimize(context.Background(), []byte(`<svg><path d="M0 0"/>`)); err != nil {
		t.Fatalf("lenient mode should not fail: %v", err)
	}
}

func TestOptimizeCtxCancel(t *testing.T) {
	m, _ := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Optimize(ctx, []byte(icon)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expect canceled, got %v", err)
	}
}

func TestNewInvalid(t *testing.T) {
	if _, err := New(&Options{Precision: -1}); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("expect invalid input, got %v", err)
	}
}
