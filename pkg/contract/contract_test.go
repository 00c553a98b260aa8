package contract

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestNormalizeDocID 验证路径规范化逻辑。
func TestNormalizeDocID(t *testing.T) {
	wpath := filepath.Join("a", "b", "c.svg")
	basicCases := map[string]string{
		wpath:      "a/b/c.svg",
		"./x/../y": "y",
		"":         ".",
	}
	for in, want := range basicCases {
		got := NormalizeDocID(in)
		if string(got) != want {
			t.Fatalf("基础测试 %s -> %s, 预期 %s", in, got, want)
		}
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		// 反斜杠转换
		{"Windows路径", "C:\\assets\\icons\\logo.svg", "C:/assets/icons/logo.svg"},
		{"相对路径反斜杠", "data\\assets\\exchanges\\a.svg", "data/assets/exchanges/a.svg"},

		// path.Clean 功能
		{"清理多余斜杠", "path//to///file.svg", "path/to/file.svg"},
		{"清理当前目录", "path/./to/./file.svg", "path/to/file.svg"},
		{"处理父目录", "path/to/../from/file.svg", "path/from/file.svg"},

		// 边界情况
		{"单个点", ".", "."},
		{"双点", "..", ".."},
		{"根路径", "/", "/"},
		{"Windows根", "C:\\", "C:"},

		// 跨平台混合分隔符
		{"混合分隔符", "C:\\Users/test\\icons/file.svg", "C:/Users/test/icons/file.svg"},
		{"中文路径", "图标\\应用/钱包.svg", "图标/应用/钱包.svg"},
		{"仅分隔符", "\\\\\\///", "/"},
		{"复杂父目录", "a\\b\\c\\..\\..\\..\\..\\d", "../d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeDocID(tt.input)
			if string(result) != tt.expected {
				t.Errorf("NormalizeDocID(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

// TestSummaryAdd 汇总：计数、替换数与字节差的代数和（不截断负值）。
func TestSummaryAdd(t *testing.T) {
	var s Summary
	s.Add(Report{DocID: "a", OriginalSize: 100, OptimizedSize: 60, HadSingleColor: true, Substituted: true})
	s.Add(Report{DocID: "b", OriginalSize: 10, OptimizedSize: 25})
	s.Add(Report{DocID: "c", OriginalSize: 50, OptimizedSize: 50, HadSingleColor: true})

	if s.Processed != 3 {
		t.Fatalf("processed = %d", s.Processed)
	}
	if s.SingleColor != 1 {
		t.Fatalf("single color = %d", s.SingleColor)
	}
	if s.BytesSaved != 25 {
		t.Fatalf("bytes saved = %d, want 25", s.BytesSaved)
	}
	var ids []DocID
	for _, r := range s.Reports {
		ids = append(ids, r.DocID)
	}
	if diff := cmp.Diff([]DocID{"a", "b", "c"}, ids); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
}

// TestReportSavedNegative 体积增加时返回负值。
func TestReportSavedNegative(t *testing.T) {
	r := Report{OriginalSize: 3, OptimizedSize: 7}
	if r.Saved() != -4 {
		t.Fatalf("saved = %d", r.Saved())
	}
}

// TestDocError 同时匹配种类与底层原因，并携带路径。
func TestDocError(t *testing.T) {
	cause := &fs.PathError{Op: "open", Path: "icons/a.svg", Err: fs.ErrPermission}
	err := NewDocError(ErrRead, "icons/a.svg", cause)
	if !errors.Is(err, ErrRead) {
		t.Fatalf("expect ErrRead")
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("expect underlying permission error")
	}
	if errors.Is(err, ErrWrite) {
		t.Fatalf("unexpected ErrWrite")
	}
	var de *DocError
	if !errors.As(err, &de) || de.Path != "icons/a.svg" {
		t.Fatalf("DocError path missing: %v", err)
	}
	var pe *fs.PathError
	if !errors.As(err, &pe) {
		t.Fatalf("expect PathError reachable")
	}
	if NewDocError(ErrWrite, "x", nil) != nil {
		t.Fatalf("nil cause should yield nil")
	}
}

// TestDocErrorMessage 错误信息包含种类与路径。
func TestDocErrorMessage(t *testing.T) {
	err := NewDocError(ErrOptimize, "b.svg", errors.New("unexpected EOF"))
	want := "optimization failure: b.svg: unexpected EOF"
	if err.Error() != want {
		t.Fatalf("got %q want %q", err.Error(), want)
	}
	e := &DocError{Kind: ErrWrite, Path: "c.svg"}
	if e.Error() != "write failure: c.svg" {
		t.Fatalf("got %q", e.Error())
	}
}

// BenchmarkNormalizeDocID 性能基准测试
func BenchmarkNormalizeDocID(b *testing.B) {
	testPaths := []string{
		"C:\\Users\\test\\icons\\file.svg",
		"data/assets/../../../test/data/file.svg",
		"path//to///many////slashes/file.svg",
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, p := range testPaths {
			NormalizeDocID(p)
		}
	}
}
