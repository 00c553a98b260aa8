//go:build windows

package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestOsReplaceWindows MoveFileEx 覆盖已存在目标
func TestOsReplaceWindows(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tmp")
	dst := filepath.Join(dir, "dst.svg")
	os.WriteFile(src, []byte("new"), 0o644)
	os.WriteFile(dst, []byte("old"), 0o644)
	if err := osReplace(src, dst); err != nil {
		t.Fatalf("replace: %v", err)
	}
	b, _ := os.ReadFile(dst)
	if string(b) != "new" {
		t.Fatalf("got %q", b)
	}
	w, _ := New(nil)
	if err := w.Write(context.Background(), dst, strings.NewReader("v2")); err != nil {
		t.Fatalf("write: %v", err)
	}
}
