package filesystem

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"
)

// BenchmarkWrite 基准测试 Writer.Write。不同输入尺寸下测量写回性能。
func BenchmarkWrite(b *testing.B) {
	sizes := []int{1024, 256 * 1024}
	for _, sz := range sizes {
		b.Run(fmt.Sprintf("size=%d", sz), func(b *testing.B) {
			data := bytes.Repeat([]byte("a"), sz)
			dest := filepath.Join(b.TempDir(), "icon.svg")
			w, err := New(nil)
			if err != nil {
				b.Fatalf("创建 Writer 失败: %v", err)
			}
			ctx := context.Background()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := w.Write(ctx, dest, bytes.NewReader(data)); err != nil {
					b.Fatalf("写入失败: %v", err)
				}
			}
		})
	}
}
