package filesystem

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"iconopt/pkg/contract"
)

// Options: 原地写回的可选项。
type Options struct {
	// Root: 可选的写入范围根目录；非空时目标必须位于其下，否则返回 ErrPathInvalid。
	Root string `json:"root,omitempty"`
	// Atomic: 是否使用原子替换（同目录临时文件 + rename）。
	// 默认值：true。未提供该字段时采用原子写；显式 false 可关闭。
	Atomic *bool `json:"atomic,omitempty"`
	// PermFile: 目标不存在时的新建权限；已存在的文件保持原权限。
	PermFile os.FileMode `json:"perm_file,omitempty"`
	// BufSize: 写缓冲区大小；<=0 使用实现默认。
	BufSize int `json:"buf_size,omitempty"`
}

// FS 将优化结果写回原路径。
type FS struct {
	root    string
	atomic  bool
	permF   os.FileMode
	bufSize int
}

// New 创建文件系统 Writer 实现。opts 可为 nil。
func New(opts *Options) (*FS, error) {
	if opts == nil {
		opts = &Options{}
	}
	bsz := opts.BufSize
	if bsz <= 0 {
		bsz = 64 * 1024
	}
	pf := opts.PermFile
	if pf == 0 {
		pf = 0o644
	}
	atomic := true
	if opts.Atomic != nil {
		atomic = *opts.Atomic
	}
	root := ""
	if s := strings.TrimSpace(opts.Root); s != "" {
		abs, err := filepath.Abs(s)
		if err != nil {
			return nil, err
		}
		root = abs
	}
	return &FS{root: root, atomic: atomic, permF: pf, bufSize: bsz}, nil
}

var _ contract.Writer = (*FS)(nil)

// Write 将 r 的全部字节写回 path，替换原内容。
func (w *FS) Write(ctx context.Context, path string, r io.Reader) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	dest, err := w.checkPath(path)
	if err != nil {
		return err
	}
	perm := w.permF
	if st, err := os.Stat(dest); err == nil {
		if st.IsDir() {
			return contract.ErrPathInvalid
		}
		perm = st.Mode().Perm()
	}

	if w.atomic {
		return w.writeAtomic(ctx, dest, perm, r)
	}
	return w.writeOverwrite(ctx, dest, perm, r)
}

// checkPath: Clean + 范围校验。
func (w *FS) checkPath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", contract.ErrPathInvalid
	}
	clean := filepath.Clean(p)
	if clean == "." || clean == ".." {
		return "", contract.ErrPathInvalid
	}
	if w.root == "" {
		return clean, nil
	}
	abs, err := filepath.Abs(clean)
	if err != nil {
		return "", contract.ErrPathInvalid
	}
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return "", contract.ErrPathInvalid
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", contract.ErrPathInvalid
	}
	return clean, nil
}

// closeFile 关闭写入句柄；关闭失败视为写入失败。
var closeFile = func(f *os.File) error { return f.Close() }

func (w *FS) writeOverwrite(ctx context.Context, dest string, perm os.FileMode, r io.Reader) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(f, w.bufSize)
	if _, err := io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return closeFile(f)
}

func (w *FS) writeAtomic(ctx context.Context, dest string, perm os.FileMode, r io.Reader) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".iconopt-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}
	_ = os.Chmod(tmpPath, perm)

	bw := bufio.NewWriterSize(tmp, w.bufSize)
	if _, err := io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
		cleanup()
		return err
	}
	if err := bw.Flush(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := closeFile(tmp); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	// 写入完成后再检查一次取消，避免替换已放弃的文档
	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := osReplace(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	_ = syncDir(dir)
	return nil
}

// readerWithCtx: 在每次 Read 前检查 ctx 是否已取消。
func readerWithCtx(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	select {
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	default:
	}
	return cr.r.Read(p)
}
