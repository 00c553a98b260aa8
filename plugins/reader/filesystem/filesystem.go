package filesystem

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"iconopt/pkg/contract"
)

// Options 为 FileSystem Reader 的可选配置（最小必要）。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `json:"buf_size"`
	// Ext: 匹配的扩展名（大小写敏感，含点）。默认 ".svg"。
	Ext string `json:"ext"`
	// ExcludeDirNames: 在扫描目录时跳过这些目录名（基名完全匹配）。
	// 例如 [".git","node_modules"]。仅影响目录递归，不影响单文件 root。
	ExcludeDirNames []string `json:"exclude_dir_names"`
}

// FileSystem 实现基于文件系统的 Reader。
type FileSystem struct {
	bufSize int
	ext     string
	// 以小写形式保存，比较时按小写基名匹配。
	excludeDir map[string]struct{}
}

// New 创建 FileSystem Reader。
func New(opts *Options) *FileSystem {
	const defaultBuf = 64 * 1024
	b := defaultBuf
	ext := ".svg"
	if opts != nil && opts.BufSize > 0 {
		b = opts.BufSize
	}
	if opts != nil && strings.TrimSpace(opts.Ext) != "" {
		ext = strings.TrimSpace(opts.Ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
	}
	ex := make(map[string]struct{})
	if opts != nil {
		for _, name := range opts.ExcludeDirNames {
			if name == "" {
				continue
			}
			// 小写基名匹配，调用方无需关心大小写。
			ex[strings.ToLower(name)] = struct{}{}
		}
	}
	return &FileSystem{bufSize: b, ext: ext, excludeDir: ex}
}

var _ contract.Reader = (*FileSystem)(nil)

// Discover 遍历 roots，返回全部匹配文件路径（物化列表）。
// 顺序：root 依次；目录内字典序，先子目录后文件。重叠 root 下的同一文件只出现一次。
func (r *FileSystem) Discover(ctx context.Context, roots []string) ([]string, error) {
	if len(roots) == 0 {
		return nil, errors.New("no roots provided")
	}
	d := &discovery{r: r, seen: make(map[string]struct{})}
	for _, root := range roots {
		if strings.TrimSpace(root) == "" {
			return nil, errors.New("empty root")
		}
		if err := d.one(ctx, root); err != nil {
			return nil, err
		}
	}
	return d.out, nil
}

// Open 打开单个文档，返回带缓冲的 ReadCloser。
func (r *FileSystem) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return newBufferedCloser(f, r.bufSize), nil
}

type discovery struct {
	r    *FileSystem
	seen map[string]struct{}
	out  []string
}

func (d *discovery) add(p string) {
	key := p
	if abs, err := filepath.Abs(p); err == nil {
		key = abs
	}
	if _, dup := d.seen[key]; dup {
		return
	}
	d.seen[key] = struct{}{}
	d.out = append(d.out, p)
}

func (d *discovery) match(name string) bool {
	return strings.HasSuffix(name, d.r.ext)
}

func (d *discovery) one(ctx context.Context, root string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	info, err := os.Lstat(root)
	if err != nil {
		return err
	}
	// 仅跟随到常规文件；目录符号链接不跟随（忽略）
	if info.Mode()&os.ModeSymlink != 0 {
		t, err := os.Stat(root)
		if err != nil {
			return err
		}
		if t.Mode().IsRegular() && d.match(filepath.Base(root)) {
			d.add(root)
		}
		return nil
	}
	if info.IsDir() {
		return d.walkDir(ctx, root)
	}
	if info.Mode().IsRegular() && d.match(filepath.Base(root)) {
		d.add(root)
	}
	return nil
}

func (d *discovery) walkDir(ctx context.Context, dir string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	// 稳定顺序：字典序
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	// 先目录（不跟随目录符号链接）
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, skip := d.r.excludeDir[strings.ToLower(e.Name())]; skip {
			continue
		}
		if err := d.walkDir(ctx, filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	// 再文件（允许指向常规文件的符号链接）
	for _, e := range entries {
		if e.IsDir() || !d.match(e.Name()) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if e.Type()&os.ModeSymlink != 0 {
			t, err := os.Stat(p)
			if err != nil {
				return err
			}
			if !t.Mode().IsRegular() {
				continue
			}
			d.add(p)
			continue
		}
		if !e.Type().IsRegular() {
			// 设备、管道等跳过
			continue
		}
		d.add(p)
	}
	return nil
}

// bufferedCloser 将 bufio.Reader 与底层 Closer 组合为 ReadCloser。
type bufferedCloser struct {
	*bufio.Reader
	c io.Closer
}

func newBufferedCloser(c io.ReadCloser, bufSize int) *bufferedCloser {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	return &bufferedCloser{Reader: bufio.NewReaderSize(c, bufSize), c: c}
}

func (b *bufferedCloser) Close() error { return b.c.Close() }
