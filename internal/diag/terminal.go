package diag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"iconopt/pkg/contract"
)

// Terminal: 终端信息提示（非日志）。
// - 输出到提供的 io.Writer（默认建议 stderr）。
// - TTY: 进度单行 \r 覆盖；非 TTY: 每个文件完成时分行打印。
// - 并发安全；写失败后进入禁用态为 no-op。
type Terminal struct {
	w       io.Writer
	enabled bool
	isTTY   bool

	concurrency int
	optimizer   string
	total       int
	filesDone   int
	failed      int
	runStart    time.Time

	lastLen   int
	lastFlush time.Time

	mu sync.Mutex
}

// 进程级终端（可选，全局设置后供 pipeline 旁路调用）。
var (
	termMu  sync.RWMutex
	curTerm *Terminal
)

// SetTerminal 设置全局终端指针（nil 可清除）。
func SetTerminal(t *Terminal) { termMu.Lock(); curTerm = t; termMu.Unlock() }

// GetTerminal 返回全局终端（可能为 nil）。
func GetTerminal() *Terminal { termMu.RLock(); defer termMu.RUnlock(); return curTerm }

// NewTerminal 构造终端提示器。
// enabled=false 时总是 no-op。
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	t := &Terminal{w: w, enabled: enabled}
	// CI 环境视为非 TTY
	if os.Getenv("CI") == "" {
		if f, ok := w.(*os.File); ok {
			t.isTTY = term.IsTerminal(int(f.Fd()))
		}
	}
	return t
}

// RunStart: 记录运行上下文（并发、优化器）。
func (t *Terminal) RunStart(concurrency int, optimizer string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.concurrency = concurrency
	t.optimizer = optimizer
	t.total = 0
	t.filesDone = 0
	t.failed = 0
	t.runStart = time.Now()
	t.println(fmt.Sprintf("[run] 并发=%d | optimizer=%s", concurrency, safe(optimizer)))
}

// Discovered: 扫描完成，记录文件总数。
func (t *Terminal) Discovered(total int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.total = total
	t.println(fmt.Sprintf("[scan] 文件 %d", total))
}

// FileProgress: TTY 下的整体进度（≥100ms 节流）。
func (t *Terminal) FileProgress(docID string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || !t.isTTY {
		return
	}
	now := time.Now()
	if now.Sub(t.lastFlush) < 100*time.Millisecond {
		return
	}
	t.lastFlush = now
	t.printInline(fmt.Sprintf("[file] %s | 进度 %d/%d | 并发 %d | 用时 %s",
		shortenBase(docID, 48), t.filesDone, t.total, t.concurrency, formatSince(t.runStart)))
}

// FileFinish: 完成单个文件。非 TTY 打印一行；TTY 仅在失败时换行输出。
func (t *Terminal) FileFinish(rep contract.Report, ok bool, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.filesDone++
	status := "done"
	if !ok {
		status = "fail"
		t.failed++
	}
	if t.isTTY && ok {
		return
	}
	if t.isTTY && t.lastLen > 0 {
		t.printInline("")
	}
	mark := ""
	if rep.Substituted {
		mark = " | currentColor"
	}
	t.println(fmt.Sprintf("[%s] %s | %s → %s%s | 用时 %s", status, shortenBase(rep.Path, 48),
		humanize.IBytes(uint64(max(rep.OriginalSize, 0))), humanize.IBytes(uint64(max(rep.OptimizedSize, 0))), mark, formatDur(dur)))
}

// RunFinish: 结束总览。
func (t *Terminal) RunFinish(ok bool, sum contract.Summary, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	if t.isTTY && t.lastLen > 0 {
		t.printInline("")
	}
	t.println(SummaryLine(ok, sum) + " | 总用时 " + formatDur(dur))
}

// SummaryLine 生成一行汇总：[ok] 全部完成 | 文件 N | currentColor M | 节省 X。
func SummaryLine(ok bool, sum contract.Summary) string {
	tag := "ok"
	if !ok {
		tag = "fail"
	}
	return fmt.Sprintf("[%s] 全部完成 | 文件 %d | currentColor %d | 节省 %s", tag, sum.Processed, sum.SingleColor, FormatBytes(sum.BytesSaved))
}

// FormatBytes 以 IEC 单位格式化字节数；负值（变大）带符号。
func FormatBytes(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}

func (t *Terminal) println(s string) {
	if t == nil || !t.enabled {
		return
	}
	if _, err := io.WriteString(t.w, s+"\n"); err != nil {
		t.enabled = false
	}
	t.lastLen = 0
}

func (t *Terminal) printInline(s string) {
	if t == nil || !t.enabled {
		return
	}
	// 若新行比旧短，填充空格覆盖
	pad := 0
	if l := visLen(s); t.lastLen > l {
		pad = t.lastLen - l
	}
	var b strings.Builder
	b.WriteByte('\r')
	b.WriteString(s)
	if pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	if _, err := io.WriteString(t.w, b.String()); err != nil {
		t.enabled = false
		return
	}
	t.lastLen = visLen(s)
}

// shortenBase: 取基名并按可见宽度截断（尾部省略号）。
func shortenBase(s string, max int) string {
	if max <= 0 {
		return ""
	}
	base := filepath.Base(strings.TrimSpace(s))
	if base == "" || base == "." {
		return ""
	}
	if visLen(base) <= max {
		return base
	}
	cut := max - 1
	if cut < 1 {
		cut = 1
	}
	rs := []rune(base)
	return string(rs[:cut]) + "…"
}

func visLen(s string) int { return len([]rune(s)) }

func safe(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}

func formatSince(t0 time.Time) string { return formatDur(time.Since(t0)) }

func formatDur(d time.Duration) string {
	if d < time.Second {
		ms := d.Milliseconds()
		if ms < 0 {
			ms = 0
		}
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(d.Milliseconds())/1000.0)
}
