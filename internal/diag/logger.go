package diag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogOptions: 日志器构造参数。
type LogOptions struct {
	Level string
	// Dir: 轮转文件目录；空为 "logs"。
	Dir string
	// Console: true 时输出到 stderr（人类可读），不写文件。
	Console bool
	// MaxBytes: 单文件上限；<=0 为 10MiB。
	MaxBytes int64
}

// Logger 为结构化日志器：每个事件一行 JSON，字段固定（corr_id/comp/stage/...）。
// nil *Logger 上的方法均为 no-op。
type Logger struct {
	zl   zerolog.Logger
	sink io.Closer
}

// NewLogger 通过配置的 level 初始化，写入默认路径 logs/iconopt-current.txt，10MiB 轮转。
func NewLogger(corrID, level string) *Logger {
	return NewLoggerWith(corrID, LogOptions{Level: level})
}

// NewLoggerWith 按 LogOptions 构造日志器。
func NewLoggerWith(corrID string, o LogOptions) *Logger {
	if o.Console {
		cw := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
		return newLogger(cw, nil, corrID, o.Level)
	}
	dir := strings.TrimSpace(o.Dir)
	if dir == "" {
		dir = "logs"
	}
	rf := NewRotatingFile(dir, o.MaxBytes)
	return newLogger(&fallbackWriter{primary: rf, fallback: os.Stderr}, rf, corrID, o.Level)
}

// NewLoggerTo 将日志写入任意 io.Writer（测试与嵌入使用）。
func NewLoggerTo(w io.Writer, corrID, level string) *Logger {
	return newLogger(w, nil, corrID, level)
}

func newLogger(w io.Writer, sink io.Closer, corrID, level string) *Logger {
	zl := zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Str("corr_id", corrID).Logger()
	return &Logger{zl: zl, sink: sink}
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Close 关闭文件 sink（若有）。
func (l *Logger) Close() error {
	if l == nil || l.sink == nil {
		return nil
	}
	return l.sink.Close()
}

// LogPath 返回当前文件 sink 的路径；非文件 sink 返回空串。
func (l *Logger) LogPath() string {
	if l == nil {
		return ""
	}
	if rf, ok := l.sink.(*RotatingFile); ok {
		return filepath.Join(rf.dir, currentName)
	}
	return ""
}

// event 为单条事件的可选字段。
type event struct {
	comp  string
	stage string // start|finish|error|info
	code  string
	dur   int64
	count int64
	docID string
	kv    map[string]string
}

func (l *Logger) emit(e *zerolog.Event, ev event, msg string) {
	if e == nil {
		return
	}
	e = e.Str("comp", ev.comp).Str("stage", ev.stage)
	if ev.code != "" {
		e = e.Str("code", ev.code)
	}
	if ev.dur > 0 {
		e = e.Int64("dur_ms", ev.dur)
	}
	if ev.count > 0 {
		e = e.Int64("count", ev.count)
	}
	if ev.docID != "" {
		e = e.Str("doc_id", ev.docID)
	}
	if len(ev.kv) > 0 {
		keys := make([]string, 0, len(ev.kv))
		for k := range ev.kv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d := zerolog.Dict()
		for _, k := range keys {
			d = d.Str(k, ev.kv[k])
		}
		e = e.Dict("kv", d)
	}
	e.Msg(msg)
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	return l.StartWithKV(comp, msg, "", nil)
}

// StartWith 记录带 doc_id 的 start。
func (l *Logger) StartWith(comp, msg, docID string) *Timer {
	return l.StartWithKV(comp, msg, docID, nil)
}

// StartWithKV 记录带 doc_id 与键值的 start。
func (l *Logger) StartWithKV(comp, msg, docID string, kv map[string]string) *Timer {
	if l == nil {
		return &Timer{t0: time.Now()}
	}
	l.emit(l.zl.Info(), event{comp: comp, stage: "start", docID: docID, kv: kv}, msg)
	return &Timer{l: l, comp: comp, docID: docID, t0: time.Now()}
}

// Error 记录 error 事件。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWithKV(comp, code, msg, durSince, "", nil)
}

// ErrorWith 支持 doc_id。
func (l *Logger) ErrorWith(comp, code, msg string, durSince *time.Time, docID string) {
	l.ErrorWithKV(comp, code, msg, durSince, docID, nil)
}

// ErrorWithKV 支持附带键值对（例如失败阶段、底层错误片段）。
func (l *Logger) ErrorWithKV(comp, code, msg string, durSince *time.Time, docID string, kv map[string]string) {
	if l == nil {
		return
	}
	var dur int64
	if durSince != nil {
		dur = time.Since(*durSince).Milliseconds()
	}
	l.emit(l.zl.Error(), event{comp: comp, stage: "error", code: code, dur: dur, docID: docID, kv: kv}, msg)
}

// InfoFinish 在已有起点的情况下记录 finish。
func (l *Logger) InfoFinish(comp, msg string, start time.Time, count int64) {
	if l == nil {
		return
	}
	l.emit(l.zl.Info(), event{comp: comp, stage: "finish", dur: time.Since(start).Milliseconds(), count: count}, msg)
}

// InfoKV 记录一条带键值的 info 事件（无计时）。
func (l *Logger) InfoKV(comp, msg, docID string, kv map[string]string) {
	if l == nil {
		return
	}
	l.emit(l.zl.Info(), event{comp: comp, stage: "info", docID: docID, kv: kv}, msg)
}

// DebugStart 输出调试级别的“start”类事件（仅在 level=debug 时生效）。
func (l *Logger) DebugStart(comp, msg, docID string, kv map[string]string) {
	if l == nil {
		return
	}
	l.emit(l.zl.Debug(), event{comp: comp, stage: "start", docID: docID, kv: kv}, msg)
}

// DebugKV 输出调试级别的键值事件（如指标快照）。
func (l *Logger) DebugKV(comp, msg string, kv map[string]string) {
	if l == nil {
		return
	}
	l.emit(l.zl.Debug(), event{comp: comp, stage: "info", kv: kv}, msg)
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l     *Logger
	comp  string
	docID string
	t0    time.Time
}

// Since 返回起点，便于 Error 系列计算耗时。
func (t *Timer) Since() *time.Time {
	if t == nil {
		return nil
	}
	return &t.t0
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	t.l.emit(t.l.zl.Info(), event{comp: t.comp, stage: "finish", dur: time.Since(t.t0).Milliseconds(), count: count, docID: t.docID}, msg)
}

// fallbackWriter 在主 sink 失败时改写 stderr，并提示一次错误。
type fallbackWriter struct {
	primary  io.Writer
	fallback io.Writer
	warn     sync.Once
}

func (w *fallbackWriter) Write(p []byte) (int, error) {
	n, err := w.primary.Write(p)
	if err == nil {
		return n, nil
	}
	w.warn.Do(func() { fmt.Fprintf(w.fallback, "logger sink error: %v\n", err) })
	return w.fallback.Write(p)
}
