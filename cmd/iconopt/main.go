package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	cfgpkg "iconopt/internal/config"
	"iconopt/internal/diag"
	"iconopt/internal/pipeline"
)

var pipelineRun = pipeline.Run

// 退出码
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 3
)

// exitError 携带退出码；RunE 返回后由 run 统一映射。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// 在任何 ENV 读取前加载工作目录下的 .env（不覆盖已有 ENV）。
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, "提示：.env 解析失败（已跳过）：%v\n", err)
	}
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// cobra 自身的参数/旗标错误
	fmt.Fprintf(stderr, "参数错误: %v\n", err)
	return exitConfig
}

type rootFlags struct {
	config      string
	concurrency int
	optimizer   string
	dryRun      bool
	logLevel    string
	logConsole  bool
	status      bool
}

func newRootCmd() *cobra.Command {
	var f rootFlags
	cmd := &cobra.Command{
		Use:           "iconopt [roots...]",
		Short:         "SVG 图标批量优化：单色归一为 currentColor 并原地压缩",
		Long:          "递归扫描 roots 下的 .svg 文件；仅含一种填充色的文档替换为 currentColor，随后做结构压缩并原子写回。任一文档失败即中止。",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(cmd, args, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.config, "config", "", "配置文件路径（.json/.yaml/.yml）；缺省读取 ./config.json 或 ./config.yaml（若存在）")
	fl.IntVar(&f.concurrency, "concurrency", 0, "并发度（覆盖配置；1 为严格顺序）")
	fl.StringVar(&f.optimizer, "optimizer", "", "优化器实现名（minify|identity|flaky）")
	fl.BoolVar(&f.dryRun, "dry-run", false, "只计算不写回")
	fl.StringVar(&f.logLevel, "log-level", "", "日志级别（debug|info|warn|error）")
	fl.BoolVar(&f.logConsole, "log-console", false, "日志输出到 stderr 而非 logs/ 目录")
	fl.BoolVar(&f.status, "status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 打点输出")
	cmd.AddCommand(newInitConfigCmd())
	return cmd
}

func newInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [dir]",
		Short: "在指定目录生成默认 config.json 与 .env 模板（不覆盖已有文件）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				dir = strings.TrimSpace(args[0])
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "生成默认配置失败: %v\n", err)
				return &exitError{code: exitConfig, err: err}
			}
			cfgPath := filepath.Join(dir, "config.json")
			if err := writeConfig(cfgPath, cfgpkg.DefaultTemplateConfig()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "生成默认配置失败: %v\n", err)
				return &exitError{code: exitConfig, err: err}
			}
			if err := writeDotEnv(filepath.Join(dir, ".env")); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "提示：.env 生成失败（已跳过）：%v\n", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已生成 %s\n", cfgPath)
			return nil
		},
	}
}

func runOptimize(cmd *cobra.Command, roots []string, f rootFlags) error {
	start := time.Now()
	corrID := uuid.NewString()
	stderr := cmd.ErrOrStderr()
	// 占位 logger，配置解析完成后按最终 logging 重建
	logger := diag.NewLoggerWith(corrID, diag.LogOptions{Level: "info", Console: f.logConsole})
	defer func() { _ = logger.Close() }()

	configErr := func(prefix string, err error) error {
		fmt.Fprintf(stderr, "%s: %v\n", prefix, err)
		logger.Error("config", string(diag.Classify(err)), prefix, &start)
		return &exitError{code: exitConfig, err: err}
	}

	cfgPath := f.config
	if cfgPath == "" {
		cfgPath = strings.TrimSpace(os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE"))
	}
	if cfgPath == "" {
		for _, p := range []string{"config.json", "config.yaml", "config.yml"} {
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
				break
			}
		}
	}

	cfg := cfgpkg.Defaults()
	if cfgPath != "" {
		base, err := cfgpkg.LoadFile(cfgPath)
		if err != nil {
			return configErr("配置解析失败", err)
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return configErr("环境变量解析失败", err)
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	var overCLI cfgpkg.Config
	if len(roots) > 0 {
		overCLI.Inputs = roots
	}
	overCLI.Concurrency = f.concurrency
	overCLI.DryRun = f.dryRun
	overCLI.Logging.Level = f.logLevel
	overCLI.Logging.Console = f.logConsole
	overCLI.Components.Optimizer = f.optimizer
	cfg = cfgpkg.Merge(cfg, overCLI)

	if err := cfgpkg.Validate(cfg); err != nil {
		_ = dumpConfig(stderr, cfg)
		return configErr("配置校验失败", err)
	}

	_ = logger.Close()
	logger = diag.NewLoggerWith(corrID, diag.LogOptions{Level: cfg.Logging.Level, Dir: cfg.Logging.Dir, Console: cfg.Logging.Console})

	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		return configErr("装配失败", err)
	}

	term := diag.NewTerminal(stderr, f.status)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)
	optName := cfg.Components.Optimizer
	term.RunStart(cfg.Concurrency, optName)

	logger.DebugStart("config", "effective", "", map[string]string{
		"inputs":      strings.Join(cfg.Inputs, ","),
		"concurrency": fmt.Sprintf("%d", cfg.Concurrency),
		"dry_run":     fmt.Sprintf("%t", cfg.DryRun),
		"reader":      cfg.Components.Reader,
		"optimizer":   optName,
		"writer":      cfg.Components.Writer,
		"config_file": cfgPath,
	})

	diag.ResetMetrics()
	t := logger.Start("cli", "run")
	sum, err := pipelineRun(cmd.Context(), comp, set, logger)
	logger.DebugKV("metrics", "snapshot", diag.Snapshot().KV())
	ok := err == nil
	if f.status {
		term.RunFinish(ok, sum, time.Since(start))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), diag.SummaryLine(ok, sum))
	}
	if err != nil {
		logger.Error("cli", string(diag.Classify(err)), "first error", &start)
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(stderr, "运行失败: %v\n", err)
		}
		if p := logger.LogPath(); p != "" {
			fmt.Fprintf(stderr, "详见日志: %s\n", p)
		}
		return &exitError{code: exitRuntime, err: err}
	}
	t.Finish("run", int64(sum.Processed))
	return nil
}

func dumpConfig(w io.Writer, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "有效配置:\n%s\n", b)
	return err
}

// writeConfig 写出配置模板；path 为 "-" 时写 stdout。不覆盖已存在文件。
func writeConfig(path string, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = os.Stdout.Write(append(b, '\n'))
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(b, '\n'))
	return err
}

// writeDotEnv 生成 .env 模板（若文件已存在则跳过）。
func writeDotEnv(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = f.WriteString(cfgpkg.EnvTemplate)
	return err
}
