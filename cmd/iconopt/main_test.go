package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cfgpkg "iconopt/internal/config"
	"iconopt/internal/diag"
	"iconopt/internal/pipeline"
	"iconopt/pkg/contract"
)

func stubRun(t *testing.T, sum contract.Summary, err error) *pipeline.Settings {
	t.Helper()
	got := &pipeline.Settings{}
	orig := pipelineRun
	pipelineRun = func(ctx context.Context, comp pipeline.Components, set pipeline.Settings, logger *diag.Logger) (contract.Summary, error) {
		*got = set
		return sum, err
	}
	t.Cleanup(func() { pipelineRun = orig })
	return got
}

func runArgs(args ...string) (int, string, string) {
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestWriteConfig(t *testing.T) {
	cfg := cfgpkg.DefaultTemplateConfig()
	file := filepath.Join(t.TempDir(), "c.json")
	if err := writeConfig(file, cfg); err != nil {
		t.Fatalf("writeConfig file: %v", err)
	}
	b, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("file not created: %v", err)
	}
	var back cfgpkg.Config
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("template not json: %v", err)
	}
	if err := cfgpkg.Validate(back); err != nil {
		t.Fatalf("template should validate: %v", err)
	}
	// 不覆盖
	if err := writeConfig(file, cfg); !errors.Is(err, os.ErrExist) {
		t.Fatalf("expect ErrExist, got %v", err)
	}
}

func TestDumpConfig(t *testing.T) {
	var buf bytes.Buffer
	if err := dumpConfig(&buf, cfgpkg.Defaults()); err != nil {
		t.Fatalf("dumpConfig: %v", err)
	}
	if !strings.Contains(buf.String(), `"concurrency": 1`) {
		t.Fatalf("unexpected dump: %s", buf.String())
	}
}

func TestWriteDotEnvKeepsExisting(t *testing.T) {
	p := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(p, []byte("KEEP=1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := writeDotEnv(p); err != nil {
		t.Fatalf("writeDotEnv: %v", err)
	}
	b, _ := os.ReadFile(p)
	if string(b) != "KEEP=1\n" {
		t.Fatalf(".env overwritten: %q", b)
	}
}

func TestRunInitConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	outDir := filepath.Join(dir, "out")
	if code, _, errOut := runArgs("init-config", outDir); code != 0 {
		t.Fatalf("run return %d: %s", code, errOut)
	}
	if _, err := os.Stat(filepath.Join(outDir, "config.json")); err != nil {
		t.Fatalf("config not generated: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, ".env")); err != nil {
		t.Fatalf(".env not generated: %v", err)
	}
	// 第二次：config.json 已存在 → 配置错误
	if code, _, _ := runArgs("init-config", outDir); code != 3 {
		t.Fatalf("expect 3 on existing config, got %d", code)
	}
}

func TestRunSuccess(t *testing.T) {
	t.Chdir(t.TempDir())
	got := stubRun(t, contract.Summary{Processed: 2, SingleColor: 1, BytesSaved: 10}, nil)

	code, out, errOut := runArgs("--status=false", "--concurrency", "4", "--dry-run", "icons", "logos")
	if code != 0 {
		t.Fatalf("run return %d: %s", code, errOut)
	}
	if got.Concurrency != 4 || !got.DryRun {
		t.Fatalf("cli overlay lost: %+v", got)
	}
	if len(got.Inputs) != 2 || got.Inputs[0] != "icons" || got.Inputs[1] != "logos" {
		t.Fatalf("inputs: %v", got.Inputs)
	}
	if !strings.Contains(out, "[ok] 全部完成 | 文件 2 | currentColor 1") {
		t.Fatalf("summary missing: %q", out)
	}
}

func TestRunWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg := cfgpkg.DefaultTemplateConfig()
	cfg.Inputs = []string{"from-file"}
	cfg.Concurrency = 3
	b, _ := json.Marshal(cfg)
	path := filepath.Join(dir, "cfg.json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	got := stubRun(t, contract.Summary{}, nil)

	if code, _, errOut := runArgs("--status=false", "--config", path); code != 0 {
		t.Fatalf("run return %d: %s", code, errOut)
	}
	if got.Concurrency != 3 || len(got.Inputs) != 1 || got.Inputs[0] != "from-file" {
		t.Fatalf("config file not applied: %+v", got)
	}
}

func TestRunEnvOverlay(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ICONOPT_CONCURRENCY", "6")
	got := stubRun(t, contract.Summary{}, nil)

	if code, _, errOut := runArgs("--status=false", "icons"); code != 0 {
		t.Fatalf("run return %d: %s", code, errOut)
	}
	if got.Concurrency != 6 {
		t.Fatalf("env not applied: %d", got.Concurrency)
	}
}

func TestRunConfigFileNotFound(t *testing.T) {
	t.Chdir(t.TempDir())
	if code, _, _ := runArgs("--config", "missing.json", "icons"); code != 3 {
		t.Fatalf("expect 3, got %d", code)
	}
}

func TestRunValidateError(t *testing.T) {
	t.Chdir(t.TempDir())
	// 无 inputs
	if code, _, _ := runArgs(); code != 3 {
		t.Fatalf("expect 3, got %d", code)
	}
	if code, _, _ := runArgs("--optimizer", "nope", "icons"); code != 3 {
		t.Fatalf("expect 3 for unknown optimizer, got %d", code)
	}
}

func TestRunBadFlag(t *testing.T) {
	t.Chdir(t.TempDir())
	if code, _, _ := runArgs("--no-such-flag"); code != 3 {
		t.Fatalf("expect 3, got %d", code)
	}
}

func TestRunAssembleError(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg := cfgpkg.DefaultTemplateConfig()
	cfg.Options.Reader = json.RawMessage(`{"unknown":1}`)
	b, _ := json.Marshal(cfg)
	path := filepath.Join(dir, "cfg.json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}
	if code, _, _ := runArgs("--config", path); code != 3 {
		t.Fatalf("expect 3, got %d", code)
	}
}

func TestRunPipelineError(t *testing.T) {
	t.Chdir(t.TempDir())
	stubRun(t, contract.Summary{Processed: 1}, contract.NewDocError(contract.ErrOptimize, "a.svg", errors.New("boom")))

	code, out, errOut := runArgs("--status=false", "icons")
	if code != 1 {
		t.Fatalf("expect 1, got %d", code)
	}
	if !strings.Contains(out, "[fail]") {
		t.Fatalf("summary should report failure: %q", out)
	}
	if !strings.Contains(errOut, "a.svg") {
		t.Fatalf("stderr should name the document: %q", errOut)
	}
}

func TestRunStatusToStderr(t *testing.T) {
	t.Chdir(t.TempDir())
	stubRun(t, contract.Summary{Processed: 3}, nil)

	code, out, errOut := runArgs("icons")
	if code != 0 {
		t.Fatalf("run return %d", code)
	}
	if out != "" {
		t.Fatalf("stdout should stay empty with status on: %q", out)
	}
	if !strings.Contains(errOut, "[run] 并发=1 | optimizer=minify") || !strings.Contains(errOut, "文件 3") {
		t.Fatalf("status lines missing: %q", errOut)
	}
}
