package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix 为环境变量前缀。
const EnvPrefix = "ICONOPT_"

// Defaults 返回带有安全默认值的 Config 雏形。
func Defaults() Config {
	return Config{
		Concurrency: 1,
		Logging:     Logging{Level: "info"},
		Components: Components{
			Reader:    "fs",
			Optimizer: "minify",
			Writer:    "fs",
		},
	}
}

// LoadFile 按扩展名选择解析器：.yaml/.yml 走 YAML，其余按 JSON。
func LoadFile(path string) (Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		return LoadYAML(raw)
	default:
		return LoadJSON(path, nil)
	}
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	if err := decodeStrict(r, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadYAML 解析 YAML 配置：先转为通用树再按 JSON 严格解码，
// 使两种格式共享同一套字段名与未知字段校验，组件 Options 子树也保持原样 JSON。
func LoadYAML(raw []byte) (Config, error) {
	var tree any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return Config{}, fmt.Errorf("yaml: %w", err)
	}
	if tree == nil {
		return Config{}, errors.New("yaml: empty document")
	}
	norm, err := normalizeYAML(tree)
	if err != nil {
		return Config{}, err
	}
	js, err := json.Marshal(norm)
	if err != nil {
		return Config{}, fmt.Errorf("yaml: %w", err)
	}
	var cfg Config
	if err := decodeStrict(bytes.NewReader(js), &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// normalizeYAML 将 map[any]any 转为 map[string]any，便于 JSON 编码。
func normalizeYAML(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			n, err := normalizeYAML(x)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("yaml: non-string key %v", k)
			}
			n, err := normalizeYAML(x)
			if err != nil {
				return nil, err
			}
			out[ks] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			n, err := normalizeYAML(x)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		return v, nil
	}
}

func decodeStrict(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/原样 JSON 为“替换”；不做深度合并。布尔开关只能被打开。
func Merge(base, over Config) Config {
	out := base
	if len(over.Inputs) > 0 {
		out.Inputs = cloneStrings(over.Inputs)
	}
	if over.Concurrency != 0 {
		out.Concurrency = over.Concurrency
	}
	if over.DryRun {
		out.DryRun = true
	}

	if s := strings.TrimSpace(over.Logging.Level); s != "" {
		out.Logging.Level = s
	}
	if s := strings.TrimSpace(over.Logging.Dir); s != "" {
		out.Logging.Dir = s
	}
	if over.Logging.Console {
		out.Logging.Console = true
	}

	// 组件名（空不覆盖）
	if over.Components.Reader != "" {
		out.Components.Reader = over.Components.Reader
	}
	if over.Components.Optimizer != "" {
		out.Components.Optimizer = over.Components.Optimizer
	}
	if over.Components.Writer != "" {
		out.Components.Writer = over.Components.Writer
	}

	// Options（完整替换对应键）
	if len(over.Options.Reader) > 0 {
		out.Options.Reader = cloneRaw(over.Options.Reader)
	}
	if len(over.Options.Recolor) > 0 {
		out.Options.Recolor = cloneRaw(over.Options.Recolor)
	}
	if len(over.Options.Optimizer) > 0 {
		out.Options.Optimizer = cloneRaw(over.Options.Optimizer)
	}
	if len(over.Options.Writer) > 0 {
		out.Options.Writer = cloneRaw(over.Options.Writer)
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 规则：前缀 ICONOPT_；集合之外的键忽略，取值非法时报错。
// 支持：INPUTS, CONCURRENCY, DRY_RUN, LOG_LEVEL, LOG_DIR, LOG_CONSOLE,
// COMPONENTS_{READER,OPTIMIZER,WRITER}, OPTIONS_{READER,RECOLOR,OPTIMIZER,WRITER}_JSON
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	var errs []error
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := kv[:eq]
		val := strings.TrimSpace(kv[eq+1:])
		if val == "" {
			// 空值视为未设置，避免清空配置文件中的值
			continue
		}
		switch strings.TrimPrefix(key, EnvPrefix) {
		case "INPUTS":
			over.Inputs = splitComma(val)
		case "CONCURRENCY":
			v, err := strconv.Atoi(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			over.Concurrency = v
		case "DRY_RUN":
			v, err := strconv.ParseBool(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			over.DryRun = v
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "LOG_DIR":
			over.Logging.Dir = val
		case "LOG_CONSOLE":
			v, err := strconv.ParseBool(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			over.Logging.Console = v
		case "COMPONENTS_READER":
			over.Components.Reader = val
		case "COMPONENTS_OPTIMIZER":
			over.Components.Optimizer = val
		case "COMPONENTS_WRITER":
			over.Components.Writer = val
		case "OPTIONS_READER_JSON":
			over.Options.Reader = json.RawMessage(val)
		case "OPTIONS_RECOLOR_JSON":
			over.Options.Recolor = json.RawMessage(val)
		case "OPTIONS_OPTIMIZER_JSON":
			over.Options.Optimizer = json.RawMessage(val)
		case "OPTIONS_WRITER_JSON":
			over.Options.Writer = json.RawMessage(val)
		}
	}
	return over, errors.Join(errs...)
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
