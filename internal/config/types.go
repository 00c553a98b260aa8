package config

import (
	"encoding/json"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON/YAML 均使用 snake_case；未知字段在解析期失败。
type Config struct {
	Inputs      []string `json:"inputs"`
	Concurrency int      `json:"concurrency"`
	// DryRun: 只计算不写回。
	DryRun  bool    `json:"dry_run"`
	Logging Logging `json:"logging"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`

	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`
}

// Logging: 日志等级、目录与控制台输出。
type Logging struct {
	Level string `json:"level"`
	// Dir: 轮转日志目录；空为 ./logs。
	Dir string `json:"dir"`
	// Console: true 时日志改为 stderr 人类可读格式，不写文件。
	Console bool `json:"console"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader    string `json:"reader"`
	Optimizer string `json:"optimizer"`
	Writer    string `json:"writer"`
}

// Options: 各组件的原样 JSON Options。
type Options struct {
	Reader    json.RawMessage `json:"reader"`
	Recolor   json.RawMessage `json:"recolor"`
	Optimizer json.RawMessage `json:"optimizer"`
	Writer    json.RawMessage `json:"writer"`
}
