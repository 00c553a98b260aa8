package config

import "encoding/json"

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// - 输入为 ./icons，原地写回；
// - 组件名采用仓库内置实现；
// - 选项包含全部键并给出中性默认值。
func DefaultTemplateConfig() Config {
	d := Defaults()
	cfg := Config{
		Inputs:      []string{"icons"},
		Concurrency: d.Concurrency,
		Logging:     Logging{Level: "info", Dir: "logs"},
		Components:  d.Components,
	}
	cfg.Options.Reader = json.RawMessage(`{
  "buf_size": 65536,
  "ext": ".svg",
  "exclude_dir_names": [".git", "node_modules", "vendor"]
}`)
	cfg.Options.Recolor = json.RawMessage(`{
  "preserve": []
}`)
	cfg.Options.Optimizer = json.RawMessage(`{
  "precision": 0,
  "keep_comments": false,
  "max_passes": 10,
  "skip_validate": false
}`)
	cfg.Options.Writer = json.RawMessage(`{
  "root": "",
  "atomic": true,
  "perm_file": 0,
  "buf_size": 65536
}`)
	return cfg
}

// EnvTemplate 为 init-config 生成的 .env 样例（全部注释掉）。
const EnvTemplate = `# iconopt 环境变量（优先级：命令行 > 环境变量 > 配置文件）
# ICONOPT_INPUTS=icons,assets/logos
# ICONOPT_CONCURRENCY=4
# ICONOPT_DRY_RUN=false
# ICONOPT_LOG_LEVEL=info
# ICONOPT_LOG_DIR=logs
# ICONOPT_LOG_CONSOLE=false
# ICONOPT_COMPONENTS_OPTIMIZER=minify
# ICONOPT_OPTIONS_RECOLOR_JSON={"preserve":["#000000"]}
`
