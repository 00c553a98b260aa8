package registry

import (
	"bytes"
	"encoding/json"

	"iconopt/pkg/contract"
	flaky "iconopt/plugins/optimizer/flaky"
	ident "iconopt/plugins/optimizer/identity"
	omin "iconopt/plugins/optimizer/minify"
	rfs "iconopt/plugins/reader/filesystem"
	wfs "iconopt/plugins/writer/filesystem"
)

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		// 保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// NewReader 工厂签名：接收原样 JSON Options。
type NewReader func(raw json.RawMessage) (contract.Reader, error)

// NewOptimizer 工厂签名：接收原样 JSON Options。
type NewOptimizer func(raw json.RawMessage) (contract.Optimizer, error)

// NewWriter 工厂签名：接收原样 JSON Options。
type NewWriter func(raw json.RawMessage) (contract.Writer, error)

// Reader 工厂注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// fs: 文件系统 Reader（目录递归 + 扩展名过滤）
	"fs": func(raw json.RawMessage) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts), nil
	},
}

// Optimizer 工厂注册表。
var Optimizer = map[string]NewOptimizer{
	// minify: 结构优化（tdewolff/minify，多轮直至收敛）
	"minify": func(raw json.RawMessage) (contract.Optimizer, error) {
		var opts omin.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return omin.New(&opts)
	},
	"identity": func(raw json.RawMessage) (contract.Optimizer, error) { return ident.New(raw) },
	"flaky":    func(raw json.RawMessage) (contract.Optimizer, error) { return flaky.New(raw) },
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 原地写回（覆盖写/原子替换可配置）
	"fs": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(&opts)
	},
}

// Names 返回注册表中的全部名称（无序）。
func Names[F any](m map[string]F) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
