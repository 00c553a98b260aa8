package contract

// DocID: 逻辑文档ID（规范化路径，正斜杠，跨平台一致）。
// 仅用于日志/报告展示；读写始终使用原始 Path。
type DocID string

// Placeholder: 主题继承占位色。渲染器据此从上下文继承颜色。
const Placeholder = "currentColor"

// Report: 单文档优化报告（产出后只读）。
// 约束：
// - OriginalSize/OptimizedSize 为 UTF-8 字节数；
// - Colors 为优化前检测到的非哨兵 fill 颜色（小写、按首次出现排序、去重）；
// - HadSingleColor 仅表示“恰好一种颜色”的分类结果；
// - Substituted 表示是否实际替换为 Placeholder（保留色命中时为 false）；
// - Written=false 表示未落盘（dry-run）。
type Report struct {
	Path           string
	DocID          DocID
	OriginalSize   int64
	OptimizedSize  int64
	HadSingleColor bool
	Substituted    bool
	Colors         []string
	Written        bool
}

// Saved 返回节省的字节数（可能为负，不做截断）。
func (r Report) Saved() int64 { return r.OriginalSize - r.OptimizedSize }

// Summary: 批次汇总。Reports 按发现顺序排列。
type Summary struct {
	Processed   int
	SingleColor int
	BytesSaved  int64
	Reports     []Report
}

// Add 累加一条报告。
func (s *Summary) Add(r Report) {
	s.Processed++
	if r.Substituted {
		s.SingleColor++
	}
	s.BytesSaved += r.Saved()
	s.Reports = append(s.Reports, r)
}
