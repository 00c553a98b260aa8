package recolor

import (
	"fmt"
	"regexp"
	"strings"

	"iconopt/pkg/contract"
)

// Options: 颜色替换的可选项。
type Options struct {
	// Preserve: 即使是唯一颜色也不替换的颜色（如品牌黑）。
	// 按等价类比较：#000、#000000 与 black 等价；其余写法按大小写不敏感字面比较。
	Preserve []string `json:"preserve"`
}

// Recolorer 执行“检测 → 单色分类 → 占位替换”。无状态，可并发使用。
type Recolorer struct {
	keep map[string]struct{}
}

// New 构造 Recolorer。opts 可为 nil。
func New(opts *Options) (*Recolorer, error) {
	r := &Recolorer{keep: make(map[string]struct{})}
	if opts == nil {
		return r, nil
	}
	for _, p := range opts.Preserve {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("%w: recolor: empty preserve color", contract.ErrInvalidInput)
		}
		r.keep[Canonical(p)] = struct{}{}
	}
	return r, nil
}

// Result: 单文档替换结果。
// Colors 为出现过的全部写法；Single 表示这些写法同属一个颜色。
type Result struct {
	Doc         string
	Colors      []string
	Single      bool
	Substituted bool
}

// Apply 对文档执行单色替换。多色或无色文档原样返回。
func (r *Recolorer) Apply(doc string) Result {
	colors := DetectFillColors(doc)
	classes := Classes(colors)
	res := Result{Doc: doc, Colors: colors, Single: len(classes) == 1}
	if !res.Single || r.preserved(classes[0]) {
		return res
	}
	res.Doc = Substitute(doc, colors...)
	res.Substituted = true
	return res
}

func (r *Recolorer) preserved(class string) bool {
	if r == nil {
		return false
	}
	_, ok := r.keep[class]
	return ok
}

// Substitute 将值与 colors 中任一写法完全相等（大小写不敏感、忽略两端空白）的 fill 属性改写为
// fill="currentColor"。各写法经转义后锚定在引号之间，仅整值匹配；
// 哨兵与已有占位色不受影响（除非 colors 本身包含它们）。
func Substitute(doc string, colors ...string) string {
	alts := make([]string, 0, len(colors))
	for _, c := range colors {
		if q := regexp.QuoteMeta(strings.TrimSpace(c)); q != "" {
			alts = append(alts, q)
		}
	}
	if len(alts) == 0 {
		return doc
	}
	v := `(?i:` + strings.Join(alts, "|") + `)`
	re := regexp.MustCompile(`(^|\s)fill\s*=\s*(?:"\s*` + v + `\s*"|'\s*` + v + `\s*')`)
	return re.ReplaceAllString(doc, `${1}fill="`+contract.Placeholder+`"`)
}
