package recolor

import (
	"regexp"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// fillAttr 匹配 fill="<v>" 与 fill='<v>'；属性名须完整为 fill（前置起始或空白），
// 因此 fill-opacity / data-fill 不会命中。
var fillAttr = regexp.MustCompile(`(^|\s)fill\s*=\s*(?:"([^"]*)"|'([^']*)')`)

// 非颜色哨兵值（小写比较）。占位色 currentColor 本身即哨兵，保证二次运行幂等。
var sentinels = map[string]struct{}{
	"none":         {},
	"transparent":  {},
	"currentcolor": {},
}

// IsSentinel 判断 fill 值是否为非颜色哨兵（大小写不敏感）。
func IsSentinel(v string) bool {
	_, ok := sentinels[strings.ToLower(strings.TrimSpace(v))]
	return ok
}

// DetectFillColors 返回文档中非哨兵 fill 颜色的全部写法：
// 小写规范化、按字面去重、按首次出现排序。无 fill 时返回 nil。
// 同一颜色的不同写法（#f00 与 #ff0000）各自保留，归类见 Classes。
func DetectFillColors(doc string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, m := range fillAttr.FindAllStringSubmatch(doc, -1) {
		v := m[2]
		if v == "" {
			v = m[3]
		}
		c := strings.ToLower(strings.TrimSpace(v))
		if c == "" {
			continue
		}
		if _, ok := sentinels[c]; ok {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Canonical 返回颜色的等价类键：十六进制（#rgb/#rrggbb）与 CSS 颜色名统一为 #rrggbb，
// 其余写法（rgb()、hsl() 等）为小写字面。结构优化会在同类写法之间改写。
func Canonical(color string) string {
	c := strings.ToLower(strings.TrimSpace(color))
	if h, ok := Hex(c); ok {
		return h
	}
	if rgba, ok := colornames.Map[c]; ok {
		return colorful.Color{R: float64(rgba.R) / 255, G: float64(rgba.G) / 255, B: float64(rgba.B) / 255}.Hex()
	}
	return c
}

// Classes 返回 colors 的等价类键（去重，按首次出现排序）。
func Classes(colors []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(colors))
	for _, c := range colors {
		k := Canonical(c)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Hex 将可解析的十六进制颜色（#rgb/#rrggbb）规范为 #rrggbb；其他写法返回 false。
func Hex(color string) (string, bool) {
	c, ok := parseHex(color)
	if !ok {
		return "", false
	}
	return c.Hex(), true
}

// parseHex 仅接受完整的 #rgb/#rrggbb；colorful.Hex 会忽略多余尾字符。
func parseHex(color string) (colorful.Color, bool) {
	s := strings.TrimSpace(color)
	if len(s) != 4 && len(s) != 7 {
		return colorful.Color{}, false
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, false
	}
	return c, true
}
