package minify

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	tdm "github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/svg"

	"iconopt/pkg/contract"
)

const (
	mimeSVG = "image/svg+xml"
	mimeCSS = "text/css"

	defaultMaxPasses = 10
)

// Options: 结构优化选项。
type Options struct {
	// Precision: 数值有效位数；0 表示保持原精度（无损）。
	Precision int `json:"precision"`
	// KeepComments: 保留注释。
	KeepComments bool `json:"keep_comments"`
	// MaxPasses: 多遍优化上限；<=0 使用默认 10。
	MaxPasses int `json:"max_passes"`
	// SkipValidate: 跳过 XML 良构预检（默认预检）。
	SkipValidate bool `json:"skip_validate"`
}

// Minifier 以 tdewolff/minify 为后端的多遍 SVG 优化器。
type Minifier struct {
	m         *tdm.M
	maxPasses int
	validate  bool
}

// New 构造 Minifier。opts 可为 nil。
func New(opts *Options) (*Minifier, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.Precision < 0 {
		return nil, fmt.Errorf("%w: minify: precision must be >= 0", contract.ErrInvalidInput)
	}
	if o.MaxPasses <= 0 {
		o.MaxPasses = defaultMaxPasses
	}
	m := tdm.New()
	m.AddFunc(mimeCSS, css.Minify)
	m.Add(mimeSVG, &svg.Minifier{Precision: o.Precision, KeepComments: o.KeepComments})
	return &Minifier{m: m, maxPasses: o.MaxPasses, validate: !o.SkipValidate}, nil
}

var _ contract.Optimizer = (*Minifier)(nil)

// Optimize 先做良构预检，再重复压缩直到某一遍不再变小或达到上限。
// 首遍结果总是采用；后续遍仅在严格变小时采用。
func (o *Minifier) Optimize(ctx context.Context, doc []byte) ([]byte, error) {
	if o.validate {
		if err := wellFormed(doc); err != nil {
			return nil, err
		}
	}
	cur := doc
	for pass := 0; pass < o.maxPasses; pass++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		next, err := o.m.Bytes(mimeSVG, cur)
		if err != nil {
			return nil, fmt.Errorf("minify pass %d: %w", pass+1, err)
		}
		if pass > 0 && len(next) >= len(cur) {
			break
		}
		cur = next
	}
	return cur, nil
}

// wellFormed 以严格模式完整扫描 XML 记号；允许 HTML 命名实体（&nbsp; 等）。
func wellFormed(doc []byte) error {
	if len(bytes.TrimSpace(doc)) == 0 {
		return errors.New("empty document")
	}
	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.Strict = true
	dec.Entity = xml.HTMLEntity
	root := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("malformed svg: %w", err)
		}
		if _, ok := tok.(xml.StartElement); ok {
			root = true
		}
	}
	if !root {
		return errors.New("malformed svg: no root element")
	}
	return nil
}
