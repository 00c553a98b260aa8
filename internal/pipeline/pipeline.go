package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"iconopt/internal/diag"
	"iconopt/internal/recolor"
	"iconopt/pkg/contract"
)

// - 单点并发：仅此层管理并发；原子组件均为同步、无内部并发。
// - 物化发现：先完整枚举，再逐文档处理；报告按发现顺序汇总，与并发度无关。
// - 首错中止：任一文档失败即停止调度并取消在途文档；返回已完成文档的汇总与该错误。
// - 不写半成品：读取、替换、优化全部成功后才交给 Writer；Writer 自身保证原子替换。

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader    contract.Reader
	Optimizer contract.Optimizer
	Writer    contract.Writer
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	Inputs []string
	// Concurrency: <=1 为严格顺序处理。
	Concurrency int
	// DryRun: 不写回，报告 Written=false。
	DryRun bool
	// Recolor: 颜色替换选项；nil 为默认。
	Recolor *recolor.Options
}

// Run 执行完整批处理：Discover → (Open → Recolor → Optimize → Write) × N。
// 返回值总是包含失败前已完成文档的汇总；err 非空时为首个错误（*contract.DocError 标明路径与类别）。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) (contract.Summary, error) {
	var sum contract.Summary
	if err := sanity(comp, set); err != nil {
		return sum, fmt.Errorf("sanity: %w", err)
	}
	rc, err := recolor.New(set.Recolor)
	if err != nil {
		return sum, fmt.Errorf("sanity: %w", err)
	}
	runStart := time.Now()

	// 发现
	dtimer := logger.StartWithKV("reader", "discover", "", map[string]string{"roots": strings.Join(set.Inputs, ",")})
	paths, err := comp.Reader.Discover(ctx, set.Inputs)
	if err != nil {
		code := diag.Classify(err)
		logger.Error("reader", string(code), "discover failed: "+err.Error(), dtimer.Since())
		diag.IncOp("reader", "discover", "error")
		diag.IncError("reader", string(code))
		return sum, fmt.Errorf("%w: discover: %w", contract.ErrRead, err)
	}
	dtimer.Finish("discover", int64(len(paths)))
	diag.IncOp("reader", "discover", "success")
	if t := diag.GetTerminal(); t != nil {
		t.Discovered(len(paths))
	}

	p := &processor{comp: comp, rc: rc, dryRun: set.DryRun, logger: logger}
	reports := make([]contract.Report, len(paths))
	done := make([]bool, len(paths))

	if set.Concurrency <= 1 || len(paths) <= 1 {
		for i, path := range paths {
			rep, derr := p.doc(ctx, path)
			if derr != nil {
				err = derr
				break
			}
			reports[i], done[i] = rep, true
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(set.Concurrency)
		for i, path := range paths {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				rep, derr := p.doc(gctx, path)
				if derr != nil {
					return derr
				}
				reports[i], done[i] = rep, true
				return nil
			})
		}
		err = g.Wait()
		if err == nil {
			// 调用方取消时调度循环提前退出，Wait 可能为 nil
			err = ctx.Err()
		}
	}

	for i := range reports {
		if done[i] {
			sum.Add(reports[i])
		}
	}
	diag.ObserveDuration("pipeline", "run", time.Since(runStart).Milliseconds())
	if err != nil {
		code := diag.Classify(err)
		logger.ErrorWithKV("pipeline", string(code), "run aborted: "+err.Error(), &runStart, docIDOf(err), map[string]string{
			"completed": fmt.Sprintf("%d", sum.Processed),
			"total":     fmt.Sprintf("%d", len(paths)),
		})
		diag.IncOp("pipeline", "run", "error")
		return sum, err
	}
	logger.InfoFinish("pipeline", "run", runStart, int64(sum.Processed))
	diag.IncOp("pipeline", "run", "success")
	return sum, nil
}

type processor struct {
	comp   Components
	rc     *recolor.Recolorer
	dryRun bool
	logger *diag.Logger
}

// doc 处理单个文档。任一阶段失败时不写回，返回 *contract.DocError。
func (p *processor) doc(ctx context.Context, path string) (contract.Report, error) {
	id := contract.NormalizeDocID(path)
	rep := contract.Report{Path: path, DocID: id}
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	if t := diag.GetTerminal(); t != nil {
		t.FileProgress(string(id))
	}
	start := time.Now()
	ok := false
	defer func() {
		if t := diag.GetTerminal(); t != nil {
			t.FileFinish(rep, ok, time.Since(start))
		}
		diag.ObserveDuration("pipeline", "doc", time.Since(start).Milliseconds())
	}()

	// 读取
	rtimer := p.logger.StartWith("reader", "read", string(id))
	data, err := p.read(ctx, path)
	if err != nil {
		return rep, p.fail("reader", "read", id, rtimer, contract.NewDocError(contract.ErrRead, path, err))
	}
	rtimer.Finish("read", int64(len(data)))
	diag.IncOp("reader", "read", "success")
	rep.OriginalSize = int64(len(data))

	// 检测与替换
	res := p.rc.Apply(string(data))
	rep.Colors = res.Colors
	rep.HadSingleColor = res.Single
	rep.Substituted = res.Substituted
	kv := map[string]string{
		"colors":      strings.Join(res.Colors, ","),
		"single":      fmt.Sprintf("%t", res.Single),
		"substituted": fmt.Sprintf("%t", res.Substituted),
	}
	if res.Single {
		kv["color"] = recolor.Canonical(res.Colors[0])
	}
	p.logger.DebugStart("recolor", "apply", string(id), kv)
	diag.IncOp("recolor", "apply", "success")

	// 结构优化
	otimer := p.logger.StartWith("optimizer", "optimize", string(id))
	out, err := p.comp.Optimizer.Optimize(ctx, []byte(res.Doc))
	if err != nil {
		return rep, p.fail("optimizer", "optimize", id, otimer, contract.NewDocError(contract.ErrOptimize, path, err))
	}
	otimer.Finish("optimize", int64(len(out)))
	diag.IncOp("optimizer", "optimize", "success")
	rep.OptimizedSize = int64(len(out))

	// 写回
	if !p.dryRun {
		wtimer := p.logger.StartWith("writer", "write", string(id))
		if err := p.comp.Writer.Write(ctx, path, bytes.NewReader(out)); err != nil {
			return rep, p.fail("writer", "write", id, wtimer, contract.NewDocError(contract.ErrWrite, path, err))
		}
		wtimer.Finish("write", int64(len(out)))
		diag.IncOp("writer", "write", "success")
		rep.Written = true
	}
	ok = true
	return rep, nil
}

func (p *processor) read(ctx context.Context, path string) ([]byte, error) {
	rc, err := p.comp.Reader.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// fail 统一记录阶段错误并计数，原样返回 err。
func (p *processor) fail(comp, stage string, id contract.DocID, t *diag.Timer, err error) error {
	code := diag.Classify(err)
	p.logger.ErrorWithKV(comp, string(code), stage+" failed", t.Since(), string(id), map[string]string{"cause": causeOf(err)})
	diag.IncOp(comp, stage, "error")
	diag.IncError(comp, string(code))
	return err
}

func causeOf(err error) string {
	var de *contract.DocError
	if errors.As(err, &de) && de.Err != nil {
		return de.Err.Error()
	}
	return err.Error()
}

func docIDOf(err error) string {
	var de *contract.DocError
	if errors.As(err, &de) {
		return string(contract.NormalizeDocID(de.Path))
	}
	return ""
}

func sanity(c Components, s Settings) error {
	if c.Reader == nil || c.Optimizer == nil || c.Writer == nil {
		return errors.New("pipeline: missing components")
	}
	if len(s.Inputs) == 0 {
		return errors.New("pipeline: empty inputs")
	}
	return nil
}
