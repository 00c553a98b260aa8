package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"iconopt/internal/pipeline"
	"iconopt/internal/recolor"
	"iconopt/pkg/registry"
)

var validLevels = map[string]struct{}{"": {}, "debug": {}, "info": {}, "warn": {}, "error": {}}

// Validate 对最小必要边界做静态校验，收集全部问题后一并返回。
func Validate(cfg Config) error {
	var errs []error
	if len(cfg.Inputs) == 0 {
		errs = append(errs, errors.New("config: inputs empty"))
	}
	for i, r := range cfg.Inputs {
		if strings.TrimSpace(r) == "" {
			errs = append(errs, fmt.Errorf("config: inputs[%d] cannot be empty", i))
		}
	}
	if cfg.Concurrency < 1 {
		errs = append(errs, errors.New("config: concurrency must be >= 1"))
	}
	if _, ok := validLevels[strings.ToLower(strings.TrimSpace(cfg.Logging.Level))]; !ok {
		errs = append(errs, fmt.Errorf("config: logging.level %q invalid", cfg.Logging.Level))
	}
	d := Defaults()
	if name := effName(cfg.Components.Reader, d.Components.Reader); registry.Reader[name] == nil {
		errs = append(errs, fmt.Errorf("config: reader %q not registered", name))
	}
	if name := effName(cfg.Components.Optimizer, d.Components.Optimizer); registry.Optimizer[name] == nil {
		errs = append(errs, fmt.Errorf("config: optimizer %q not registered", name))
	}
	if name := effName(cfg.Components.Writer, d.Components.Writer); registry.Writer[name] == nil {
		errs = append(errs, fmt.Errorf("config: writer %q not registered", name))
	}
	if _, err := recolorOptions(cfg.Options.Recolor); err != nil {
		errs = append(errs, fmt.Errorf("config: options.recolor: %w", err))
	}
	return errors.Join(errs...)
}

// Assemble 构造 Components 与 Settings。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
func Assemble(cfg Config) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}

	d := Defaults()
	rn := effName(cfg.Components.Reader, d.Components.Reader)
	on := effName(cfg.Components.Optimizer, d.Components.Optimizer)
	wn := effName(cfg.Components.Writer, d.Components.Writer)

	r, err := registry.Reader[rn](cfg.Options.Reader)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("config: reader %q: %w", rn, err)
	}
	o, err := registry.Optimizer[on](cfg.Options.Optimizer)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("config: optimizer %q: %w", on, err)
	}
	w, err := registry.Writer[wn](cfg.Options.Writer)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("config: writer %q: %w", wn, err)
	}
	rc, err := recolorOptions(cfg.Options.Recolor)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}

	comp := pipeline.Components{Reader: r, Optimizer: o, Writer: w}
	set := pipeline.Settings{
		Inputs:      cloneStrings(cfg.Inputs),
		Concurrency: cfg.Concurrency,
		DryRun:      cfg.DryRun,
		Recolor:     rc,
	}
	return comp, set, nil
}

// recolorOptions 严格解码并试构造一次，提前暴露非法颜色。
func recolorOptions(raw json.RawMessage) (*recolor.Options, error) {
	var o recolor.Options
	if len(raw) > 0 && string(bytes.TrimSpace(raw)) != "null" {
		if err := decodeStrict(bytes.NewReader(raw), &o); err != nil {
			return nil, err
		}
	}
	if _, err := recolor.New(&o); err != nil {
		return nil, err
	}
	return &o, nil
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
