package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/scott-cotton/cli"

	"github.com/shape-lang/go-shape/codegen"
)

type RenderConfig struct {
	*MainConfig
	Format    string `cli:"name=format aliases=f desc='backend: go, pydantic, jsonschema'"`
	Templates string `cli:"name=templates desc='directory overriding the embedded templates'"`
	Pkg       string `cli:"name=pkg desc='generated package or module name'"`
	Out       string `cli:"name=o desc='output file (default stdout)'"`
	Check     bool   `cli:"name=check desc='verify the output file is up to date instead of writing'"`

	Render *cli.Command
}

func RenderCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &RenderConfig{MainConfig: mainCfg, Format: "go"}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Render, "render").
		WithAliases("r").
		WithSynopsis("render [-format backend] [-templates dir] [-o out] [-check] <module.json>").
		WithDescription("render code for a module IR file").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return runRender(cfg, cc, args)
		})
}

func runRender(cfg *RenderConfig, cc *cli.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: render requires exactly 1 IR file", cli.ErrUsage)
	}
	mod, err := loadModule(args[0])
	if err != nil {
		return err
	}
	gen, err := codegen.New(cfg.Format, codegen.Options{
		TemplatesDir: cfg.Templates,
		Package:      cfg.Pkg,
	})
	if err != nil {
		return err
	}
	out, err := gen.Render(mod)
	if err != nil {
		return err
	}
	if cfg.Check {
		return checkOutput(cfg, out)
	}
	if err := writeOutput(cc, cfg.Out, out); err != nil {
		return err
	}
	progressf(cfg.MainConfig, "rendered %s for %s\n", cfg.Format, mod.Target)
	return nil
}

// checkOutput compares the rendered source against the existing
// output file, printing a diff when they disagree. Stale output is an
// error so CI can gate on it.
func checkOutput(cfg *RenderConfig, want []byte) error {
	if cfg.Out == "" {
		return fmt.Errorf("%w: -check requires -o", cli.ErrUsage)
	}
	have, err := os.ReadFile(cfg.Out)
	if err != nil {
		return fmt.Errorf("%s: %w; run render without -check first", cfg.Out, err)
	}
	if strings.TrimRight(string(have), "\n") == strings.TrimRight(string(want), "\n") {
		progressf(cfg.MainConfig, "%s is up to date\n", cfg.Out)
		return nil
	}
	printDiff(cfg.MainConfig, string(have), string(want))
	return fmt.Errorf("%s is stale; rerun render", cfg.Out)
}
