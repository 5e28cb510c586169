package main

import (
	"bytes"
	"fmt"

	"github.com/scott-cotton/cli"

	"github.com/shape-lang/go-shape/extract"
	"github.com/shape-lang/go-shape/ir"
)

type ExtractConfig struct {
	*MainConfig
	Out  string `cli:"name=o desc='output file (default stdout)'"`
	Wire bool   `cli:"name=wire desc='require wire serialization support on every type'"`

	deps    []string
	patches []string

	Extract *cli.Command
}

func ExtractCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ExtractConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts = append(opts,
		&cli.Opt{
			Name:        "dep",
			Description: "IR file of a dependency module, repeatable",
			Type:        cli.NamedFuncOpt(appendOpt(&cfg.deps), "(file)"),
		},
		&cli.Opt{
			Name:        "patch",
			Description: "overlay merged onto the declaration file, repeatable",
			Type:        cli.NamedFuncOpt(appendOpt(&cfg.patches), "(file)"),
		})
	return cli.NewCommandAt(&cfg.Extract, "extract").
		WithAliases("x").
		WithSynopsis("extract [-o out.json] [-dep dep.json]... [-patch overlay.yaml]... <decls.yaml>").
		WithDescription("extract module IR from a YAML shape declaration file").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return runExtract(cfg, cc, args)
		})
}

func runExtract(cfg *ExtractConfig, cc *cli.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: extract requires exactly 1 declaration file", cli.ErrUsage)
	}
	file, err := extract.LoadFile(args[0], cfg.patches...)
	if err != nil {
		return err
	}
	var opts []extract.Option
	for _, path := range cfg.deps {
		dep, err := loadModule(path)
		if err != nil {
			return err
		}
		opts = append(opts, extract.Deps(dep))
	}
	if cfg.Wire {
		opts = append(opts, extract.RequireWire())
	}
	mod, err := file.Module(opts...)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := ir.EncodeJSON(&buf, mod); err != nil {
		return err
	}
	if err := writeOutput(cc, cfg.Out, buf.Bytes()); err != nil {
		return err
	}
	progressf(cfg.MainConfig, "extracted %d types from %s\n", len(mod.Types), args[0])
	return nil
}
