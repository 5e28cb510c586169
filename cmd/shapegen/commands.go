package main

import (
	"fmt"

	"github.com/scott-cotton/cli"
)

type MainConfig struct {
	Quiet   bool `cli:"name=q aliases=quiet desc='suppress progress output'"`
	NoColor bool `cli:"name=no-color desc='disable colored diagnostics'"`

	Main *cli.Command
}

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Main, "shapegen").
		WithSynopsis("shapegen [opts] command [opts]").
		WithDescription("shapegen extracts IR from shape declaration files and renders code from it.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return fmt.Errorf("%w: expected a subcommand: extract, render", cli.ErrUsage)
		}).
		WithSubs(
			ExtractCommand(cfg),
			RenderCommand(cfg))
}

// appendOpt accumulates values of a repeatable option.
func appendOpt(dst *[]string) cli.FuncOpt {
	return cli.FuncOpt(func(_ *cli.Context, v string) (any, error) {
		*dst = append(*dst, v)
		return v, nil
	})
}
