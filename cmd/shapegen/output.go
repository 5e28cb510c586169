package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/shape-lang/go-shape/ir"
)

func loadModule(path string) (*ir.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	mod, err := ir.DecodeJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mod, nil
}

// writeOutput writes data to path, or to the command's stdout for ""
// or "-". File output goes through a temp file and rename, so a
// failed render never truncates an existing artifact.
func writeOutput(cc *cli.Context, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cc.Out.Write(data)
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func progressf(cfg *MainConfig, format string, args ...any) {
	if cfg.Quiet {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
}

func useColor(cfg *MainConfig) bool {
	return !cfg.NoColor && isatty.IsTerminal(os.Stderr.Fd())
}

// printDiff writes a character-level diff of have vs want to stderr,
// colored when stderr is a terminal.
func printDiff(cfg *MainConfig, have, want string) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(have, want, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	if useColor(cfg) {
		del := color.New(color.FgRed)
		ins := color.New(color.FgGreen)
		for _, d := range diffs {
			switch d.Type {
			case diffmatchpatch.DiffDelete:
				del.Fprint(os.Stderr, d.Text)
			case diffmatchpatch.DiffInsert:
				ins.Fprint(os.Stderr, d.Text)
			default:
				fmt.Fprint(os.Stderr, d.Text)
			}
		}
		fmt.Fprintln(os.Stderr)
		return
	}
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			fmt.Fprintf(os.Stderr, "[-%s-]", d.Text)
		case diffmatchpatch.DiffInsert:
			fmt.Fprintf(os.Stderr, "{+%s+}", d.Text)
		default:
			fmt.Fprint(os.Stderr, d.Text)
		}
	}
	fmt.Fprintln(os.Stderr)
}
