package codegen

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/template"

	"golang.org/x/tools/imports"

	"github.com/shape-lang/go-shape/debug"
	"github.com/shape-lang/go-shape/ir"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Options configures rendering across backends. Zero values select
// sensible defaults.
type Options struct {
	// TemplatesDir overrides the embedded templates: the backend's
	// template is loaded from <dir>/<backend>.tmpl instead.
	TemplatesDir string

	// Package overrides the generated package or module name, which
	// defaults to the IR module name.
	Package string

	// Runtime is the import path of the wire runtime used by generated
	// Go code.
	Runtime string
}

// DefaultRuntime is the wire runtime import path generated Go code
// depends on.
const DefaultRuntime = "github.com/shape-lang/go-shape/wire"

type backend struct {
	ext     string
	context func(mod *ir.Module, opts Options) (any, error)
	format  func([]byte) ([]byte, error)
}

var backends = map[string]backend{
	"go": {
		ext:     ".go",
		context: goContext,
		format:  formatGo,
	},
	"pydantic": {
		ext:     ".py",
		context: pyContext,
	},
	"jsonschema": {
		ext:     ".json",
		context: schemaContext,
	},
}

// Backends returns the available backend names, sorted.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Generator renders IR modules for one backend.
type Generator struct {
	name string
	b    backend
	opts Options
	tmpl *template.Template
}

// New returns a generator for the named backend.
func New(name string, opts Options) (*Generator, error) {
	b, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown backend %q, have %v", ErrCodegen, name, Backends())
	}
	if opts.Runtime == "" {
		opts.Runtime = DefaultRuntime
	}
	tmpl, err := loadTemplate(name, opts.TemplatesDir)
	if err != nil {
		return nil, err
	}
	return &Generator{name: name, b: b, opts: opts, tmpl: tmpl}, nil
}

// Ext returns the file extension of generated output, with the dot.
func (g *Generator) Ext() string { return g.b.ext }

// Render generates source for the module.
func (g *Generator) Render(mod *ir.Module) ([]byte, error) {
	if err := mod.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodegen, err)
	}
	ctx, err := g.b.context(mod, g.opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, ctx); err != nil {
		return nil, fmt.Errorf("%w: backend %s: %v", ErrCodegen, g.name, err)
	}
	out := buf.Bytes()
	if g.b.format != nil {
		out, err = g.b.format(out)
		if err != nil {
			if debug.Codegen() {
				debug.Logf("codegen: raw %s output:\n%s\n", g.name, buf.String())
			}
			return nil, fmt.Errorf("%w: backend %s produced unformattable output: %v", ErrCodegen, g.name, err)
		}
	}
	return out, nil
}

func loadTemplate(name, dir string) (*template.Template, error) {
	file := name + ".tmpl"
	if dir != "" {
		path := filepath.Join(dir, file)
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCodegen, err)
		}
		tmpl, err := template.New(file).Parse(string(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCodegen, path, err)
		}
		return tmpl, nil
	}
	tmpl, err := template.ParseFS(templates, "templates/"+file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodegen, err)
	}
	return tmpl, nil
}

// formatGo runs goimports-style formatting, which both gofmts the
// output and prunes the template's import block down to what the
// module actually uses.
func formatGo(src []byte) ([]byte, error) {
	return imports.Process("generated.go", src, nil)
}
