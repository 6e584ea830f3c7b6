// Package gofile builds generated source artifacts as data (package
// clause, import set, declarations) and prints them through a dedicated
// formatting stage, so emitted files are deterministic and syntax-safe.
package gofile

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	gofumpt "mvdan.cc/gofumpt/format"
)

const header = "// Code generated by flowforge. DO NOT EDIT."

type Import struct {
	Alias string
	Path  string
}

// File is an artifact-description tree for one generated source file.
type File struct {
	pkg     string
	imports map[string]Import // keyed by path
	decls   []string
}

func New(pkg string) *File {
	return &File{pkg: pkg, imports: make(map[string]Import)}
}

// AddImport records an import; duplicates collapse, the first alias wins.
func (f *File) AddImport(alias, path string) {
	if _, ok := f.imports[path]; ok {
		return
	}
	f.imports[path] = Import{Alias: alias, Path: path}
}

// Var appends a package-level var declaration.
func (f *File) Var(name, expr string) {
	f.decls = append(f.decls, fmt.Sprintf("var %s = %s", name, expr))
}

// Func appends a function declaration. doc may be empty.
func (f *File) Func(doc, signature string, body ...string) {
	var b strings.Builder
	if doc != "" {
		b.WriteString("// " + doc + "\n")
	}
	b.WriteString("func " + signature + " {\n")
	for _, line := range body {
		b.WriteString(line + "\n")
	}
	b.WriteString("}")
	f.decls = append(f.decls, b.String())
}

// Raw appends an arbitrary declaration block.
func (f *File) Raw(block string) {
	f.decls = append(f.decls, block)
}

// Imports returns the recorded imports sorted by path.
func (f *File) Imports() []Import {
	out := make([]Import, 0, len(f.imports))
	for _, imp := range f.imports {
		out = append(out, imp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Bytes assembles and formats the file. Formatting failure means the
// tree described invalid syntax and is reported, not papered over.
func (f *File) Bytes() ([]byte, error) {
	var b strings.Builder
	b.WriteString(header + "\n\n")
	b.WriteString("package " + f.pkg + "\n\n")

	if imps := f.Imports(); len(imps) > 0 {
		b.WriteString("import (\n")
		for _, imp := range imps {
			if imp.Alias != "" {
				b.WriteString("\t" + imp.Alias + " " + strconv.Quote(imp.Path) + "\n")
			} else {
				b.WriteString("\t" + strconv.Quote(imp.Path) + "\n")
			}
		}
		b.WriteString(")\n\n")
	}

	for i, d := range f.decls {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(d + "\n")
	}

	src, err := gofumpt.Source([]byte(b.String()), gofumpt.Options{})
	if err != nil {
		return nil, fmt.Errorf("format generated %s: %w", f.pkg, err)
	}
	return src, nil
}

// Lit renders a JSON-decoded scalar as a Go literal: strings quoted,
// numbers and booleans emitted literally.
func Lit(v any) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(val)
	case bool:
		return strconv.FormatBool(val)
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1e15 {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'g', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprintf("%v", val)
	}
}
