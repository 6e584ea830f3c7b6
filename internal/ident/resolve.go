package ident

import (
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Source scopes a declarative source expression may address.
const (
	ScopeBody   = "body"
	ScopeQuery  = "query"
	ScopeParams = "params"
)

// Resolver evaluates dotted-path source expressions ("body.user.name",
// "query.id", "params.id") against a source bag. Compiled programs are
// cached by expression string.
type Resolver struct {
	mu    sync.Mutex
	cache map[string]*vm.Program
}

func NewResolver() *Resolver {
	return &Resolver{cache: make(map[string]*vm.Program)}
}

// ValidScope reports whether the source addresses a known scope.
func ValidScope(source string) bool {
	scope, _, _ := strings.Cut(source, ".")
	switch scope {
	case ScopeBody, ScopeQuery, ScopeParams:
		return true
	}
	return false
}

// Resolve looks up a dotted path in the bag. Unknown scopes, missing
// intermediate values and evaluation failures all resolve to nil rather
// than an error; absence is ordinary in declarative mappings.
func (r *Resolver) Resolve(source string, bag map[string]any) any {
	if !ValidScope(source) {
		return nil
	}
	prog, err := r.program(source)
	if err != nil {
		return nil
	}
	out, err := expr.Run(prog, bag)
	if err != nil {
		return nil
	}
	return out
}

func (r *Resolver) program(source string) (*vm.Program, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prog, ok := r.cache[source]; ok {
		return prog, nil
	}
	prog, err := expr.Compile(normalizeSource(source), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	r.cache[source] = prog
	return prog, nil
}

// normalizeSource rewrites numeric dotted segments ("items.0.name") into
// index syntax ("items[0].name") so the expression compiler accepts them.
func normalizeSource(source string) string {
	segs := strings.Split(source, ".")
	var b strings.Builder
	for i, s := range segs {
		if isDigits(s) {
			b.WriteString("[" + s + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s)
	}
	return b.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
