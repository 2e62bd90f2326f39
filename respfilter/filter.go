package respfilter

import (
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// CompiledFilter is a pre-compiled predicate over a decoded JSON item.
type CompiledFilter interface {
	// Match reports whether the item satisfies the predicate.
	Match(item map[string]any) (bool, error)

	// Expression returns the original filter expression.
	Expression() string
}

// Compiler compiles filter expressions into executable predicates.
type Compiler interface {
	Compile(expression string) (CompiledFilter, error)
}

// Option configures a compiler.
type Option func(*exprCompiler)

// WithCache enables compile caching with the specified size.
func WithCache(size int) Option {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache(size)
		}
	}
}

// NewCompiler creates an expr-based filter compiler.
func NewCompiler(opts ...Option) Compiler {
	c := &exprCompiler{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type exprCompiler struct {
	cache *lruCache
}

// Compile parses and compiles a filter expression.
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{Expression: expression, Reason: "empty expression"}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached.(CompiledFilter), nil
		}
	}

	program, err := expr.Compile(expression, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, &CompilationError{Expression: expression, Reason: err.Error(), Err: err}
	}

	f := &exprFilter{expression: expression, program: program}
	if c.cache != nil {
		c.cache.Put(expression, f)
	}
	return f, nil
}

// exprFilter implements CompiledFilter using the expr language. Programs
// are safe for concurrent evaluation.
type exprFilter struct {
	expression string
	program    *vm.Program
}

func (f *exprFilter) Match(item map[string]any) (bool, error) {
	out, err := expr.Run(f.program, item)
	if err != nil {
		return false, &EvaluationError{Expression: f.expression, Reason: err.Error(), Err: err}
	}
	matched, ok := out.(bool)
	if !ok {
		return false, &EvaluationError{Expression: f.expression, Reason: "expression did not evaluate to a boolean"}
	}
	return matched, nil
}

func (f *exprFilter) Expression() string {
	return f.expression
}

// Apply filters items down to those matching the expression.
func Apply(c Compiler, expression string, items []map[string]any) ([]map[string]any, error) {
	f, err := c.Compile(expression)
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for _, item := range items {
		matched, err := f.Match(item)
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, item)
		}
	}
	return out, nil
}
