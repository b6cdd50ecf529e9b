package rationale

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// TemplateEvaluator compiles and caches operator-supplied rationale
// expressions, letting a deployment override Rationale's fixed
// "ranked by X (v), Y (v); alpha=a" format with its own phrasing (e.g.
// promoting a regulatory disclosure string whenever a particular signal
// crosses a threshold) without a code change. Mirrors the teacher's
// ConditionEvaluator compiled-program cache.
type TemplateEvaluator struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewTemplateEvaluator returns an evaluator with an empty compile cache.
func NewTemplateEvaluator() *TemplateEvaluator {
	return &TemplateEvaluator{cache: make(map[string]*vm.Program)}
}

// Eval compiles template (caching on the literal template string) and
// runs it against vars, requiring a string result — the same
// compile-with-env-fallback shape the teacher's condition evaluator
// uses for booleans, adapted to a string-typed expression.
func (e *TemplateEvaluator) Eval(template string, vars map[string]any) (string, error) {
	program, err := e.getCompiledProgram(template)
	if err != nil {
		return "", err
	}
	out, err := expr.Run(program, vars)
	if err != nil {
		return "", fmt.Errorf("rationale template %q: %w", template, err)
	}
	s, ok := out.(string)
	if !ok {
		return "", fmt.Errorf("rationale template %q did not return a string, got %T", template, out)
	}
	return s, nil
}

func (e *TemplateEvaluator) getCompiledProgram(template string) (*vm.Program, error) {
	e.mu.RLock()
	program, ok := e.cache[template]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	envType := map[string]any{}
	program, err := expr.Compile(template, expr.Env(envType), expr.AsKind(reflect.String))
	if err != nil {
		program, err = expr.Compile(template, expr.AsKind(reflect.String))
		if err != nil {
			return nil, fmt.Errorf("failed to compile rationale template %q: %w", template, err)
		}
	}

	e.mu.Lock()
	e.cache[template] = program
	e.mu.Unlock()
	return program, nil
}
