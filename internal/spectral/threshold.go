package spectral

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// BoostEvaluator compiles and caches operator-supplied boolean
// expressions deciding whether a candidate earns the cluster/PageRank
// boost C4 contributes to a ranking (e.g. "clusterID == contextCluster
// && pageRank > 0.05"). Mirrors the teacher's ConditionEvaluator
// compiled-program cache in internal/application/executor/conditions.go.
type BoostEvaluator struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewBoostEvaluator returns an evaluator with an empty compile cache.
func NewBoostEvaluator() *BoostEvaluator {
	return &BoostEvaluator{cache: make(map[string]*vm.Program)}
}

// Eval reports whether expression holds for the given signal bag
// (typically clusterID, contextCluster, pageRank, coOccurrence).
func (e *BoostEvaluator) Eval(expression string, vars map[string]any) (bool, error) {
	program, err := e.getCompiledProgram(expression)
	if err != nil {
		return false, err
	}
	out, err := expr.Run(program, vars)
	if err != nil {
		return false, fmt.Errorf("boost expression %q: %w", expression, err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("boost expression %q did not return bool, got %T", expression, out)
	}
	return b, nil
}

func (e *BoostEvaluator) getCompiledProgram(expression string) (*vm.Program, error) {
	e.mu.RLock()
	program, ok := e.cache[expression]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	envType := map[string]any{}
	program, err := expr.Compile(expression, expr.Env(envType), expr.AsBool())
	if err != nil {
		program, err = expr.Compile(expression, expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("failed to compile boost expression %q: %w", expression, err)
		}
	}

	e.mu.Lock()
	e.cache[expression] = program
	e.mu.Unlock()
	return program, nil
}
