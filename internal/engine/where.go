package engine

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// CompileWhere compiles a listing `where` expression. The expression is
// evaluated per record with the environment {"record": attachedData} and
// must yield a boolean.
func CompileWhere(expression string) (*vm.Program, error) {
	prog, err := expr.Compile(expression, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile where expression: %w", err)
	}
	return prog, nil
}

// MatchWhere evaluates a compiled where expression against one record's
// attached data. Evaluation errors count as non-matches: a filter over
// heterogeneous attached data should skip records missing the referenced
// keys rather than fail the whole listing.
func MatchWhere(prog *vm.Program, data map[string]any) bool {
	result, err := expr.Run(prog, map[string]any{"record": data})
	if err != nil {
		return false
	}
	matched, ok := result.(bool)
	return ok && matched
}
