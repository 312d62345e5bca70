package eval

import (
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

var ErrEmptyCondition = errors.New("empty condition")

// Compiled is a validated condition bound to a variable schema.
type Compiled struct {
	Source  string
	program *vm.Program
}

// Compile checks cond against the sandbox and type-checks it against schema.
// Variables missing from schema and non-boolean results are compile errors.
func Compile(cond string, schema map[string]any) (*Compiled, error) {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return nil, ErrEmptyCondition
	}

	if err := Validate(cond); err != nil {
		return nil, err
	}

	program, err := expr.Compile(cond, expr.Env(schema), expr.AsBool(), expr.DisableAllBuiltins())
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", cond, err)
	}

	return &Compiled{Source: cond, program: program}, nil
}

func (c *Compiled) Eval(vars map[string]any) (bool, error) {
	if c == nil || c.program == nil {
		return false, ErrEmptyCondition
	}

	out, err := expr.Run(c.program, vars)
	if err != nil {
		return false, err
	}

	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("cond must evaluate to bool (got %T)", out)
	}

	return b, nil
}

// Eval compiles cond against vars and runs it once. An empty condition holds.
func Eval(cond string, vars map[string]any) (bool, error) {
	if strings.TrimSpace(cond) == "" {
		return true, nil
	}

	c, err := Compile(cond, vars)
	if err != nil {
		return false, err
	}
	return c.Eval(vars)
}
