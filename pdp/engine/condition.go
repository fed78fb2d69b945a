package engine

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	pdp_model "github.com/dev-mohitbeniwal/echo/authz/pdp/model"
)

var errConditionNotBool = errors.New("condition must evaluate to bool")

var newConditionEnv = func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("actor", cel.StringType),
		cel.Variable("groups", cel.ListType(cel.StringType)),
		cel.Variable("privilege", cel.StringType),
		cel.Variable("resource_type", cel.StringType),
		cel.Variable("resource", cel.StringType),
	)
}

// ConditionCache compiles each distinct condition expression once and reuses
// the program for every later evaluation.
type ConditionCache struct {
	programs sync.Map
}

func NewConditionCache() *ConditionCache {
	return &ConditionCache{}
}

func newConditionInput(actor pdp_model.Actor, privilege string, resource *pdp_model.ResourceSpec) map[string]any {
	groups := actor.Groups
	if groups == nil {
		groups = []string{}
	}
	input := map[string]any{
		"actor":         actor.URN,
		"groups":        groups,
		"privilege":     privilege,
		"resource_type": "",
		"resource":      "",
	}
	if resource != nil {
		input["resource_type"] = resource.Type
		input["resource"] = resource.Resource
	}
	return input
}

// Evaluate runs expr against input and returns its boolean value.
func (c *ConditionCache) Evaluate(expr string, input map[string]any) (bool, error) {
	program, err := c.load(expr)
	if err != nil {
		return false, err
	}
	out, _, err := program.Eval(input)
	if err != nil {
		return false, err
	}
	v, ok := out.Value().(bool)
	if !ok {
		return false, errConditionNotBool
	}
	return v, nil
}

// Compile validates expr without evaluating it.
func (c *ConditionCache) Compile(expr string) error {
	_, err := c.load(expr)
	return err
}

func (c *ConditionCache) load(expr string) (cel.Program, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New("expression required")
	}
	if cached, ok := c.programs.Load(expr); ok {
		return cached.(cel.Program), nil
	}
	env, err := newConditionEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile condition: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, errConditionNotBool
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	c.programs.Store(expr, program)
	return program, nil
}
