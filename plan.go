package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/fortressi/transaction/dag"
	"github.com/tidwall/btree"
)

var (
	// ErrDuplicateStep indicates two steps of a plan share a name.
	ErrDuplicateStep = errors.New("duplicate step")

	// ErrUnknownStep indicates a dependency on a step that was never added.
	ErrUnknownStep = errors.New("unknown step")
)

// Plan lays out tasks with dependencies and applies them level by level on
// a Transaction. Steps of one level run concurrently as a group.
type Plan struct {
	name  string
	steps map[TaskName]*planStep
	order []TaskName
}

type planStep struct {
	task  Task
	after []TaskName
}

// NewPlan creates an empty Plan.
func NewPlan(name string) *Plan {
	return &Plan{
		name:  name,
		steps: make(map[TaskName]*planStep),
	}
}

// Add adds task as a step named after the task. The step runs after every
// step listed in after; those may be added later.
func (p *Plan) Add(task Task, after ...TaskName) error {
	name := task.Name()
	if _, exists := p.steps[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateStep, name)
	}
	p.steps[name] = &planStep{task: task, after: after}
	p.order = append(p.order, name)
	return nil
}

func (p *Plan) graph() (*dag.Graph, error) {
	g := dag.New(p.name)
	for _, name := range p.order {
		label := string(name)
		if !p.steps[name].task.Reversible() {
			label += " (irreversible)"
		}
		if _, err := g.AddNamed(string(name), label); err != nil {
			return nil, err
		}
	}

	for _, name := range p.order {
		for _, dep := range p.steps[name].after {
			if _, ok := p.steps[dep]; !ok {
				return nil, fmt.Errorf("%w: %q required by %q", ErrUnknownStep, dep, name)
			}
			if err := g.AddDependency(string(dep), string(name)); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// Levels returns the step names grouped in the order Run applies them.
func (p *Plan) Levels() ([][]TaskName, error) {
	g, err := p.graph()
	if err != nil {
		return nil, err
	}
	nodeLevels, err := g.Levels()
	if err != nil {
		return nil, err
	}

	levels := make([][]TaskName, len(nodeLevels))
	for i, level := range nodeLevels {
		for _, n := range level {
			levels[i] = append(levels[i], TaskName(n.Name()))
		}
	}
	return levels, nil
}

// DOT renders the plan in Graphviz format.
func (p *Plan) DOT() (string, error) {
	g, err := p.graph()
	if err != nil {
		return "", err
	}
	return g.ExportToDot()
}

// PlanResult holds the outputs of the steps that were applied.
type PlanResult struct {
	outputs *btree.Map[TaskName, any]
}

// Output returns the result a step's Apply produced.
func (r *PlanResult) Output(name TaskName) (any, bool) {
	return r.outputs.Get(name)
}

// Applied returns the names of the applied steps in lexical order.
func (r *PlanResult) Applied() []TaskName {
	return r.outputs.Keys()
}

type outputsKey struct{}

// Lookup retrieves the output of an already applied step from the context
// passed to a task by Plan.Run.
func Lookup[R any](ctx context.Context, name TaskName) (R, bool) {
	var zero R
	outputs, ok := ctx.Value(outputsKey{}).(*btree.Map[TaskName, any])
	if !ok {
		return zero, false
	}
	value, found := outputs.Get(name)
	if !found {
		return zero, false
	}
	typed, ok := value.(R)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Run applies the plan on tx. When a level fails Run stops and returns the
// error with the outputs gathered so far; reverting is left to the caller.
func (p *Plan) Run(ctx context.Context, tx *Transaction) (*PlanResult, error) {
	levels, err := p.Levels()
	if err != nil {
		return nil, err
	}

	result := &PlanResult{outputs: btree.NewMap[TaskName, any](16)}
	ctx = context.WithValue(ctx, outputsKey{}, result.outputs)

	for i, level := range levels {
		if len(level) == 1 {
			output, err := tx.Apply(ctx, p.steps[level[0]].task)
			if err != nil {
				return result, fmt.Errorf("plan %q level %d: %w", p.name, i, err)
			}
			result.outputs.Set(level[0], output)
			continue
		}

		tasks := make([]Task, len(level))
		for j, name := range level {
			tasks[j] = p.steps[name].task
		}
		outputs, err := tx.ApplyAll(ctx, tasks...)
		if err != nil {
			return result, fmt.Errorf("plan %q level %d: %w", p.name, i, err)
		}
		for j, name := range level {
			result.outputs.Set(name, outputs[j])
		}
	}

	return result, nil
}
