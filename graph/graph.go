package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/researchmesh/logging"
)

// NodeFunc is the behavior of a node. It reads the State and returns a
// Result; a nil Result is treated as Next with no update.
type NodeFunc func(ctx context.Context, st *State) (Result, error)

// Router picks the successor of a node from the State after the node's
// update was merged.
type Router func(st *State) string

// Options configures a compiled Graph.
type Options struct {
	Logger    logging.Logger
	Callbacks []Callback
}

// Builder assembles a Graph. It is not safe for concurrent use.
type Builder struct {
	name    string
	schema  *Schema
	nodes   map[string]NodeFunc
	order   []string
	edges   map[string]string
	routers map[string]Router
	entry   string
	errs    []error
}

// NewBuilder starts a graph named name over the given schema.
func NewBuilder(name string, schema *Schema) *Builder {
	return &Builder{
		name:    name,
		schema:  schema,
		nodes:   make(map[string]NodeFunc),
		edges:   make(map[string]string),
		routers: make(map[string]Router),
	}
}

// AddNode registers a node.
func (b *Builder) AddNode(name string, fn NodeFunc) *Builder {
	switch {
	case name == "" || name == End:
		b.errs = append(b.errs, fmt.Errorf("invalid node name %q", name))
	case fn == nil:
		b.errs = append(b.errs, fmt.Errorf("node %s: nil function", name))
	case b.nodes[name] != nil:
		b.errs = append(b.errs, fmt.Errorf("node %s registered twice", name))
	default:
		b.nodes[name] = fn
		b.order = append(b.order, name)
	}

	return b
}

// AddEdge sets the static successor of from. to may be End.
func (b *Builder) AddEdge(from, to string) *Builder {
	if _, ok := b.routers[from]; ok {
		b.errs = append(b.errs, fmt.Errorf("node %s already has a conditional edge", from))
		return b
	}

	b.edges[from] = to

	return b
}

// AddConditionalEdge sets a router that picks the successor of from.
func (b *Builder) AddConditionalEdge(from string, r Router) *Builder {
	if _, ok := b.edges[from]; ok {
		b.errs = append(b.errs, fmt.Errorf("node %s already has a static edge", from))
		return b
	}

	b.routers[from] = r

	return b
}

// SetEntry sets the first node to execute.
func (b *Builder) SetEntry(name string) *Builder {
	b.entry = name
	return b
}

// Compile validates the structure and returns an executable Graph.
func (b *Builder) Compile(optFns ...func(o *Options)) (*Graph, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	errs := append([]error{}, b.errs...)

	if b.entry == "" {
		errs = append(errs, errors.New("entry node not set"))
	} else if _, ok := b.nodes[b.entry]; !ok {
		errs = append(errs, fmt.Errorf("entry %s: %w", b.entry, ErrNodeNotFound))
	}

	for from, to := range b.edges {
		if _, ok := b.nodes[from]; !ok {
			errs = append(errs, fmt.Errorf("edge from %s: %w", from, ErrNodeNotFound))
		}

		if _, ok := b.nodes[to]; !ok && to != End {
			errs = append(errs, fmt.Errorf("edge to %s: %w", to, ErrNodeNotFound))
		}
	}

	for from := range b.routers {
		if _, ok := b.nodes[from]; !ok {
			errs = append(errs, fmt.Errorf("conditional edge from %s: %w", from, ErrNodeNotFound))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("compile graph %s: %w", b.name, err)
	}

	cm := NewCallbackManager()
	cm.Register(opts.Callbacks...)

	g := &Graph{
		name:      b.name,
		schema:    b.schema,
		nodes:     make(map[string]NodeFunc, len(b.nodes)),
		edges:     make(map[string]string, len(b.edges)),
		routers:   make(map[string]Router, len(b.routers)),
		entry:     b.entry,
		callbacks: cm,
		logger:    logging.OrNoOp(opts.Logger),
	}

	for k, v := range b.nodes {
		g.nodes[k] = v
	}

	for k, v := range b.edges {
		g.edges[k] = v
	}

	for k, v := range b.routers {
		g.routers[k] = v
	}

	return g, nil
}

// Graph is a compiled, immutable graph. It is safe for concurrent runs.
type Graph struct {
	name      string
	schema    *Schema
	nodes     map[string]NodeFunc
	edges     map[string]string
	routers   map[string]Router
	entry     string
	callbacks *CallbackManager
	logger    logging.Logger
}

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// Schema returns the state schema.
func (g *Graph) Schema() *Schema { return g.schema }

// Run creates a fresh State, merges input into it and executes the graph
// until End. On failure the partially merged State is returned together
// with the error.
func (g *Graph) Run(ctx context.Context, input Update) (*State, error) {
	st := NewState(g.schema)
	if err := st.Apply(input); err != nil {
		return st, fmt.Errorf("graph %s: input: %w", g.name, err)
	}

	return st, g.Execute(ctx, st)
}

// Execute runs the graph over an existing State starting at the entry node.
func (g *Graph) Execute(ctx context.Context, st *State) error {
	cm := g.callbacks
	if extra := callbacksFromContext(ctx); len(extra) > 0 {
		cm = NewCallbackManager()
		for _, cbs := range g.callbacks.callbacks {
			cm.Register(cbs...)
		}

		cm.Register(extra...)
	}

	start := time.Now()
	current := g.entry
	step := 0

	for current != End {
		if err := ctx.Err(); err != nil {
			return err
		}

		step++
		cc := &CallbackContext{Graph: g.name, Node: current, Step: step, State: st}

		if err := cm.Execute(ctx, CallbackBeforeNode, cc); err != nil {
			return &NodeError{Graph: g.name, Node: current, Err: err}
		}

		nodeStart := time.Now()

		next, err := g.step(ctx, current, st)

		cc.Duration = time.Since(nodeStart)
		cc.Next = next

		if err != nil {
			cc.Err = err
			_ = cm.Execute(ctx, CallbackOnError, cc)

			g.logger.Error("graph.run.failed", "graph", g.name, "node", current, "steps", step, "error", err.Error())

			return &NodeError{Graph: g.name, Node: current, Err: err}
		}

		if err := cm.Execute(ctx, CallbackAfterNode, cc); err != nil {
			return &NodeError{Graph: g.name, Node: current, Err: err}
		}

		current = next
	}

	g.logger.Debug("graph.run.completed", "graph", g.name, "steps", step, "duration_ms", time.Since(start).Milliseconds())

	return nil
}

func (g *Graph) step(ctx context.Context, name string, st *State) (string, error) {
	res, err := g.nodes[name](ctx, st)
	if err != nil {
		return "", err
	}

	switch r := res.(type) {
	case nil:
		return g.successor(name, st)
	case Next:
		if err := st.Apply(r.Update); err != nil {
			return "", err
		}

		return g.successor(name, st)
	case Command:
		if err := st.Apply(r.Update); err != nil {
			return "", err
		}

		if _, ok := g.nodes[r.Goto]; !ok && r.Goto != End {
			return "", fmt.Errorf("goto %s: %w", r.Goto, ErrNodeNotFound)
		}

		return r.Goto, nil
	default:
		return "", fmt.Errorf("unsupported result %T", res)
	}
}

func (g *Graph) successor(name string, st *State) (string, error) {
	if to, ok := g.edges[name]; ok {
		return to, nil
	}

	if r, ok := g.routers[name]; ok {
		to := r(st)
		if _, ok := g.nodes[to]; !ok && to != End {
			return "", fmt.Errorf("route %s: %w", to, ErrNodeNotFound)
		}

		return to, nil
	}

	return "", ErrNoRoute
}
