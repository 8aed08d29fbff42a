package graph

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_StaticEdges(t *testing.T) {
	g, err := NewBuilder("linear", testSchema()).
		AddNode("a", func(_ context.Context, _ *State) (Result, error) {
			return Continue(Update{"notes": "a"}), nil
		}).
		AddNode("b", func(_ context.Context, _ *State) (Result, error) {
			return Continue(Update{"notes": "b", "brief": "done"}), nil
		}).
		AddEdge("a", "b").
		AddEdge("b", End).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	st, err := g.Run(context.Background(), Update{"notes": []string{"input"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"input", "a", "b"}, Get[[]string](st, "notes"))
	assert.Equal(t, "done", Get[string](st, "brief"))
}

func TestGraph_CommandAndCycle(t *testing.T) {
	// a cycle bounded by a counter in the state; the engine imposes no limit
	g, err := NewBuilder("loop", testSchema()).
		AddNode("tick", func(_ context.Context, st *State) (Result, error) {
			n := Get[int](st, "iterations") + 1
			if n >= 50 {
				return Goto(End, Update{"iterations": n}), nil
			}
			return Goto("tick", Update{"iterations": n, "notes": "t"}), nil
		}).
		SetEntry("tick").
		Compile()
	require.NoError(t, err)

	st, err := g.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 50, Get[int](st, "iterations"))
	assert.Len(t, Get[[]string](st, "notes"), 49)
}

func TestGraph_ConditionalEdge(t *testing.T) {
	build := func() *Graph {
		g, err := NewBuilder("branch", testSchema()).
			AddNode("decide", func(_ context.Context, _ *State) (Result, error) { return nil, nil }).
			AddNode("left", func(_ context.Context, _ *State) (Result, error) {
				return Continue(Update{"notes": "left"}), nil
			}).
			AddNode("right", func(_ context.Context, _ *State) (Result, error) {
				return Continue(Update{"notes": "right"}), nil
			}).
			AddConditionalEdge("decide", func(st *State) string {
				if Get[string](st, "brief") == "L" {
					return "left"
				}
				return "right"
			}).
			AddEdge("left", End).
			AddEdge("right", End).
			SetEntry("decide").
			Compile()
		require.NoError(t, err)
		return g
	}

	st, err := build().Run(context.Background(), Update{"brief": "L"})
	require.NoError(t, err)
	assert.Equal(t, []string{"left"}, Get[[]string](st, "notes"))

	st, err = build().Run(context.Background(), Update{"brief": "R"})
	require.NoError(t, err)
	assert.Equal(t, []string{"right"}, Get[[]string](st, "notes"))
}

func TestGraph_NodeErrorKeepsPartialState(t *testing.T) {
	boom := errors.New("boom")

	g, err := NewBuilder("failing", testSchema()).
		AddNode("ok", func(_ context.Context, _ *State) (Result, error) {
			return Continue(Update{"notes": "kept"}), nil
		}).
		AddNode("bad", func(_ context.Context, _ *State) (Result, error) { return nil, boom }).
		AddEdge("ok", "bad").
		AddEdge("bad", End).
		SetEntry("ok").
		Compile()
	require.NoError(t, err)

	st, err := g.Run(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var nodeErr *NodeError
	require.True(t, errors.As(err, &nodeErr))
	assert.Equal(t, "bad", nodeErr.Node)
	assert.Equal(t, []string{"kept"}, Get[[]string](st, "notes"))
}

func TestGraph_RoutingErrors(t *testing.T) {
	g, err := NewBuilder("dangling", testSchema()).
		AddNode("a", func(_ context.Context, _ *State) (Result, error) { return nil, nil }).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	_, err = g.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoRoute)

	g, err = NewBuilder("bad-goto", testSchema()).
		AddNode("a", func(_ context.Context, _ *State) (Result, error) { return Goto("missing", nil), nil }).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	_, err = g.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestBuilder_CompileValidation(t *testing.T) {
	noop := func(_ context.Context, _ *State) (Result, error) { return nil, nil }

	_, err := NewBuilder("x", testSchema()).AddNode("a", noop).Compile()
	assert.Error(t, err, "missing entry")

	_, err = NewBuilder("x", testSchema()).AddNode("a", noop).AddEdge("a", "nowhere").SetEntry("a").Compile()
	assert.ErrorIs(t, err, ErrNodeNotFound)

	_, err = NewBuilder("x", testSchema()).AddNode(End, noop).SetEntry(End).Compile()
	assert.Error(t, err)

	_, err = NewBuilder("x", testSchema()).
		AddNode("a", noop).
		AddEdge("a", End).
		AddConditionalEdge("a", func(*State) string { return End }).
		SetEntry("a").
		Compile()
	assert.Error(t, err)
}

func TestGraph_Callbacks(t *testing.T) {
	var (
		mu    sync.Mutex
		trace []string
	)

	record := func(prefix string) Callback {
		ct := CallbackBeforeNode
		if prefix == "after" {
			ct = CallbackAfterNode
		}
		return NewFunctionCallback(ct, func(_ context.Context, cc *CallbackContext) error {
			mu.Lock()
			defer mu.Unlock()
			trace = append(trace, prefix+":"+cc.Graph+"/"+cc.Node)
			return nil
		})
	}

	inner, err := NewBuilder("inner", testSchema()).
		AddNode("leaf", func(_ context.Context, _ *State) (Result, error) { return nil, nil }).
		AddEdge("leaf", End).
		SetEntry("leaf").
		Compile()
	require.NoError(t, err)

	outer, err := NewBuilder("outer", testSchema()).
		AddNode("call", func(ctx context.Context, _ *State) (Result, error) {
			_, err := inner.Run(ctx, nil)
			return nil, err
		}).
		AddEdge("call", End).
		SetEntry("call").
		Compile(func(o *Options) { o.Callbacks = []Callback{record("before")} })
	require.NoError(t, err)

	ctx := WithCallbacks(context.Background(), record("after"))
	_, err = outer.Run(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"before:outer/call", "after:inner/leaf", "after:outer/call"}, trace)
}

func TestGraph_BeforeCallbackAborts(t *testing.T) {
	stop := errors.New("stop")

	g, err := NewBuilder("guarded", testSchema()).
		AddNode("a", func(_ context.Context, _ *State) (Result, error) {
			t.Fatal("node must not run")
			return nil, nil
		}).
		AddEdge("a", End).
		SetEntry("a").
		Compile(func(o *Options) {
			o.Callbacks = []Callback{NewFunctionCallback(CallbackBeforeNode, func(context.Context, *CallbackContext) error { return stop })}
		})
	require.NoError(t, err)

	_, err = g.Run(context.Background(), nil)
	assert.ErrorIs(t, err, stop)
}

func TestGraph_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g, err := NewBuilder("c", testSchema()).
		AddNode("a", func(_ context.Context, _ *State) (Result, error) { return nil, nil }).
		AddEdge("a", End).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	_, err = g.Run(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
