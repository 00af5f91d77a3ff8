package ldtest

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// Kind says how a test function is executed. It is fixed when the function is registered with
// Test or AsyncTest and never inspected again at call time.
type Kind int

const (
	// Sync functions are called directly by the runner.
	Sync Kind = iota

	// Async functions are coroutine bodies; the runner cannot call them by itself and relies on
	// a Plugin to collect and execute them.
	Async
)

func (k Kind) String() string {
	switch k {
	case Sync:
		return "sync"
	case Async:
		return "async"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// SyncFunc is the body of a synchronous test function.
type SyncFunc func(t *T, args Args)

// AsyncFunc is the body of a coroutine test function. ctx identifies the task the body runs in
// and must be passed to any operation that can suspend.
type AsyncFunc func(ctx context.Context, t *T, args Args)

// TestFunc is a registered test function: a body plus the names of the fixtures it wants and
// any parametrizations. Create one with Test or AsyncTest.
type TestFunc struct {
	name     string
	kind     Kind
	fixtures []string
	params   []Params
	syncFn   SyncFunc
	asyncFn  AsyncFunc
}

// Test registers a synchronous test function.
func Test(name string, fn SyncFunc) *TestFunc {
	return &TestFunc{name: name, kind: Sync, syncFn: fn}
}

// AsyncTest registers a coroutine test function.
func AsyncTest(name string, fn AsyncFunc) *TestFunc {
	return &TestFunc{name: name, kind: Async, asyncFn: fn}
}

// Uses declares fixtures by name. They are resolved in this order before the body runs.
func (f *TestFunc) Uses(fixtureNames ...string) *TestFunc {
	f.fixtures = append(f.fixtures, fixtureNames...)
	return f
}

// Parametrize adds parameter sets; the function is collected once per set. Parameter values
// take precedence over fixtures of the same name.
func (f *TestFunc) Parametrize(params ...Params) *TestFunc {
	f.params = append(f.params, params...)
	return f
}

func (f *TestFunc) Name() string { return f.name }

func (f *TestFunc) Kind() Kind { return f.kind }

// CallSync runs the body of a Sync function.
//
//go:noinline
func (f *TestFunc) CallSync(t *T, args Args) {
	if f.kind != Sync {
		panic(fmt.Sprintf("CallSync on %s test function %q", f.kind, f.name))
	}
	f.syncFn(t, args)
}

// CallAsync runs the body of an Async function. It must be called from a task running on an
// event loop, with that task's context. Error stacktraces stop at this call.
//
//go:noinline
func (f *TestFunc) CallAsync(ctx context.Context, t *T, args Args) {
	if f.kind != Async {
		panic(fmt.Sprintf("CallAsync on %s test function %q", f.kind, f.name))
	}
	f.asyncFn(ctx, t, args)
}

// Params is one parametrization of a test function.
type Params struct {
	ID     string
	Values Args
}

// Case is a shortcut for creating Params.
func Case(id string, values Args) Params {
	return Params{ID: id, Values: values}
}

// Item is one concrete test case produced at collection time.
type Item struct {
	ID     string
	Func   *TestFunc
	Params Params

	rejected string
}

// ArgNames returns the names the test body receives: the declared fixtures in order, then any
// parameter names that are not also fixtures, sorted.
func (i Item) ArgNames() []string {
	names := append([]string(nil), i.Func.fixtures...)
	declared := make(map[string]bool, len(names))
	for _, n := range names {
		declared[n] = true
	}
	var extra []string
	for n := range i.Params.Values {
		if !declared[n] {
			extra = append(extra, n)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

// Invocation is a test item bound to concrete argument values for one run. It is built by the
// runner and offered to each Plugin's CallItem.
type Invocation struct {
	Item Item

	// Args contains every resolved value: declared fixtures, their transitive dependencies, and
	// parameter values.
	Args Args

	// ArgNames are the names the function itself declared.
	ArgNames []string
}

// TestArgs returns only the values named in ArgNames.
func (inv *Invocation) TestArgs() Args {
	ret := make(Args, len(inv.ArgNames))
	for _, name := range inv.ArgNames {
		ret[name] = inv.Args[name]
	}
	return ret
}

// Plugin extends the runner at its two hook points.
type Plugin interface {
	// MakeItems is called once per registered function at collection time. It returns the
	// items to run and true, or nil and false to let the next plugin or the default collector
	// handle the function.
	MakeItems(c *Collector, name string, fn *TestFunc) ([]Item, bool)

	// CallItem is called once per invocation after its fixtures have been resolved. It returns
	// true if it ran the test, or false to let the runner fall back to a synchronous call.
	CallItem(t *T, inv *Invocation) bool
}

// Collector is passed to Plugin.MakeItems so that plugins can generate items the same way the
// runner does.
type Collector struct {
	pattern *regexp.Regexp
}

// FuncNameFilter returns true if name matches the suite's function name pattern.
func (c *Collector) FuncNameFilter(name string) bool {
	return c.pattern == nil || c.pattern.MatchString(name)
}

// GenFunctions returns one item per parametrization of fn, or a single item if it has none.
func (c *Collector) GenFunctions(name string, fn *TestFunc) []Item {
	if len(fn.params) == 0 {
		return []Item{{ID: name, Func: fn}}
	}
	items := make([]Item, 0, len(fn.params))
	for i, p := range fn.params {
		id := p.ID
		if id == "" {
			id = strconv.Itoa(i)
		}
		items = append(items, Item{ID: name + "[" + id + "]", Func: fn, Params: p})
	}
	return items
}

func (c *Collector) defaultItems(name string, fn *TestFunc) []Item {
	if !c.FuncNameFilter(name) {
		return nil
	}
	if fn.kind == Async {
		return []Item{{ID: name, Func: fn, rejected: "async test function was not collected by any plugin"}}
	}
	return c.GenFunctions(name, fn)
}
