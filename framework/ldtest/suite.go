package ldtest

import (
	"regexp"
)

// Suite is a named collection of test functions together with the fixtures and plugins they run
// with.
//
// Running a suite happens in two phases. Collection turns each registered function into
// concrete items: each plugin's MakeItems is asked first, in the order the plugins were added,
// and the default collector handles whatever no plugin claimed. Then each item runs as a subtest:
// its fixtures are resolved, the resulting Invocation is offered to each plugin's CallItem, and
// if none of them ran it, a Sync function is called directly.
type Suite struct {
	name      string
	funcs     []*TestFunc
	plugins   []Plugin
	fixtures  *FixtureRegistry
	collector Collector
}

// NewSuite creates an empty suite with the built-in fixtures.
func NewSuite(name string) *Suite {
	return &Suite{
		name:     name,
		fixtures: NewFixtureRegistry(),
	}
}

// Name returns the suite name, which is also the top-level component of its test IDs.
func (s *Suite) Name() string { return s.name }

// Add registers test functions.
func (s *Suite) Add(fns ...*TestFunc) *Suite {
	s.funcs = append(s.funcs, fns...)
	return s
}

// Use adds plugins.
func (s *Suite) Use(plugins ...Plugin) *Suite {
	s.plugins = append(s.plugins, plugins...)
	return s
}

// Fixtures returns the suite's fixture registry.
func (s *Suite) Fixtures() *FixtureRegistry {
	return s.fixtures
}

// FunctionPattern restricts collection to functions whose names match rx. By default every
// registered function is collected.
func (s *Suite) FunctionPattern(rx *regexp.Regexp) *Suite {
	s.collector.pattern = rx
	return s
}

// Collect runs the collection phase and returns the items in registration order.
func (s *Suite) Collect() []Item {
	var items []Item
	for _, fn := range s.funcs {
		items = append(items, s.makeItems(fn)...)
	}
	return items
}

func (s *Suite) makeItems(fn *TestFunc) []Item {
	for _, p := range s.plugins {
		if items, ok := p.MakeItems(&s.collector, fn.name, fn); ok {
			return items
		}
	}
	return s.collector.defaultItems(fn.name, fn)
}

// Run collects the suite and runs every item as a subtest of a scope named after the suite.
// Suite-scoped fixtures belong to that scope and are finalized after the last item.
func (s *Suite) Run(t *T) {
	items := s.Collect()
	t.Run(s.name, func(st *T) {
		suiteCache := newScopeCache(st)
		for _, item := range items {
			item := item
			st.Run(item.ID, func(t *T) {
				s.runItem(t, suiteCache, item)
			})
		}
	})
}

func (s *Suite) runItem(t *T, suiteCache *scopeCache, item Item) {
	if item.rejected != "" {
		t.SkipWithReason(item.rejected)
	}

	inv, err := s.newInvocation(t, suiteCache, item)
	if err != nil {
		t.Errorf("%s", err)
		t.FailNow()
	}

	for _, p := range s.plugins {
		if p.CallItem(t, inv) {
			return
		}
	}
	if item.Func.Kind() != Sync {
		t.SkipWithReason("no plugin could run " + item.Func.Kind().String() + " test function")
	}
	item.Func.CallSync(t, inv.TestArgs())
}

func (s *Suite) newInvocation(t *T, suiteCache *scopeCache, item Item) (*Invocation, error) {
	r := &resolver{
		registry: s.fixtures,
		suite:    suiteCache,
		test:     newScopeCache(t),
	}
	for name, v := range item.Params.Values {
		r.test.values[name] = v
	}
	for _, name := range item.Func.fixtures {
		if _, err := r.resolve(name, nil); err != nil {
			return nil, err
		}
	}
	return &Invocation{
		Item:     item,
		Args:     r.test.values,
		ArgNames: item.ArgNames(),
	}, nil
}
