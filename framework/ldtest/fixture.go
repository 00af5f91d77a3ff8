package ldtest

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	// ErrUnknownFixture means a test or fixture asked for a name that nothing is registered under.
	ErrUnknownFixture = errors.New("unknown fixture")

	// ErrFixtureCycle means fixtures depend on each other in a loop.
	ErrFixtureCycle = errors.New("fixture dependency cycle")

	// ErrScopeMismatch means a suite-scoped fixture depends on a test-scoped one.
	ErrScopeMismatch = errors.New("suite-scoped fixture cannot depend on test-scoped fixture")
)

// TmpDirFixture is the name of the built-in fixture providing a fresh temporary directory path.
const TmpDirFixture = "tmpdir"

// Args holds resolved fixture and parameter values by name.
type Args map[string]interface{}

// ArgAs returns the named value if it is present and has type V.
func ArgAs[V any](args Args, name string) (V, bool) {
	v, ok := args[name].(V)
	return v, ok
}

// MustArg returns the named value, or fails the test immediately if it is missing or has the
// wrong type.
func MustArg[V any](t *T, args Args, name string) V {
	t.Helper()
	v, ok := ArgAs[V](args, name)
	if !ok {
		t.Errorf("argument %q is missing or is not of type %T (got %T)", name, v, args[name])
		t.FailNow()
	}
	return v
}

// Scope says how long a fixture value lives.
type Scope int

const (
	// ScopeTest values are created for one test and finalized when it ends.
	ScopeTest Scope = iota

	// ScopeSuite values are created on first use and shared by every test in the suite;
	// they are finalized when the suite ends.
	ScopeSuite
)

// Fixture describes how to produce a named value for tests.
//
// Setup receives the T of the fixture's scope (the test for ScopeTest, the suite for
// ScopeSuite) and the values of Deps. To release what it acquired, Setup registers a finalizer
// with t.Defer; finalizers run in reverse order of registration, so a fixture is always
// finalized before the fixtures it depends on.
type Fixture struct {
	Name  string
	Scope Scope
	Deps  []string
	Setup func(t *T, deps Args) (interface{}, error)
}

// FixtureRegistry holds the fixtures available to a suite.
type FixtureRegistry struct {
	fixtures map[string]Fixture
}

// NewFixtureRegistry creates a registry that contains only the built-in fixtures.
func NewFixtureRegistry() *FixtureRegistry {
	r := &FixtureRegistry{fixtures: make(map[string]Fixture)}
	r.Register(Fixture{
		Name: TmpDirFixture,
		Setup: func(t *T, _ Args) (interface{}, error) {
			dir, err := os.MkdirTemp("", "ldtest-")
			if err != nil {
				return nil, err
			}
			t.Defer(func() { _ = os.RemoveAll(dir) })
			return dir, nil
		},
	})
	return r
}

// Register adds a fixture, replacing any existing fixture with the same name. Replacing is how a
// suite overrides a built-in, for instance to share one event loop across all its tests.
func (r *FixtureRegistry) Register(fixtures ...Fixture) {
	for _, f := range fixtures {
		r.fixtures[f.Name] = f
	}
}

// Lookup returns the fixture registered under name.
func (r *FixtureRegistry) Lookup(name string) (Fixture, bool) {
	f, ok := r.fixtures[name]
	return f, ok
}

// Names returns all registered fixture names, sorted.
func (r *FixtureRegistry) Names() []string {
	names := maps.Keys(r.fixtures)
	slices.Sort(names)
	return names
}

type scopeCache struct {
	t      *T
	values Args
}

func newScopeCache(t *T) *scopeCache {
	return &scopeCache{t: t, values: make(Args)}
}

type resolver struct {
	registry *FixtureRegistry
	suite    *scopeCache
	test     *scopeCache
}

// resolve produces the value of name in the test scope, setting up dependencies first. Every
// value it produces, including dependencies, ends up in the test cache.
func (r *resolver) resolve(name string, stack []string) (interface{}, error) {
	if v, ok := r.test.values[name]; ok {
		return v, nil
	}
	f, ok := r.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownFixture, name,
			strings.Join(r.registry.Names(), ", "))
	}
	if slices.Contains(stack, name) {
		return nil, fmt.Errorf("%w: %s", ErrFixtureCycle, strings.Join(append(stack, name), " -> "))
	}
	stack = append(stack, name)

	scope := r.test
	if f.Scope == ScopeSuite {
		scope = r.suite
		if v, ok := scope.values[name]; ok {
			r.test.values[name] = v
			return v, nil
		}
	}

	deps := make(Args, len(f.Deps))
	for _, dep := range f.Deps {
		if f.Scope == ScopeSuite {
			if df, ok := r.registry.Lookup(dep); ok && df.Scope != ScopeSuite {
				return nil, fmt.Errorf("%w: %q depends on %q", ErrScopeMismatch, name, dep)
			}
		}
		v, err := r.resolve(dep, stack)
		if err != nil {
			return nil, err
		}
		deps[dep] = v
	}

	v, err := f.Setup(scope.t, deps)
	if err != nil {
		return nil, fmt.Errorf("setting up fixture %q: %w", name, err)
	}
	scope.values[name] = v
	r.test.values[name] = v
	return v, nil
}
