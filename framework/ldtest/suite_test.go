package ldtest

import (
	"context"
	"errors"
	"os"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPlugin struct {
	handleNames map[string]bool
	made        []string
	called      []string
}

func (p *recordingPlugin) MakeItems(c *Collector, name string, fn *TestFunc) ([]Item, bool) {
	p.made = append(p.made, name)
	if p.handleNames[name] {
		return c.GenFunctions(name, fn), true
	}
	return nil, false
}

func (p *recordingPlugin) CallItem(t *T, inv *Invocation) bool {
	p.called = append(p.called, inv.Item.ID)
	return false
}

type capturingTestLogger struct {
	nullTestLogger
	onSkip func(TestID, string)
}

func (c *capturingTestLogger) TestSkipped(id TestID, reason string) {
	if c.onSkip != nil {
		c.onSkip(id, reason)
	}
}

func runSuite(s *Suite) Results {
	return Run(TestConfiguration{}, func(t *T) { s.Run(t) })
}

func TestSuiteRunsSyncFunctionsWithParametrizations(t *testing.T) {
	var seen []int
	s := NewSuite("suite").Add(
		Test("adds", func(t *T, args Args) {
			seen = append(seen, MustArg[int](t, args, "n"))
		}).Parametrize(Case("one", Args{"n": 1}), Params{Values: Args{"n": 2}}),
	)

	items := s.Collect()
	require.Len(t, items, 2)
	assert.Equal(t, "adds[one]", items[0].ID)
	assert.Equal(t, "adds[1]", items[1].ID)

	result := runSuite(s)
	assert.True(t, result.OK())
	assert.Equal(t, []int{1, 2}, seen)
}

func TestSuiteRejectsAsyncFunctionsWithoutPlugin(t *testing.T) {
	called := false
	s := NewSuite("suite").Add(AsyncTest("coro", func(_ context.Context, t *T, args Args) {
		called = true
	}))

	var skipped []string
	logger := &capturingTestLogger{onSkip: func(id TestID, reason string) {
		skipped = append(skipped, id.String()+": "+reason)
	}}
	result := Run(TestConfiguration{TestLogger: logger}, func(t *T) { s.Run(t) })

	assert.True(t, result.OK())
	assert.False(t, called)
	assert.Equal(t, []string{"suite/coro: async test function was not collected by any plugin"}, skipped)
}

func TestSuiteAsksPluginsBeforeDefaultCollector(t *testing.T) {
	p := &recordingPlugin{handleNames: map[string]bool{"b": true}}
	s := NewSuite("suite").Use(p).Add(
		Test("a", func(*T, Args) {}),
		Test("b", func(*T, Args) {}).Parametrize(Case("x", nil), Case("y", nil)),
	)
	result := runSuite(s)
	assert.True(t, result.OK())
	assert.Equal(t, []string{"a", "b"}, p.made)
	assert.Equal(t, []string{"a", "b[x]", "b[y]"}, p.called)
}

func TestSuiteFunctionPattern(t *testing.T) {
	ran := map[string]bool{}
	s := NewSuite("suite").FunctionPattern(regexp.MustCompile(`^test_`)).Add(
		Test("test_yes", func(*T, Args) { ran["yes"] = true }),
		Test("helper", func(*T, Args) { ran["no"] = true }),
	)
	_ = runSuite(s)
	assert.Equal(t, map[string]bool{"yes": true}, ran)
}

func TestFixturesResolveDependenciesFirstAndFinalizeInReverse(t *testing.T) {
	var events []string
	fixture := func(name string, deps ...string) Fixture {
		return Fixture{
			Name: name,
			Deps: deps,
			Setup: func(t *T, _ Args) (interface{}, error) {
				events = append(events, "setup "+name)
				t.Defer(func() { events = append(events, "teardown "+name) })
				return name + "-value", nil
			},
		}
	}
	s := NewSuite("suite")
	s.Fixtures().Register(fixture("a"), fixture("b", "a"), fixture("c", "b", "a"))
	s.Add(Test("test", func(t *T, args Args) {
		events = append(events, "body")
		assert.Equal(t, Args{"c": "c-value", "a": "a-value"}, args)
	}).Uses("c", "a"))

	result := runSuite(s)
	assert.True(t, result.OK())
	assert.Equal(t, []string{
		"setup a", "setup b", "setup c", "body", "teardown c", "teardown b", "teardown a",
	}, events)
}

func TestParameterValuesOverrideFixtures(t *testing.T) {
	setupCalled := false
	s := NewSuite("suite")
	s.Fixtures().Register(Fixture{Name: "x", Setup: func(*T, Args) (interface{}, error) {
		setupCalled = true
		return "fixture", nil
	}})
	var got interface{}
	s.Add(Test("test", func(t *T, args Args) { got = args["x"] }).
		Uses("x").Parametrize(Case("p", Args{"x": "param"})))

	assert.True(t, runSuite(s).OK())
	assert.False(t, setupCalled)
	assert.Equal(t, "param", got)
}

func TestSuiteScopedFixtureIsSharedAndFinalizedOnce(t *testing.T) {
	setups, teardowns := 0, 0
	var finalizedBeforeLastTest bool
	s := NewSuite("suite")
	s.Fixtures().Register(Fixture{
		Name:  "shared",
		Scope: ScopeSuite,
		Setup: func(t *T, _ Args) (interface{}, error) {
			setups++
			t.Defer(func() { teardowns++ })
			return &setups, nil
		},
	})
	var values []interface{}
	body := func(t *T, args Args) {
		values = append(values, args["shared"])
		finalizedBeforeLastTest = finalizedBeforeLastTest || teardowns > 0
	}
	s.Add(Test("one", body).Uses("shared"), Test("two", body).Uses("shared"))

	assert.True(t, runSuite(s).OK())
	assert.Equal(t, 1, setups)
	assert.Equal(t, 1, teardowns)
	assert.False(t, finalizedBeforeLastTest)
	require.Len(t, values, 2)
	assert.Same(t, values[0], values[1])
}

func TestFixtureResolutionErrors(t *testing.T) {
	noop := func(*T, Args) (interface{}, error) { return nil, nil }
	failing := func(*T, Args) (interface{}, error) { return nil, errors.New("no luck") }

	s := NewSuite("suite")
	s.Fixtures().Register(
		Fixture{Name: "loop1", Deps: []string{"loop2"}, Setup: noop},
		Fixture{Name: "loop2", Deps: []string{"loop1"}, Setup: noop},
		Fixture{Name: "narrow", Setup: noop},
		Fixture{Name: "wide", Scope: ScopeSuite, Deps: []string{"narrow"}, Setup: noop},
		Fixture{Name: "failing", Setup: failing},
	)
	bodyRan := false
	body := func(*T, Args) { bodyRan = true }
	s.Add(
		Test("unknown", body).Uses("nope"),
		Test("cycle", body).Uses("loop1"),
		Test("scope", body).Uses("wide"),
		Test("failing", body).Uses("failing"),
	)

	result := runSuite(s)
	assert.False(t, bodyRan)
	require.Len(t, result.Failures, 4)
	assert.Contains(t, result.Failures[0].Errors[0].Error(), `unknown fixture "nope"`)
	assert.Contains(t, result.Failures[1].Errors[0].Error(), "loop1 -> loop2 -> loop1")
	assert.Contains(t, result.Failures[2].Errors[0].Error(), ErrScopeMismatch.Error())
	assert.Contains(t, result.Failures[3].Errors[0].Error(), `setting up fixture "failing": no luck`)
}

func TestTmpDirFixture(t *testing.T) {
	var dir string
	s := NewSuite("suite").Add(Test("test", func(t *T, args Args) {
		dir = MustArg[string](t, args, TmpDirFixture)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}).Uses(TmpDirFixture))

	assert.True(t, runSuite(s).OK())
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestMustArgFailsOnWrongType(t *testing.T) {
	s := NewSuite("suite").Add(Test("test", func(t *T, args Args) {
		_ = MustArg[int](t, args, "n")
	}).Parametrize(Case("str", Args{"n": "three"})))

	result := runSuite(s)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0].Errors[0].Error(), `argument "n" is missing or is not of type int`)
}
