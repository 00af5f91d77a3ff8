package fixtures

import (
	"context"
	"errors"

	"github.com/launchdarkly/async-test-harness/framework/eventloop"
	"github.com/launchdarkly/async-test-harness/framework/logging"
)

// Subject is the application under test, as far as its lifecycle is concerned.
type Subject interface {
	Close(ctx context.Context) error
}

// SubjectEnv is what a SubjectFactory gets to build a subject with.
type SubjectEnv struct {
	Loop *eventloop.Loop
	Logs *logging.Registry
}

// SubjectFactory constructs a subject. It is called from a task on env.Loop.
type SubjectFactory func(ctx context.Context, env SubjectEnv) (Subject, error)

// SubjectResource constructs the subject on request and closes it at teardown, but only if it
// was ever constructed.
type SubjectResource struct {
	env     SubjectEnv
	factory SubjectFactory
	res     *Resource[Subject]
}

// NewSubjectResource creates a SubjectResource that has not constructed anything yet.
func NewSubjectResource(env SubjectEnv, factory SubjectFactory) *SubjectResource {
	s := &SubjectResource{env: env, factory: factory}
	s.res = NewResource(s.construct, s.close)
	return s
}

// Create returns the subject, constructing it on the first call. It must be called from a task
// running on the resource's loop.
func (s *SubjectResource) Create(ctx context.Context) (Subject, error) {
	if lp, ok := eventloop.FromContext(ctx); !ok {
		return nil, eventloop.ErrNoTask
	} else if lp != s.env.Loop {
		return nil, ErrWrongLoop
	}
	return s.res.Get(ctx)
}

// State returns the resource state.
func (s *SubjectResource) State() State { return s.res.State() }

// Teardown closes the subject on the loop if it was constructed. Otherwise it only marks the
// resource released and does not touch the loop.
func (s *SubjectResource) Teardown() error {
	if s.res.State() != Acquired {
		return s.res.Release(context.Background())
	}
	return s.env.Loop.RunTask(context.Background(), s.res.Release)
}

func (s *SubjectResource) construct(ctx context.Context) (Subject, error) {
	if s.factory == nil {
		return nil, errors.New("no subject factory is configured")
	}
	return s.factory(ctx, s.env)
}

func (s *SubjectResource) close(ctx context.Context, subject Subject, acquired bool) error {
	if !acquired || subject == nil {
		return nil
	}
	return subject.Close(ctx)
}
