package fixtures

import (
	"github.com/launchdarkly/async-test-harness/framework"
	"github.com/launchdarkly/async-test-harness/framework/asynctest"
	"github.com/launchdarkly/async-test-harness/framework/eventloop"
	"github.com/launchdarkly/async-test-harness/framework/ldtest"
	"github.com/launchdarkly/async-test-harness/framework/logging"
	"github.com/launchdarkly/async-test-harness/framework/stores"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zapcore"
)

// Fixture names.
const (
	WorkDirFixture     = "tmpworkdir"
	RedisConnFixture   = "redis_conn"
	LogCaptureFixture  = "logcap"
	DebugLoggerFixture = "debug_logger"
	SubjectFixture     = "subject"
	LogRegistryFixture = "log_registry"
	StoreFixture       = "store"
)

// Config holds the settings that the fixtures in this package are created with.
type Config struct {
	// Redis configures redis_conn. Nil means DefaultRedisAddr, database 0, no password.
	Redis *redis.Options

	// Logs is the registry provided by log_registry. Nil means each suite gets a new one.
	Logs *logging.Registry

	// DebugLogger is the name of the logger that debug_logger attaches to. The default is the
	// root logger.
	DebugLogger string

	// Subject constructs the application under test. If nil, the subject fixture is not
	// registered.
	Subject SubjectFactory

	// Store opens the store for the store fixture. If nil, the fixture is not registered.
	Store stores.Factory

	// StoreNonCritical, if set, marks each test that uses the store fixture as non-critical with
	// this explanation. It takes effect before the store is opened, so it covers setup failures.
	StoreNonCritical string
}

// Register adds the fixtures of this package to reg. The tests that use redis_conn, subject,
// or store also need a loop fixture, which asynctest.Install provides.
func Register(reg *ldtest.FixtureRegistry, cfg Config) {
	reg.Register(
		ldtest.Fixture{
			Name:  LogRegistryFixture,
			Scope: ldtest.ScopeSuite,
			Setup: func(*ldtest.T, ldtest.Args) (interface{}, error) {
				if cfg.Logs != nil {
					return cfg.Logs, nil
				}
				return logging.NewRegistry(), nil
			},
		},
		ldtest.Fixture{
			Name: WorkDirFixture,
			Deps: []string{ldtest.TmpDirFixture},
			Setup: func(t *ldtest.T, deps ldtest.Args) (interface{}, error) {
				w := NewWorkDir(deps[ldtest.TmpDirFixture].(string))
				if err := w.Acquire(); err != nil {
					return nil, err
				}
				t.Defer(func() { reportTeardown(t, WorkDirFixture, w.Release()) })
				return w, nil
			},
		},
		ldtest.Fixture{
			Name: RedisConnFixture,
			Deps: []string{asynctest.LoopFixtureName},
			Setup: func(t *ldtest.T, deps ldtest.Args) (interface{}, error) {
				c := NewRedisConn(deps[asynctest.LoopFixtureName].(*eventloop.Loop), cfg.Redis)
				t.Defer(func() { reportTeardown(t, RedisConnFixture, c.Teardown()) })
				return c, nil
			},
		},
		ldtest.Fixture{
			Name: LogCaptureFixture,
			Deps: []string{LogRegistryFixture},
			Setup: func(t *ldtest.T, deps ldtest.Args) (interface{}, error) {
				c := NewLogCapture(deps[LogRegistryFixture].(*logging.Registry))
				t.Defer(c.Finish)
				return c, nil
			},
		},
		ldtest.Fixture{
			Name: DebugLoggerFixture,
			Deps: []string{LogRegistryFixture},
			Setup: func(t *ldtest.T, deps ldtest.Args) (interface{}, error) {
				registry := deps[LogRegistryFixture].(*logging.Registry)
				name := cfg.DebugLogger
				h := registry.AddHandler(name, logging.NewStreamHandler(
					framework.LoggerWriter(t.DebugLogger()), logging.DebugEncoderConfig(), zapcore.DebugLevel))
				registry.SetLevel(name, zapcore.DebugLevel)
				t.Defer(func() {
					registry.RemoveHandler(h)
					registry.ResetLevel(name)
				})
				return registry.Logger(name), nil
			},
		},
	)

	if cfg.Subject != nil {
		reg.Register(ldtest.Fixture{
			Name: SubjectFixture,
			Deps: []string{asynctest.LoopFixtureName, LogRegistryFixture},
			Setup: func(t *ldtest.T, deps ldtest.Args) (interface{}, error) {
				s := NewSubjectResource(SubjectEnv{
					Loop: deps[asynctest.LoopFixtureName].(*eventloop.Loop),
					Logs: deps[LogRegistryFixture].(*logging.Registry),
				}, cfg.Subject)
				t.Defer(func() { reportTeardown(t, SubjectFixture, s.Teardown()) })
				return s, nil
			},
		})
	}

	if cfg.Store != nil {
		reg.Register(ldtest.Fixture{
			Name: StoreFixture,
			Deps: []string{asynctest.LoopFixtureName},
			Setup: func(t *ldtest.T, deps ldtest.Args) (interface{}, error) {
				if cfg.StoreNonCritical != "" {
					t.NonCritical(cfg.StoreNonCritical)
				}
				s := NewStoreResource(deps[asynctest.LoopFixtureName].(*eventloop.Loop), cfg.Store)
				if err := s.Setup(); err != nil {
					return nil, err
				}
				t.Defer(func() { reportTeardown(t, StoreFixture, s.Teardown()) })
				return s, nil
			},
		})
	}
}

func reportTeardown(t *ldtest.T, fixture string, err error) {
	if err != nil {
		t.Errorf("tearing down fixture %q: %s", fixture, err)
	}
}
