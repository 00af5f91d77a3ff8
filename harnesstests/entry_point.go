// Package harnesstests is the suite that the harness command runs. It checks the harness
// against real services: the event loop, every fixture, and the demo actor as the subject.
package harnesstests

import (
	"fmt"

	"github.com/launchdarkly/async-test-harness/demo"
	"github.com/launchdarkly/async-test-harness/framework/asynctest"
	"github.com/launchdarkly/async-test-harness/framework/config"
	"github.com/launchdarkly/async-test-harness/framework/fixtures"
	"github.com/launchdarkly/async-test-harness/framework/ldtest"
	"github.com/launchdarkly/async-test-harness/framework/logging"
	"github.com/launchdarkly/async-test-harness/framework/stores"
)

const (
	// SuiteName is the top-level component of the IDs of tests that get a new loop each.
	SuiteName = "harness"

	// SharedLoopSuiteName is the top-level component of the IDs of tests that share one loop.
	SharedLoopSuiteName = "shared-loop"
)

// RunHarnessTestSuite runs both suites with the services described by cfg.
func RunHarnessTestSuite(
	cfg config.Config,
	filter ldtest.Filter,
	testLogger ldtest.TestLogger,
) ldtest.Results {
	suites, err := NewSuites(cfg)
	if err != nil {
		return ldtest.Results{
			Failures: []ldtest.TestResult{{Errors: []error{err}}},
		}
	}

	fmt.Printf("Running harness test suite (redis at %s, %s store)\n", cfg.Redis.Address, cfg.Store.Type)
	fmt.Println()

	testConfig := ldtest.TestConfiguration{
		Filter:     filter,
		TestLogger: testLogger,
	}.WithContext(cfg)
	return ldtest.Run(testConfig, func(t *ldtest.T) {
		for _, s := range suites {
			s.Run(t)
		}
	})
}

// runConfig returns the configuration that RunHarnessTestSuite was called with, and false if
// the suites were run some other way.
func runConfig(t *ldtest.T) (config.Config, bool) {
	cfg, ok := t.Context().(config.Config)
	return cfg, ok
}

// NewSuites builds the suites without running them.
func NewSuites(cfg config.Config) ([]*ldtest.Suite, error) {
	rootLevel, err := cfg.RootLevel()
	if err != nil {
		return nil, err
	}
	logs := logging.NewRegistryAt(rootLevel)
	redisOpts := cfg.RedisOptions()
	fixtureConfig := fixtures.Config{
		Redis:       redisOpts,
		Logs:        logs,
		DebugLogger: cfg.Log.DebugLogger,
		Subject:     demo.Factory(demo.Config{Redis: redisOpts}),
		Store:       stores.FactoryFor(cfg.StoreConfig()),
	}
	if storeType := stores.Type(cfg.Store.Type); storeType != stores.Redis {
		fixtureConfig.StoreNonCritical = fmt.Sprintf(
			"the %s store needs a service that is not part of the default environment", storeType)
	}

	perTest := asynctest.Install(ldtest.NewSuite(SuiteName))
	fixtures.Register(perTest.Fixtures(), fixtureConfig)
	perTest.Add(loopTests()...)
	perTest.Add(fixtureTests()...)
	perTest.Add(subjectTests()...)
	perTest.Add(storeTests()...)

	shared := asynctest.Install(ldtest.NewSuite(SharedLoopSuiteName))
	shared.Fixtures().Register(asynctest.LoopFixture(ldtest.ScopeSuite))
	fixtures.Register(shared.Fixtures(), fixtureConfig)
	shared.Add(sharedLoopTests()...)

	return []*ldtest.Suite{perTest, shared}, nil
}
