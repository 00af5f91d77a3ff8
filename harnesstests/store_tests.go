package harnesstests

import (
	"context"
	"strings"

	"github.com/launchdarkly/async-test-harness/framework/eventloop"
	"github.com/launchdarkly/async-test-harness/framework/fixtures"
	"github.com/launchdarkly/async-test-harness/framework/ldtest"
	"github.com/launchdarkly/async-test-harness/framework/stores"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
)

const storeKey = "harness-items"

func storeTests() []*ldtest.TestFunc {
	return []*ldtest.TestFunc{
		ldtest.AsyncTest("store starts empty and round-trips data", func(ctx context.Context, t *ldtest.T, args ldtest.Args) {
			resource := ldtest.MustArg[*fixtures.StoreResource](t, args, fixtures.StoreFixture)
			m.In(t).For("opened before test body").Assert(resource.State(), m.Equal(fixtures.Acquired))
			store, err := resource.Get(ctx)
			m.In(t).Require(err, m.BeNil())
			t.Debug("store: %s", store.DSN())

			before, err := eventloop.Call(ctx, func() (map[string]string, error) {
				return store.ReadData(ctx, storeKey)
			})
			m.In(t).Require(err, m.BeNil())
			m.In(t).For("data before write").Assert(before, m.Length().Should(m.Equal(0)))

			data := args["data"].(map[string]string)
			_, err = eventloop.Call(ctx, func() (struct{}, error) {
				return struct{}{}, store.WriteData(ctx, storeKey, data)
			})
			m.In(t).Require(err, m.BeNil())

			after, err := eventloop.Call(ctx, func() (map[string]string, error) {
				return store.ReadData(ctx, storeKey)
			})
			m.In(t).Require(err, m.BeNil())
			m.In(t).Assert(after, m.Equal(data))
		}).Uses(fixtures.StoreFixture).Parametrize(
			ldtest.Case("one item", ldtest.Args{"data": map[string]string{"flag1": `{"version":1}`}}),
			ldtest.Case("several items", ldtest.Args{"data": map[string]string{
				"flag1":    `{"version":1}`,
				"flag2":    `{"version":2}`,
				"segment1": `{"version":3}`,
			}}),
		),

		ldtest.AsyncTest("store DSN names its type", func(ctx context.Context, t *ldtest.T, args ldtest.Args) {
			store, err := ldtest.MustArg[*fixtures.StoreResource](t, args, fixtures.StoreFixture).Get(ctx)
			m.In(t).Require(err, m.BeNil())
			if cfg, ok := runConfig(t); ok {
				m.In(t).For("configured type").Assert(store.Type(), m.Equal(stores.Type(cfg.Store.Type)))
			}
			switch store.Type() {
			case stores.Redis:
				m.In(t).Assert(strings.HasPrefix(store.DSN(), "redis://"), m.Equal(true))
			case stores.Consul:
				m.In(t).Assert(store.DSN(), m.Not(m.Equal("")))
			default:
				t.Debug("%s store at %q", store.Type(), store.DSN())
			}
		}).Uses(fixtures.StoreFixture),
	}
}
