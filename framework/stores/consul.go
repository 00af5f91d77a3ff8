package stores

import (
	"context"
	"fmt"
	"strings"

	consul "github.com/hashicorp/consul/api"
)

type ConsulStore struct {
	consul  *consul.Client
	address string
}

// NewConsulStore creates a client for the agent at address, or at the consul client's default
// address if address is empty.
func NewConsulStore(address string) (*ConsulStore, error) {
	config := consul.DefaultConfig()
	if address != "" {
		config.Address = address
	}
	client, err := consul.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("creating consul client: %w", err)
	}
	return &ConsulStore{consul: client, address: config.Address}, nil
}

func (c *ConsulStore) Type() Type { return Consul }

func (c *ConsulStore) DSN() string {
	return c.address
}

func (c *ConsulStore) Reset(ctx context.Context) error {
	_, err := c.consul.KV().DeleteTree("", (&consul.WriteOptions{}).WithContext(ctx))
	return err
}

func (c *ConsulStore) WriteData(ctx context.Context, key string, data map[string]string) error {
	ops := make(consul.KVTxnOps, 0, len(data))
	for k, v := range data {
		ops = append(ops, &consul.KVTxnOp{Verb: consul.KVSet, Key: key + "/" + k, Value: []byte(v)})
	}
	ok, resp, _, err := c.consul.KV().Txn(ops, (&consul.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return err
	}
	if !ok {
		var msgs []string
		if resp != nil {
			for _, e := range resp.Errors {
				msgs = append(msgs, e.What)
			}
		}
		return fmt.Errorf("consul transaction failed: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func (c *ConsulStore) ReadData(ctx context.Context, key string) (map[string]string, error) {
	pairs, _, err := c.consul.KV().List(key+"/", (&consul.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list failed for %s: %w", key, err)
	}
	ret := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		ret[strings.TrimPrefix(pair.Key, key+"/")] = string(pair.Value)
	}
	return ret, nil
}

// Close does nothing; the consul client holds no connection of its own.
func (c *ConsulStore) Close() error { return nil }
