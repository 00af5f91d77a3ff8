// Package stores provides the external data stores that the store fixture can hand to a test:
// redis, consul, and DynamoDB. Each one can be reset to an empty state between tests.
package stores

import (
	"context"
	"errors"
	"fmt"
)

// Type identifies a store implementation.
type Type string

const (
	Redis    Type = "redis"
	Consul   Type = "consul"
	DynamoDB Type = "dynamodb"
)

// ErrUnknownType is returned by Open for an unsupported store type.
var ErrUnknownType = errors.New("unknown store type")

// Store is a persistent data store that tests can write to and reset.
//
// All methods may block on network I/O. From a task on an event loop, call them through
// eventloop.Call.
type Store interface {
	// Type returns the kind of store.
	Type() Type

	// DSN returns a string that a client could use to connect to the same store.
	DSN() string

	// Reset deletes everything in the store.
	Reset(ctx context.Context) error

	// WriteData stores data as a group of values under key.
	WriteData(ctx context.Context, key string, data map[string]string) error

	// ReadData returns the values that WriteData stored under key.
	ReadData(ctx context.Context, key string) (map[string]string, error)

	// Close releases the client. The data is not affected.
	Close() error
}

// Config selects and configures a store.
type Config struct {
	Type Type

	RedisAddr     string
	RedisDB       int
	RedisPassword string

	// ConsulAddress is host:port; empty means the consul client's default.
	ConsulAddress string

	DynamoDBTable string
	// DynamoDBEndpoint overrides the service endpoint, for instance to use DynamoDB Local.
	DynamoDBEndpoint string
	DynamoDBRegion   string
}

// Factory opens a store.
type Factory func(ctx context.Context) (Store, error)

// Open creates a client for the configured store. It does not reset anything.
func Open(ctx context.Context, config Config) (Store, error) {
	switch config.Type {
	case Redis, "":
		return NewRedisStore(config.RedisAddr, config.RedisDB, config.RedisPassword), nil
	case Consul:
		return NewConsulStore(config.ConsulAddress)
	case DynamoDB:
		return NewDynamoDBStore(ctx, config.DynamoDBTable, config.DynamoDBRegion, config.DynamoDBEndpoint)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownType, config.Type)
	}
}

// FactoryFor returns a Factory that calls Open with config.
func FactoryFor(config Config) Factory {
	return func(ctx context.Context) (Store, error) {
		return Open(ctx, config)
	}
}
