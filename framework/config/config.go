// Package config loads the harness configuration file.
//
// The file may be JSON or YAML. Any key it leaves out keeps its default value, and command-line
// flags are applied on top of it by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/launchdarkly/async-test-harness/framework/fixtures"
	"github.com/launchdarkly/async-test-harness/framework/stores"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zapcore"
)

const (
	DefaultRedisAddress = fixtures.DefaultRedisAddr
	DefaultRootLevel    = "warn"
)

var errInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Redis RedisConfig `json:"redis"`
	Store StoreConfig `json:"store"`
	Log   LogConfig   `json:"log"`
}

type RedisConfig struct {
	Address  string `json:"address"`
	DB       int    `json:"db"`
	Password string `json:"password"`
}

type StoreConfig struct {
	// Type is "redis", "consul", or "dynamodb". The redis store uses the Redis settings.
	Type             string `json:"type"`
	ConsulAddress    string `json:"consulAddress"`
	DynamoDBTable    string `json:"dynamoDBTable"`
	DynamoDBEndpoint string `json:"dynamoDBEndpoint"`
	DynamoDBRegion   string `json:"dynamoDBRegion"`
}

type LogConfig struct {
	// DebugLogger is the logger that the debug_logger fixture attaches to; "" is the root.
	DebugLogger string `json:"debugLogger"`
	// RootLevel is a zap level name such as "debug" or "warn".
	RootLevel string `json:"rootLevel"`
}

// Default returns the configuration used when there is no file.
func Default() Config {
	return Config{
		Redis: RedisConfig{Address: DefaultRedisAddress},
		Store: StoreConfig{Type: string(stores.Redis)},
		Log:   LogConfig{RootLevel: DefaultRootLevel},
	}
}

// Load reads the file at path over the defaults and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse reads JSON or YAML data over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	c := Default()
	if err := ParseJSONOrYAML(data, &c); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks values that cannot be checked by parsing alone.
func (c Config) Validate() error {
	var errs []string
	switch stores.Type(c.Store.Type) {
	case stores.Redis, stores.Consul, stores.DynamoDB:
	default:
		errs = append(errs, fmt.Sprintf("store.type %q is not one of redis, consul, dynamodb", c.Store.Type))
	}
	if _, err := c.RootLevel(); err != nil {
		errs = append(errs, fmt.Sprintf("log.rootLevel: %s", err))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, "redis.db cannot be negative")
	}
	if len(errs) != 0 {
		return fmt.Errorf("%w: %s", errInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// RootLevel parses Log.RootLevel.
func (c Config) RootLevel() (zapcore.Level, error) {
	return zapcore.ParseLevel(c.Log.RootLevel)
}

// RedisOptions returns client options for the redis_conn fixture.
func (c Config) RedisOptions() *redis.Options {
	return &redis.Options{
		Addr:     c.Redis.Address,
		DB:       c.Redis.DB,
		Password: c.Redis.Password,
	}
}

// StoreConfig returns the settings for the store fixture.
func (c Config) StoreConfig() stores.Config {
	return stores.Config{
		Type:             stores.Type(c.Store.Type),
		RedisAddr:        c.Redis.Address,
		RedisDB:          c.Redis.DB,
		RedisPassword:    c.Redis.Password,
		ConsulAddress:    c.Store.ConsulAddress,
		DynamoDBTable:    c.Store.DynamoDBTable,
		DynamoDBEndpoint: c.Store.DynamoDBEndpoint,
		DynamoDBRegion:   c.Store.DynamoDBRegion,
	}
}
