package fixtures

import (
	"github.com/launchdarkly/async-test-harness/framework/logging"

	"go.uber.org/zap/zapcore"
)

// LogCapture records the messages written to one logger of a registry, one line per record.
//
// It starts out bound to the root logger at debug level. Binding it to another logger with
// SetLogger stops capturing the previous one, and the captured text starts over.
type LogCapture struct {
	registry *logging.Registry
	name     string
	buf      *logging.Buffer
	handle   *logging.Handle
}

// NewLogCapture creates a capture bound to the root logger of registry at debug level.
func NewLogCapture(registry *logging.Registry) *LogCapture {
	c := &LogCapture{registry: registry}
	c.SetLogger("", zapcore.DebugLevel)
	return c
}

// SetLogger releases the current binding, if any, and starts capturing the named logger with
// its level set to level.
func (c *LogCapture) SetLogger(name string, level zapcore.Level) {
	if c.handle != nil {
		c.Finish()
	}
	c.name = name
	c.buf = &logging.Buffer{}
	c.handle = c.registry.AddHandler(name, logging.NewStreamHandler(c.buf, logging.MessageEncoderConfig(),
		zapcore.DebugLevel))
	c.SetLevel(level)
}

// SetLevel changes the level of the captured logger.
func (c *LogCapture) SetLevel(level zapcore.Level) {
	c.registry.SetLevel(c.name, level)
}

// LoggerName returns the name of the captured logger.
func (c *LogCapture) LoggerName() string { return c.name }

// Log returns everything captured since the last SetLogger. Reading does not consume anything.
func (c *LogCapture) Log() string {
	return c.buf.String()
}

// Finish removes the capturing handler and unsets the logger's level. Calling it again does
// nothing.
func (c *LogCapture) Finish() {
	if c.handle == nil {
		return
	}
	c.registry.RemoveHandler(c.handle)
	c.registry.ResetLevel(c.name)
	c.handle = nil
}
