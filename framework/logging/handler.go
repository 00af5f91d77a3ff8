package logging

import (
	"bytes"
	"io"
	"sync"

	"go.uber.org/zap/zapcore"
)

// MessageEncoderConfig encodes only the message, one record per line, followed by any fields.
// It is the format used for captured logs, so that tests can compare plain text.
func MessageEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		ConsoleSeparator: " ",
	}
}

// DebugEncoderConfig includes the level and logger name, for diagnostic output.
func DebugEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	}
}

// NewStreamHandler creates a handler core that writes records at or above level to w using a
// console encoder with the given configuration.
func NewStreamHandler(w io.Writer, cfg zapcore.EncoderConfig, level zapcore.Level) zapcore.Core {
	return zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(w), level)
}

// Buffer is an in-memory text sink that is safe for concurrent writes. Reading it never
// consumes anything.
type Buffer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(p)
}

// String returns everything written so far.
func (b *Buffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.String()
}
