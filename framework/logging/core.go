package logging

import (
	"errors"

	"go.uber.org/zap/zapcore"
)

// registryCore is the zapcore.Core behind Registry.Logger. Level and handler lookups happen at
// write time, so changes made to the registry apply to loggers that already exist.
//
// Records are routed by the entry's logger name, so children derived with zap's Named (or logr's
// WithName) resolve their own level and handlers. name is the logger the core was created for,
// and is used when an entry carries no name.
type registryCore struct {
	registry *Registry
	name     string
	fields   []zapcore.Field
}

// Enabled reports whether level could be accepted by this logger or any child derived from it.
// Check makes the exact decision once the entry's name is known.
func (c *registryCore) Enabled(level zapcore.Level) bool {
	return c.registry.enabledWithin(c.name, level)
}

func (c *registryCore) With(fields []zapcore.Field) zapcore.Core {
	return &registryCore{
		registry: c.registry,
		name:     c.name,
		fields:   append(append([]zapcore.Field(nil), c.fields...), fields...),
	}
}

func (c *registryCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if ent.Level >= c.registry.EffectiveLevel(c.route(ent)) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *registryCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	all := fields
	if len(c.fields) > 0 {
		all = append(append([]zapcore.Field(nil), c.fields...), fields...)
	}
	var errs []error
	for _, h := range c.registry.handlersFor(c.route(ent)) {
		if !h.Enabled(ent.Level) {
			continue
		}
		if err := h.Write(ent, all); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *registryCore) Sync() error {
	var errs []error
	for _, h := range c.registry.handlersWithin(c.name) {
		if err := h.Sync(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *registryCore) route(ent zapcore.Entry) string {
	if ent.LoggerName != "" {
		return ent.LoggerName
	}
	return c.name
}
