package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func captureAt(r *Registry, name string, level zapcore.Level) (*Buffer, *Handle) {
	buf := &Buffer{}
	return buf, r.AddHandler(name, NewStreamHandler(buf, MessageEncoderConfig(), level))
}

func TestRootLevelDefaultsToWarn(t *testing.T) {
	r := NewRegistry()
	buf, _ := captureAt(r, "", zapcore.DebugLevel)

	log := r.Logger("app")
	log.Info("hidden")
	log.Warn("shown")

	assert.Equal(t, "shown\n", buf.String())
	assert.Equal(t, zapcore.WarnLevel, r.EffectiveLevel("app.sub"))
}

func TestResetRootRestoresCreationLevel(t *testing.T) {
	r := NewRegistryAt(zapcore.InfoLevel)
	r.SetLevel("", zapcore.DebugLevel)
	r.ResetLevel("")

	level, ok := r.Level("")
	assert.True(t, ok)
	assert.Equal(t, zapcore.InfoLevel, level)
}

func TestRecordsPropagateToAncestorHandlers(t *testing.T) {
	r := NewRegistry()
	r.SetLevel("", zapcore.DebugLevel)
	rootBuf, _ := captureAt(r, "", zapcore.DebugLevel)
	appBuf, _ := captureAt(r, "app", zapcore.DebugLevel)
	otherBuf, _ := captureAt(r, "other", zapcore.DebugLevel)

	r.Logger("app.db").Debug("query")
	r.Logger("application").Debug("not a child")

	assert.Equal(t, "query\nnot a child\n", rootBuf.String())
	assert.Equal(t, "query\n", appBuf.String())
	assert.Equal(t, "", otherBuf.String())
}

func TestLevelIsInheritedUntilSet(t *testing.T) {
	r := NewRegistry()
	r.SetLevel("app", zapcore.InfoLevel)
	assert.Equal(t, zapcore.InfoLevel, r.EffectiveLevel("app.db"))

	r.SetLevel("app.db", zapcore.ErrorLevel)
	assert.Equal(t, zapcore.ErrorLevel, r.EffectiveLevel("app.db"))
	level, ok := r.Level("app.db")
	assert.True(t, ok)
	assert.Equal(t, zapcore.ErrorLevel, level)

	r.ResetLevel("app.db")
	_, ok = r.Level("app.db")
	assert.False(t, ok)
	assert.Equal(t, zapcore.InfoLevel, r.EffectiveLevel("app.db"))

	r.SetLevel("", zapcore.DebugLevel)
	r.ResetLevel("")
	assert.Equal(t, DefaultRootLevel, r.EffectiveLevel(""))
}

func TestExistingLoggersSeeLevelChanges(t *testing.T) {
	r := NewRegistry()
	buf, _ := captureAt(r, "app", zapcore.DebugLevel)
	log := r.Logger("app")

	log.Info("before")
	r.SetLevel("app", zapcore.InfoLevel)
	log.Info("after")

	assert.Equal(t, "after\n", buf.String())
}

func TestHandlerLevelFiltersIndependently(t *testing.T) {
	r := NewRegistry()
	r.SetLevel("app", zapcore.DebugLevel)
	debugBuf, _ := captureAt(r, "app", zapcore.DebugLevel)
	errorBuf, _ := captureAt(r, "app", zapcore.ErrorLevel)

	log := r.Logger("app")
	log.Debug("d")
	log.Error("e")

	assert.Equal(t, "d\ne\n", debugBuf.String())
	assert.Equal(t, "e\n", errorBuf.String())
}

func TestRemoveHandler(t *testing.T) {
	r := NewRegistry()
	r.SetLevel("app", zapcore.DebugLevel)
	first, h1 := captureAt(r, "app", zapcore.DebugLevel)
	second, _ := captureAt(r, "app", zapcore.DebugLevel)
	assert.Equal(t, 2, r.HandlerCount("app"))

	r.RemoveHandler(h1)
	r.RemoveHandler(h1)
	r.RemoveHandler(nil)
	assert.Equal(t, 1, r.HandlerCount("app"))

	r.Logger("app").Info("x")
	assert.Equal(t, "", first.String())
	assert.Equal(t, "x\n", second.String())
}

func TestFieldsAndLogr(t *testing.T) {
	r := NewRegistry()
	r.SetLevel("", zapcore.InfoLevel)
	buf, _ := captureAt(r, "", zapcore.DebugLevel)

	r.Logger("app").With(zap.String("k", "v")).Info("with field")
	r.Logr("app").Info("via logr")

	assert.Equal(t, "with field {\"k\": \"v\"}\nvia logr\n", buf.String())
}

func TestDebugEncoderIncludesLevelAndName(t *testing.T) {
	r := NewRegistry()
	r.SetLevel("app", zapcore.DebugLevel)
	buf := &Buffer{}
	r.AddHandler("app", NewStreamHandler(buf, DebugEncoderConfig(), zapcore.DebugLevel))

	r.Logger("app.db").Debug("hi")

	assert.Equal(t, "DEBUG app.db hi\n", buf.String())
}

func TestLineage(t *testing.T) {
	assert.Equal(t, []string{""}, lineage(""))
	assert.Equal(t, []string{"a", ""}, lineage("a"))
	assert.Equal(t, []string{"a.b.c", "a.b", "a", ""}, lineage("a.b.c"))
}

func TestNamedChildRoutesByFullName(t *testing.T) {
	r := NewRegistry()
	r.SetLevel("app.worker", zapcore.InfoLevel)
	workerBuf, _ := captureAt(r, "app.worker", zapcore.DebugLevel)
	appBuf, _ := captureAt(r, "app", zapcore.DebugLevel)

	r.Logger("app.worker").Info("direct")
	r.Logger("app").Named("worker").Info("via Named")
	r.Logr("app").WithName("worker").Info("via logr")
	r.Logger("app").Info("parent at warn")

	assert.Equal(t, "direct\nvia Named\nvia logr\n", workerBuf.String())
	assert.Equal(t, "direct\nvia Named\nvia logr\n", appBuf.String())
}

func TestNamedChildUsesItsOwnLevel(t *testing.T) {
	r := NewRegistry()
	r.SetLevel("app", zapcore.DebugLevel)
	r.SetLevel("app.quiet", zapcore.ErrorLevel)
	buf, _ := captureAt(r, "app", zapcore.DebugLevel)

	quiet := r.Logger("app").Named("quiet")
	quiet.Info("dropped")
	quiet.Error("kept")

	assert.Equal(t, "kept\n", buf.String())
}

func TestRootLoggerNamedChild(t *testing.T) {
	r := NewRegistry()
	r.SetLevel("svc", zapcore.DebugLevel)
	buf, _ := captureAt(r, "svc", zapcore.DebugLevel)

	r.Logger("").Named("svc").Debug("from root")

	assert.Equal(t, "from root\n", buf.String())
}
