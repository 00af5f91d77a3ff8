// Package fixtures contains the scoped resources that tests in an ldtest suite can ask for by
// name: a temporary working directory, a redis connection, log capture, a debug logger, the
// application under test, and a persistent store.
//
// Each resource is acquired at most once and released exactly once, through a finalizer that
// the fixture registers with T.Defer, so that release happens however the test ends. Resources
// that talk to a server are bound to the event loop the test runs on; their blocking calls go
// through eventloop.Call, and their teardown runs as a task on that loop after the test body
// has finished.
//
// Call Register to add the fixtures to a suite that already has asynctest installed.
package fixtures
