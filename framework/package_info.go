// Package framework contains the low-level pieces of the async test harness that do not depend
// on what is being tested. The base package has shared types such as Logger; the runner is in
// ldtest, and the subpackages eventloop, asynctest, fixtures, logging, stores, and config build
// on it.
//
// The general model is:
//
// 1. A suite is a named list of test functions. Functions may be ordinary or coroutines; a
// coroutine runs as a task on a cooperative event loop, which asynctest provides.
//
// 2. Functions declare the fixtures they need by name. A fixture is set up before the test that
// asks for it, lives for one test or for the whole suite, and is finalized afterward even if the
// test failed.
//
// 3. There is a general notion of a test context which is similar to Go's testing.T,
// allowing pieces of test logic to be associated with a test identifier and to accumulate
// success/failure results.
package framework
