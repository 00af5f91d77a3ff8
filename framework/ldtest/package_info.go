// Package ldtest contains a test runner framework that is similar to Go's testing package,
// but is run as regular Go application code rather than Go tests. It also adds richer
// capabilities for configuration, logging, and result reporting.
//
// On top of the basic test scope, T, a Suite groups test functions that declare named fixtures
// and may be parametrized. Plugins can take over collecting and calling functions of kinds the
// runner does not know how to call itself; see the asynctest package for coroutine functions.
package ldtest
