// Package internal holds a function outside of ldtest for the stacktrace tests, which need a
// frame that the runner does not filter out.
package internal

// RunAction calls action.
func RunAction(action func()) {
	action()
}
