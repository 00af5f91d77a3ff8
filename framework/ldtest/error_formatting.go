package ldtest

import (
	"errors"
	"strings"
)

// Trace lines from these files belong to the runner rather than to the test. Every test body is
// reached through T.run in test_scope.go, and a coroutine body also passes through the event
// loop's task code first.
var infrastructureTraceFiles = []string{"test_scope.go", "eventloop/task.go"} //nolint:gochecknoglobals

// reformatError rewrites a testify failure message so that the failure text comes first and is
// followed by only the trace lines that are in test code. Errors that did not come from testify
// are returned unchanged.
func reformatError(err error) error {
	if err == nil {
		return nil
	}
	trace, text, ok := splitTestifyMessage(err.Error())
	if !ok {
		return err
	}
	if strings.TrimSpace(text[0]) == "Received unexpected error:" && len(text) > 1 {
		text = append([]string{"Error: " + text[1]}, text[2:]...)
	}
	out := append([]string(nil), text...)
	out = append(out, "  Error trace:")
	for _, line := range trace {
		if isInfrastructureTraceLine(line) {
			break
		}
		out = append(out, "    "+line)
	}
	return errors.New(strings.Join(out, "\n"))
}

func isInfrastructureTraceLine(line string) bool {
	for _, f := range infrastructureTraceFiles {
		if strings.Contains(line, f) {
			return true
		}
	}
	return false
}

// splitTestifyMessage separates the "Error Trace:" block of a testify message from the
// "Error:" block and everything after it.
func splitTestifyMessage(msg string) (trace []string, text []string, ok bool) {
	if !strings.Contains(msg, "Error Trace:") {
		return nil, nil, false
	}
	for _, line := range strings.Split(msg, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case len(text) > 0:
			text = append(text, line)
		case strings.HasPrefix(line, "Error Trace:"):
			trace = append(trace, strings.TrimSpace(strings.TrimPrefix(line, "Error Trace:")))
		case strings.HasPrefix(line, "Error:"):
			text = append(text, strings.TrimSpace(strings.TrimPrefix(line, "Error:")))
		case len(trace) > 0:
			trace = append(trace, line)
		}
	}
	return trace, text, len(trace) > 0 && len(text) > 0
}
