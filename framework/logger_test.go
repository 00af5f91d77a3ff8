package framework

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapturingLoggerChildReceivesParentOutput(t *testing.T) {
	var parent, child CapturingLogger
	parent.Printf("before %d", 1)
	parent.AddChildLogger(&child)
	parent.Println("during")
	parent.RemoveChildLogger(&child)
	parent.Println("after")

	assert.Equal(t, []string{"before 1", "during"}, messages(child.Output()))
	assert.Equal(t, []string{"before 1", "after"}, messages(parent.Output()))
}

func TestLoggerWriterSplitsLines(t *testing.T) {
	var l CapturingLogger
	w := LoggerWriter(&l)
	_, _ = fmt.Fprint(w, "one\ntw")
	_, _ = fmt.Fprint(w, "o\r\nthree")

	assert.Equal(t, []string{"one", "two"}, messages(l.Output()))
}

func messages(output CapturedOutput) []string {
	var ret []string
	for _, m := range output {
		ret = append(ret, m.Message)
	}
	return ret
}
