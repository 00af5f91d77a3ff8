package ldtest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTestIDString(t *testing.T) {
	assert.Equal(t, "", TestID{}.String())
	assert.Equal(t, "harness", TestID{"harness"}.String())
	assert.Equal(t, "harness/loop sleep[short]", TestID{"harness", "loop sleep[short]"}.String())
}

func TestTestIDPlusDoesNotModifyReceiver(t *testing.T) {
	assert.Equal(t, TestID{"suite", "item"}, TestID{}.Plus("suite").Plus("item"))

	suite := TestID{"suite"}
	a := suite.Plus("a")
	b := suite.Plus("b")
	assert.Equal(t, TestID{"suite"}, suite)
	assert.Equal(t, TestID{"suite", "a"}, a)
	assert.Equal(t, TestID{"suite", "b"}, b)
}

func TestResultsOKIgnoresNonCriticalFailures(t *testing.T) {
	assert.True(t, Results{}.OK())
	assert.True(t, Results{NonCriticalFailures: []TestResult{{TestID: TestID{"x"}}}}.OK())
	assert.False(t, Results{Failures: []TestResult{{TestID: TestID{"x"}}}}.OK())
}

func TestTestFailureError(t *testing.T) {
	f := TestFailure{ID: TestID{"suite", "item[1]"}, Err: errors.New("boom")}
	assert.Equal(t, "[suite/item[1]]: boom", f.Error())
}
