package fluentzip

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimpleProgressReporterMonotonic(t *testing.T) {
	t.Parallel()

	log := &progressLog{}
	reporter := NewSimpleProgressReporter(log.callback())
	reporter.OnEntryProgress(1, 3, "a")
	reporter.OnEntryProgress(2, 3, "b")
	reporter.OnEntryProgress(1, 3, "late")
	reporter.OnEntryProgress(3, 3, "c")

	require.Equal(t, []int64{1, 2, 3}, log.current)

	var nilReporter *SimpleProgressReporter
	nilReporter.OnEntryProgress(1, 1, "x")
	NewSimpleProgressReporter(nil).OnEntryProgress(1, 1, "x")
}
