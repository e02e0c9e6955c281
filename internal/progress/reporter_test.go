package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeNoETABeforeFirstCompletion(t *testing.T) {
	s := Compute(0, 10, 5*time.Second)

	assert.False(t, s.HasETA)
	assert.Equal(t, 0, s.Percent)
	assert.Contains(t, s.Line(), "ETA: --:--:--")
	assert.Equal(t, strings.Repeat(" ", BarWidth), s.Bar())
}

func TestComputeETA(t *testing.T) {
	// 2 of 10 done in 20s leaves 8 tasks at 10s each
	s := Compute(2, 10, 20*time.Second)

	assert.True(t, s.HasETA)
	assert.Equal(t, 80*time.Second, s.ETA)
	assert.Equal(t, 20, s.Percent)
	assert.Equal(t, strings.Repeat("=", 10)+strings.Repeat(" ", 40), s.Bar())
}

func TestComputeComplete(t *testing.T) {
	s := Compute(4, 4, time.Minute)

	assert.Equal(t, 100, s.Percent)
	assert.Equal(t, time.Duration(0), s.ETA)
	assert.Equal(t, strings.Repeat("=", BarWidth), s.Bar())
	assert.Equal(t, "Elapsed: 0:01:00 100% ["+strings.Repeat("=", BarWidth)+"] ETA: 0:00:00", s.Line())
}

func TestComputeClampsOverflow(t *testing.T) {
	s := Compute(7, 5, time.Second)
	assert.Equal(t, 5, s.Completed)
	assert.Equal(t, 100, s.Percent)
}

func TestComputeZeroTotal(t *testing.T) {
	s := Compute(0, 0, time.Second)
	assert.Equal(t, 0, s.Percent)
	assert.False(t, s.HasETA)
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "0:00:00", FormatClock(0))
	assert.Equal(t, "0:00:59", FormatClock(59*time.Second+900*time.Millisecond))
	assert.Equal(t, "1:01:01", FormatClock(time.Hour+time.Minute+time.Second))
	assert.Equal(t, "27:46:40", FormatClock(100000*time.Second))
	assert.Equal(t, "0:00:00", FormatClock(-time.Second))
}

func TestReporterThrottlesToWholePercent(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(Options{Total: 1000, Output: &buf})

	assert.True(t, r.Update(1, time.Second), "first update renders 0%")
	assert.False(t, r.Update(5, time.Second), "still 0%")
	assert.True(t, r.Update(10, time.Second), "1%")
	assert.False(t, r.Update(11, time.Second))

	assert.Equal(t, 2, strings.Count(buf.String(), "\r"))
}

func TestReporterFinalUpdateAlwaysRendersOnce(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(Options{Total: 3, Output: &buf})

	r.Update(1, time.Second)
	assert.True(t, r.Update(3, 3*time.Second))
	assert.False(t, r.Update(3, 4*time.Second))

	r.Finish()
	out := buf.String()
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.Contains(t, out, "100% ["+strings.Repeat("=", BarWidth)+"]")
}

func TestReporterFinishWithoutOutput(t *testing.T) {
	var buf bytes.Buffer
	NewReporter(Options{Total: 3, Output: &buf}).Finish()
	assert.Empty(t, buf.String())
}
