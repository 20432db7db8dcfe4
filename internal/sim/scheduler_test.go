package sim

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickerSchedulerStopsWhenCallbackReturnsFalse(t *testing.T) {
	var runs atomic.Int32
	task := TickerScheduler{}.Every(time.Millisecond, func() bool {
		return runs.Add(1) < 3
	})
	assert.Eventually(t, func() bool { return runs.Load() == 3 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(3), runs.Load())
	task.Cancel()
	task.Cancel()
}

func TestTickerSchedulerCancelWaitsForInFlightRun(t *testing.T) {
	var inside, finished atomic.Bool
	task := TickerScheduler{}.Every(time.Millisecond, func() bool {
		inside.Store(true)
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
		return true
	})
	assert.Eventually(t, inside.Load, time.Second, time.Millisecond)
	task.Cancel()
	assert.True(t, finished.Load())
}
