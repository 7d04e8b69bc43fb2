package execution

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestStreamRestartSerializesSteps(t *testing.T) {
	entered := make(chan struct{}, 16)
	release := make(chan struct{})
	var active atomic.Int32
	var overlapped atomic.Bool

	// a step that ignores cancellation, like a database commit would
	step := func(ctx context.Context) (bool, error) {
		if active.Add(1) > 1 {
			overlapped.Store(true)
		}
		defer active.Add(-1)

		entered <- struct{}{}
		<-release
		return true, nil
	}

	stream := newCheckpointStream("test", logrus.StandardLogger(), step, 10*time.Millisecond, time.Millisecond, time.Millisecond, nil)
	stream.start(context.Background())
	defer stream.cancel()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not run its first step")
	}

	// the watchdog restarts the stream while the step is still stuck,
	// the new loop must wait instead of running the step concurrently
	stream.restart()
	time.Sleep(100 * time.Millisecond)

	select {
	case <-entered:
		t.Fatal("restarted loop ran a step while the old step was still running")
	default:
	}

	close(release)

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("restarted stream did not resume stepping")
	}

	assert.False(t, overlapped.Load())
}
