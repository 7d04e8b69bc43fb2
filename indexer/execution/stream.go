package execution

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/rpc"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/utils"
)

// streamStep performs one unit of work and reports whether the stream is
// caught up with the chain tip.
type streamStep func(ctx context.Context) (bool, error)

// checkpointStream drives one ingestion stream. It runs its step function in
// a loop, sleeping the poll interval when caught up and backing off
// exponentially on transient errors. Fatal errors stop the stream and are
// reported upwards.
type checkpointStream struct {
	name   string
	logger logrus.FieldLogger
	step   streamStep

	pollInterval time.Duration
	retryBase    time.Duration
	retryMax     time.Duration

	onFatal func(streamName string, err error)

	parentCtx context.Context
	cancel    context.CancelFunc

	// stepMutex serializes step execution across loop generations: a
	// restarted loop must not run a step while a stuck predecessor is
	// still inside one, or both could commit the same block.
	stepMutex sync.Mutex

	lastActivity atomic.Int64
	stopped      atomic.Bool
}

func newCheckpointStream(name string, logger logrus.FieldLogger, step streamStep, pollInterval time.Duration, retryBase time.Duration, retryMax time.Duration, onFatal func(string, error)) *checkpointStream {
	stream := &checkpointStream{
		name:         name,
		logger:       logger.WithField("stream", name),
		step:         step,
		pollInterval: pollInterval,
		retryBase:    retryBase,
		retryMax:     retryMax,
		onFatal:      onFatal,
	}
	stream.lastActivity.Store(time.Now().Unix())
	return stream
}

func (cs *checkpointStream) start(parentCtx context.Context) {
	cs.parentCtx = parentCtx
	streamCtx, cancel := context.WithCancel(parentCtx)
	cs.cancel = cancel
	cs.stopped.Store(false)
	cs.lastActivity.Store(time.Now().Unix())
	go cs.runStreamLoop(streamCtx)
}

// restart cancels the current loop and spawns a fresh one. Used by the
// watchdog when a stream stalled.
func (cs *checkpointStream) restart() {
	if cs.cancel != nil {
		cs.cancel()
	}
	cs.start(cs.parentCtx)
}

func (cs *checkpointStream) runStreamLoop(ctx context.Context) {
	defer utils.HandleSubroutinePanic("execution.stream."+cs.name, func() { cs.runStreamLoop(ctx) })

	retryDelay := cs.retryBase

	for {
		if ctx.Err() != nil {
			cs.stopped.Store(true)
			return
		}

		caughtUp, err := cs.runStep(ctx)
		cs.lastActivity.Store(time.Now().Unix())

		switch {
		case err == nil && !caughtUp:
			// more work pending, continue immediately
			retryDelay = cs.retryBase
			continue
		case err == nil:
			retryDelay = cs.retryBase
			cs.sleep(ctx, cs.pollInterval)
		case errors.Is(err, context.Canceled):
			cs.stopped.Store(true)
			return
		case isFatalStreamError(err):
			cs.logger.WithError(err).Error("fatal stream error, stopping stream")
			cs.stopped.Store(true)
			if cs.onFatal != nil {
				cs.onFatal(cs.name, err)
			}
			return
		default:
			if rpc.IsRetryable(err) {
				cs.logger.WithError(err).Warnf("transient error, retrying in %v", retryDelay)
			} else {
				cs.logger.WithError(err).Errorf("stream error, retrying in %v", retryDelay)
			}
			cs.sleep(ctx, retryDelay)
			retryDelay *= 2
			if retryDelay > cs.retryMax {
				retryDelay = cs.retryMax
			}
		}
	}
}

// runStep executes one step under the step mutex. The context is rechecked
// after acquiring the lock: while a restarted loop waited here, the old loop
// may have finished the step this one was about to repeat.
func (cs *checkpointStream) runStep(ctx context.Context) (bool, error) {
	cs.stepMutex.Lock()
	defer cs.stepMutex.Unlock()

	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return cs.step(ctx)
}

func (cs *checkpointStream) sleep(ctx context.Context, duration time.Duration) {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// isStalled reports whether the stream made no progress within the timeout.
func (cs *checkpointStream) isStalled(timeout time.Duration) bool {
	if cs.stopped.Load() {
		return false
	}
	return time.Since(time.Unix(cs.lastActivity.Load(), 0)) > timeout
}

func isFatalStreamError(err error) bool {
	return errors.Is(err, ErrReorgTooDeep) || errors.Is(err, ErrChainIdMismatch)
}
