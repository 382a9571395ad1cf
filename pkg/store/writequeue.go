package store

import (
	"context"
	"errors"

	"github.com/yourusername/report-slides-app/pkg/logger"
)

// ErrClosed is returned for writes submitted after Close.
var ErrClosed = errors.New("store is closed")

const writeQueueSize = 100

// writeOp is one serialized write. name is only used for logging.
type writeOp struct {
	name     string
	apply    func() error
	response chan error
}

// writeQueue funnels every write through a single goroutine so SQLite never
// sees two writers at once.
type writeQueue struct {
	queue  chan writeOp
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	log    *logger.Logger
}

func newWriteQueue(log *logger.Logger) *writeQueue {
	ctx, cancel := context.WithCancel(context.Background())
	wq := &writeQueue{
		queue:  make(chan writeOp, writeQueueSize),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		log:    log,
	}
	go wq.run()
	return wq
}

func (wq *writeQueue) run() {
	defer close(wq.done)

	for {
		select {
		case <-wq.ctx.Done():
			// drain what was accepted before shutdown
			for {
				select {
				case op := <-wq.queue:
					wq.execute(op)
				default:
					wq.log.Debug("write queue stopped")
					return
				}
			}
		case op := <-wq.queue:
			wq.execute(op)
		}
	}
}

func (wq *writeQueue) execute(op writeOp) {
	err := op.apply()
	if err != nil {
		wq.log.Warn("write failed", "op", op.name, "error", err.Error())
	}
	op.response <- err
}

// submit queues fn and blocks until it has been applied.
func (wq *writeQueue) submit(name string, fn func() error) error {
	op := writeOp{name: name, apply: fn, response: make(chan error, 1)}

	select {
	case wq.queue <- op:
	case <-wq.ctx.Done():
		return ErrClosed
	}

	select {
	case err := <-op.response:
		return err
	case <-wq.done:
		// the writer may have finished op just before exiting
		select {
		case err := <-op.response:
			return err
		default:
			return ErrClosed
		}
	}
}

func (wq *writeQueue) shutdown() {
	wq.cancel()
	<-wq.done
}
