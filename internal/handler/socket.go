package handler

import (
	"context"
	"strings"
	"time"

	"trawell-be/internal/controller"
)

const (
	commandBuffer = 8
	// tokenDelay paces text that is not generated live.
	tokenDelay = 15 * time.Millisecond
)

type job func(ctx context.Context)

// commandQueue runs one connection's commands in order on a worker, so a
// slow model call never stalls the read pump. stop cancels the running
// command and waits for it.
type commandQueue struct {
	ctx    context.Context
	cancel context.CancelFunc
	jobs   chan job
	done   chan struct{}
}

func newCommandQueue() *commandQueue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &commandQueue{
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(chan job, commandBuffer),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *commandQueue) run() {
	defer close(q.done)
	for {
		select {
		case <-q.ctx.Done():
			return
		case j := <-q.jobs:
			j(q.ctx)
		}
	}
}

// push reports false when the queue is full.
func (q *commandQueue) push(j job) bool {
	select {
	case q.jobs <- j:
		return true
	default:
		return false
	}
}

func (q *commandQueue) stop() {
	q.cancel()
	<-q.done
}

type socketError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func toSocketError(err error) socketError {
	return socketError{Status: controller.StatusOf(err), Message: err.Error()}
}

// streamText sends text word by word through emit.
func streamText(ctx context.Context, text string, emit func(token string)) error {
	for _, tok := range strings.SplitAfter(text, " ") {
		if tok == "" {
			continue
		}
		emit(tok)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(tokenDelay):
		}
	}
	return nil
}
