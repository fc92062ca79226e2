package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"codemate/internal/dispatch"
	"codemate/internal/llm"
	"codemate/internal/logging"
	"codemate/internal/recovery"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("coordinator closed")

// notifyBuffer bounds the notification channel. A slow consumer stalls the
// worker at a cancellation-aware send rather than growing memory.
const notifyBuffer = 64

// BoundFunc resolves the dispatch context at dispatch time, so a request
// submitted before the user switches files still dispatches against the
// file that was bound when the reply arrives.
type BoundFunc func() dispatch.Bound

// Coordinator serializes LLM requests: one in flight at a time, a new
// Submit cancels and joins its predecessor. All lifecycle reporting goes
// through the notification channel.
type Coordinator struct {
	client     llm.Client
	system     string
	recoverer  *recovery.Recoverer
	dispatcher *dispatch.Dispatcher
	boundFn    BoundFunc

	notifyCh chan Notification

	// submitMu serializes the cancel-join-register sequence so that
	// concurrent Submits cannot observe the same predecessor and start
	// overlapping workers.
	submitMu sync.Mutex

	mu      sync.Mutex
	current *inflight
	closed  bool
}

type inflight struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCoordinator builds a coordinator. system is the instruction sent with
// every prompt; boundFn resolves the dispatch target per request.
func NewCoordinator(client llm.Client, system string, boundFn BoundFunc) *Coordinator {
	return &Coordinator{
		client:     client,
		system:     system,
		recoverer:  recovery.NewRecoverer(),
		dispatcher: dispatch.NewDispatcher(),
		boundFn:    boundFn,
		notifyCh:   make(chan Notification, notifyBuffer),
	}
}

// Notifications exposes the emission stream. The channel closes when the
// coordinator closes.
func (c *Coordinator) Notifications() <-chan Notification {
	return c.notifyCh
}

// Recoverer exposes the shared recoverer, mainly for its stats.
func (c *Coordinator) Recoverer() *recovery.Recoverer {
	return c.recoverer
}

// Submit schedules prompt, first cancelling and joining any in-flight
// predecessor. It returns once the new request's worker is started.
func (c *Coordinator) Submit(ctx context.Context, prompt string) (string, error) {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClosed
	}
	prev := c.current
	c.mu.Unlock()

	if prev != nil {
		logging.Session("superseding request %s", prev.id)
		prev.cancel()
		<-prev.done
	}

	reqCtx, cancel := context.WithCancel(ctx)
	req := &inflight{
		id:     uuid.NewString(),
		ctx:    reqCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		close(req.done)
		return "", ErrClosed
	}
	c.current = req
	c.mu.Unlock()

	logging.Session("request %s submitted (%d chars)", req.id, len(prompt))
	go c.work(req, prompt)
	return req.id, nil
}

// work runs one request end to end. Cancellation is checked before the send
// and after the receive; a request cancelled past either point emits no
// terminal notification - the superseding Submit speaks for it.
func (c *Coordinator) work(req *inflight, prompt string) {
	defer func() {
		req.cancel()
		c.mu.Lock()
		if c.current == req {
			c.current = nil
		}
		c.mu.Unlock()
		close(req.done)
	}()

	rl := logging.WithRequestID(logging.CategorySession, req.id)

	c.emit(req, Notification{Kind: Started, RequestID: req.id})

	if req.ctx.Err() != nil {
		rl.Debug("cancelled before send")
		return
	}

	var raw string
	var err error
	if c.system != "" {
		raw, err = c.client.CompleteWithSystem(req.ctx, c.system, prompt)
	} else {
		raw, err = c.client.Complete(req.ctx, prompt)
	}

	if req.ctx.Err() != nil {
		rl.Debug("cancelled after receive, reply discarded")
		return
	}
	if err != nil {
		rl.Error("transport failure: %v", err)
		c.emit(req, Notification{
			Kind:      Error,
			RequestID: req.id,
			Message:   err.Error(),
			Err:       fmt.Errorf("request %s: %w", req.id, err),
		})
		return
	}

	c.emit(req, Notification{Kind: Progress, RequestID: req.id, Message: "reply received"})

	act := c.recoverer.Recover(raw)
	c.emit(req, Notification{
		Kind:      Progress,
		RequestID: req.id,
		Message:   "action recovered: " + act.Kind.String(),
	})

	result, err := c.dispatcher.Dispatch(req.ctx, act, c.boundFn())
	if err != nil {
		rl.Warn("dispatch failed: %v", err)
		c.emit(req, Notification{
			Kind:      Error,
			RequestID: req.id,
			Message:   err.Error(),
			Err:       fmt.Errorf("request %s: %w", req.id, err),
		})
		return
	}

	rl.WithField("action", act.Kind.String()).Info("request completed")
	c.emit(req, Notification{Kind: Result, RequestID: req.id, Result: &result})
}

// emit delivers n unless the request is cancelled first. Cancellation-aware
// sends keep an abandoned worker from blocking on a full channel.
func (c *Coordinator) emit(req *inflight, n Notification) {
	select {
	case c.notifyCh <- n:
	case <-req.ctx.Done():
	}
}

// Close cancels any in-flight request, joins it, and closes the
// notification channel. Idempotent.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cur := c.current
	c.current = nil
	c.mu.Unlock()

	if cur != nil {
		cur.cancel()
		<-cur.done
	}
	close(c.notifyCh)
	logging.Session("coordinator closed")
}
