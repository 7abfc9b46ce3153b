package eventbus

import (
	"context"
	"errors"
	"time"
)

// ErrWaitTimeout is returned when WaitFor's deadline elapses before a
// matching emit occurs.
var ErrWaitTimeout = errors.New("timed out waiting for event")

type waitConfig struct {
	filter  FilterFunc
	timeout time.Duration
}

// WaitOption configures a WaitFor call.
type WaitOption func(*waitConfig)

// WithWaitFilter only resolves WaitFor for payloads matching f.
func WithWaitFilter(f FilterFunc) WaitOption {
	return func(c *waitConfig) {
		c.filter = f
	}
}

// WithTimeout bounds how long WaitFor blocks. Zero means no deadline.
func WithTimeout(d time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.timeout = d
	}
}

// WaitFor blocks until the first matching payload is emitted for event,
// returning it. It is a one-shot subscription raced against a timer: there
// is no cancellation beyond the timeout and the caller's context.
func (b *Bus) WaitFor(ctx context.Context, event string, opts ...WaitOption) (any, error) {
	cfg := waitConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	ch := make(chan any, 1)
	listenerOpts := []ListenerOption{WithOnce()}
	if cfg.filter != nil {
		listenerOpts = append(listenerOpts, WithFilter(cfg.filter))
	}
	id := b.On(event, func(payload any) error {
		select {
		case ch <- payload:
		default:
		}
		return nil
	}, listenerOpts...)
	defer b.Off(event, id)

	var deadline <-chan time.Time
	if cfg.timeout > 0 {
		timer := time.NewTimer(cfg.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case payload := <-ch:
		return payload, nil
	case <-deadline:
		return nil, ErrWaitTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
