package eventbus

import "log/slog"

// BusOption configures a Bus at construction time.
type BusOption func(*Bus)

// WithErrorHandler replaces the default slog-based listener error handler.
func WithErrorHandler(h ErrorHandler) BusOption {
	return func(b *Bus) {
		if h != nil {
			b.errHandler = h
		}
	}
}

// WithMaxListeners sets the per-event listener count that triggers the leak
// warning. Zero disables the check.
func WithMaxListeners(n int) BusOption {
	return func(b *Bus) {
		b.maxListeners = n
	}
}

// WithLogger sets the logger used for warnings and the default error handler.
func WithLogger(logger *slog.Logger) BusOption {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

type listenerConfig struct {
	filter   FilterFunc
	priority int
	once     bool
}

// ListenerOption configures a single subscription.
type ListenerOption func(*listenerConfig)

// WithFilter suppresses delivery when f returns false for the payload.
func WithFilter(f FilterFunc) ListenerOption {
	return func(c *listenerConfig) {
		c.filter = f
	}
}

// WithPriority sets the delivery priority (default 0, highest first).
func WithPriority(p int) ListenerOption {
	return func(c *listenerConfig) {
		c.priority = p
	}
}

// WithOnce removes the listener when it is first selected for delivery.
func WithOnce() ListenerOption {
	return func(c *listenerConfig) {
		c.once = true
	}
}
