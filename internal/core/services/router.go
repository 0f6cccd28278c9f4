package services

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// errThrottled marks a backend skipped by its local rate limiter.
var errThrottled = errors.New("local rate limit exceeded")

// backend couples an LLM service with its routing metadata.
type backend struct {
	name    string
	service driven.LLMService
	timeout time.Duration
	limiter *rate.Limiter
}

// Router tries configured backends in priority order, falling back on
// retryable failures. Auth, rate-limit, connection and timeout errors
// move on to the next backend; an invalid request would fail everywhere
// and aborts immediately.
type Router struct {
	backends []*backend
}

// NewRouter creates an empty router. Backends are tried in the order
// they are added.
func NewRouter() *Router {
	return &Router{}
}

// AddBackend registers a backend. A positive rps installs a local
// token-bucket limiter; zero means unthrottled.
func (r *Router) AddBackend(name string, service driven.LLMService, timeout time.Duration, rps float64) {
	b := &backend{
		name:    name,
		service: service,
		timeout: timeout,
	}
	if rps > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	r.backends = append(r.backends, b)
}

// Backends returns the configured backend names in priority order.
func (r *Router) Backends() []string {
	names := make([]string, len(r.backends))
	for i, b := range r.backends {
		names[i] = b.name
	}
	return names
}

// Close closes all backend services.
func (r *Router) Close() error {
	var errs []error
	for _, b := range r.backends {
		if err := b.service.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ordered returns the backends with the preferred one, if named and
// present, moved to the front.
func (r *Router) ordered(preference string) []*backend {
	if preference == "" {
		return r.backends
	}
	ordered := make([]*backend, 0, len(r.backends))
	for _, b := range r.backends {
		if b.name == preference {
			ordered = append(ordered, b)
		}
	}
	if len(ordered) == 0 {
		logger.Warn("Unknown backend preference %q, using priority order", preference)
		return r.backends
	}
	for _, b := range r.backends {
		if b.name != preference {
			ordered = append(ordered, b)
		}
	}
	return ordered
}

// Generate produces a complete response from the first backend that
// succeeds. The returned string names the backend that answered.
func (r *Router) Generate(ctx context.Context, messages []driven.ChatMessage, opts driven.GenerateOptions, preference string) (string, string, error) {
	var errs []error
	for _, b := range r.ordered(preference) {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		if b.limiter != nil && !b.limiter.Allow() {
			logger.Debug("Backend %s throttled locally", b.name)
			errs = append(errs, &driven.ProviderError{Backend: b.name, Kind: driven.FailureRateLimit, Err: errThrottled})
			continue
		}

		callCtx, cancel := r.callContext(ctx, b)
		text, err := b.service.Generate(callCtx, messages, opts)
		cancel()
		if err == nil {
			logger.Info("Backend %s answered", b.name)
			return text, b.name, nil
		}

		logger.Warn("Backend %s failed: %v", b.name, err)
		errs = append(errs, err)
		if pe, ok := driven.AsProviderError(err); ok && !pe.Retryable() {
			return "", "", err
		}
	}

	return "", "", errors.Join(append([]error{domain.ErrAllBackendsFailed}, errs...)...)
}

// GenerateStream opens a stream from the first backend that accepts the
// request. Fallback happens only while opening; once a backend starts
// streaming, a mid-stream failure surfaces as an EventError on the
// channel rather than a silent switch that would splice two answers.
func (r *Router) GenerateStream(ctx context.Context, messages []driven.ChatMessage, opts driven.GenerateOptions, preference string) (<-chan driven.StreamEvent, string, error) {
	var errs []error
	for _, b := range r.ordered(preference) {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		if b.limiter != nil && !b.limiter.Allow() {
			logger.Debug("Backend %s throttled locally", b.name)
			errs = append(errs, &driven.ProviderError{Backend: b.name, Kind: driven.FailureRateLimit, Err: errThrottled})
			continue
		}

		// No per-call deadline here: a healthy stream may legitimately
		// outlive the backend timeout. The adapter's own client timeout
		// bounds connection establishment.
		events, err := b.service.GenerateStream(ctx, messages, opts)
		if err == nil {
			logger.Info("Backend %s streaming", b.name)
			return events, b.name, nil
		}

		logger.Warn("Backend %s failed: %v", b.name, err)
		errs = append(errs, err)
		if pe, ok := driven.AsProviderError(err); ok && !pe.Retryable() {
			return nil, "", err
		}
	}

	return nil, "", errors.Join(append([]error{domain.ErrAllBackendsFailed}, errs...)...)
}

// Ping checks every backend and returns the first error found.
func (r *Router) Ping(ctx context.Context) error {
	for _, b := range r.backends {
		if err := b.service.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// callContext derives a per-call context from the backend timeout.
func (r *Router) callContext(ctx context.Context, b *backend) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}
