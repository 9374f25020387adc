package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/star64ccs/CardStrategy-sub008/internal/redact"
	"github.com/star64ccs/CardStrategy-sub008/internal/task"
)

var (
	ErrUnknownProvider     = errors.New("unknown provider")
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// Default breaker settings.
const (
	DefaultFailureThreshold = 5
	DefaultCooldown         = 30 * time.Second
)

// Option customizes a Router.
type Option func(*Router)

// WithBreaker sets the consecutive failure threshold and open cooldown.
// A threshold of zero disables tripping.
func WithBreaker(failureThreshold int, cooldown time.Duration) Option {
	return func(r *Router) {
		r.failureThreshold = failureThreshold
		r.cooldown = cooldown
	}
}

// WithClock replaces time.Now for breaker timing.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

type route struct {
	executor task.Executor
	active   bool
	breaker  *breaker
}

// Status describes one registered provider.
type Status struct {
	Name    string       `json:"name"`
	Active  bool         `json:"active"`
	Breaker BreakerState `json:"breaker"`
	Usable  bool         `json:"usable"`
}

// Router dispatches executions by RequestConfig.Provider, falling back to a
// default provider.
type Router struct {
	defaultProvider  string
	failureThreshold int
	cooldown         time.Duration
	now              func() time.Time
	logger           *slog.Logger

	mu     sync.RWMutex
	routes map[string]*route
}

// NewRouter creates an empty Router.
func NewRouter(defaultProvider string, logger *slog.Logger, opts ...Option) *Router {
	r := &Router{
		defaultProvider:  defaultProvider,
		failureThreshold: DefaultFailureThreshold,
		cooldown:         DefaultCooldown,
		now:              time.Now,
		logger:           logger.With("component", "provider_router"),
		routes:           make(map[string]*route),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds or replaces an active provider.
func (r *Router) Register(name string, executor task.Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[name] = &route{
		executor: executor,
		active:   true,
		breaker:  newBreaker(r.failureThreshold, r.cooldown, r.now),
	}
	r.logger.Info("provider registered", "provider", name)
}

// SetActive enables or disables a provider.
func (r *Router) SetActive(name string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.routes[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	rt.active = active
	r.logger.Info("provider availability changed", "provider", name, "active", active)
	return nil
}

// Execute runs the call on the requested or default provider.
func (r *Router) Execute(ctx context.Context, prompt string, cfg task.RequestConfig) (*task.Response, error) {
	name := cfg.Provider
	if name == "" {
		name = r.defaultProvider
	}

	r.mu.RLock()
	rt, ok := r.routes[name]
	var active bool
	if ok {
		active = rt.active
	}
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	if !active {
		return nil, fmt.Errorf("%w: %s is disabled", ErrProviderUnavailable, name)
	}
	if !rt.breaker.allow() {
		return nil, fmt.Errorf("%w: %s circuit is open", ErrProviderUnavailable, name)
	}

	resp, err := rt.executor.Execute(ctx, prompt, cfg)
	if resp != nil && resp.Provider == "" {
		resp.Provider = name
	}
	if err != nil || resp == nil || !resp.Success {
		rt.breaker.onFailure()
		if err != nil {
			r.logger.Warn("provider call failed",
				"provider", name,
				"breaker", rt.breaker.current(),
				"error", redact.Error(err))
		}
		return resp, err
	}

	rt.breaker.onSuccess()
	return resp, nil
}

// Resolve fills in the provider a call with cfg is routed to, and the model
// when that provider can name its default.
func (r *Router) Resolve(cfg task.RequestConfig) task.RequestConfig {
	if cfg.Provider == "" {
		cfg.Provider = r.defaultProvider
	}

	r.mu.RLock()
	rt, ok := r.routes[cfg.Provider]
	r.mu.RUnlock()

	if ok {
		if res, ok := rt.executor.(task.Resolver); ok {
			cfg = res.Resolve(cfg)
		}
	}
	return cfg
}

// ProviderStatuses reports each provider as usable or not.
func (r *Router) ProviderStatuses(context.Context) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, s := range r.Statuses() {
		out[s.Name] = s.Usable
	}
	return out, nil
}

// Statuses returns every provider sorted by name.
func (r *Router) Statuses() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Status, 0, len(r.routes))
	for name, rt := range r.routes {
		state := rt.breaker.current()
		out = append(out, Status{
			Name:    name,
			Active:  rt.active,
			Breaker: state,
			Usable:  rt.active && state != BreakerOpen,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
