package task

import (
	"context"
	"sync"
	"time"
)

// MockCall records one Execute invocation.
type MockCall struct {
	Prompt string
	Config RequestConfig
}

// MockExecutor is a configurable Executor for tests.
type MockExecutor struct {
	mu        sync.Mutex
	calls     []MockCall
	inFlight  int
	maxFlight int

	// ExecuteFn produces the outcome of each call. NewMockExecutor installs a
	// function that succeeds immediately.
	ExecuteFn func(ctx context.Context, prompt string, cfg RequestConfig) (*Response, error)
}

// NewMockExecutor returns an executor that succeeds with a fixed cost and latency.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		ExecuteFn: func(ctx context.Context, prompt string, cfg RequestConfig) (*Response, error) {
			return &Response{
				Success:      true,
				Result:       "ok: " + prompt,
				Cost:         0.01,
				ResponseTime: 100 * time.Millisecond,
				Provider:     cfg.Provider,
				Model:        cfg.Model,
			}, nil
		},
	}
}

// Execute records the call and delegates to ExecuteFn.
func (m *MockExecutor) Execute(ctx context.Context, prompt string, cfg RequestConfig) (*Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Prompt: prompt, Config: cfg})
	m.inFlight++
	if m.inFlight > m.maxFlight {
		m.maxFlight = m.inFlight
	}
	fn := m.ExecuteFn
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()
	return fn(ctx, prompt, cfg)
}

// Calls returns the recorded calls in invocation order.
func (m *MockExecutor) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Prompts returns the prompt of each recorded call in invocation order.
func (m *MockExecutor) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	for i, c := range m.calls {
		out[i] = c.Prompt
	}
	return out
}

// MaxConcurrent returns the highest number of simultaneous Execute calls seen.
func (m *MockExecutor) MaxConcurrent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxFlight
}

// StaticStatusSource reports a fixed set of provider flags.
type StaticStatusSource map[string]bool

// ProviderStatuses returns a copy of the flags.
func (s StaticStatusSource) ProviderStatuses(context.Context) (map[string]bool, error) {
	return copyStatuses(s), nil
}

// StatusSourceFunc adapts a function to ProviderStatusSource.
type StatusSourceFunc func(ctx context.Context) (map[string]bool, error)

// ProviderStatuses calls f.
func (f StatusSourceFunc) ProviderStatuses(ctx context.Context) (map[string]bool, error) {
	return f(ctx)
}

// FixedSampler returns the same gauges on every sample.
type FixedSampler SystemGauges

// Sample returns the fixed gauges.
func (f FixedSampler) Sample() SystemGauges {
	return SystemGauges(f)
}
