// Package provider routes task executions to named AI providers and reports
// which of them are currently usable.
//
// Router satisfies both task.Executor and task.ProviderStatusSource. A provider
// is usable while it is administratively active and its circuit breaker is
// closed; a run of consecutive failures opens the breaker for a cooldown, after
// which a single trial call decides whether it closes again.
package provider
