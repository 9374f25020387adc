// Package events carries task lifecycle notifications from the scheduler to
// any number of subscribers.
//
// The scheduler emits an Event whenever a task is dispatched or reaches a
// terminal state. Subscribers register with an emitter, optionally filtered by
// event type, and receive events synchronously in registration order. The
// package has no dependency on the scheduler so that transports (for example a
// Kafka publisher) can subscribe without import cycles.
package events
