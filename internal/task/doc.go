// Package task schedules AI inference requests against a bounded pool of
// provider calls.
//
// Callers submit a request and receive a Handle. Pending tasks wait in a
// priority queue (critical before high before medium before low, FIFO within a
// tier). A dispatch loop admits them while fewer than MaxConcurrent calls are
// in flight, invokes the Executor, and folds each outcome into cumulative
// Statistics. Health is recomputed on a timer from provider status and those
// statistics. Only pending tasks can be cancelled; nothing is preempted.
package task
