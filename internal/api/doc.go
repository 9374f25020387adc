// Package api exposes the AI task scheduler, the monitor and the provider
// router over HTTP. Handlers translate JSON requests into scheduler and
// monitor calls and map their errors onto status codes without leaking
// internal detail.
package api
