// Package gemini executes AI tasks against Google's Gemini API.
//
// Executor implements task.Executor. It sends the task prompt as a single
// user turn, maps the per-task temperature and token limit onto the request,
// joins the text parts of the first candidate, and prices the call from the
// usage metadata using a per-model price table.
package gemini
