// Package store defines the persistence contracts for archived alerts and
// performance reports, plus the error vocabulary shared by implementations.
//
// The monitor keeps its working set in memory; an archive is a best-effort
// copy that outlives process restarts and feeds offline analysis.
package store
