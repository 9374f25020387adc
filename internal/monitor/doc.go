// Package monitor samples scheduler statistics on a fixed cadence, keeps a
// bounded performance history, raises threshold alerts and builds reports and
// dashboard snapshots from that history.
//
// Collection and alert evaluation run as two independent loops started by
// StartMonitoring. Alerts are not debounced: a threshold that stays breached
// produces one alert per evaluation tick.
package monitor
