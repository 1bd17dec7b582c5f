// Package retention folds the previous month's detail events into one
// MonthlySummary and drops the detail from local history.
//
// The compactor is guarded by Retention.LastProcessedMonth: it does real
// work at most once per month transition and is cheap to call on every
// state mutation otherwise.
package retention
