// Package jobs defines the background task types and the asynq worker
// that runs them.
package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskReconcileBalances recomputes cached account balances from
	// journal aggregates and repairs drift.
	TaskReconcileBalances = "ledger:reconcile_balances"

	// TaskReportsCacheWarmup pre-builds the dashboard reports after a
	// cache bust.
	TaskReportsCacheWarmup = "reports:cache_warmup"
)

// NewReconcileBalancesTask constructs the reconciliation task.
func NewReconcileBalancesTask() *asynq.Task {
	return asynq.NewTask(TaskReconcileBalances, nil)
}

// NewCacheWarmupTask constructs the report warmup task.
func NewCacheWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskReportsCacheWarmup, nil)
}
