package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockScan is the task type for the low stock sweep.
	TaskLowStockScan = "inventory:low_stock_scan"
	// TaskReceivableAging is the task type for the receivable aging refresh.
	TaskReceivableAging = "ar:aging_refresh"
)

// LowStockScanPayload tunes a single low stock sweep.
type LowStockScanPayload struct {
	// Limit caps the number of levels reported per run. Zero means no cap.
	Limit int `json:"limit"`
}

// NewLowStockScanTask constructs an Asynq task.
func NewLowStockScanTask(payload LowStockScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}

// ReceivableAgingPayload tunes a single receivable aging refresh.
type ReceivableAgingPayload struct {
	// OlderThanDays flags pending entries older than this many days.
	// Zero means the default threshold of 30 days.
	OlderThanDays int `json:"older_than_days"`
}

// NewReceivableAgingTask constructs an Asynq task.
func NewReceivableAgingTask(payload ReceivableAgingPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReceivableAging, data), nil
}
