package domain

import "time"

// Sync outcomes recorded on a SyncResult.
const (
	SyncStatusUnchanged = "unchanged"
	SyncStatusReplaced  = "replaced"
	SyncStatusFailed    = "failed"
)

// SyncResult describes one reconciliation cycle.
type SyncResult struct {
	ID          string    `json:"id" db:"id"`
	Status      string    `json:"status" db:"status"`
	Fetched     int       `json:"fetched" db:"fetched"`
	Skipped     int       `json:"skipped" db:"skipped"`
	Duplicates  int       `json:"duplicates" db:"duplicates"`
	Devices     int       `json:"devices" db:"devices"`
	Notified    bool      `json:"notified" db:"notified"`
	NotifyError string    `json:"notify_error,omitempty" db:"notify_error"`
	Error       string    `json:"error,omitempty" db:"error_message"`
	StartedAt   time.Time `json:"started_at" db:"started_at"`
	FinishedAt  time.Time `json:"finished_at" db:"finished_at"`
}

// Duration is the wall time the cycle took.
func (r *SyncResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// SyncStatus summarizes the health and freshness of the reconciliation loop.
type SyncStatus struct {
	Source              string      `json:"source"`
	ServeMode           string      `json:"serve_mode"`
	Running             bool        `json:"running"`
	DeviceCount         int         `json:"device_count"`
	LastAttempt         *time.Time  `json:"last_attempt,omitempty"`
	LastSuccess         *time.Time  `json:"last_success,omitempty"`
	LastChange          *time.Time  `json:"last_change,omitempty"`
	LastError           string      `json:"last_error,omitempty"`
	LastResult          *SyncResult `json:"last_result,omitempty"`
	ConsecutiveFailures int         `json:"consecutive_failures"`
	TotalSyncs          int         `json:"total_syncs"`
	TotalFailures       int         `json:"total_failures"`
	TotalChanges        int         `json:"total_changes"`
	Healthy             bool        `json:"healthy"`
}
