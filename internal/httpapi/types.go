package httpapi

import "dealradar-engine/internal/importer"

// RunStatus is the last-known import state shown by /import/status.
type RunStatus struct {
	LastRunAt   string              `json:"last_run_at"`
	LastOkAt    string              `json:"last_ok_at"`
	LastError   string              `json:"last_error"`
	LastCreated int                 `json:"last_created"`
	LastUpdated int                 `json:"last_updated"`
	Running     bool                `json:"running"`
	LastStats   []importer.RunStats `json:"last_stats,omitempty"`
}
