package schedule

import (
	"time"

	"github.com/fyrsmithlabs/memengine/internal/consolidate"
)

// HorizonStatus is the per-horizon slice of Status().
type HorizonStatus struct {
	Horizon     consolidate.Horizon `json:"horizon"`
	Enabled     bool                `json:"enabled"`
	Paused      bool                `json:"paused"`
	Running     bool                `json:"running"`
	LastRunAt   time.Time           `json:"last_run_at,omitempty"`
	LastError   string              `json:"last_error,omitempty"`
	NextRunExpr string              `json:"schedule"`
}

// Status is the result of status().
type Status struct {
	Horizons []HorizonStatus `json:"horizons"`
}
