// internal/monitor/models.go
package monitor

import (
	"time"

	"price-peak-monitor/internal/core/domain/snapshot"
)

// CycleResult результат одного цикла
type CycleResult struct {
	ID         string
	Outcome    Outcome
	Err        error
	Snapshot   *snapshot.PriceSnapshot // nil, если до записи не дошли
	NewMaximum bool
	Elapsed    time.Duration
}

// Status снимок состояния монитора для HTTP статуса
type Status struct {
	RunID       string                   `json:"run_id"`
	TargetURL   string                   `json:"target_url"`
	State       State                    `json:"state"`
	StartedAt   time.Time                `json:"started_at"`
	Cycles      int64                    `json:"cycles"`
	LastCycleID string                   `json:"last_cycle_id,omitempty"`
	LastOutcome Outcome                  `json:"last_outcome,omitempty"`
	LastError   string                   `json:"last_error,omitempty"`
	LastCycleAt time.Time                `json:"last_cycle_at,omitempty"`
	LastPrice   int64                    `json:"last_price,omitempty"`
	Maximum     *snapshot.RunningMaximum `json:"maximum,omitempty"`
}
