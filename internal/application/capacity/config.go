package capacity

import (
	"time"

	"github.com/tourops/backend/internal/domain/capacity"
)

// Config tunes the capacity engine
type Config struct {
	// ConflictRetention bounds how long a conflict counts as active
	ConflictRetention time.Duration
	// ConflictHistoryLimit caps the in-memory conflict history
	ConflictHistoryLimit int
	// SeverityThreshold is the absolute discrepancy above which a conflict is high severity
	SeverityThreshold int
	// OperationTimeout bounds a single transactional capacity operation
	OperationTimeout time.Duration
	// ItemTimeout bounds the reconciliation of one item inside a tenant-wide sync
	ItemTimeout time.Duration
	Retry       RetryPolicy
	Policy      capacity.ActivePolicy
}

// DefaultConfig returns the engine defaults
func DefaultConfig() Config {
	return Config{
		ConflictRetention:    time.Hour,
		ConflictHistoryLimit: 100,
		SeverityThreshold:    5,
		OperationTimeout:     5 * time.Second,
		ItemTimeout:          10 * time.Second,
		Retry:                DefaultRetryPolicy(),
		Policy:               capacity.DefaultActivePolicy(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ConflictRetention <= 0 {
		c.ConflictRetention = d.ConflictRetention
	}
	if c.ConflictHistoryLimit <= 0 {
		c.ConflictHistoryLimit = d.ConflictHistoryLimit
	}
	if c.SeverityThreshold <= 0 {
		c.SeverityThreshold = d.SeverityThreshold
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = d.OperationTimeout
	}
	if c.ItemTimeout <= 0 {
		c.ItemTimeout = d.ItemTimeout
	}
	if c.Retry.InitialInterval <= 0 {
		c.Retry.InitialInterval = d.Retry.InitialInterval
	}
	return c
}
