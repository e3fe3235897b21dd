package capacity

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tourops/backend/internal/domain/capacity"
)

// Severity ranks a detected conflict
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityLow      Severity = "low"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	}
	return 2
}

// classifySeverity grades an inspection: critical when oversold, high when the
// discrepancy exceeds threshold, low otherwise
func classifySeverity(in capacity.Inspection, threshold int) Severity {
	if in.Oversold() {
		return SeverityCritical
	}
	d := in.Discrepancy
	if d < 0 {
		d = -d
	}
	if d > threshold {
		return SeverityHigh
	}
	return SeverityLow
}

// ConflictEntry is a discrepancy between the stored counter and active bookings
type ConflictEntry struct {
	ItemID            uuid.UUID            `json:"item_id"`
	TenantID          uuid.UUID            `json:"tenant_id"`
	ItemName          string               `json:"item_name"`
	ServiceType       capacity.ServiceType `json:"service_type"`
	DetectedAt        time.Time            `json:"detected_at"`
	Total             int                  `json:"total"`
	Available         int                  `json:"available"`
	Occupied          int                  `json:"occupied"`
	ExpectedAvailable int                  `json:"expected_available"`
	Discrepancy       int                  `json:"discrepancy"`
	Severity          Severity             `json:"severity"`
	Resolved          bool                 `json:"resolved"`
	Resolution        string               `json:"resolution,omitempty"`
	ResolvedAt        *time.Time           `json:"resolved_at,omitempty"`
}

func newConflictEntry(item *capacity.InventoryItem, in capacity.Inspection, threshold int, now time.Time) ConflictEntry {
	return ConflictEntry{
		ItemID:            item.ID,
		TenantID:          item.TenantID,
		ItemName:          item.Name,
		ServiceType:       item.ServiceType,
		DetectedAt:        now,
		Total:             in.Total,
		Available:         in.Available,
		Occupied:          in.Occupied,
		ExpectedAvailable: in.ExpectedAvailable,
		Discrepancy:       in.Discrepancy,
		Severity:          classifySeverity(in, threshold),
	}
}

// sortConflicts orders critical first, then by descending absolute discrepancy
func sortConflicts(entries []ConflictEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		ri, rj := entries[i].Severity.rank(), entries[j].Severity.rank()
		if ri != rj {
			return ri < rj
		}
		return abs(entries[i].Discrepancy) > abs(entries[j].Discrepancy)
	})
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// ConflictRegistry is the process-local record of open and recently resolved conflicts.
// It is an observability aid; it is not shared across processes.
type ConflictRegistry struct {
	mu        sync.Mutex
	retention time.Duration
	limit     int
	entries   []ConflictEntry
	resolved  int64
	now       func() time.Time
}

// NewConflictRegistry creates a registry keeping at most limit entries
func NewConflictRegistry(retention time.Duration, limit int) *ConflictRegistry {
	return &ConflictRegistry{
		retention: retention,
		limit:     limit,
		entries:   make([]ConflictEntry, 0, limit),
		now:       time.Now,
	}
}

// Register records an open conflict, replacing any open entry for the same item
func (r *ConflictRegistry) Register(entry ConflictEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.Resolved = false
	for i := range r.entries {
		if r.entries[i].ItemID == entry.ItemID && !r.entries[i].Resolved {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
	r.appendLocked(entry)
}

// Resolve closes open entries for the item and records the resolution in history.
// It increments the resolved counter once per call.
func (r *ConflictRegistry) Resolve(entry ConflictEntry, resolution string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.ItemID == entry.ItemID && !e.Resolved {
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept

	entry.Resolved = true
	entry.Resolution = resolution
	entry.ResolvedAt = &now
	r.appendLocked(entry)
	r.resolved++
}

func (r *ConflictRegistry) appendLocked(entry ConflictEntry) {
	r.entries = append(r.entries, entry)
	if over := len(r.entries) - r.limit; r.limit > 0 && over > 0 {
		r.entries = append(r.entries[:0:0], r.entries[over:]...)
	}
}

// ActiveCount counts unresolved conflicts detected within the retention window
func (r *ConflictRegistry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.retention)
	n := 0
	for _, e := range r.entries {
		if !e.Resolved && e.DetectedAt.After(cutoff) {
			n++
		}
	}
	return n
}

// Open returns unresolved conflicts for a tenant detected within the retention window
func (r *ConflictRegistry) Open(tenantID uuid.UUID) []ConflictEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.retention)
	result := make([]ConflictEntry, 0)
	for _, e := range r.entries {
		if e.TenantID == tenantID && !e.Resolved && e.DetectedAt.After(cutoff) {
			result = append(result, e)
		}
	}
	sortConflicts(result)
	return result
}

// History returns a copy of the bounded history, newest first
func (r *ConflictRegistry) History() []ConflictEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]ConflictEntry, 0, len(r.entries))
	for i := len(r.entries) - 1; i >= 0; i-- {
		result = append(result, r.entries[i])
	}
	return result
}

// ResolvedCount returns how many conflicts have been resolved since process start
func (r *ConflictRegistry) ResolvedCount() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolved
}
