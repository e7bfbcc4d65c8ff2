// Package stats keeps the process-lifetime detection totals shown on the dashboard.
package stats

import (
	"sync"

	"github.com/noah-isme/truthguard-go-api/internal/models"
)

// Observer is notified with a fresh snapshot after every Record call. Observers run
// while the aggregate is locked, so they see snapshots in order and must not call
// back into the Aggregate.
type Observer func(models.Stats)

// Aggregate counts scoring outcomes. Record calls are serialized by a mutex so
// concurrent requests never lose an update. Counters are never reset or persisted.
type Aggregate struct {
	mu           sync.Mutex
	total        int64
	ai           int64
	human        int64
	accuracyRate string
	observers    []Observer
}

// New creates an empty aggregate. accuracyRate is a display string only.
func New(accuracyRate string, observers ...Observer) *Aggregate {
	if accuracyRate == "" {
		accuracyRate = "92%"
	}
	return &Aggregate{accuracyRate: accuracyRate, observers: observers}
}

// Record counts one completed verdict.
func (a *Aggregate) Record(verdict models.Verdict) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	if verdict.IsAIGenerated {
		a.ai++
	} else {
		a.human++
	}

	snapshot := a.snapshotLocked()
	for _, observe := range a.observers {
		observe(snapshot)
	}
}

// Snapshot returns a copy of the current totals.
func (a *Aggregate) Snapshot() models.Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Aggregate) snapshotLocked() models.Stats {
	return models.Stats{
		TotalDetections: a.total,
		AIDetected:      a.ai,
		HumanDetected:   a.human,
		AccuracyRate:    a.accuracyRate,
	}
}
