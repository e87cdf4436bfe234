package ports

import "dms-object-service/internal/core/domain"

// LifecycleMetrics receives lifecycle events from the core services.
type LifecycleMetrics interface {
	DeletionCreated(entities int)
	DeletionReverted(entities int)
	DeletionPurged(entities int)
	HistoryRecorded(relation domain.RelationType)
	MutationRejected(op domain.Operation)
}

// NopMetrics discards all events.
type NopMetrics struct{}

func (NopMetrics) DeletionCreated(int)                 {}
func (NopMetrics) DeletionReverted(int)                {}
func (NopMetrics) DeletionPurged(int)                  {}
func (NopMetrics) HistoryRecorded(domain.RelationType) {}
func (NopMetrics) MutationRejected(domain.Operation)   {}
