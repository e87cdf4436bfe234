package domain

import (
	"time"

	"github.com/google/uuid"
)

type DeletionStatus string

const (
	DeletionStatusActive   DeletionStatus = "ACTIVE"
	DeletionStatusReverted DeletionStatus = "REVERTED"
	DeletionStatusPurged   DeletionStatus = "PURGED"
)

// DeletionSet groups everything removed by one delete call. It is the only
// unit that can be reverted or purged, and either transition is terminal.
type DeletionSet struct {
	ID           uuid.UUID      `json:"id"`
	Reason       string         `json:"reason"`
	OwnerUserID  string         `json:"owner_user_id"`
	CreatedAt    time.Time      `json:"created_at"`
	Status       DeletionStatus `json:"status"`
	RequestedIDs []string       `json:"requested_ids"`
	EntityIDs    []string       `json:"entity_ids"`
	ClosedAt     *time.Time     `json:"closed_at"`
}

func (d *DeletionSet) Active() bool {
	return d.Status == DeletionStatusActive
}

// Clone returns a deep copy.
func (d *DeletionSet) Clone() *DeletionSet {
	if d == nil {
		return nil
	}
	out := *d
	out.RequestedIDs = append([]string(nil), d.RequestedIDs...)
	out.EntityIDs = append([]string(nil), d.EntityIDs...)
	if d.ClosedAt != nil {
		t := *d.ClosedAt
		out.ClosedAt = &t
	}
	return &out
}

// DeleteOptions carries the caller-supplied parameters of a deletion.
type DeleteOptions struct {
	Reason string
}

// DeletionManifest is the archived record of a purged deletion set.
type DeletionManifest struct {
	Deletion *DeletionSet    `json:"deletion"`
	Entities []*Entity       `json:"entities"`
	History  []*HistoryEntry `json:"history"`
	PurgedAt time.Time       `json:"purged_at"`
	PurgedBy string          `json:"purged_by"`
}
