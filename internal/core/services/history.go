package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dms-object-service/internal/core/domain"
	"dms-object-service/internal/core/ports/output"
)

// recordRemoval appends the history entry of a copy detached from e at the
// given time. ValidUntil never precedes ValidFrom.
func recordRemoval(ctx context.Context, tx ports.StoreTx, e *domain.Entity, c domain.ContentCopy, at time.Time, authorID string) (*domain.HistoryEntry, error) {
	if at.Before(c.AttachedAt) {
		at = c.AttachedAt
	}
	entry := domain.NewContentCopyHistory(e.ID, c, at, authorID)
	if err := tx.AppendHistory(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func findCopy(copies []domain.ContentCopy, id uuid.UUID) int {
	for i, c := range copies {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func findCopyForDms(copies []domain.ContentCopy, dmsID string) int {
	for i, c := range copies {
		if c.ExternalDmsID == dmsID {
			return i
		}
	}
	return -1
}
