package dto

import (
	"github.com/google/uuid"

	"dms-object-service/internal/core/domain"
)

type DeleteRequest struct {
	IDs    []string `json:"ids"`
	Reason string   `json:"reason"`
}

// DeleteResponse carries a null deletion id when nothing was requested.
type DeleteResponse struct {
	DeletionID *uuid.UUID `json:"deletion_id"`
}

type DeletionResponse struct {
	ID           uuid.UUID `json:"id"`
	Reason       string    `json:"reason"`
	OwnerUserID  string    `json:"owner_user_id"`
	Status       string    `json:"status"`
	RequestedIDs []string  `json:"requested_ids"`
	EntityIDs    []string  `json:"entity_ids"`
	CreatedAt    string    `json:"created_at"`
	ClosedAt     string    `json:"closed_at,omitempty"`
}

type ListDeletionsResponse struct {
	Items      []DeletionResponse `json:"items"`
	Total      int                `json:"total"`
	PageSize   int                `json:"page_size"`
	NextOffset int                `json:"next_offset"`
}

func ToDeletionResponse(d *domain.DeletionSet) DeletionResponse {
	resp := DeletionResponse{
		ID:           d.ID,
		Reason:       d.Reason,
		OwnerUserID:  d.OwnerUserID,
		Status:       string(d.Status),
		RequestedIDs: nonNil(d.RequestedIDs),
		EntityIDs:    nonNil(d.EntityIDs),
		CreatedAt:    formatTime(d.CreatedAt),
	}
	if d.ClosedAt != nil {
		resp.ClosedAt = formatTime(*d.ClosedAt)
	}
	return resp
}

type ListManifestsResponse struct {
	Items []uuid.UUID `json:"items"`
}
