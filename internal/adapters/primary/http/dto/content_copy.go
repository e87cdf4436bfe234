package dto

import (
	"github.com/google/uuid"

	"dms-object-service/internal/core/domain"
)

type AddContentCopyRequest struct {
	ExternalDmsID   string `json:"external_dms_id" binding:"required"`
	ExternalCode    string `json:"external_code"`
	Path            string `json:"path"`
	GitCommitHash   string `json:"git_commit_hash"`
	GitRepositoryID string `json:"git_repository_id"`
}

func (r AddContentCopyRequest) ToContentCopy() domain.ContentCopy {
	return domain.ContentCopy{
		ExternalDmsID:   r.ExternalDmsID,
		ExternalCode:    r.ExternalCode,
		Path:            r.Path,
		GitCommitHash:   r.GitCommitHash,
		GitRepositoryID: r.GitRepositoryID,
	}
}

// UpdateLinkedDataRequest is the legacy single-copy update; absent fields stay unchanged.
type UpdateLinkedDataRequest struct {
	ExternalDmsID *string `json:"external_dms_id"`
	ExternalCode  *string `json:"external_code"`
}

type ContentCopyResponse struct {
	ID              uuid.UUID `json:"id"`
	ExternalDmsID   string    `json:"external_dms_id"`
	ExternalCode    string    `json:"external_code,omitempty"`
	Path            string    `json:"path,omitempty"`
	GitCommitHash   string    `json:"git_commit_hash,omitempty"`
	GitRepositoryID string    `json:"git_repository_id,omitempty"`
	AttachedAt      string    `json:"attached_at"`
}

func ToContentCopyResponse(c domain.ContentCopy) ContentCopyResponse {
	return ContentCopyResponse{
		ID:              c.ID,
		ExternalDmsID:   c.ExternalDmsID,
		ExternalCode:    c.ExternalCode,
		Path:            c.Path,
		GitCommitHash:   c.GitCommitHash,
		GitRepositoryID: c.GitRepositoryID,
		AttachedAt:      formatTime(c.AttachedAt),
	}
}

type HistoryEntryResponse struct {
	ID              uuid.UUID `json:"id"`
	EntityID        string    `json:"entity_id"`
	RelationType    string    `json:"relation_type"`
	ExternalDmsID   string    `json:"external_dms_id"`
	ExternalCode    string    `json:"external_code,omitempty"`
	Path            string    `json:"path,omitempty"`
	GitCommitHash   string    `json:"git_commit_hash,omitempty"`
	GitRepositoryID string    `json:"git_repository_id,omitempty"`
	ValidFrom       string    `json:"valid_from"`
	ValidUntil      string    `json:"valid_until"`
	AuthorID        string    `json:"author_id"`
}

func ToHistoryEntryResponse(h *domain.HistoryEntry) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:              h.ID,
		EntityID:        h.EntityID,
		RelationType:    string(h.RelationType),
		ExternalDmsID:   h.ExternalDmsID,
		ExternalCode:    h.ExternalCode,
		Path:            h.Path,
		GitCommitHash:   h.GitCommitHash,
		GitRepositoryID: h.GitRepositoryID,
		ValidFrom:       formatTime(h.ValidFrom),
		ValidUntil:      formatTime(h.ValidUntil),
		AuthorID:        h.AuthorID,
	}
}

type HistoryResponse struct {
	Items []HistoryEntryResponse `json:"items"`
}
