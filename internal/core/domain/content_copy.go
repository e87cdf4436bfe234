package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContentCopy is a copy of a linked data set's content held by an external DMS.
type ContentCopy struct {
	ID              uuid.UUID `json:"id"`
	ExternalDmsID   string    `json:"external_dms_id"`
	ExternalCode    string    `json:"external_code"`
	Path            string    `json:"path"`
	GitCommitHash   string    `json:"git_commit_hash"`
	GitRepositoryID string    `json:"git_repository_id"`
	AttachedAt      time.Time `json:"attached_at"`
}

// SameContent reports whether two copies reference the same external content,
// ignoring identity and attachment time.
func (c ContentCopy) SameContent(other ContentCopy) bool {
	return c.ExternalDmsID == other.ExternalDmsID &&
		c.ExternalCode == other.ExternalCode &&
		c.Path == other.Path &&
		c.GitCommitHash == other.GitCommitHash &&
		c.GitRepositoryID == other.GitRepositoryID
}

type RelationType string

const RelationContentCopy RelationType = "CONTENT_COPY"

// HistoryEntry is an immutable record of a content copy that was detached or
// superseded. ValidFrom is the copy's attachment time, ValidUntil its detachment.
type HistoryEntry struct {
	ID              uuid.UUID    `json:"id"`
	EntityID        string       `json:"entity_id"`
	RelationType    RelationType `json:"relation_type"`
	ExternalDmsID   string       `json:"external_dms_id"`
	ExternalCode    string       `json:"external_code"`
	Path            string       `json:"path"`
	GitCommitHash   string       `json:"git_commit_hash"`
	GitRepositoryID string       `json:"git_repository_id"`
	ValidFrom       time.Time    `json:"valid_from"`
	ValidUntil      time.Time    `json:"valid_until"`
	AuthorID        string       `json:"author_id"`
}

// NewContentCopyHistory snapshots a detached copy.
func NewContentCopyHistory(entityID string, c ContentCopy, detachedAt time.Time, authorID string) *HistoryEntry {
	return &HistoryEntry{
		ID:              uuid.New(),
		EntityID:        entityID,
		RelationType:    RelationContentCopy,
		ExternalDmsID:   c.ExternalDmsID,
		ExternalCode:    c.ExternalCode,
		Path:            c.Path,
		GitCommitHash:   c.GitCommitHash,
		GitRepositoryID: c.GitRepositoryID,
		ValidFrom:       c.AttachedAt,
		ValidUntil:      detachedAt,
		AuthorID:        authorID,
	}
}

// LinkedDataUpdate is the legacy single-copy mutation of a linked data set.
// Nil fields are left unchanged.
type LinkedDataUpdate struct {
	ExternalDmsID *string
	ExternalCode  *string
}

// Apply overlays the update on a copy and returns the replacement candidate.
func (u LinkedDataUpdate) Apply(c ContentCopy) ContentCopy {
	if u.ExternalDmsID != nil {
		c.ExternalDmsID = *u.ExternalDmsID
	}
	if u.ExternalCode != nil {
		c.ExternalCode = *u.ExternalCode
	}
	return c
}

func (u LinkedDataUpdate) Empty() bool {
	return u.ExternalDmsID == nil && u.ExternalCode == nil
}
