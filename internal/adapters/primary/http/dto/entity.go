package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"dms-object-service/internal/core/domain"
)

type CreateEntityRequest struct {
	ID           string            `json:"id"`
	Code         string            `json:"code" binding:"required,max=100"`
	Kind         string            `json:"kind" binding:"required"`
	DataSetKind  string            `json:"data_set_kind"`
	OwnerID      string            `json:"owner_id"`
	ContainerIDs []string          `json:"container_ids"`
	ParentIDs    []string          `json:"parent_ids"`
	Description  string            `json:"description"`
	Properties   map[string]string `json:"properties"`
}

func (r CreateEntityRequest) ToDraft() domain.EntityDraft {
	return domain.EntityDraft{
		ID:           r.ID,
		Code:         r.Code,
		Kind:         domain.EntityKind(strings.ToUpper(r.Kind)),
		DataSetKind:  domain.DataSetKind(strings.ToUpper(r.DataSetKind)),
		OwnerID:      r.OwnerID,
		ContainerIDs: r.ContainerIDs,
		ParentIDs:    r.ParentIDs,
		Description:  r.Description,
		Properties:   r.Properties,
	}
}

type UpdateEntityRequest struct {
	Description *string           `json:"description"`
	Properties  map[string]string `json:"properties"`
}

type FreezeRequest struct {
	Frozen               bool `json:"frozen"`
	FrozenForProjects    bool `json:"frozen_for_projects"`
	FrozenForExperiments bool `json:"frozen_for_experiments"`
	FrozenForSamples     bool `json:"frozen_for_samples"`
	FrozenForDataSets    bool `json:"frozen_for_data_sets"`
	FrozenForComponents  bool `json:"frozen_for_components"`
}

func (r FreezeRequest) ToFlags() domain.FreezeFlags {
	return domain.FreezeFlags{
		Frozen:               r.Frozen,
		FrozenForProjects:    r.FrozenForProjects,
		FrozenForExperiments: r.FrozenForExperiments,
		FrozenForSamples:     r.FrozenForSamples,
		FrozenForDataSets:    r.FrozenForDataSets,
		FrozenForComponents:  r.FrozenForComponents,
	}
}

type EntityResponse struct {
	ID            string                `json:"id"`
	Code          string                `json:"code"`
	Kind          string                `json:"kind"`
	DataSetKind   string                `json:"data_set_kind,omitempty"`
	SpaceCode     string                `json:"space_code"`
	ProjectCode   string                `json:"project_code,omitempty"`
	OwnerID       *string               `json:"owner_id"`
	ContainerIDs  []string              `json:"container_ids"`
	ParentIDs     []string              `json:"parent_ids"`
	Description   string                `json:"description"`
	Properties    map[string]string     `json:"properties"`
	Freeze        domain.FreezeFlags    `json:"freeze"`
	DeletionID    *uuid.UUID            `json:"deletion_id,omitempty"`
	ContentCopies []ContentCopyResponse `json:"content_copies,omitempty"`
	RegistratorID string                `json:"registrator_id"`
	RegisteredAt  string                `json:"registered_at"`
	ModifiedAt    string                `json:"modified_at"`
}

type ListEntitiesResponse struct {
	Items      []EntityResponse `json:"items"`
	Total      int              `json:"total"`
	PageSize   int              `json:"page_size"`
	NextOffset int              `json:"next_offset"`
}

func ToEntityResponse(e *domain.Entity) EntityResponse {
	resp := EntityResponse{
		ID:            e.ID,
		Code:          e.Code,
		Kind:          string(e.Kind),
		DataSetKind:   string(e.DataSetKind),
		SpaceCode:     e.SpaceCode,
		ProjectCode:   e.ProjectCode,
		OwnerID:       e.OwnerID,
		ContainerIDs:  nonNil(e.ContainerIDs),
		ParentIDs:     nonNil(e.ParentIDs),
		Description:   e.Description,
		Properties:    e.Properties,
		Freeze:        e.Freeze,
		DeletionID:    e.DeletionID,
		RegistratorID: e.RegistratorID,
		RegisteredAt:  formatTime(e.RegisteredAt),
		ModifiedAt:    formatTime(e.ModifiedAt),
	}
	if resp.Properties == nil {
		resp.Properties = map[string]string{}
	}
	for _, c := range e.ContentCopies {
		resp.ContentCopies = append(resp.ContentCopies, ToContentCopyResponse(c))
	}
	return resp
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
