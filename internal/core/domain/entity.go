package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type EntityKind string

const (
	EntityKindSpace      EntityKind = "SPACE"
	EntityKindProject    EntityKind = "PROJECT"
	EntityKindExperiment EntityKind = "EXPERIMENT"
	EntityKindSample     EntityKind = "SAMPLE"
	EntityKindDataSet    EntityKind = "DATA_SET"
)

// Label is the lower-case name used in user-facing messages.
func (k EntityKind) Label() string {
	return strings.ReplaceAll(strings.ToLower(string(k)), "_", " ")
}

func (k EntityKind) Valid() bool {
	switch k {
	case EntityKindSpace, EntityKindProject, EntityKindExperiment, EntityKindSample, EntityKindDataSet:
		return true
	}
	return false
}

type DataSetKind string

const (
	DataSetKindPhysical  DataSetKind = "PHYSICAL"
	DataSetKindLink      DataSetKind = "LINK"
	DataSetKindContainer DataSetKind = "CONTAINER"
)

// allowedOwners lists the owner kinds each entity kind may be registered under.
var allowedOwners = map[EntityKind][]EntityKind{
	EntityKindSpace:      nil,
	EntityKindProject:    {EntityKindSpace},
	EntityKindExperiment: {EntityKindProject},
	EntityKindSample:     {EntityKindSpace, EntityKindProject, EntityKindExperiment},
	EntityKindDataSet:    {EntityKindSample, EntityKindExperiment},
}

// OwnerAllowed reports whether an entity of kind k may be owned by an entity of kind owner.
func OwnerAllowed(k, owner EntityKind) bool {
	for _, allowed := range allowedOwners[k] {
		if allowed == owner {
			return true
		}
	}
	return false
}

// RequiresOwner reports whether entities of kind k must have an owner.
func RequiresOwner(k EntityKind) bool {
	return len(allowedOwners[k]) > 0
}

// Entity is a versioned record held by the entity store. Child and component
// references are derived by reverse lookup and are not stored on the entity.
type Entity struct {
	ID            string            `json:"id"`
	Code          string            `json:"code"`
	Kind          EntityKind        `json:"kind"`
	DataSetKind   DataSetKind       `json:"data_set_kind,omitempty"`
	SpaceCode     string            `json:"space_code"`
	ProjectCode   string            `json:"project_code,omitempty"`
	OwnerID       *string           `json:"owner_id"`
	ContainerIDs  []string          `json:"container_ids"`
	ParentIDs     []string          `json:"parent_ids"`
	Description   string            `json:"description"`
	Properties    map[string]string `json:"properties"`
	Freeze        FreezeFlags       `json:"freeze"`
	DeletionID    *uuid.UUID        `json:"deletion_id"`
	ContentCopies []ContentCopy     `json:"content_copies"`
	RegistratorID string            `json:"registrator_id"`
	RegisteredAt  time.Time         `json:"registered_at"`
	ModifiedAt    time.Time         `json:"modified_at"`
}

// Trashed reports whether the entity currently belongs to a deletion set.
func (e *Entity) Trashed() bool {
	return e.DeletionID != nil
}

// Scope returns the space/project the entity is authorized against.
func (e *Entity) Scope() Scope {
	return Scope{SpaceCode: e.SpaceCode, ProjectCode: e.ProjectCode}
}

// Clone returns a deep copy so callers never share slices or maps with a store.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	out := *e
	if e.OwnerID != nil {
		owner := *e.OwnerID
		out.OwnerID = &owner
	}
	if e.DeletionID != nil {
		id := *e.DeletionID
		out.DeletionID = &id
	}
	out.ContainerIDs = append([]string(nil), e.ContainerIDs...)
	out.ParentIDs = append([]string(nil), e.ParentIDs...)
	out.ContentCopies = append([]ContentCopy(nil), e.ContentCopies...)
	if e.Properties != nil {
		out.Properties = make(map[string]string, len(e.Properties))
		for k, v := range e.Properties {
			out.Properties[k] = v
		}
	}
	return &out
}

// Session identifies the caller of a core operation. Authentication happens
// upstream; the core only resolves the user's role assignments.
type Session struct {
	UserID string
}

// EntityDraft describes an entity to register. ID is generated when empty.
type EntityDraft struct {
	ID           string
	Code         string
	Kind         EntityKind
	DataSetKind  DataSetKind
	OwnerID      string
	ContainerIDs []string
	ParentIDs    []string
	Description  string
	Properties   map[string]string
}

// EntityUpdate changes the description and merges properties; an empty
// property value removes the key.
type EntityUpdate struct {
	Description *string
	Properties  map[string]string
}

func (u EntityUpdate) Empty() bool {
	return u.Description == nil && len(u.Properties) == 0
}
