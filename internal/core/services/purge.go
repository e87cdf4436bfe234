package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"dms-object-service/internal/core/domain"
	"dms-object-service/internal/core/ports/output"
)

const manifestPrefix = "deletions/"

// ManifestKey is the archive key of a purged deletion set's manifest.
func ManifestKey(id uuid.UUID) string {
	return manifestPrefix + id.String() + ".json"
}

// Purge permanently removes the members of an active deletion set. When an
// archive is configured the manifest is written before anything is removed;
// a failed write aborts the purge.
func (s *DeletionService) Purge(ctx context.Context, session domain.Session, id uuid.UUID) error {
	assignments, err := s.auth.assignments(ctx, session)
	if err != nil {
		return err
	}

	var purged int
	err = s.store.RunInTransaction(ctx, func(tx ports.StoreTx) error {
		deletion, members, err := s.loadActiveSet(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, e := range members {
			if err := requireCapability(assignments, e, domain.CapabilityPurge); err != nil {
				return err
			}
		}
		if err := checkNoTrashedDependents(ctx, tx, id, deletion.EntityIDs); err != nil {
			return err
		}

		closed := s.now().UTC()
		deletion.Status = domain.DeletionStatusPurged
		deletion.ClosedAt = &closed

		if s.archive != nil {
			manifest := &domain.DeletionManifest{
				Deletion: deletion,
				Entities: members,
				PurgedAt: closed,
				PurgedBy: session.UserID,
			}
			for _, e := range members {
				history, err := tx.ListHistory(ctx, e.ID)
				if err != nil {
					return err
				}
				manifest.History = append(manifest.History, history...)
			}
			body, err := json.MarshalIndent(manifest, "", "  ")
			if err != nil {
				return fmt.Errorf("encode manifest of deletion %s: %w", id, err)
			}
			if err := s.archive.Put(ctx, ManifestKey(id), body, "application/json"); err != nil {
				return fmt.Errorf("archive manifest of deletion %s: %w", id, err)
			}
		}

		if err := tx.PurgeEntities(ctx, deletion.EntityIDs); err != nil {
			return err
		}
		purged = len(members)
		return tx.UpdateDeletion(ctx, deletion)
	})
	if err != nil {
		return err
	}

	s.metrics.DeletionPurged(purged)
	log.WithFields(log.Fields{
		"deletion_id": id,
		"user_id":     session.UserID,
		"entities":    purged,
	}).Info("Deletion set purged")
	return nil
}

// checkNoTrashedDependents rejects a purge while entities trashed by another
// set are owned by a member; reverting that set later would leave them ownerless.
func checkNoTrashedDependents(ctx context.Context, tx ports.StoreTx, id uuid.UUID, memberIDs []string) error {
	owned, err := tx.ListTrashedOwnedBy(ctx, memberIDs)
	if err != nil {
		return err
	}
	for _, e := range owned {
		if e.DeletionID == nil || *e.DeletionID == id {
			continue
		}
		return domain.NewValidationError("cannot purge deletion %s: %s %s is owned by a member and still in deletion %s; purge or revert that deletion first",
			id, e.Kind.Label(), e.Code, *e.DeletionID)
	}
	return nil
}

// Manifest reads back the archived manifest of a purged set.
func (s *DeletionService) Manifest(ctx context.Context, session domain.Session, id uuid.UUID) (*domain.DeletionManifest, error) {
	if err := s.requireArchiveAccess(ctx, session); err != nil {
		return nil, err
	}
	body, err := s.archive.Get(ctx, ManifestKey(id))
	if err != nil {
		return nil, err
	}
	var manifest domain.DeletionManifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest of deletion %s: %w", id, err)
	}
	return &manifest, nil
}

// ListManifests returns the ids of all archived deletion sets.
func (s *DeletionService) ListManifests(ctx context.Context, session domain.Session) ([]uuid.UUID, error) {
	if err := s.requireArchiveAccess(ctx, session); err != nil {
		return nil, err
	}
	keys, err := s.archive.List(ctx, manifestPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(keys))
	for _, key := range keys {
		name := strings.TrimSuffix(strings.TrimPrefix(key, manifestPrefix), ".json")
		id, err := uuid.Parse(name)
		if err != nil {
			log.WithField("key", key).Warn("Skipping unexpected archive object")
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

func (s *DeletionService) requireArchiveAccess(ctx context.Context, session domain.Session) error {
	assignments, err := s.auth.assignments(ctx, session)
	if err != nil {
		return err
	}
	if !domain.Allows(assignments, domain.Scope{}, domain.CapabilityPurge) {
		return &domain.UnauthorizedAccessError{EntityID: manifestPrefix}
	}
	if s.archive == nil {
		return domain.ErrArchiveDisabled
	}
	return nil
}
