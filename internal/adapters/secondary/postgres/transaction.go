package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"dms-object-service/internal/core/domain"
)

type transaction struct {
	reader
}

func (tx *transaction) GetEntityForUpdate(ctx context.Context, id string) (*domain.Entity, error) {
	return tx.getEntity(ctx, id, "FOR UPDATE")
}

func (tx *transaction) CreateEntity(ctx context.Context, e *domain.Entity) error {
	query := `
		INSERT INTO dms_entity (id, code, kind, data_set_kind, space_code, project_code, owner_id,
		                        description, properties, freeze, deletion_id, registrator_id,
		                        registered_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := tx.q.Exec(ctx, query,
		e.ID, e.Code, string(e.Kind), string(e.DataSetKind), e.SpaceCode, e.ProjectCode, e.OwnerID,
		e.Description, e.Properties, e.Freeze, e.DeletionID, e.RegistratorID,
		e.RegisteredAt, e.ModifiedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEntityCodeConflict
		}
		return fmt.Errorf("insert entity: %w", err)
	}

	if err := tx.insertLinks(ctx, e.ID, relationContainer, e.ContainerIDs); err != nil {
		return err
	}
	if err := tx.insertLinks(ctx, e.ID, relationParent, e.ParentIDs); err != nil {
		return err
	}
	return tx.insertCopies(ctx, e.ID, e.ContentCopies)
}

func (tx *transaction) insertLinks(ctx context.Context, id, relation string, targets []string) error {
	for i, target := range targets {
		_, err := tx.q.Exec(ctx,
			`INSERT INTO dms_entity_link (entity_id, target_id, relation, ordinal) VALUES ($1, $2, $3, $4)`,
			id, target, relation, i)
		if err != nil {
			return fmt.Errorf("insert %s link: %w", relation, err)
		}
	}
	return nil
}

func (tx *transaction) insertCopies(ctx context.Context, id string, copies []domain.ContentCopy) error {
	for _, c := range copies {
		_, err := tx.q.Exec(ctx, `
			INSERT INTO dms_content_copy (id, entity_id, external_dms_id, external_code, path,
			                              git_commit_hash, git_repository_id, attached_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, id, c.ExternalDmsID, c.ExternalCode, c.Path, c.GitCommitHash, c.GitRepositoryID, c.AttachedAt)
		if err != nil {
			return fmt.Errorf("insert content copy: %w", err)
		}
	}
	return nil
}

func (tx *transaction) UpdateEntity(ctx context.Context, e *domain.Entity) error {
	query := `
		UPDATE dms_entity
		SET description = $1, properties = $2, freeze = $3, modified_at = $4
		WHERE id = $5
	`
	result, err := tx.q.Exec(ctx, query, e.Description, e.Properties, e.Freeze, e.ModifiedAt, e.ID)
	if err != nil {
		return fmt.Errorf("update entity: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.EntityNotFound(e.ID)
	}

	if _, err := tx.q.Exec(ctx, `DELETE FROM dms_content_copy WHERE entity_id = $1`, e.ID); err != nil {
		return fmt.Errorf("clear content copies: %w", err)
	}
	return tx.insertCopies(ctx, e.ID, e.ContentCopies)
}

func (tx *transaction) SetDeletionID(ctx context.Context, ids []string, deletionID *uuid.UUID) error {
	result, err := tx.q.Exec(ctx, `UPDATE dms_entity SET deletion_id = $1 WHERE id = ANY($2)`, deletionID, ids)
	if err != nil {
		return fmt.Errorf("set deletion id: %w", err)
	}
	if int(result.RowsAffected()) != len(ids) {
		return fmt.Errorf("set deletion id: %d of %d entities updated", result.RowsAffected(), len(ids))
	}
	return nil
}

// PurgeEntities relies on the schema's cascades for links, copies and history,
// and on ON DELETE SET NULL for owners outside the purged set.
func (tx *transaction) PurgeEntities(ctx context.Context, ids []string) error {
	result, err := tx.q.Exec(ctx, `DELETE FROM dms_entity WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("purge entities: %w", err)
	}
	if int(result.RowsAffected()) != len(ids) {
		return fmt.Errorf("purge entities: %d of %d entities removed", result.RowsAffected(), len(ids))
	}
	return nil
}

func (tx *transaction) CreateDeletion(ctx context.Context, d *domain.DeletionSet) error {
	query := `INSERT INTO dms_deletion (` + deletionColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := tx.q.Exec(ctx, query,
		d.ID, d.Reason, d.OwnerUserID, d.CreatedAt, string(d.Status), d.RequestedIDs, d.EntityIDs, d.ClosedAt)
	if err != nil {
		return fmt.Errorf("insert deletion: %w", err)
	}
	return nil
}

func (tx *transaction) UpdateDeletion(ctx context.Context, d *domain.DeletionSet) error {
	result, err := tx.q.Exec(ctx, `UPDATE dms_deletion SET status = $1, closed_at = $2 WHERE id = $3`,
		string(d.Status), d.ClosedAt, d.ID)
	if err != nil {
		return fmt.Errorf("update deletion: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.DeletionNotFound(d.ID.String())
	}
	return nil
}

func (tx *transaction) AppendHistory(ctx context.Context, h *domain.HistoryEntry) error {
	query := `INSERT INTO dms_history (` + historyColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := tx.q.Exec(ctx, query,
		h.ID, h.EntityID, string(h.RelationType), h.ExternalDmsID, h.ExternalCode, h.Path,
		h.GitCommitHash, h.GitRepositoryID, h.ValidFrom, h.ValidUntil, h.AuthorID)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}
