package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"dms-object-service/internal/core/domain"
)

type transaction struct {
	reader
}

// GetEntityForUpdate needs no row lock: the single connection already
// serializes transactions.
func (tx *transaction) GetEntityForUpdate(ctx context.Context, id string) (*domain.Entity, error) {
	return tx.GetEntity(ctx, id)
}

func (tx *transaction) CreateEntity(ctx context.Context, e *domain.Entity) error {
	properties, err := json.Marshal(e.Properties)
	if err != nil {
		return fmt.Errorf("encode properties: %w", err)
	}
	freeze, err := json.Marshal(e.Freeze)
	if err != nil {
		return fmt.Errorf("encode freeze flags: %w", err)
	}
	var deletionID any
	if e.DeletionID != nil {
		deletionID = e.DeletionID.String()
	}

	_, err = tx.q.ExecContext(ctx, `
		INSERT INTO dms_entity (id, code, kind, data_set_kind, space_code, project_code, owner_id,
		                        description, properties, freeze, deletion_id, registrator_id,
		                        registered_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Code, string(e.Kind), string(e.DataSetKind), e.SpaceCode, e.ProjectCode, e.OwnerID,
		e.Description, string(properties), string(freeze), deletionID, e.RegistratorID,
		formatTime(e.RegisteredAt), formatTime(e.ModifiedAt),
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
		_, err := tx.q.ExecContext(ctx,
			`INSERT INTO dms_entity_link (entity_id, target_id, relation, ordinal) VALUES (?, ?, ?, ?)`,
			id, target, relation, i)
		if err != nil {
			return fmt.Errorf("insert %s link: %w", strings.ToLower(relation), err)
		}
	}
	return nil
}

func (tx *transaction) insertCopies(ctx context.Context, id string, copies []domain.ContentCopy) error {
	for _, c := range copies {
		_, err := tx.q.ExecContext(ctx, `
			INSERT INTO dms_content_copy (id, entity_id, external_dms_id, external_code, path,
			                              git_commit_hash, git_repository_id, attached_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID.String(), id, c.ExternalDmsID, c.ExternalCode, c.Path, c.GitCommitHash, c.GitRepositoryID,
			formatTime(c.AttachedAt))
		if err != nil {
			return fmt.Errorf("insert content copy: %w", err)
		}
	}
	return nil
}

func (tx *transaction) UpdateEntity(ctx context.Context, e *domain.Entity) error {
	properties, err := json.Marshal(e.Properties)
	if err != nil {
		return fmt.Errorf("encode properties: %w", err)
	}
	freeze, err := json.Marshal(e.Freeze)
	if err != nil {
		return fmt.Errorf("encode freeze flags: %w", err)
	}

	result, err := tx.q.ExecContext(ctx,
		`UPDATE dms_entity SET description = ?, properties = ?, freeze = ?, modified_at = ? WHERE id = ?`,
		e.Description, string(properties), string(freeze), formatTime(e.ModifiedAt), e.ID)
	if err != nil {
		return fmt.Errorf("update entity: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.EntityNotFound(e.ID)
	}

	if _, err := tx.q.ExecContext(ctx, `DELETE FROM dms_content_copy WHERE entity_id = ?`, e.ID); err != nil {
		return fmt.Errorf("clear content copies: %w", err)
	}
	return tx.insertCopies(ctx, e.ID, e.ContentCopies)
}

func (tx *transaction) SetDeletionID(ctx context.Context, ids []string, deletionID *uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	var value any
	if deletionID != nil {
		value = deletionID.String()
	}
	args := append([]any{value}, stringArgs(ids)...)
	result, err := tx.q.ExecContext(ctx,
		`UPDATE dms_entity SET deletion_id = ? WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return fmt.Errorf("set deletion id: %w", err)
	}
	if n, _ := result.RowsAffected(); int(n) != len(ids) {
		return fmt.Errorf("set deletion id: %d of %d entities updated", n, len(ids))
	}
	return nil
}

// PurgeEntities relies on the schema's cascades for links, copies and history,
// and on ON DELETE SET NULL for owners outside the purged set.
func (tx *transaction) PurgeEntities(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	result, err := tx.q.ExecContext(ctx,
		`DELETE FROM dms_entity WHERE id IN (`+placeholders(len(ids))+`)`, stringArgs(ids)...)
	if err != nil {
		return fmt.Errorf("purge entities: %w", err)
	}
	if n, _ := result.RowsAffected(); int(n) != len(ids) {
		return fmt.Errorf("purge entities: %d of %d entities removed", n, len(ids))
	}
	return nil
}

func (tx *transaction) CreateDeletion(ctx context.Context, d *domain.DeletionSet) error {
	requested, err := json.Marshal(d.RequestedIDs)
	if err != nil {
		return fmt.Errorf("encode requested ids: %w", err)
	}
	entityIDs, err := json.Marshal(d.EntityIDs)
	if err != nil {
		return fmt.Errorf("encode entity ids: %w", err)
	}
	_, err = tx.q.ExecContext(ctx,
		`INSERT INTO dms_deletion (`+deletionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID.String(), d.Reason, d.OwnerUserID, formatTime(d.CreatedAt), string(d.Status),
		string(requested), string(entityIDs), nullableTime(d.ClosedAt))
	if err != nil {
		return fmt.Errorf("insert deletion: %w", err)
	}
	return nil
}

func (tx *transaction) UpdateDeletion(ctx context.Context, d *domain.DeletionSet) error {
	result, err := tx.q.ExecContext(ctx, `UPDATE dms_deletion SET status = ?, closed_at = ? WHERE id = ?`,
		string(d.Status), nullableTime(d.ClosedAt), d.ID.String())
	if err != nil {
		return fmt.Errorf("update deletion: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.DeletionNotFound(d.ID.String())
	}
	return nil
}

func (tx *transaction) AppendHistory(ctx context.Context, h *domain.HistoryEntry) error {
	_, err := tx.q.ExecContext(ctx,
		`INSERT INTO dms_history (`+historyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID.String(), h.EntityID, string(h.RelationType), h.ExternalDmsID, h.ExternalCode, h.Path,
		h.GitCommitHash, h.GitRepositoryID, formatTime(h.ValidFrom), formatTime(h.ValidUntil), h.AuthorID)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// isUniqueViolation matches SQLite's UNIQUE and PRIMARY KEY constraint failures.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
