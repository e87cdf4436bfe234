package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"dms-object-service/internal/core/domain"
	"dms-object-service/internal/core/ports/output"
)

const (
	relationContainer = "CONTAINER"
	relationParent    = "PARENT"
)

const entityColumns = `
	e.id, e.code, e.kind, e.data_set_kind, e.space_code, e.project_code, e.owner_id,
	e.description, e.properties, e.freeze, e.deletion_id, e.registrator_id,
	e.registered_at, e.modified_at`

const deletionColumns = `id, reason, owner_user_id, created_at, status, requested_ids, entity_ids, closed_at`

const historyColumns = `
	id, entity_id, relation_type, external_dms_id, external_code, path,
	git_commit_hash, git_repository_id, valid_from, valid_until, author_id`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

type reader struct {
	q querier
}

func (r reader) GetEntity(ctx context.Context, id string) (*domain.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM dms_entity e WHERE e.id = ?`
	e, err := scanEntity(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.EntityNotFound(id)
		}
		return nil, fmt.Errorf("get entity: %w", err)
	}
	if err := r.hydrate(ctx, []*domain.Entity{e}); err != nil {
		return nil, err
	}
	return e, nil
}

func (r reader) ListEntities(ctx context.Context, filter ports.EntityFilter) ([]*domain.Entity, int, error) {
	conditions := []string{"1 = 1"}
	var args []any

	if !filter.IncludeTrashed {
		conditions = append(conditions, "e.deletion_id IS NULL")
	}
	if filter.Kind != "" {
		conditions = append(conditions, "e.kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.SpaceCode != "" {
		conditions = append(conditions, "e.space_code = ?")
		args = append(args, filter.SpaceCode)
	}
	if filter.ProjectCode != "" {
		conditions = append(conditions, "e.project_code = ?")
		args = append(args, filter.ProjectCode)
	}
	if filter.Code != "" {
		conditions = append(conditions, "e.code = ?")
		args = append(args, filter.Code)
	}
	if filter.Search != "" {
		conditions = append(conditions, "e.code LIKE ?")
		args = append(args, "%"+filter.Search+"%")
	}
	whereClause := strings.Join(conditions, " AND ")

	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM dms_entity e WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entities: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM dms_entity e WHERE %s ORDER BY e.registered_at, e.id`, entityColumns, whereClause)
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, filter.Offset)
	}
	entities, err := r.queryEntities(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list entities: %w", err)
	}
	return entities, total, nil
}

func (r reader) ListDependents(ctx context.Context, ids []string) ([]*domain.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	in := placeholders(len(ids))
	query := `
		SELECT ` + entityColumns + `
		FROM dms_entity e
		WHERE e.deletion_id IS NULL
		  AND (e.owner_id IN (` + in + `)
		       OR EXISTS (SELECT 1 FROM dms_entity_link l
		                  WHERE l.entity_id = e.id AND l.relation = ? AND l.target_id IN (` + in + `)))
		ORDER BY e.id`
	args := stringArgs(ids)
	args = append(args, relationContainer)
	args = append(args, stringArgs(ids)...)

	entities, err := r.queryEntities(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list dependents: %w", err)
	}
	return entities, nil
}

func (r reader) ListTrashedOwnedBy(ctx context.Context, ids []string) ([]*domain.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `
		SELECT ` + entityColumns + `
		FROM dms_entity e
		WHERE e.deletion_id IS NOT NULL AND e.owner_id IN (` + placeholders(len(ids)) + `)
		ORDER BY e.id`
	entities, err := r.queryEntities(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("list trashed owned entities: %w", err)
	}
	return entities, nil
}

func (r reader) GetDeletion(ctx context.Context, id uuid.UUID) (*domain.DeletionSet, error) {
	query := `SELECT ` + deletionColumns + ` FROM dms_deletion WHERE id = ?`
	d, err := scanDeletion(r.q.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.DeletionNotFound(id.String())
		}
		return nil, fmt.Errorf("get deletion: %w", err)
	}
	return d, nil
}

func (r reader) ListDeletions(ctx context.Context, filter ports.DeletionFilter) ([]*domain.DeletionSet, int, error) {
	conditions := []string{"1 = 1"}
	var args []any
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.OwnerUserID != "" {
		conditions = append(conditions, "owner_user_id = ?")
		args = append(args, filter.OwnerUserID)
	}
	whereClause := strings.Join(conditions, " AND ")

	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM dms_deletion WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count deletions: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM dms_deletion WHERE %s ORDER BY created_at DESC, id`, deletionColumns, whereClause)
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query deletions: %w", err)
	}
	defer rows.Close()

	var deletions []*domain.DeletionSet
	for rows.Next() {
		d, err := scanDeletion(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan deletion: %w", err)
		}
		deletions = append(deletions, d)
	}
	return deletions, total, rows.Err()
}

func (r reader) ListHistory(ctx context.Context, entityID string) ([]*domain.HistoryEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM dms_history WHERE entity_id = ? ORDER BY valid_from, valid_until, id`
	rows, err := r.q.QueryContext(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	history := []*domain.HistoryEntry{}
	for rows.Next() {
		var h domain.HistoryEntry
		var validFrom, validUntil string
		if err := rows.Scan(
			&h.ID, &h.EntityID, &h.RelationType, &h.ExternalDmsID, &h.ExternalCode, &h.Path,
			&h.GitCommitHash, &h.GitRepositoryID, &validFrom, &validUntil, &h.AuthorID,
		); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if h.ValidFrom, err = parseTime(validFrom); err != nil {
			return nil, err
		}
		if h.ValidUntil, err = parseTime(validUntil); err != nil {
			return nil, err
		}
		history = append(history, &h)
	}
	return history, rows.Err()
}

func (r reader) queryEntities(ctx context.Context, query string, args ...any) ([]*domain.Entity, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var entities []*domain.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		entities = append(entities, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, entities); err != nil {
		return nil, err
	}
	return entities, nil
}

// hydrate loads container, parent and content copy references of entities.
func (r reader) hydrate(ctx context.Context, entities []*domain.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Entity, len(entities))
	ids := make([]string, len(entities))
	for i, e := range entities {
		byID[e.ID] = e
		ids[i] = e.ID
	}
	in := placeholders(len(ids))

	rows, err := r.q.QueryContext(ctx, `
		SELECT entity_id, target_id, relation FROM dms_entity_link
		WHERE entity_id IN (`+in+`) ORDER BY entity_id, relation, ordinal`, stringArgs(ids)...)
	if err != nil {
		return fmt.Errorf("query links: %w", err)
	}
	for rows.Next() {
		var entityID, targetID, relation string
		if err := rows.Scan(&entityID, &targetID, &relation); err != nil {
			rows.Close()
			return fmt.Errorf("scan link: %w", err)
		}
		e := byID[entityID]
		if relation == relationContainer {
			e.ContainerIDs = append(e.ContainerIDs, targetID)
		} else {
			e.ParentIDs = append(e.ParentIDs, targetID)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.q.QueryContext(ctx, `
		SELECT id, entity_id, external_dms_id, external_code, path, git_commit_hash, git_repository_id, attached_at
		FROM dms_content_copy WHERE entity_id IN (`+in+`) ORDER BY attached_at, id`, stringArgs(ids)...)
	if err != nil {
		return fmt.Errorf("query content copies: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c domain.ContentCopy
		var entityID, attachedAt string
		if err := rows.Scan(&c.ID, &entityID, &c.ExternalDmsID, &c.ExternalCode, &c.Path,
			&c.GitCommitHash, &c.GitRepositoryID, &attachedAt); err != nil {
			return fmt.Errorf("scan content copy: %w", err)
		}
		if c.AttachedAt, err = parseTime(attachedAt); err != nil {
			return err
		}
		byID[entityID].ContentCopies = append(byID[entityID].ContentCopies, c)
	}
	return rows.Err()
}

func scanEntity(row scanner) (*domain.Entity, error) {
	var (
		e                        domain.Entity
		ownerID, deletionID      sql.NullString
		properties, freeze       string
		registeredAt, modifiedAt string
	)
	err := row.Scan(
		&e.ID, &e.Code, &e.Kind, &e.DataSetKind, &e.SpaceCode, &e.ProjectCode, &ownerID,
		&e.Description, &properties, &freeze, &deletionID, &e.RegistratorID,
		&registeredAt, &modifiedAt,
	)
	if err != nil {
		return nil, err
	}
	if ownerID.Valid {
		e.OwnerID = &ownerID.String
	}
	if deletionID.Valid {
		id, err := uuid.Parse(deletionID.String)
		if err != nil {
			return nil, fmt.Errorf("parse deletion id of %s: %w", e.ID, err)
		}
		e.DeletionID = &id
	}
	if err := json.Unmarshal([]byte(properties), &e.Properties); err != nil {
		return nil, fmt.Errorf("decode properties of %s: %w", e.ID, err)
	}
	if e.Properties == nil {
		e.Properties = make(map[string]string)
	}
	if err := json.Unmarshal([]byte(freeze), &e.Freeze); err != nil {
		return nil, fmt.Errorf("decode freeze flags of %s: %w", e.ID, err)
	}
	if e.RegisteredAt, err = parseTime(registeredAt); err != nil {
		return nil, err
	}
	if e.ModifiedAt, err = parseTime(modifiedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func scanDeletion(row scanner) (*domain.DeletionSet, error) {
	var (
		d                    domain.DeletionSet
		createdAt            string
		requested, entityIDs string
		closedAt             sql.NullString
	)
	if err := row.Scan(&d.ID, &d.Reason, &d.OwnerUserID, &createdAt, &d.Status, &requested, &entityIDs, &closedAt); err != nil {
		return nil, err
	}
	var err error
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if closedAt.Valid {
		t, err := parseTime(closedAt.String)
		if err != nil {
			return nil, err
		}
		d.ClosedAt = &t
	}
	if err := json.Unmarshal([]byte(requested), &d.RequestedIDs); err != nil {
		return nil, fmt.Errorf("decode requested ids: %w", err)
	}
	if err := json.Unmarshal([]byte(entityIDs), &d.EntityIDs); err != nil {
		return nil, fmt.Errorf("decode entity ids: %w", err)
	}
	return &d, nil
}
