package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

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

type reader struct {
	q querier
}

func (r reader) GetEntity(ctx context.Context, id string) (*domain.Entity, error) {
	return r.getEntity(ctx, id, "")
}

func (r reader) getEntity(ctx context.Context, id, lock string) (*domain.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM dms_entity e WHERE e.id = $1 ` + lock
	e, err := scanEntity(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err, domain.EntityNotFound(id))
	}
	if err := r.hydrate(ctx, []*domain.Entity{e}); err != nil {
		return nil, err
	}
	return e, nil
}

func (r reader) ListEntities(ctx context.Context, filter ports.EntityFilter) ([]*domain.Entity, int, error) {
	var conditions []string
	var args []interface{}
	argIdx := 1

	if !filter.IncludeTrashed {
		conditions = append(conditions, "e.deletion_id IS NULL")
	}
	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("e.kind = $%d", argIdx))
		args = append(args, string(filter.Kind))
		argIdx++
	}
	if filter.SpaceCode != "" {
		conditions = append(conditions, fmt.Sprintf("e.space_code = $%d", argIdx))
		args = append(args, filter.SpaceCode)
		argIdx++
	}
	if filter.ProjectCode != "" {
		conditions = append(conditions, fmt.Sprintf("e.project_code = $%d", argIdx))
		args = append(args, filter.ProjectCode)
		argIdx++
	}
	if filter.Code != "" {
		conditions = append(conditions, fmt.Sprintf("e.code = $%d", argIdx))
		args = append(args, filter.Code)
		argIdx++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("e.code ILIKE $%d", argIdx))
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	whereClause := "TRUE"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM dms_entity e WHERE %s`, whereClause)
	if err := r.q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entities: %w", err)
	}

	dataQuery := fmt.Sprintf(`SELECT %s FROM dms_entity e WHERE %s ORDER BY e.registered_at, e.id`, entityColumns, whereClause)
	if filter.Limit > 0 {
		dataQuery += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
		args = append(args, filter.Limit, filter.Offset)
	} else if filter.Offset > 0 {
		dataQuery += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, filter.Offset)
	}

	entities, err := r.queryEntities(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list entities: %w", err)
	}
	return entities, total, nil
}

func (r reader) ListDependents(ctx context.Context, ids []string) ([]*domain.Entity, error) {
	query := `
		SELECT ` + entityColumns + `
		FROM dms_entity e
		WHERE e.deletion_id IS NULL
		  AND (e.owner_id = ANY($1)
		       OR EXISTS (SELECT 1 FROM dms_entity_link l
		                  WHERE l.entity_id = e.id AND l.relation = $2 AND l.target_id = ANY($1)))
		ORDER BY e.id
	`
	entities, err := r.queryEntities(ctx, query, ids, relationContainer)
	if err != nil {
		return nil, fmt.Errorf("list dependents: %w", err)
	}
	return entities, nil
}

func (r reader) ListTrashedOwnedBy(ctx context.Context, ids []string) ([]*domain.Entity, error) {
	query := `
		SELECT ` + entityColumns + `
		FROM dms_entity e
		WHERE e.deletion_id IS NOT NULL AND e.owner_id = ANY($1)
		ORDER BY e.id
	`
	entities, err := r.queryEntities(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list trashed owned entities: %w", err)
	}
	return entities, nil
}

func (r reader) GetDeletion(ctx context.Context, id uuid.UUID) (*domain.DeletionSet, error) {
	query := `SELECT ` + deletionColumns + ` FROM dms_deletion WHERE id = $1`
	d, err := scanDeletion(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err, domain.DeletionNotFound(id.String()))
	}
	return d, nil
}

func (r reader) ListDeletions(ctx context.Context, filter ports.DeletionFilter) ([]*domain.DeletionSet, int, error) {
	conditions := []string{"TRUE"}
	var args []interface{}
	argIdx := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.OwnerUserID != "" {
		conditions = append(conditions, fmt.Sprintf("owner_user_id = $%d", argIdx))
		args = append(args, filter.OwnerUserID)
		argIdx++
	}
	whereClause := strings.Join(conditions, " AND ")

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM dms_deletion WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count deletions: %w", err)
	}

	dataQuery := fmt.Sprintf(`SELECT %s FROM dms_deletion WHERE %s ORDER BY created_at DESC, id`, deletionColumns, whereClause)
	if filter.Limit > 0 {
		dataQuery += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.q.Query(ctx, dataQuery, args...)
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
	query := `SELECT ` + historyColumns + ` FROM dms_history WHERE entity_id = $1 ORDER BY valid_from, valid_until, id`
	rows, err := r.q.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	history := []*domain.HistoryEntry{}
	for rows.Next() {
		var h domain.HistoryEntry
		if err := rows.Scan(
			&h.ID, &h.EntityID, &h.RelationType, &h.ExternalDmsID, &h.ExternalCode, &h.Path,
			&h.GitCommitHash, &h.GitRepositoryID, &h.ValidFrom, &h.ValidUntil, &h.AuthorID,
		); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		history = append(history, &h)
	}
	return history, rows.Err()
}

func (r reader) queryEntities(ctx context.Context, query string, args ...any) ([]*domain.Entity, error) {
	rows, err := r.q.Query(ctx, query, args...)
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

	rows, err := r.q.Query(ctx, `
		SELECT entity_id, target_id, relation FROM dms_entity_link
		WHERE entity_id = ANY($1) ORDER BY entity_id, relation, ordinal`, ids)
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

	rows, err = r.q.Query(ctx, `
		SELECT id, entity_id, external_dms_id, external_code, path, git_commit_hash, git_repository_id, attached_at
		FROM dms_content_copy WHERE entity_id = ANY($1) ORDER BY attached_at, id`, ids)
	if err != nil {
		return fmt.Errorf("query content copies: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c domain.ContentCopy
		var entityID string
		if err := rows.Scan(&c.ID, &entityID, &c.ExternalDmsID, &c.ExternalCode, &c.Path,
			&c.GitCommitHash, &c.GitRepositoryID, &c.AttachedAt); err != nil {
			return fmt.Errorf("scan content copy: %w", err)
		}
		byID[entityID].ContentCopies = append(byID[entityID].ContentCopies, c)
	}
	return rows.Err()
}

func scanEntity(row pgx.Row) (*domain.Entity, error) {
	var e domain.Entity
	var dataSetKind string
	err := row.Scan(
		&e.ID, &e.Code, &e.Kind, &dataSetKind, &e.SpaceCode, &e.ProjectCode, &e.OwnerID,
		&e.Description, &e.Properties, &e.Freeze, &e.DeletionID, &e.RegistratorID,
		&e.RegisteredAt, &e.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}
	e.DataSetKind = domain.DataSetKind(dataSetKind)
	if e.Properties == nil {
		e.Properties = make(map[string]string)
	}
	return &e, nil
}

func scanDeletion(row pgx.Row) (*domain.DeletionSet, error) {
	var d domain.DeletionSet
	if err := row.Scan(
		&d.ID, &d.Reason, &d.OwnerUserID, &d.CreatedAt, &d.Status,
		&d.RequestedIDs, &d.EntityIDs, &d.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}
