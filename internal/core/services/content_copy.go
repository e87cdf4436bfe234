package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"dms-object-service/internal/core/domain"
	"dms-object-service/internal/core/ports/output"
)

// ContentCopyService attaches and detaches external content copies of linked
// data sets and keeps their history.
type ContentCopyService struct {
	store   ports.EntityStore
	auth    authorizer
	metrics ports.LifecycleMetrics
	now     func() time.Time
}

func NewContentCopyService(store ports.EntityStore, roles ports.RoleResolver, metrics ports.LifecycleMetrics) *ContentCopyService {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &ContentCopyService{store: store, auth: authorizer{roles: roles}, metrics: metrics, now: time.Now}
}

// AddContentCopy attaches a copy to an empty (data set, external DMS) slot.
func (s *ContentCopyService) AddContentCopy(ctx context.Context, session domain.Session, dataSetID string, c domain.ContentCopy) (*domain.ContentCopy, error) {
	c.ExternalDmsID = strings.TrimSpace(c.ExternalDmsID)
	if c.ExternalDmsID == "" {
		return nil, domain.NewValidationError("external DMS id must not be empty")
	}
	if strings.TrimSpace(c.ExternalCode) == "" && strings.TrimSpace(c.Path) == "" {
		return nil, domain.NewValidationError("a content copy needs an external code or a path")
	}

	assignments, err := s.auth.assignments(ctx, session)
	if err != nil {
		return nil, err
	}

	err = s.store.RunInTransaction(ctx, func(tx ports.StoreTx) error {
		e, err := s.loadLinkedDataSet(ctx, tx, assignments, dataSetID)
		if err != nil {
			return err
		}
		if err := checkMutation(s.metrics, e, domain.OperationUpdate, nil); err != nil {
			return err
		}
		if findCopyForDms(e.ContentCopies, c.ExternalDmsID) >= 0 {
			return domain.NewValidationError("data set %s already has a content copy in external DMS %s", e.Code, c.ExternalDmsID)
		}
		now := s.now().UTC()
		c.ID = uuid.New()
		c.AttachedAt = now
		e.ContentCopies = append(e.ContentCopies, c)
		e.ModifiedAt = now
		return tx.UpdateEntity(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// RemoveContentCopy detaches a copy and records it in the data set's history.
func (s *ContentCopyService) RemoveContentCopy(ctx context.Context, session domain.Session, dataSetID string, copyID uuid.UUID) error {
	assignments, err := s.auth.assignments(ctx, session)
	if err != nil {
		return err
	}

	err = s.store.RunInTransaction(ctx, func(tx ports.StoreTx) error {
		e, err := s.loadLinkedDataSet(ctx, tx, assignments, dataSetID)
		if err != nil {
			return err
		}
		if err := checkMutation(s.metrics, e, domain.OperationUpdate, nil); err != nil {
			return err
		}
		i := findCopy(e.ContentCopies, copyID)
		if i < 0 {
			return &domain.ObjectNotFoundError{Kind: "content copy", ID: copyID.String()}
		}
		now := s.now().UTC()
		if _, err := recordRemoval(ctx, tx, e, e.ContentCopies[i], now, session.UserID); err != nil {
			return err
		}
		e.ContentCopies = append(e.ContentCopies[:i], e.ContentCopies[i+1:]...)
		e.ModifiedAt = now
		return tx.UpdateEntity(ctx, e)
	})
	if err != nil {
		return err
	}

	s.metrics.HistoryRecorded(domain.RelationContentCopy)
	log.WithFields(log.Fields{
		"data_set_id": dataSetID,
		"copy_id":     copyID,
		"user_id":     session.UserID,
	}).Info("Content copy removed")
	return nil
}

// UpdateLinkedData is the legacy single-copy mutation of a linked data set.
// Setting fields to their current values changes nothing and records nothing;
// any real change supersedes the current copy with a new one.
func (s *ContentCopyService) UpdateLinkedData(ctx context.Context, session domain.Session, dataSetID string, update domain.LinkedDataUpdate) (*domain.Entity, error) {
	if update.Empty() {
		return nil, domain.NewValidationError("linked data update sets no fields")
	}
	assignments, err := s.auth.assignments(ctx, session)
	if err != nil {
		return nil, err
	}

	var (
		result   *domain.Entity
		recorded bool
	)
	err = s.store.RunInTransaction(ctx, func(tx ports.StoreTx) error {
		e, err := s.loadLinkedDataSet(ctx, tx, assignments, dataSetID)
		if err != nil {
			return err
		}
		now := s.now().UTC()

		if len(e.ContentCopies) == 1 && update.Apply(e.ContentCopies[0]).SameContent(e.ContentCopies[0]) {
			result = e
			return nil
		}
		if err := checkMutation(s.metrics, e, domain.OperationUpdate, nil); err != nil {
			return err
		}

		switch len(e.ContentCopies) {
		case 0:
			if update.ExternalDmsID == nil || update.ExternalCode == nil ||
				strings.TrimSpace(*update.ExternalDmsID) == "" || strings.TrimSpace(*update.ExternalCode) == "" {
				return domain.NewValidationError("data set %s has no content copy; external DMS and external code are both required", e.Code)
			}
			c := update.Apply(domain.ContentCopy{})
			c.ID = uuid.New()
			c.AttachedAt = now
			e.ContentCopies = []domain.ContentCopy{c}
		case 1:
			current := e.ContentCopies[0]
			next := update.Apply(current)
			if strings.TrimSpace(next.ExternalDmsID) == "" {
				return domain.NewValidationError("external DMS id must not be empty")
			}
			entry, err := recordRemoval(ctx, tx, e, current, now, session.UserID)
			if err != nil {
				return err
			}
			recorded = true
			next.ID = uuid.New()
			next.AttachedAt = entry.ValidUntil
			e.ContentCopies = []domain.ContentCopy{next}
		default:
			return domain.NewValidationError("data set %s has %d content copies; use the content copy operations", e.Code, len(e.ContentCopies))
		}

		e.ModifiedAt = now
		if err := tx.UpdateEntity(ctx, e); err != nil {
			return err
		}
		result = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	if recorded {
		s.metrics.HistoryRecorded(domain.RelationContentCopy)
	}
	return result, nil
}

// History returns the detached copies of an entity ordered by ValidFrom. The
// currently attached copies are never part of it.
func (s *ContentCopyService) History(ctx context.Context, session domain.Session, entityID string) ([]*domain.HistoryEntry, error) {
	assignments, err := s.auth.assignments(ctx, session)
	if err != nil {
		return nil, err
	}
	var history []*domain.HistoryEntry
	err = s.store.View(ctx, func(r ports.StoreReader) error {
		e, err := loadLive(ctx, r, entityID)
		if err != nil {
			return err
		}
		if err := requireCapability(assignments, e, domain.CapabilityRead); err != nil {
			return err
		}
		history, err = r.ListHistory(ctx, e.ID)
		return err
	})
	return history, err
}

// loadLinkedDataSet locks a live LINK data set the caller may write.
func (s *ContentCopyService) loadLinkedDataSet(ctx context.Context, tx ports.StoreTx, assignments []domain.RoleAssignment, id string) (*domain.Entity, error) {
	e, err := loadLiveForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if e.Kind != domain.EntityKindDataSet || e.DataSetKind != domain.DataSetKindLink {
		return nil, domain.NewValidationError("%s %s is not a linked data set", e.Kind.Label(), e.Code)
	}
	if err := requireCapability(assignments, e, domain.CapabilityWrite); err != nil {
		return nil, err
	}
	return e, nil
}
