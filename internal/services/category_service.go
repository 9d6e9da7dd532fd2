// Package services orchestrates category operations across the repository
// and the change-event publisher.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IanTeda/personal-ledger-backend/internal/amqp"
	"github.com/IanTeda/personal-ledger-backend/internal/core"
	"github.com/IanTeda/personal-ledger-backend/internal/log"
	"github.com/IanTeda/personal-ledger-backend/internal/storage"
)

// CategoryStore is the persistence the service depends on.
type CategoryStore interface {
	Create(ctx context.Context, d core.Draft) (core.Category, error)
	CreateBatch(ctx context.Context, drafts []core.Draft) ([]core.Category, error)
	Find(ctx context.Context, l core.Lookup) (core.Category, error)
	List(ctx context.Context, f core.Filter, page core.Page) (storage.ListResult, error)
	Update(ctx context.Context, id core.RowID, p core.Patch) (core.Category, error)
	Activate(ctx context.Context, id core.RowID) (core.Category, error)
	Deactivate(ctx context.Context, id core.RowID) (core.Category, error)
	Delete(ctx context.Context, id core.RowID) error
	PurgeInactive(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// EventPublisher announces category changes.
type EventPublisher interface {
	PublishCategoryEvent(ctx context.Context, ev amqp.CategoryEvent) error
	Close() error
}

// CategoryService runs category operations against the store, records a
// telemetry event for each one and publishes change events. It assumes its
// inputs were validated by the core constructors.
type CategoryService struct {
	store  CategoryStore
	events EventPublisher
}

// NewCategoryService builds a service. events may be nil, in which case no
// change events are published.
func NewCategoryService(store CategoryStore, events EventPublisher) *CategoryService {
	return &CategoryService{
		store:  store,
		events: events,
	}
}

func (s *CategoryService) Create(ctx context.Context, d core.Draft) (core.Category, error) {
	c, err := s.store.Create(ctx, d)
	s.record(ctx, log.OpCreate, c.ID, err)
	if err != nil {
		return core.Category{}, err
	}
	s.publish(ctx, amqp.NewCategoryEvent(amqp.EventCreated, c))
	return c, nil
}

// CreateBatch inserts every draft or none of them.
func (s *CategoryService) CreateBatch(ctx context.Context, drafts []core.Draft) ([]core.Category, error) {
	created, err := s.store.CreateBatch(ctx, drafts)
	s.record(ctx, log.OpCreateBatch, core.RowID{}, err)
	if err != nil {
		return nil, err
	}
	for _, c := range created {
		s.publish(ctx, amqp.NewCategoryEvent(amqp.EventCreated, c))
	}
	return created, nil
}

func (s *CategoryService) Get(ctx context.Context, l core.Lookup) (core.Category, error) {
	c, err := s.store.Find(ctx, l)
	s.record(ctx, log.OpRead, c.ID, err)
	return c, err
}

func (s *CategoryService) List(ctx context.Context, f core.Filter, page core.Page) (storage.ListResult, error) {
	res, err := s.store.List(ctx, f, page)
	s.record(ctx, log.OpList, core.RowID{}, err)
	return res, err
}

// Update applies p. A successful call always publishes, including no-op
// updates; consumers deduplicate by (id, updated_on).
func (s *CategoryService) Update(ctx context.Context, id core.RowID, p core.Patch) (core.Category, error) {
	c, err := s.store.Update(ctx, id, p)
	s.record(ctx, log.OpUpdate, id, err)
	if err != nil {
		return core.Category{}, err
	}
	s.publish(ctx, amqp.NewCategoryEvent(amqp.EventUpdated, c))
	return c, nil
}

func (s *CategoryService) Activate(ctx context.Context, id core.RowID) (core.Category, error) {
	c, err := s.store.Activate(ctx, id)
	s.record(ctx, log.OpActivate, id, err)
	if err != nil {
		return core.Category{}, err
	}
	s.publish(ctx, amqp.NewCategoryEvent(amqp.EventActivated, c))
	return c, nil
}

func (s *CategoryService) Deactivate(ctx context.Context, id core.RowID) (core.Category, error) {
	c, err := s.store.Deactivate(ctx, id)
	s.record(ctx, log.OpDeactivate, id, err)
	if err != nil {
		return core.Category{}, err
	}
	s.publish(ctx, amqp.NewCategoryEvent(amqp.EventDeactivated, c))
	return c, nil
}

// Delete physically removes a row. It backs the operator purge command only.
func (s *CategoryService) Delete(ctx context.Context, id core.RowID) error {
	err := s.store.Delete(ctx, id)
	s.record(ctx, log.OpDelete, id, err)
	if err != nil {
		return err
	}
	s.publish(ctx, amqp.CategoryEvent{
		Type:      amqp.EventDeleted,
		ID:        id.String(),
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// PurgeInactive physically removes every inactive row and returns how many
// went.
func (s *CategoryService) PurgeInactive(ctx context.Context) (int64, error) {
	n, err := s.store.PurgeInactive(ctx)
	s.record(ctx, log.OpPurge, core.RowID{}, err)
	if err != nil {
		return 0, err
	}
	log.FromContext(ctx).InfoContext(ctx, "Purged inactive categories", log.FieldCount, n)
	return n, nil
}

func (s *CategoryService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *CategoryService) record(ctx context.Context, op string, id core.RowID, err error) {
	outcome := log.OutcomeOK
	if err != nil {
		outcome = string(core.KindOf(err))
	}
	categoryID := ""
	if !id.IsZero() {
		categoryID = id.String()
	}
	log.NewStructuredLogger(log.FromContext(ctx)).LogCategoryOperation(ctx, op, categoryID, outcome, err)
}

// publish never fails the request; the row is already committed.
func (s *CategoryService) publish(ctx context.Context, ev amqp.CategoryEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishCategoryEvent(ctx, ev); err != nil {
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Failed to publish category event", err,
			log.ComponentAMQP, log.OpPublish, log.NewFields().WithCategory(ev.ID, ev.Code))
	}
}

// Close closes both storage and AMQP connections
func (s *CategoryService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.events != nil {
		if err := s.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close category service: %w", errors.Join(errs...))
	}

	return nil
}
