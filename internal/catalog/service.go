package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/region-catalog/internal/model"
	"github.com/vyrodovalexey/region-catalog/internal/store"
)

// Publisher announces item changes to interested views.
type Publisher interface {
	Publish(ctx context.Context, event model.ItemEvent) error
}

// Service is the store-backed Container. Every successful mutation is
// published so open views can reload their snapshot.
type Service struct {
	items     store.Store
	regions   store.RegionStore
	publisher Publisher
	logger    *zap.Logger
}

// NewService creates a new Service instance.
func NewService(items store.Store, regions store.RegionStore, publisher Publisher, logger *zap.Logger) *Service {
	return &Service{
		items:     items,
		regions:   regions,
		publisher: publisher,
		logger:    logger,
	}
}

// Items returns the whole item collection.
func (s *Service) Items(ctx context.Context) ([]model.Item, error) {
	return s.items.List(ctx)
}

// Item returns a single item.
func (s *Service) Item(ctx context.Context, id string) (*model.Item, error) {
	return s.items.Get(ctx, id)
}

// Regions returns all regions.
func (s *Service) Regions(ctx context.Context) ([]model.Region, error) {
	return s.regions.ListRegions(ctx)
}

// Region returns a single region.
func (s *Service) Region(ctx context.Context, id string) (*model.Region, error) {
	return s.regions.GetRegion(ctx, id)
}

// AddItem stores a new item.
func (s *Service) AddItem(ctx context.Context, item model.Item) (*model.Item, error) {
	created, err := s.items.Create(ctx, &item)
	if err != nil {
		return nil, fmt.Errorf("add item: %w", err)
	}
	s.publish(ctx, model.ItemCreated, created.ID)
	return created, nil
}

// UpdateItem replaces the stored fields of item.ID.
func (s *Service) UpdateItem(ctx context.Context, item model.Item) (*model.Item, error) {
	updated, err := s.items.Update(ctx, item.ID, &item)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	s.publish(ctx, model.ItemUpdated, updated.ID)
	return updated, nil
}

// DeleteItem removes an item.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	if err := s.items.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	s.publish(ctx, model.ItemDeleted, id)
	return nil
}

// SwapOrder atomically exchanges the order values of a and b.
func (s *Service) SwapOrder(ctx context.Context, a, b model.Item) error {
	if err := s.items.SwapOrder(ctx, a, b); err != nil {
		return err
	}
	s.publish(ctx, model.ItemUpdated, a.ID)
	s.publish(ctx, model.ItemUpdated, b.ID)
	return nil
}

// NewManager creates a Manager backed by this service and loads the current
// items and regions into it.
func (s *Service) NewManager(ctx context.Context, dialog Dialog, locale string) (*Manager, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	regions, err := s.Regions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}

	m := NewManager(s, s, dialog, NewCollator(locale), s.logger)
	m.SetRegions(regions)
	m.SetItems(items)
	return m, nil
}

// SeedRegions upserts the given regions.
func (s *Service) SeedRegions(ctx context.Context, regions []model.Region) error {
	for _, r := range regions {
		if err := s.regions.UpsertRegion(ctx, r); err != nil {
			return fmt.Errorf("seed region %s: %w", r.ID, err)
		}
	}
	return nil
}

// Ping checks the item store.
func (s *Service) Ping(ctx context.Context) error {
	return s.items.Ping(ctx)
}

func (s *Service) publish(ctx context.Context, eventType, itemID string) {
	if s.publisher == nil {
		return
	}
	event := model.ItemEvent{Type: eventType, ItemID: itemID}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish item event",
			zap.String("type", eventType),
			zap.String("item_id", itemID),
			zap.Error(err),
		)
	}
}
