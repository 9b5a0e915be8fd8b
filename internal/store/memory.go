package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/region-catalog/internal/model"
)

// MemoryStore implements Store and RegionStore with in-memory storage.
type MemoryStore struct {
	mu      sync.RWMutex
	items   map[string]model.Item
	ids     []string // insertion order
	regions map[string]model.Region
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:   make(map[string]model.Item),
		regions: make(map[string]model.Region),
	}
}

// List returns all items in insertion order.
func (s *MemoryStore) List(ctx context.Context) ([]model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.Item, 0, len(s.ids))
	for _, id := range s.ids {
		items = append(items, s.items[id].Clone())
	}

	return items, nil
}

// Get retrieves an item by its ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	if id == "" {
		return nil, ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[id]
	if !exists {
		return nil, ErrNotFound
	}

	item = item.Clone()
	return &item, nil
}

// Create adds a new item to the store and returns the created item with generated ID.
func (s *MemoryStore) Create(ctx context.Context, item *model.Item) (*model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	if item == nil {
		return nil, fmt.Errorf("create item: %w", ErrNilItem)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	newItem := item.Clone()
	newItem.ID = uuid.New().String()
	newItem.CreatedAt = now
	newItem.UpdatedAt = now

	s.items[newItem.ID] = newItem
	s.ids = append(s.ids, newItem.ID)

	created := newItem.Clone()
	return &created, nil
}

// Update replaces the fields of an existing item.
func (s *MemoryStore) Update(ctx context.Context, id string, item *model.Item) (*model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	if id == "" {
		return nil, ErrInvalidID
	}

	if item == nil {
		return nil, fmt.Errorf("update item: %w", ErrNilItem)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.items[id]
	if !exists {
		return nil, ErrNotFound
	}

	updated := item.Clone()
	updated.ID = id
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	s.items[id] = updated

	result := updated.Clone()
	return &result, nil
}

// Delete removes an item from the store by its ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	if id == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; !exists {
		return ErrNotFound
	}

	delete(s.items, id)
	s.ids = slices.DeleteFunc(s.ids, func(v string) bool { return v == id })

	return nil
}

// SetOrder sets the order field of a single item.
func (s *MemoryStore) SetOrder(ctx context.Context, id string, order int) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("set order: %w", err)
	}

	if id == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[id]
	if !exists {
		return ErrNotFound
	}

	item.Order = order
	item.UpdatedAt = time.Now().UTC()
	s.items[id] = item

	return nil
}

// SwapOrder exchanges the order values of a and b under a single lock.
func (s *MemoryStore) SwapOrder(ctx context.Context, a, b model.Item) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("swap order: %w", err)
	}

	if a.ID == "" || b.ID == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	first, ok := s.items[a.ID]
	if !ok {
		return fmt.Errorf("swap order %s: %w", a.ID, ErrNotFound)
	}
	second, ok := s.items[b.ID]
	if !ok {
		return fmt.Errorf("swap order %s: %w", b.ID, ErrNotFound)
	}

	now := time.Now().UTC()
	first.Order, first.UpdatedAt = b.Order, now
	second.Order, second.UpdatedAt = a.Order, now

	s.items[first.ID] = first
	s.items[second.ID] = second

	return nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// ListRegions returns all regions sorted by name.
func (s *MemoryStore) ListRegions(ctx context.Context) ([]model.Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	regions := make([]model.Region, 0, len(s.regions))
	for _, r := range s.regions {
		regions = append(regions, r)
	}

	sort.Slice(regions, func(i, j int) bool {
		return regions[i].Name < regions[j].Name
	})

	return regions, nil
}

// GetRegion retrieves a region by its ID.
func (s *MemoryStore) GetRegion(ctx context.Context, id string) (*model.Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get region: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	region, exists := s.regions[id]
	if !exists {
		return nil, ErrRegionNotFound
	}

	return &region, nil
}

// UpsertRegion inserts or replaces a region.
func (s *MemoryStore) UpsertRegion(ctx context.Context, region model.Region) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("upsert region: %w", err)
	}

	if region.ID == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.regions[region.ID] = region

	return nil
}
