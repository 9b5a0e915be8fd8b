// Package store provides data storage interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/vyrodovalexey/region-catalog/internal/model"
)

// Store errors.
var (
	ErrNotFound  = errors.New("item not found")
	ErrInvalidID = errors.New("invalid item ID")
	ErrNilItem   = errors.New("item cannot be nil")

	ErrRegionNotFound = errors.New("region not found")
)

// Store defines the interface for item storage operations.
type Store interface {
	// List returns all items from the store.
	List(ctx context.Context) ([]model.Item, error)

	// Get retrieves an item by its ID.
	Get(ctx context.Context, id string) (*model.Item, error)

	// Create adds a new item to the store and returns the created item with generated ID.
	Create(ctx context.Context, item *model.Item) (*model.Item, error)

	// Update replaces the fields of an existing item.
	Update(ctx context.Context, id string, item *model.Item) (*model.Item, error)

	// Delete removes an item from the store by its ID.
	Delete(ctx context.Context, id string) error

	// SetOrder sets the order field of a single item.
	SetOrder(ctx context.Context, id string, order int) error

	// SwapOrder atomically stores a.Order on b and b.Order on a.
	// Either both items change or neither does.
	SwapOrder(ctx context.Context, a, b model.Item) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

// RegionStore provides access to regions.
type RegionStore interface {
	ListRegions(ctx context.Context) ([]model.Region, error)
	GetRegion(ctx context.Context, id string) (*model.Region, error)
	UpsertRegion(ctx context.Context, region model.Region) error
}
