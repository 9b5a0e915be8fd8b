// Package handler provides HTTP request handlers for the REST API and the
// interactive WebSocket sessions.
package handler

import (
	"context"

	"github.com/vyrodovalexey/region-catalog/internal/catalog"
	"github.com/vyrodovalexey/region-catalog/internal/model"
)

// Version is the application version.
const Version = "1.0.0"

// CatalogService is the catalog backend used by the handlers.
type CatalogService interface {
	Items(ctx context.Context) ([]model.Item, error)
	Item(ctx context.Context, id string) (*model.Item, error)
	Regions(ctx context.Context) ([]model.Region, error)
	Region(ctx context.Context, id string) (*model.Region, error)
	AddItem(ctx context.Context, item model.Item) (*model.Item, error)
	UpdateItem(ctx context.Context, item model.Item) (*model.Item, error)
	DeleteItem(ctx context.Context, id string) error
	NewManager(ctx context.Context, dialog catalog.Dialog, locale string) (*catalog.Manager, error)
	Ping(ctx context.Context) error
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status string `json:"status"`
}

// FormRequest is the body of a form submission.
type FormRequest struct {
	EditingItemID string     `json:"editingItemId"`
	Fields        model.Form `json:"fields"`
}

// CopyRequest is the body of a cross-region copy.
type CopyRequest struct {
	Destination string     `json:"destination"`
	Fields      model.Form `json:"fields"`
}

// MoveRequest is the body of a reorder request.
type MoveRequest struct {
	Direction string `json:"direction"`
	Search    string `json:"search"`
}

// Move directions.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// DeleteAllResponse reports the result of a bulk delete.
type DeleteAllResponse struct {
	Deleted int `json:"deleted"`
}
