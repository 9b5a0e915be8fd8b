// Package model defines data structures used throughout the application.
package model

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Validation errors for Item.
var (
	ErrNameTooLong   = errors.New("name cannot exceed 255 characters")
	ErrNegativePrice = errors.New("price cannot be negative")
	ErrInvalidOption = errors.New("value is not one of the allowed options")
)

// MaxNameLength is the maximum length of an item name in bytes.
const MaxNameLength = 255

// Item is a priced catalog entry assigned to a region.
type Item struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Regions   []string        `json:"regions"`
	Schutzart string          `json:"schutzart"`
	BWS       string          `json:"bws"`
	Typ       string          `json:"typ"`
	Art       string          `json:"art"`
	Serie     string          `json:"serie"`
	Material  string          `json:"material"`
	Order     int             `json:"order"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// InRegion reports whether the item is assigned to the given region.
func (i Item) InRegion(regionID string) bool {
	return slices.Contains(i.Regions, regionID)
}

// Clone returns a copy of the item that does not share the regions slice.
func (i Item) Clone() Item {
	i.Regions = slices.Clone(i.Regions)
	return i
}

// Validate checks the item fields. Empty attribute values are allowed.
func (i *Item) Validate() error {
	if len(i.Name) > MaxNameLength {
		return ErrNameTooLong
	}

	if i.Price.IsNegative() {
		return ErrNegativePrice
	}

	attributes := []struct {
		field   string
		value   string
		allowed []string
	}{
		{"schutzart", i.Schutzart, SchutzartOptions},
		{"bws", i.BWS, BWSOptions},
		{"typ", i.Typ, TypOptions},
		{"art", i.Art, ArtOptions},
		{"serie", i.Serie, SerieOptions},
		{"material", i.Material, MaterialOptions},
	}
	for _, a := range attributes {
		if a.value != "" && !slices.Contains(a.allowed, a.value) {
			return fmt.Errorf("%s %q: %w", a.field, a.value, ErrInvalidOption)
		}
	}

	return nil
}

// Region is a named grouping of items.
type Region struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RegionName returns the name of the region with the given id, or the id
// itself when it is unknown.
func RegionName(regions []Region, id string) string {
	for _, r := range regions {
		if r.ID == id {
			return r.Name
		}
	}
	return id
}

// APIResponse is a generic wrapper for API responses.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewSuccessResponse creates a successful API response.
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error API response.
func NewErrorResponse[T any](errMsg string) APIResponse[T] {
	return APIResponse[T]{
		Success: false,
		Error:   errMsg,
	}
}

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
