package models

import "time"

// CategoryStatus controls marketplace visibility of a category.
type CategoryStatus string

const (
	CategoryStatusActive   CategoryStatus = "active"
	CategoryStatusDraft    CategoryStatus = "draft"
	CategoryStatusInactive CategoryStatus = "inactive"
)

// Category is admin-managed reference data for listings.
type Category struct {
	ID          string         `db:"id" json:"id" yaml:"-"`
	Name        string         `db:"name" json:"name" yaml:"name"`
	Slug        string         `db:"slug" json:"slug" yaml:"slug"`
	Description string         `db:"description" json:"description" yaml:"description"`
	Icon        string         `db:"icon" json:"icon" yaml:"icon"`
	Status      CategoryStatus `db:"status" json:"status" yaml:"status"`
	ItemCount   int            `db:"item_count" json:"item_count" yaml:"-"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at" yaml:"-"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at" yaml:"-"`
}

// CategoryRequest creates or replaces a category.
type CategoryRequest struct {
	Name        string         `json:"name" validate:"required,min=2,max=80"`
	Slug        string         `json:"slug" validate:"omitempty,max=80"`
	Description string         `json:"description" validate:"max=500"`
	Icon        string         `json:"icon" validate:"max=40"`
	Status      CategoryStatus `json:"status" validate:"omitempty,oneof=active draft inactive"`
}
