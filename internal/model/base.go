package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all models
type Base struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// NewBase returns a Base with a fresh id and timestamps.
func NewBase() Base {
	now := time.Now()
	return Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// Pagination represents common pagination parameters
type Pagination struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}

// Normalize clamps pagination to sane bounds.
func (p *Pagination) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 100 {
		p.PageSize = 20
	}
}

// Offset returns the row offset for the current page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// JSONMap represents a generic JSON object
type JSONMap map[string]interface{}
