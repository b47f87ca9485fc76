package model

import (
	"time"

	"gorm.io/gorm"
)

// swagger:model
type BaseModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Lifecycle replaces the hide/soft-delete flag pairs. Purged rows are hard
// deleted, so purged never appears in a stored row.
type Lifecycle string

const (
	LifecycleActive  Lifecycle = "active"
	LifecycleTrashed Lifecycle = "trashed"
	LifecyclePurged  Lifecycle = "purged"
)

func (l Lifecycle) Valid() bool {
	switch l {
	case LifecycleActive, LifecycleTrashed, LifecyclePurged:
		return true
	}
	return false
}

// CanMoveTo reports whether a row in state l may transition to next.
func (l Lifecycle) CanMoveTo(next Lifecycle) bool {
	switch l {
	case LifecycleActive:
		return next == LifecycleTrashed || next == LifecyclePurged
	case LifecycleTrashed:
		return next == LifecycleActive || next == LifecyclePurged
	}
	return false
}

// ActiveOnly is the default query scope for lifecycle-managed tables.
func ActiveOnly(db *gorm.DB) *gorm.DB {
	return db.Where("lifecycle = ?", LifecycleActive)
}

func TrashedOnly(db *gorm.DB) *gorm.DB {
	return db.Where("lifecycle = ?", LifecycleTrashed)
}
