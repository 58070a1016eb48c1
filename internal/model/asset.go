package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Asset is an inventory item. It is either unallocated or held by exactly one user.
type Asset struct {
	ID          uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string              `gorm:"type:varchar(100);not null" json:"name"`
	Description string              `gorm:"type:varchar(200)" json:"description"`
	Category    string              `gorm:"type:varchar(100);index" json:"category"`
	ImageURL    string              `gorm:"type:varchar(255)" json:"image_url"`
	UnitCost    decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"unit_cost"`
	AllocatedTo *uuid.UUID          `gorm:"type:uuid;index" json:"allocated_to"`
	Holder      *User               `gorm:"foreignKey:AllocatedTo" json:"-"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (a *Asset) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
