package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionSignup              = "SIGNUP"
	ActionCreateAsset         = "CREATE_ASSET"
	ActionUpdateAsset         = "UPDATE_ASSET"
	ActionDeleteAsset         = "DELETE_ASSET"
	ActionAllocateAsset       = "ALLOCATE_ASSET"
	ActionCreateRequest       = "CREATE_REQUEST"
	ActionUpdateRequestStatus = "UPDATE_REQUEST_STATUS"
)

// AuditLog tracks Who, What, and When for every mutation
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"` // serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
