package model

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Request status literals. Status is stored as free text; these are the two
// values the workflow itself reads. The casing difference is intentional.
const (
	RequestStatusPending  = "Pending"
	RequestStatusApproved = "approved"
)

// MaxRequestQuantity is the largest quantity the int column holds.
const MaxRequestQuantity = math.MaxInt32

// Request is an employee's ask to be allocated an asset.
type Request struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AssetID   uuid.UUID `gorm:"type:uuid;not null;index" json:"asset_id"`
	Asset     *Asset    `gorm:"foreignKey:AssetID" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"-"`
	Reason    string    `gorm:"type:varchar(200);not null" json:"reason"`
	Quantity  int       `gorm:"type:int;not null" json:"quantity"`
	Urgency   string    `gorm:"type:varchar(50);not null" json:"urgency"`
	Status    string    `gorm:"type:varchar(50);not null;default:'Pending';index" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Request) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
