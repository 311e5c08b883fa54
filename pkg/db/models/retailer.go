package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Retailer is a merchant selling through the marketplace. Commission is
// charged per retailer at CommissionRateBps basis points of their share of
// each order.
type Retailer struct {
	ID                uuid.UUID `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	Name              string    `json:"name" gorm:"column:name;not null"`
	Email             string    `json:"email" gorm:"column:email;not null;uniqueIndex"`
	CommissionRateBps int64     `json:"commission_rate_bps" gorm:"column:commission_rate_bps;not null;default:1200"`
	Active            bool      `json:"active" gorm:"column:active;not null;default:true"`
	CreatedAt         time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (Retailer) TableName() string { return "retailers" }

func (r *Retailer) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
