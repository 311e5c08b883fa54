package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/athathco/athath-backend/pkg/enums"
)

// Commission is the marketplace's cut of one retailer's share of one order.
// Amount is the cut, NetAmount is what remains owed to the retailer; refunds
// shrink both in proportion. The (order_id, retailer_id) unique index is what
// makes posting idempotent.
type Commission struct {
	ID          uuid.UUID      `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID      `json:"order_id" gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_commissions_order_retailer"`
	RetailerID  uuid.UUID      `json:"retailer_id" gorm:"column:retailer_id;type:uuid;not null;uniqueIndex:idx_commissions_order_retailer"`
	BaseAmount  int64          `json:"base_amount" gorm:"column:base_amount;not null"`
	RateBps     int64          `json:"rate_bps" gorm:"column:rate_bps;not null"`
	Amount      int64          `json:"amount" gorm:"column:amount;not null"`
	NetAmount   int64          `json:"net_amount" gorm:"column:net_amount;not null"`
	Currency    enums.Currency `json:"currency" gorm:"column:currency;not null;default:AED"`
	CreatedAt   time.Time      `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (Commission) TableName() string { return "commissions" }

func (c *Commission) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// LedgerEntry is the append-only audit trail behind commission balances.
// Commission postings credit the marketplace; refund adjustments debit it
// with a negative amount. Rows are never updated or deleted.
type LedgerEntry struct {
	ID         uuid.UUID             `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID             `json:"order_id" gorm:"column:order_id;type:uuid;not null;index"`
	RetailerID uuid.UUID             `json:"retailer_id" gorm:"column:retailer_id;type:uuid;not null;index"`
	EntryType  enums.LedgerEntryType `json:"entry_type" gorm:"column:entry_type;not null"`
	Amount     int64                 `json:"amount" gorm:"column:amount;not null"`
	Currency   enums.Currency        `json:"currency" gorm:"column:currency;not null;default:AED"`
	Memo       string                `json:"memo,omitempty" gorm:"column:memo"`
	CreatedAt  time.Time             `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

func (le *LedgerEntry) BeforeCreate(_ *gorm.DB) error {
	if le.ID == uuid.Nil {
		le.ID = uuid.New()
	}
	return nil
}
