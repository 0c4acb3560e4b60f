package schema

import (
	"time"

	"github.com/dhanki/token-platform/internal/domain"
)

// PurchaseStatus represents the state of a purchase order.
// pending is the only non-terminal state.
type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusRejected  PurchaseStatus = "rejected"
	PurchaseStatusFailed    PurchaseStatus = "failed"
)

// Terminal reports whether no further transitions are permitted from the status
func (s PurchaseStatus) Terminal() bool {
	return s == PurchaseStatusCompleted || s == PurchaseStatusRejected || s == PurchaseStatusFailed
}

// PurchaseOrder represents the purchase_orders table - one row per token
// purchase request awaiting admin settlement
type PurchaseOrder struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// AccountID is the buyer
	AccountID int64 `gorm:"column:account_id;not null;index"`
	// Amount is the requested amount in the chosen currency
	Amount float64 `gorm:"column:amount;not null"`
	// Currency is the payment currency (USDT or INR)
	Currency domain.Currency `gorm:"column:currency;not null;type:text"`
	// TokenQuantity is the number of tokens credited for this purchase.
	// Fixed at creation time and never recomputed, even if the buyer's upline changes.
	TokenQuantity float64 `gorm:"column:token_quantity;not null"`
	// ReferenceID is the user-supplied or generated external payment reference
	ReferenceID string `gorm:"column:reference_id;not null;type:text"`
	// PaymentProof is the stored proof-of-payment reference (upload path)
	PaymentProof string `gorm:"column:payment_proof;not null;default:'';type:text"`
	// Status tracks the settlement state machine
	Status PurchaseStatus `gorm:"column:status;not null;default:'pending';type:text"`
	// CreatedAt is the submission timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp of the last status change
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	Account Account `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the PurchaseOrder model
func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}
