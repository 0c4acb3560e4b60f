package schema

import (
	"time"

	"gorm.io/datatypes"

	"github.com/dhanki/token-platform/internal/domain"
)

// EntryType classifies a ledger transaction
type EntryType string

const (
	// EntryTypePurchase mirrors a purchase order in the history ledger
	EntryTypePurchase EntryType = "purchase"
	// EntryTypeLevelIncome records a referral commission credit
	EntryTypeLevelIncome EntryType = "level_income"
	// EntryTypeWithdrawal records a payout request
	EntryTypeWithdrawal EntryType = "withdrawal"
)

// TransactionStatus represents the state of a ledger transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusRejected  TransactionStatus = "rejected"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction represents the transactions table - the append-only history
// ledger. Purchase rows mirror their purchase order's status; level_income
// rows are written completed and never edited. The composite unique index on
// (purchase_id, account_id, level) makes commission crediting idempotent per
// purchase: a retry after partial failure hits the conflict and cannot double-pay.
type Transaction struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// AccountID is the account whose ledger this entry belongs to
	// (the buyer for purchases, the beneficiary for level income)
	AccountID int64 `gorm:"column:account_id;not null;index;uniqueIndex:idx_transactions_commission,priority:2"`
	// EntryType classifies the entry
	EntryType EntryType `gorm:"column:entry_type;not null;type:text;index"`
	// Amount is the value in Currency units
	Amount float64 `gorm:"column:amount;not null"`
	// TokenAmount is the DHANKI token quantity moved by this entry
	TokenAmount float64 `gorm:"column:token_amount;not null;default:0"`
	// Currency denominates Amount
	Currency domain.Currency `gorm:"column:currency;not null;default:'USDT';type:text"`
	// FromAccountID is the buyer that originated a commission credit (level_income only)
	FromAccountID *int64 `gorm:"column:from_account_id;index"`
	// Level is the upline depth the commission was paid at (level_income only)
	Level *int `gorm:"column:level;type:smallint;uniqueIndex:idx_transactions_commission,priority:3"`
	// PurchaseID links the entry to its originating purchase order
	PurchaseID *int64 `gorm:"column:purchase_id;uniqueIndex:idx_transactions_commission,priority:1"`
	// Status of the entry; purchase rows mirror the order status
	Status TransactionStatus `gorm:"column:status;not null;default:'pending';type:text"`
	// ReferenceID is the external payment reference or a generated internal one
	ReferenceID string `gorm:"column:reference_id;not null;default:'';type:text"`
	// PaymentProof is the stored proof-of-payment reference, if any
	PaymentProof string `gorm:"column:payment_proof;not null;default:'';type:text"`
	// Meta carries additional context about the entry as JSON
	Meta datatypes.JSON `gorm:"column:meta;type:jsonb"`
	// CreatedAt is the timestamp the entry was appended
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`

	// Associations
	Account     Account        `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
	FromAccount *Account       `gorm:"foreignKey:FromAccountID"`
	Purchase    *PurchaseOrder `gorm:"foreignKey:PurchaseID"`
}

// TableName specifies the table name for the Transaction model
func (Transaction) TableName() string {
	return "transactions"
}

// CommissionMeta is the jsonb payload attached to level_income entries
type CommissionMeta struct {
	// BuyerCode is the referral code of the purchase originator
	BuyerCode string `json:"buyer_code"`
	// Rate is the commission rate applied at this level
	Rate float64 `json:"rate"`
	// PurchaseTokens is the token quantity of the originating purchase
	PurchaseTokens float64 `json:"purchase_tokens"`
}

// PurchaseMeta is the jsonb payload attached to purchase entries
type PurchaseMeta struct {
	// USDTValue is the stable-asset-equivalent value of the purchase
	USDTValue float64 `json:"usdt_value"`
	// TokenPrice is the settings price the token quantity was computed at
	TokenPrice float64 `json:"token_price"`
}
