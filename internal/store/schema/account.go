package schema

import (
	"time"
)

// AccountStatus represents the lifecycle state of an account.
// Accounts are never deleted, only status-flagged.
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusInactive AccountStatus = "inactive"
	AccountStatusBanned   AccountStatus = "banned"
)

// KYCStatus represents the identity verification state of an account
type KYCStatus string

const (
	KYCStatusNone     KYCStatus = "none"
	KYCStatusPending  KYCStatus = "pending"
	KYCStatusVerified KYCStatus = "verified"
	KYCStatusRejected KYCStatus = "rejected"
)

// Account represents the accounts table - platform users with their balances,
// referral linkage and accumulated level income
type Account struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// ReferralCode is the external-facing code other users register under (e.g. "DHK4821")
	ReferralCode string `gorm:"column:referral_code;not null;uniqueIndex;type:text"`
	// Name is the display name
	Name string `gorm:"column:name;not null;type:text"`
	// Email is the unique contact email
	Email string `gorm:"column:email;not null;uniqueIndex;type:text"`
	// PasswordHash is the bcrypt hash of the account password
	PasswordHash string `gorm:"column:password_hash;not null;type:text"`
	// SponsorCode is the referral code of the sponsoring account, resolved by
	// lookup - never a foreign key. Nil for root accounts.
	SponsorCode *string `gorm:"column:sponsor_code;type:text;index"`
	// WalletAddress is the user-supplied withdrawal address
	WalletAddress string `gorm:"column:wallet_address;not null;default:'';type:text"`
	// TokenBalance is the DHANKI token balance (purchases plus commission credits)
	TokenBalance float64 `gorm:"column:token_balance;not null;default:0"`
	// StableBalance is the USDT balance
	StableBalance float64 `gorm:"column:stable_balance;not null;default:0"`
	// StakedBalance is the amount of tokens currently staked
	StakedBalance float64 `gorm:"column:staked_balance;not null;default:0"`
	// TotalInvestment is the cumulative USDT-equivalent value ever purchased
	TotalInvestment float64 `gorm:"column:total_investment;not null;default:0"`
	// IncomeLevel1..3 accumulate commission earned per upline level;
	// IncomeTotal always equals their sum (maintained by single-statement credits)
	IncomeLevel1 float64 `gorm:"column:income_level1;not null;default:0"`
	IncomeLevel2 float64 `gorm:"column:income_level2;not null;default:0"`
	IncomeLevel3 float64 `gorm:"column:income_level3;not null;default:0"`
	IncomeTotal  float64 `gorm:"column:income_total;not null;default:0"`
	// Status flags the account lifecycle state
	Status AccountStatus `gorm:"column:status;not null;default:'active';type:text"`
	// KYCStatus tracks identity verification
	KYCStatus KYCStatus `gorm:"column:kyc_status;not null;default:'none';type:text"`
	// Admin grants access to the admin console operations
	Admin bool `gorm:"column:admin;not null;default:false"`
	// CreatedAt is the registration timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp of the last mutation
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Account model
func (Account) TableName() string {
	return "accounts"
}
