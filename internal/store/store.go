package store

import (
	"context"

	"github.com/dhanki/token-platform/internal/store/schema"
)

// UpdateAccountInput carries optional account field updates; nil fields are
// left untouched. This is the admin override path - it bypasses the
// commission engine entirely.
type UpdateAccountInput struct {
	Name            *string
	Email           *string
	WalletAddress   *string
	Status          *schema.AccountStatus
	KYCStatus       *schema.KYCStatus
	TokenBalance    *float64
	StableBalance   *float64
	StakedBalance   *float64
	TotalInvestment *float64
}

// CreatePurchaseInput carries everything needed to append a purchase order
// with its mirrored history transaction
type CreatePurchaseInput struct {
	AccountID     int64
	Amount        float64
	Currency      string
	TokenQuantity float64
	USDTValue     float64
	TokenPrice    float64
	ReferenceID   string
	PaymentProof  string
}

// CreditCommissionInput identifies a single commission credit. The
// (PurchaseID, BeneficiaryID, Level) triple is the idempotency key.
type CreditCommissionInput struct {
	PurchaseID     int64
	BuyerID        int64
	BuyerCode      string
	BeneficiaryID  int64
	Level          int
	Amount         float64
	Rate           float64
	PurchaseTokens float64
}

// TransactionFilter narrows and paginates ledger listings
type TransactionFilter struct {
	AccountID *int64
	EntryType *schema.EntryType
	Limit     int
	Offset    uint64
}

// DownlineCounts holds per-level downline sizes for one account
type DownlineCounts struct {
	Level1 int64
	Level2 int64
	Level3 int64
}

// Total returns the team size across all three levels
func (c DownlineCounts) Total() int64 {
	return c.Level1 + c.Level2 + c.Level3
}

// PlatformStats holds the admin dashboard aggregates
type PlatformStats struct {
	// TotalUsers is the number of registered accounts
	TotalUsers int64
	// Revenue is the sum of completed-purchase fiat amounts
	Revenue float64
	// TokensSold is the sum of completed-purchase token quantities
	TokensSold float64
}

// Store defines the interface for database operations. The core depends only
// on this interface, never on a concrete storage engine.
type Store interface {
	// CreateAccount inserts a new account; returns domain.ErrEmailTaken on a
	// duplicate email
	CreateAccount(ctx context.Context, account *schema.Account) error
	// GetAccountByID retrieves an account by its internal id; (nil, nil) when missing
	GetAccountByID(ctx context.Context, id int64) (*schema.Account, error)
	// GetAccountByEmail retrieves an account by email; (nil, nil) when missing
	GetAccountByEmail(ctx context.Context, email string) (*schema.Account, error)
	// GetAccountByReferralCode retrieves an account by its external code; (nil, nil) when missing
	GetAccountByReferralCode(ctx context.Context, code string) (*schema.Account, error)
	// ListAccounts retrieves accounts ordered by registration with the total count
	ListAccounts(ctx context.Context, limit int, offset uint64) ([]*schema.Account, uint64, error)
	// ListAccountIDsWithSponsor retrieves (id, sponsor_code) pairs for every
	// account carrying a sponsor code, ordered by id
	ListAccountIDsWithSponsor(ctx context.Context) ([]*schema.Account, error)
	// UpdateAccount applies the non-nil fields of input to an account
	UpdateAccount(ctx context.Context, id int64, input UpdateAccountInput) error

	// AppendDownline records member in account's level list. Returns false
	// without error when the row already exists (dedup guard).
	AppendDownline(ctx context.Context, accountID, memberID int64, level int) (bool, error)
	// ClearDownlines deletes every downline row (full resync prelude)
	ClearDownlines(ctx context.Context) error
	// ListDownline retrieves the member accounts of one level, in insertion order
	ListDownline(ctx context.Context, accountID int64, level int) ([]*schema.Account, error)
	// DownlineCounts retrieves per-level downline sizes for an account
	DownlineCounts(ctx context.Context, accountID int64) (DownlineCounts, error)

	// CreditPurchase atomically increments the buyer's token balance and
	// cumulative investment in a single statement
	CreditPurchase(ctx context.Context, accountID int64, tokens, usdtValue float64) error
	// CreditCommission writes one commission ledger entry and applies the
	// beneficiary's balance/income increments in a single database
	// transaction. Returns false when the (purchase, beneficiary, level)
	// entry already exists: nothing is credited, making retries safe.
	CreditCommission(ctx context.Context, input CreditCommissionInput) (bool, error)

	// CreatePurchase appends a pending purchase order plus its mirrored
	// history transaction in one database transaction
	CreatePurchase(ctx context.Context, input CreatePurchaseInput) (*schema.PurchaseOrder, error)
	// GetPurchaseByID retrieves a purchase order; (nil, nil) when missing
	GetPurchaseByID(ctx context.Context, id int64) (*schema.PurchaseOrder, error)
	// TransitionPurchase moves a pending purchase to a terminal status and
	// mirrors the change onto its history transaction. Returns
	// domain.ErrInvalidTransition when the order already left pending.
	TransitionPurchase(ctx context.Context, purchaseID int64, to schema.PurchaseStatus) error
	// GetTransactionByID retrieves a ledger transaction; (nil, nil) when missing
	GetTransactionByID(ctx context.Context, id int64) (*schema.Transaction, error)
	// UpdateTransactionStatus flips the status of a non-purchase ledger entry
	UpdateTransactionStatus(ctx context.Context, id int64, status schema.TransactionStatus) error
	// ListTransactions retrieves ledger entries most-recent-first with the total count
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]*schema.Transaction, uint64, error)
	// GetPlatformStats computes the admin dashboard aggregates
	GetPlatformStats(ctx context.Context) (*PlatformStats, error)

	// GetSettings retrieves the singleton settings row, creating it with
	// defaults on first access
	GetSettings(ctx context.Context) (*schema.Settings, error)
	// UpdateSettings applies the non-nil fields of input to the settings row
	UpdateSettings(ctx context.Context, input UpdateSettingsInput) (*schema.Settings, error)
}

// UpdateSettingsInput carries optional settings updates; nil fields keep
// their current value
type UpdateSettingsInput struct {
	TokenPrice      *float64
	NetworkFee      *float64
	MinWithdrawal   *float64
	MaintenanceMode *bool
}
