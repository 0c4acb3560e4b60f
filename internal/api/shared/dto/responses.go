package dto

import (
	"encoding/json"
	"time"

	"github.com/dhanki/token-platform/internal/store"
	"github.com/dhanki/token-platform/internal/store/schema"
)

// AccountResponse represents an account in API responses. The password hash
// never leaves the store layer.
type AccountResponse struct {
	ID              int64     `json:"id"`
	ReferralCode    string    `json:"referral_code"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	SponsorCode     *string   `json:"sponsor_code,omitempty"`
	WalletAddress   string    `json:"wallet_address,omitempty"`
	TokenBalance    float64   `json:"token_balance"`
	StableBalance   float64   `json:"stable_balance"`
	StakedBalance   float64   `json:"staked_balance"`
	TotalInvestment float64   `json:"total_investment"`
	IncomeLevel1    float64   `json:"income_level1"`
	IncomeLevel2    float64   `json:"income_level2"`
	IncomeLevel3    float64   `json:"income_level3"`
	IncomeTotal     float64   `json:"income_total"`
	Status          string    `json:"status"`
	KYCStatus       string    `json:"kyc_status"`
	Admin           bool      `json:"admin,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// MapAccountToDTO maps an account row to its API representation
func MapAccountToDTO(a *schema.Account) *AccountResponse {
	return &AccountResponse{
		ID:              a.ID,
		ReferralCode:    a.ReferralCode,
		Name:            a.Name,
		Email:           a.Email,
		SponsorCode:     a.SponsorCode,
		WalletAddress:   a.WalletAddress,
		TokenBalance:    a.TokenBalance,
		StableBalance:   a.StableBalance,
		StakedBalance:   a.StakedBalance,
		TotalInvestment: a.TotalInvestment,
		IncomeLevel1:    a.IncomeLevel1,
		IncomeLevel2:    a.IncomeLevel2,
		IncomeLevel3:    a.IncomeLevel3,
		IncomeTotal:     a.IncomeTotal,
		Status:          string(a.Status),
		KYCStatus:       string(a.KYCStatus),
		Admin:           a.Admin,
		CreatedAt:       a.CreatedAt,
	}
}

// AuthResponse represents a successful registration or login
type AuthResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Account   *AccountResponse `json:"account"`
}

// PurchaseResponse represents a purchase order in API responses
type PurchaseResponse struct {
	ID            int64     `json:"id"`
	AccountID     int64     `json:"account_id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	TokenQuantity float64   `json:"token_quantity"`
	ReferenceID   string    `json:"reference_id"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// MapPurchaseToDTO maps a purchase order row to its API representation
func MapPurchaseToDTO(p *schema.PurchaseOrder) *PurchaseResponse {
	return &PurchaseResponse{
		ID:            p.ID,
		AccountID:     p.AccountID,
		Amount:        p.Amount,
		Currency:      string(p.Currency),
		TokenQuantity: p.TokenQuantity,
		ReferenceID:   p.ReferenceID,
		Status:        string(p.Status),
		CreatedAt:     p.CreatedAt,
	}
}

// TransactionResponse represents a ledger entry in API responses
type TransactionResponse struct {
	ID            int64           `json:"id"`
	AccountID     int64           `json:"account_id"`
	EntryType     string          `json:"entry_type"`
	Amount        float64         `json:"amount"`
	TokenAmount   float64         `json:"token_amount"`
	Currency      string          `json:"currency"`
	FromAccountID *int64          `json:"from_account_id,omitempty"`
	Level         *int            `json:"level,omitempty"`
	PurchaseID    *int64          `json:"purchase_id,omitempty"`
	Status        string          `json:"status"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	Meta          json.RawMessage `json:"meta,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// MapTransactionToDTO maps a ledger entry row to its API representation
func MapTransactionToDTO(t *schema.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:            t.ID,
		AccountID:     t.AccountID,
		EntryType:     string(t.EntryType),
		Amount:        t.Amount,
		TokenAmount:   t.TokenAmount,
		Currency:      string(t.Currency),
		FromAccountID: t.FromAccountID,
		Level:         t.Level,
		PurchaseID:    t.PurchaseID,
		Status:        string(t.Status),
		ReferenceID:   t.ReferenceID,
		Meta:          json.RawMessage(t.Meta),
		CreatedAt:     t.CreatedAt,
	}
}

// TransactionListResponse represents a paginated ledger listing
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Offset       *uint64               `json:"offset,omitempty"`
	Total        uint64                `json:"total"`
}

// AccountListResponse represents the admin user listing
type AccountListResponse struct {
	Accounts []AdminAccountResponse `json:"accounts"`
	Offset   *uint64                `json:"offset,omitempty"`
	Total    uint64                 `json:"total"`
}

// AdminAccountResponse decorates an account with its team sizes for the
// admin console
type AdminAccountResponse struct {
	AccountResponse
	TeamLevel1 int64 `json:"team_level1"`
	TeamLevel2 int64 `json:"team_level2"`
	TeamLevel3 int64 `json:"team_level3"`
	TeamTotal  int64 `json:"team_total"`
}

// ReferralMemberResponse represents one downline member in the network view
type ReferralMemberResponse struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	ReferralCode    string    `json:"referral_code"`
	TotalInvestment float64   `json:"total_investment"`
	JoinedAt        time.Time `json:"joined_at"`
}

// ReferralLevelResponse aggregates one downline level
type ReferralLevelResponse struct {
	Level    int                      `json:"level"`
	Count    int                      `json:"count"`
	Business float64                  `json:"business"`
	Income   float64                  `json:"income"`
	Members  []ReferralMemberResponse `json:"members"`
}

// ReferralNetworkResponse represents the full 3-level network view
type ReferralNetworkResponse struct {
	ReferralCode string                  `json:"referral_code"`
	TeamTotal    int                     `json:"team_total"`
	IncomeTotal  float64                 `json:"income_total"`
	Levels       []ReferralLevelResponse `json:"levels"`
}

// DashboardResponse represents the account home screen aggregates
type DashboardResponse struct {
	Account        *AccountResponse `json:"account"`
	TokenPrice     float64          `json:"token_price"`
	PortfolioValue float64          `json:"portfolio_value"`
	TeamLevel1     int64            `json:"team_level1"`
	TeamLevel2     int64            `json:"team_level2"`
	TeamLevel3     int64            `json:"team_level3"`
	TeamTotal      int64            `json:"team_total"`
}

// PlatformStatsResponse represents the admin dashboard aggregates
type PlatformStatsResponse struct {
	TotalUsers int64   `json:"total_users"`
	Revenue    float64 `json:"revenue"`
	TokensSold float64 `json:"tokens_sold"`
}

// MapPlatformStatsToDTO maps the store aggregates to their API representation
func MapPlatformStatsToDTO(s *store.PlatformStats) *PlatformStatsResponse {
	return &PlatformStatsResponse{
		TotalUsers: s.TotalUsers,
		Revenue:    s.Revenue,
		TokensSold: s.TokensSold,
	}
}

// SettingsResponse represents the platform settings
type SettingsResponse struct {
	TokenPrice      float64   `json:"token_price"`
	NetworkFee      float64   `json:"network_fee"`
	MinWithdrawal   float64   `json:"min_withdrawal"`
	MaintenanceMode bool      `json:"maintenance_mode"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// MapSettingsToDTO maps the settings row to its API representation
func MapSettingsToDTO(s *schema.Settings) *SettingsResponse {
	return &SettingsResponse{
		TokenPrice:      s.TokenPrice,
		NetworkFee:      s.NetworkFee,
		MinWithdrawal:   s.MinWithdrawal,
		MaintenanceMode: s.MaintenanceMode,
		UpdatedAt:       s.UpdatedAt,
	}
}
