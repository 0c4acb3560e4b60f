package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dhanki/token-platform/internal/domain"
	"github.com/dhanki/token-platform/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to reasonable defaults:
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// CreateAccount inserts a new account
func (s *pgStore) CreateAccount(ctx context.Context, account *schema.Account) error {
	err := s.db.WithContext(ctx).Create(account).Error
	if err != nil {
		if isUniqueViolation(err, "email") {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a unique-constraint violation
// touching the named column
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") && strings.Contains(msg, column)
}

// GetAccountByID retrieves an account by its internal id
func (s *pgStore) GetAccountByID(ctx context.Context, id int64) (*schema.Account, error) {
	var account schema.Account
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// GetAccountByEmail retrieves an account by email
func (s *pgStore) GetAccountByEmail(ctx context.Context, email string) (*schema.Account, error) {
	var account schema.Account
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return &account, nil
}

// GetAccountByReferralCode retrieves an account by its external code
func (s *pgStore) GetAccountByReferralCode(ctx context.Context, code string) (*schema.Account, error) {
	var account schema.Account
	err := s.db.WithContext(ctx).Where("referral_code = ?", code).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account by referral code: %w", err)
	}
	return &account, nil
}

// ListAccounts retrieves accounts ordered by registration with the total count
func (s *pgStore) ListAccounts(ctx context.Context, limit int, offset uint64) ([]*schema.Account, uint64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&schema.Account{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	var accounts []*schema.Account
	q := s.db.WithContext(ctx).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(int(offset)) //nolint:gosec
	}
	if err := q.Find(&accounts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}

	return accounts, uint64(total), nil //nolint:gosec
}

// ListAccountIDsWithSponsor retrieves every account carrying a sponsor code,
// ordered by id so tree rebuilds replay registrations deterministically
func (s *pgStore) ListAccountIDsWithSponsor(ctx context.Context) ([]*schema.Account, error) {
	var accounts []*schema.Account
	err := s.db.WithContext(ctx).
		Select("id", "referral_code", "sponsor_code").
		Where("sponsor_code IS NOT NULL AND sponsor_code <> ''").
		Order("id ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sponsored accounts: %w", err)
	}
	return accounts, nil
}

// UpdateAccount applies the non-nil fields of input to an account
func (s *pgStore) UpdateAccount(ctx context.Context, id int64, input UpdateAccountInput) error {
	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Email != nil {
		updates["email"] = *input.Email
	}
	if input.WalletAddress != nil {
		updates["wallet_address"] = *input.WalletAddress
	}
	if input.Status != nil {
		updates["status"] = *input.Status
	}
	if input.KYCStatus != nil {
		updates["kyc_status"] = *input.KYCStatus
	}
	if input.TokenBalance != nil {
		updates["token_balance"] = *input.TokenBalance
	}
	if input.StableBalance != nil {
		updates["stable_balance"] = *input.StableBalance
	}
	if input.StakedBalance != nil {
		updates["staked_balance"] = *input.StakedBalance
	}
	if input.TotalInvestment != nil {
		updates["total_investment"] = *input.TotalInvestment
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()

	result := s.db.WithContext(ctx).Model(&schema.Account{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		if input.Email != nil && isUniqueViolation(result.Error, "email") {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("failed to update account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// AppendDownline records member in account's level list.
// ON CONFLICT DO NOTHING on (account_id, member_id, level) is the dedup guard:
// re-linking the same member is a no-op, not an error.
func (s *pgStore) AppendDownline(ctx context.Context, accountID, memberID int64, level int) (bool, error) {
	row := schema.Downline{
		AccountID: accountID,
		MemberID:  memberID,
		Level:     level,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "member_id"}, {Name: "level"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return false, fmt.Errorf("failed to append downline: %w", err)
	}

	// ID stays 0 when the insert hit the conflict
	return row.ID != 0, nil
}

// ClearDownlines deletes every downline row
func (s *pgStore) ClearDownlines(ctx context.Context) error {
	err := s.db.WithContext(ctx).Where("1 = 1").Delete(&schema.Downline{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear downlines: %w", err)
	}
	return nil
}

// ListDownline retrieves the member accounts of one level, in insertion order
func (s *pgStore) ListDownline(ctx context.Context, accountID int64, level int) ([]*schema.Account, error) {
	var accounts []*schema.Account
	err := s.db.WithContext(ctx).
		Joins("JOIN referral_downlines d ON d.member_id = accounts.id").
		Where("d.account_id = ? AND d.level = ?", accountID, level).
		Order("d.id ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list downline: %w", err)
	}
	return accounts, nil
}

// DownlineCounts retrieves per-level downline sizes for an account
func (s *pgStore) DownlineCounts(ctx context.Context, accountID int64) (DownlineCounts, error) {
	type levelCount struct {
		Level int
		Count int64
	}
	var rows []levelCount
	err := s.db.WithContext(ctx).
		Model(&schema.Downline{}).
		Select("level, COUNT(*) AS count").
		Where("account_id = ?", accountID).
		Group("level").
		Find(&rows).Error
	if err != nil {
		return DownlineCounts{}, fmt.Errorf("failed to count downlines: %w", err)
	}

	var counts DownlineCounts
	for _, row := range rows {
		switch row.Level {
		case 1:
			counts.Level1 = row.Count
		case 2:
			counts.Level2 = row.Count
		case 3:
			counts.Level3 = row.Count
		}
	}
	return counts, nil
}

// CreditPurchase atomically increments the buyer's token balance and
// cumulative investment. A single UPDATE keeps concurrent credits to the same
// account from losing increments.
func (s *pgStore) CreditPurchase(ctx context.Context, accountID int64, tokens, usdtValue float64) error {
	result := s.db.WithContext(ctx).
		Model(&schema.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"token_balance":    gorm.Expr("token_balance + ?", tokens),
			"total_investment": gorm.Expr("total_investment + ?", usdtValue),
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to credit purchase: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// CreditCommission writes one commission ledger entry and applies the
// beneficiary's balance/income increments in a single database transaction.
//
// The entry insert uses ON CONFLICT DO NOTHING on the
// (purchase_id, account_id, level) unique index; when the entry already
// exists the increments are skipped entirely, so replaying a purchase's
// distribution after a partial failure cannot double-credit anyone.
func (s *pgStore) CreditCommission(ctx context.Context, input CreditCommissionInput) (bool, error) {
	if input.Level < 1 || input.Level > domain.MaxCommissionLevels {
		return false, fmt.Errorf("invalid commission level %d", input.Level)
	}

	credited := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		meta := schema.CommissionMeta{
			BuyerCode:      input.BuyerCode,
			Rate:           input.Rate,
			PurchaseTokens: input.PurchaseTokens,
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("failed to marshal commission meta: %w", err)
		}

		entry := schema.Transaction{
			AccountID:     input.BeneficiaryID,
			EntryType:     schema.EntryTypeLevelIncome,
			Amount:        input.Amount,
			TokenAmount:   input.Amount,
			Currency:      domain.CurrencyDHANKI,
			FromAccountID: &input.BuyerID,
			Level:         &input.Level,
			PurchaseID:    &input.PurchaseID,
			Status:        schema.TransactionStatusCompleted,
			Meta:          metaJSON,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "purchase_id"}, {Name: "account_id"}, {Name: "level"}},
			DoNothing: true,
		}).Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to create commission entry: %w", err)
		}

		// Duplicate entry: this level was already paid for this purchase
		if entry.ID == 0 {
			return nil
		}

		incomeColumn := fmt.Sprintf("income_level%d", input.Level)
		result := tx.Model(&schema.Account{}).
			Where("id = ?", input.BeneficiaryID).
			Updates(map[string]interface{}{
				"token_balance": gorm.Expr("token_balance + ?", input.Amount),
				incomeColumn:    gorm.Expr(incomeColumn+" + ?", input.Amount),
				"income_total":  gorm.Expr("income_total + ?", input.Amount),
				"updated_at":    time.Now().UTC(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to credit beneficiary: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.ErrAccountNotFound
		}

		credited = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return credited, nil
}

// CreatePurchase appends a pending purchase order plus its mirrored history
// transaction in one database transaction
func (s *pgStore) CreatePurchase(ctx context.Context, input CreatePurchaseInput) (*schema.PurchaseOrder, error) {
	order := schema.PurchaseOrder{
		AccountID:     input.AccountID,
		Amount:        input.Amount,
		Currency:      domain.Currency(input.Currency),
		TokenQuantity: input.TokenQuantity,
		ReferenceID:   input.ReferenceID,
		PaymentProof:  input.PaymentProof,
		Status:        schema.PurchaseStatusPending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create purchase order: %w", err)
		}

		meta := schema.PurchaseMeta{
			USDTValue:  input.USDTValue,
			TokenPrice: input.TokenPrice,
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("failed to marshal purchase meta: %w", err)
		}

		history := schema.Transaction{
			AccountID:    input.AccountID,
			EntryType:    schema.EntryTypePurchase,
			Amount:       input.Amount,
			TokenAmount:  input.TokenQuantity,
			Currency:     domain.Currency(input.Currency),
			PurchaseID:   &order.ID,
			Status:       schema.TransactionStatusPending,
			ReferenceID:  input.ReferenceID,
			PaymentProof: input.PaymentProof,
			Meta:         metaJSON,
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("failed to create purchase transaction: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// GetPurchaseByID retrieves a purchase order
func (s *pgStore) GetPurchaseByID(ctx context.Context, id int64) (*schema.PurchaseOrder, error) {
	var order schema.PurchaseOrder
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	return &order, nil
}

// TransitionPurchase moves a pending purchase to a terminal status and mirrors
// the change onto its history transaction. The WHERE status = 'pending' guard
// enforces the state machine: completed/rejected/failed are terminal.
func (s *pgStore) TransitionPurchase(ctx context.Context, purchaseID int64, to schema.PurchaseStatus) error {
	if !to.Terminal() {
		return fmt.Errorf("%w: cannot transition to %q", domain.ErrInvalidTransition, to)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&schema.PurchaseOrder{}).
			Where("id = ? AND status = ?", purchaseID, schema.PurchaseStatusPending).
			Updates(map[string]interface{}{
				"status":     to,
				"updated_at": time.Now().UTC(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to transition purchase: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&schema.PurchaseOrder{}).Where("id = ?", purchaseID).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check purchase existence: %w", err)
			}
			if count == 0 {
				return domain.ErrPurchaseNotFound
			}
			return domain.ErrInvalidTransition
		}

		// Keep the history ledger's purchase row in step with the order
		err := tx.Model(&schema.Transaction{}).
			Where("purchase_id = ? AND entry_type = ?", purchaseID, schema.EntryTypePurchase).
			Update("status", schema.TransactionStatus(to)).Error
		if err != nil {
			return fmt.Errorf("failed to mirror purchase status: %w", err)
		}

		return nil
	})
}

// GetTransactionByID retrieves a ledger transaction
func (s *pgStore) GetTransactionByID(ctx context.Context, id int64) (*schema.Transaction, error) {
	var entry schema.Transaction
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &entry, nil
}

// UpdateTransactionStatus flips the status of a non-purchase ledger entry
func (s *pgStore) UpdateTransactionStatus(ctx context.Context, id int64, status schema.TransactionStatus) error {
	result := s.db.WithContext(ctx).
		Model(&schema.Transaction{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update transaction status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// ListTransactions retrieves ledger entries most-recent-first with the total count
func (s *pgStore) ListTransactions(ctx context.Context, filter TransactionFilter) ([]*schema.Transaction, uint64, error) {
	q := s.db.WithContext(ctx).Model(&schema.Transaction{})
	if filter.AccountID != nil {
		q = q.Where("account_id = ?", *filter.AccountID)
	}
	if filter.EntryType != nil {
		q = q.Where("entry_type = ?", *filter.EntryType)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	var entries []*schema.Transaction
	q = q.Order("created_at DESC, id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(int(filter.Offset)) //nolint:gosec
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}

	return entries, uint64(total), nil //nolint:gosec
}

// GetPlatformStats computes the admin dashboard aggregates
func (s *pgStore) GetPlatformStats(ctx context.Context) (*PlatformStats, error) {
	var stats PlatformStats

	if err := s.db.WithContext(ctx).Model(&schema.Account{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	type sums struct {
		Revenue    float64
		TokensSold float64
	}
	var row sums
	err := s.db.WithContext(ctx).
		Model(&schema.Transaction{}).
		Select("COALESCE(SUM(amount), 0) AS revenue, COALESCE(SUM(token_amount), 0) AS tokens_sold").
		Where("entry_type = ? AND status = ?", schema.EntryTypePurchase, schema.TransactionStatusCompleted).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate purchases: %w", err)
	}

	stats.Revenue = row.Revenue
	stats.TokensSold = row.TokensSold
	return &stats, nil
}

// GetSettings retrieves the singleton settings row, creating it with defaults
// on first access
func (s *pgStore) GetSettings(ctx context.Context) (*schema.Settings, error) {
	var settings schema.Settings
	err := s.db.WithContext(ctx).Where("id = ?", 1).First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	settings = schema.Settings{
		ID:            1,
		TokenPrice:    schema.DefaultTokenPrice,
		NetworkFee:    schema.DefaultNetworkFee,
		MinWithdrawal: schema.DefaultMinWithdrawal,
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to create default settings: %w", err)
	}

	return &settings, nil
}

// UpdateSettings applies the non-nil fields of input to the settings row
func (s *pgStore) UpdateSettings(ctx context.Context, input UpdateSettingsInput) (*schema.Settings, error) {
	// Ensure the singleton row exists before updating it
	if _, err := s.GetSettings(ctx); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.TokenPrice != nil {
		updates["token_price"] = *input.TokenPrice
	}
	if input.NetworkFee != nil {
		updates["network_fee"] = *input.NetworkFee
	}
	if input.MinWithdrawal != nil {
		updates["min_withdrawal"] = *input.MinWithdrawal
	}
	if input.MaintenanceMode != nil {
		updates["maintenance_mode"] = *input.MaintenanceMode
	}
	if len(updates) > 0 {
		updates["updated_at"] = time.Now().UTC()
		err := s.db.WithContext(ctx).Model(&schema.Settings{}).Where("id = ?", 1).Updates(updates).Error
		if err != nil {
			return nil, fmt.Errorf("failed to update settings: %w", err)
		}
	}

	return s.GetSettings(ctx)
}
