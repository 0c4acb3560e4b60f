package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhanki/token-platform/internal/domain"
	"github.com/dhanki/token-platform/internal/store/schema"
)

// =============================================================================
// Test Data Builders
// =============================================================================

// buildTestAccount creates a test account with a unique code and email
func buildTestAccount(tag string) *schema.Account {
	return &schema.Account{
		ReferralCode: fmt.Sprintf("DHK%s", tag),
		Name:         fmt.Sprintf("User %s", tag),
		Email:        fmt.Sprintf("user%s@example.com", tag),
		PasswordHash: "$2a$10$N9qo8uLOickgx2ZMRZoMye",
		Status:       schema.AccountStatusActive,
		KYCStatus:    schema.KYCStatusNone,
	}
}

// createTestAccount inserts a test account and returns it
func createTestAccount(t *testing.T, store Store, tag string) *schema.Account {
	account := buildTestAccount(tag)
	require.NoError(t, store.CreateAccount(context.Background(), account))
	require.NotZero(t, account.ID)
	return account
}

// createSponsoredAccount inserts an account registered under a sponsor code
func createSponsoredAccount(t *testing.T, store Store, tag, sponsorCode string) *schema.Account {
	account := buildTestAccount(tag)
	account.SponsorCode = &sponsorCode
	require.NoError(t, store.CreateAccount(context.Background(), account))
	return account
}

// createTestPurchase inserts a pending purchase for the account
func createTestPurchase(t *testing.T, store Store, accountID int64, amount, tokens float64) *schema.PurchaseOrder {
	order, err := store.CreatePurchase(context.Background(), CreatePurchaseInput{
		AccountID:     accountID,
		Amount:        amount,
		Currency:      string(domain.CurrencyUSDT),
		TokenQuantity: tokens,
		USDTValue:     amount,
		TokenPrice:    schema.DefaultTokenPrice,
		ReferenceID:   fmt.Sprintf("REF-%d-%0.f", accountID, amount),
	})
	require.NoError(t, err)
	require.NotNil(t, order)
	return order
}

// =============================================================================
// Test: Accounts
// =============================================================================

func testAccounts(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("create and fetch by id, email and referral code", func(t *testing.T) {
		account := createTestAccount(t, store, "1001")

		byID, err := store.GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		require.NotNil(t, byID)
		assert.Equal(t, account.Email, byID.Email)

		byEmail, err := store.GetAccountByEmail(ctx, account.Email)
		require.NoError(t, err)
		require.NotNil(t, byEmail)
		assert.Equal(t, account.ID, byEmail.ID)

		byCode, err := store.GetAccountByReferralCode(ctx, account.ReferralCode)
		require.NoError(t, err)
		require.NotNil(t, byCode)
		assert.Equal(t, account.ID, byCode.ID)
	})

	t.Run("missing accounts return nil without error", func(t *testing.T) {
		account, err := store.GetAccountByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, account)

		account, err = store.GetAccountByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, account)

		account, err = store.GetAccountByReferralCode(ctx, "DHK0000")
		require.NoError(t, err)
		assert.Nil(t, account)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		first := createTestAccount(t, store, "1002")

		dup := buildTestAccount("1003")
		dup.Email = first.Email
		err := store.CreateAccount(ctx, dup)
		assert.ErrorIs(t, err, domain.ErrEmailTaken)
	})

	t.Run("list accounts pages in registration order", func(t *testing.T) {
		a := createTestAccount(t, store, "1004")
		b := createTestAccount(t, store, "1005")

		accounts, total, err := store.ListAccounts(ctx, 0, 0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, total, uint64(2))

		var ids []int64
		for _, acc := range accounts {
			ids = append(ids, acc.ID)
		}
		assert.Contains(t, ids, a.ID)
		assert.Contains(t, ids, b.ID)
		assert.True(t, ids[0] < ids[len(ids)-1])

		page, _, err := store.ListAccounts(ctx, 1, 0)
		require.NoError(t, err)
		assert.Len(t, page, 1)
	})

	t.Run("list sponsored accounts", func(t *testing.T) {
		sponsor := createTestAccount(t, store, "1006")
		member := createSponsoredAccount(t, store, "1007", sponsor.ReferralCode)
		createTestAccount(t, store, "1008") // no sponsor

		sponsored, err := store.ListAccountIDsWithSponsor(ctx)
		require.NoError(t, err)

		found := false
		for _, acc := range sponsored {
			require.NotNil(t, acc.SponsorCode)
			if acc.ID == member.ID {
				found = true
				assert.Equal(t, sponsor.ReferralCode, *acc.SponsorCode)
			}
		}
		assert.True(t, found)
	})

	t.Run("update applies only set fields", func(t *testing.T) {
		account := createTestAccount(t, store, "1009")

		name := "Renamed"
		balance := 500.0
		err := store.UpdateAccount(ctx, account.ID, UpdateAccountInput{
			Name:         &name,
			TokenBalance: &balance,
		})
		require.NoError(t, err)

		updated, err := store.GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Name)
		assert.Equal(t, 500.0, updated.TokenBalance)
		assert.Equal(t, account.Email, updated.Email)
	})

	t.Run("update of missing account fails", func(t *testing.T) {
		name := "Ghost"
		err := store.UpdateAccount(ctx, 999999, UpdateAccountInput{Name: &name})
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	})
}

// =============================================================================
// Test: Downlines
// =============================================================================

func testDownlines(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("append is idempotent per (account, member, level)", func(t *testing.T) {
		upline := createTestAccount(t, store, "2001")
		member := createTestAccount(t, store, "2002")

		added, err := store.AppendDownline(ctx, upline.ID, member.ID, 1)
		require.NoError(t, err)
		assert.True(t, added)

		added, err = store.AppendDownline(ctx, upline.ID, member.ID, 1)
		require.NoError(t, err)
		assert.False(t, added)

		// Same member at a different level is a distinct row
		added, err = store.AppendDownline(ctx, upline.ID, member.ID, 2)
		require.NoError(t, err)
		assert.True(t, added)
	})

	t.Run("list preserves insertion order", func(t *testing.T) {
		upline := createTestAccount(t, store, "2003")
		first := createTestAccount(t, store, "2004")
		second := createTestAccount(t, store, "2005")

		_, err := store.AppendDownline(ctx, upline.ID, first.ID, 1)
		require.NoError(t, err)
		_, err = store.AppendDownline(ctx, upline.ID, second.ID, 1)
		require.NoError(t, err)

		members, err := store.ListDownline(ctx, upline.ID, 1)
		require.NoError(t, err)
		require.Len(t, members, 2)
		assert.Equal(t, first.ID, members[0].ID)
		assert.Equal(t, second.ID, members[1].ID)
	})

	t.Run("counts group by level", func(t *testing.T) {
		upline := createTestAccount(t, store, "2006")
		a := createTestAccount(t, store, "2007")
		b := createTestAccount(t, store, "2008")
		c := createTestAccount(t, store, "2009")

		_, err := store.AppendDownline(ctx, upline.ID, a.ID, 1)
		require.NoError(t, err)
		_, err = store.AppendDownline(ctx, upline.ID, b.ID, 1)
		require.NoError(t, err)
		_, err = store.AppendDownline(ctx, upline.ID, c.ID, 3)
		require.NoError(t, err)

		counts, err := store.DownlineCounts(ctx, upline.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), counts.Level1)
		assert.Equal(t, int64(0), counts.Level2)
		assert.Equal(t, int64(1), counts.Level3)
		assert.Equal(t, int64(3), counts.Total())
	})

	t.Run("clear removes every row", func(t *testing.T) {
		upline := createTestAccount(t, store, "2010")
		member := createTestAccount(t, store, "2011")
		_, err := store.AppendDownline(ctx, upline.ID, member.ID, 1)
		require.NoError(t, err)

		require.NoError(t, store.ClearDownlines(ctx))

		counts, err := store.DownlineCounts(ctx, upline.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), counts.Total())
	})
}

// =============================================================================
// Test: Credits
// =============================================================================

func testCreditPurchase(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("increments balance and investment", func(t *testing.T) {
		account := createTestAccount(t, store, "3001")

		require.NoError(t, store.CreditPurchase(ctx, account.ID, 1000, 15))
		require.NoError(t, store.CreditPurchase(ctx, account.ID, 500, 7.5))

		updated, err := store.GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		assert.InDelta(t, 1500, updated.TokenBalance, 1e-9)
		assert.InDelta(t, 22.5, updated.TotalInvestment, 1e-9)
	})

	t.Run("missing account fails", func(t *testing.T) {
		err := store.CreditPurchase(ctx, 999999, 10, 1)
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	})
}

func testCreditCommission(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("credits entry, balance and per-level income once", func(t *testing.T) {
		buyer := createTestAccount(t, store, "3101")
		beneficiary := createTestAccount(t, store, "3102")
		order := createTestPurchase(t, store, buyer.ID, 15, 1000)

		input := CreditCommissionInput{
			PurchaseID:     order.ID,
			BuyerID:        buyer.ID,
			BuyerCode:      buyer.ReferralCode,
			BeneficiaryID:  beneficiary.ID,
			Level:          1,
			Amount:         50,
			Rate:           domain.CommissionRateLevel1,
			PurchaseTokens: 1000,
		}

		credited, err := store.CreditCommission(ctx, input)
		require.NoError(t, err)
		assert.True(t, credited)

		// Replay hits the (purchase, beneficiary, level) key and credits nothing
		credited, err = store.CreditCommission(ctx, input)
		require.NoError(t, err)
		assert.False(t, credited)

		updated, err := store.GetAccountByID(ctx, beneficiary.ID)
		require.NoError(t, err)
		assert.InDelta(t, 50, updated.TokenBalance, 1e-9)
		assert.InDelta(t, 50, updated.IncomeLevel1, 1e-9)
		assert.InDelta(t, 50, updated.IncomeTotal, 1e-9)

		entryType := schema.EntryTypeLevelIncome
		entries, total, err := store.ListTransactions(ctx, TransactionFilter{
			AccountID: &beneficiary.ID,
			EntryType: &entryType,
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), total)
		require.Len(t, entries, 1)
		assert.Equal(t, schema.TransactionStatusCompleted, entries[0].Status)
		require.NotNil(t, entries[0].Level)
		assert.Equal(t, 1, *entries[0].Level)

		var meta schema.CommissionMeta
		require.NoError(t, json.Unmarshal(entries[0].Meta, &meta))
		assert.Equal(t, buyer.ReferralCode, meta.BuyerCode)
		assert.Equal(t, domain.CommissionRateLevel1, meta.Rate)
	})

	t.Run("distinct levels of the same purchase are paid independently", func(t *testing.T) {
		buyer := createTestAccount(t, store, "3103")
		beneficiary := createTestAccount(t, store, "3104")
		order := createTestPurchase(t, store, buyer.ID, 15, 1000)

		for level, amount := range map[int]float64{1: 50, 2: 20, 3: 10} {
			credited, err := store.CreditCommission(ctx, CreditCommissionInput{
				PurchaseID:     order.ID,
				BuyerID:        buyer.ID,
				BuyerCode:      buyer.ReferralCode,
				BeneficiaryID:  beneficiary.ID,
				Level:          level,
				Amount:         amount,
				Rate:           domain.CommissionRate(level),
				PurchaseTokens: 1000,
			})
			require.NoError(t, err)
			assert.True(t, credited)
		}

		updated, err := store.GetAccountByID(ctx, beneficiary.ID)
		require.NoError(t, err)
		assert.InDelta(t, 80, updated.TokenBalance, 1e-9)
		assert.InDelta(t, 80, updated.IncomeTotal, 1e-9)
		assert.InDelta(t, updated.IncomeLevel1+updated.IncomeLevel2+updated.IncomeLevel3, updated.IncomeTotal, 1e-9)
	})

	t.Run("rejects levels outside the walk", func(t *testing.T) {
		_, err := store.CreditCommission(ctx, CreditCommissionInput{Level: 4})
		assert.Error(t, err)

		_, err = store.CreditCommission(ctx, CreditCommissionInput{Level: 0})
		assert.Error(t, err)
	})
}

// =============================================================================
// Test: Purchases
// =============================================================================

func testPurchases(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("create appends order plus mirrored transaction", func(t *testing.T) {
		buyer := createTestAccount(t, store, "4001")
		order := createTestPurchase(t, store, buyer.ID, 15, 1000)

		assert.Equal(t, schema.PurchaseStatusPending, order.Status)

		fetched, err := store.GetPurchaseByID(ctx, order.ID)
		require.NoError(t, err)
		require.NotNil(t, fetched)
		assert.Equal(t, 1000.0, fetched.TokenQuantity)

		entryType := schema.EntryTypePurchase
		entries, _, err := store.ListTransactions(ctx, TransactionFilter{
			AccountID: &buyer.ID,
			EntryType: &entryType,
		})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.NotNil(t, entries[0].PurchaseID)
		assert.Equal(t, order.ID, *entries[0].PurchaseID)
		assert.Equal(t, schema.TransactionStatusPending, entries[0].Status)

		var meta schema.PurchaseMeta
		require.NoError(t, json.Unmarshal(entries[0].Meta, &meta))
		assert.Equal(t, 15.0, meta.USDTValue)
	})

	t.Run("missing purchase returns nil without error", func(t *testing.T) {
		order, err := store.GetPurchaseByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, order)
	})

	t.Run("transition mirrors status and is terminal", func(t *testing.T) {
		buyer := createTestAccount(t, store, "4002")
		order := createTestPurchase(t, store, buyer.ID, 15, 1000)

		require.NoError(t, store.TransitionPurchase(ctx, order.ID, schema.PurchaseStatusCompleted))

		fetched, err := store.GetPurchaseByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, schema.PurchaseStatusCompleted, fetched.Status)

		entryType := schema.EntryTypePurchase
		entries, _, err := store.ListTransactions(ctx, TransactionFilter{
			AccountID: &buyer.ID,
			EntryType: &entryType,
		})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, schema.TransactionStatusCompleted, entries[0].Status)

		// Terminal: no second transition
		err = store.TransitionPurchase(ctx, order.ID, schema.PurchaseStatusRejected)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		fetched, err = store.GetPurchaseByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, schema.PurchaseStatusCompleted, fetched.Status)
	})

	t.Run("transition rejects non-terminal targets and missing orders", func(t *testing.T) {
		buyer := createTestAccount(t, store, "4003")
		order := createTestPurchase(t, store, buyer.ID, 15, 1000)

		err := store.TransitionPurchase(ctx, order.ID, schema.PurchaseStatusPending)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		err = store.TransitionPurchase(ctx, 999999, schema.PurchaseStatusCompleted)
		assert.ErrorIs(t, err, domain.ErrPurchaseNotFound)
	})
}

// =============================================================================
// Test: Transactions
// =============================================================================

func testTransactions(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("missing transaction returns nil without error", func(t *testing.T) {
		entry, err := store.GetTransactionByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("update status flips a standalone entry", func(t *testing.T) {
		buyer := createTestAccount(t, store, "5001")
		createTestPurchase(t, store, buyer.ID, 15, 1000)

		entries, _, err := store.ListTransactions(ctx, TransactionFilter{AccountID: &buyer.ID})
		require.NoError(t, err)
		require.NotEmpty(t, entries)

		require.NoError(t, store.UpdateTransactionStatus(ctx, entries[0].ID, schema.TransactionStatusFailed))

		updated, err := store.GetTransactionByID(ctx, entries[0].ID)
		require.NoError(t, err)
		assert.Equal(t, schema.TransactionStatusFailed, updated.Status)

		err = store.UpdateTransactionStatus(ctx, 999999, schema.TransactionStatusFailed)
		assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
	})

	t.Run("list is most-recent-first and paginates", func(t *testing.T) {
		buyer := createTestAccount(t, store, "5002")
		first := createTestPurchase(t, store, buyer.ID, 10, 100)
		second := createTestPurchase(t, store, buyer.ID, 20, 200)

		entries, total, err := store.ListTransactions(ctx, TransactionFilter{AccountID: &buyer.ID})
		require.NoError(t, err)
		assert.Equal(t, uint64(2), total)
		require.Len(t, entries, 2)
		require.NotNil(t, entries[0].PurchaseID)
		assert.Equal(t, second.ID, *entries[0].PurchaseID)
		assert.Equal(t, first.ID, *entries[1].PurchaseID)

		page, total, err := store.ListTransactions(ctx, TransactionFilter{AccountID: &buyer.ID, Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, uint64(2), total)
		require.Len(t, page, 1)
		assert.Equal(t, first.ID, *page[0].PurchaseID)
	})
}

// =============================================================================
// Test: Platform stats
// =============================================================================

func testPlatformStats(t *testing.T, store Store) {
	ctx := context.Background()

	buyer := createTestAccount(t, store, "6001")
	completed := createTestPurchase(t, store, buyer.ID, 15, 1000)
	createTestPurchase(t, store, buyer.ID, 30, 2000) // stays pending

	require.NoError(t, store.TransitionPurchase(ctx, completed.ID, schema.PurchaseStatusCompleted))

	stats, err := store.GetPlatformStats(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalUsers, int64(1))
	// Only completed purchases count toward revenue
	assert.InDelta(t, 15, stats.Revenue, 1e-9)
	assert.InDelta(t, 1000, stats.TokensSold, 1e-9)
}

// =============================================================================
// Test: Settings
// =============================================================================

func testSettings(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("get returns the singleton with defaults", func(t *testing.T) {
		settings, err := store.GetSettings(ctx)
		require.NoError(t, err)
		require.NotNil(t, settings)
		assert.Equal(t, int64(1), settings.ID)
		assert.Equal(t, schema.DefaultTokenPrice, settings.TokenPrice)
		assert.Equal(t, schema.DefaultNetworkFee, settings.NetworkFee)
		assert.False(t, settings.MaintenanceMode)
	})

	t.Run("update applies only set fields", func(t *testing.T) {
		price := 0.02
		maintenance := true
		settings, err := store.UpdateSettings(ctx, UpdateSettingsInput{
			TokenPrice:      &price,
			MaintenanceMode: &maintenance,
		})
		require.NoError(t, err)
		assert.Equal(t, 0.02, settings.TokenPrice)
		assert.True(t, settings.MaintenanceMode)
		assert.Equal(t, schema.DefaultNetworkFee, settings.NetworkFee)
	})
}

// =============================================================================
// Suite runner
// =============================================================================

// RunStoreTests runs the full store suite against an implementation
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"Accounts", testAccounts},
		{"Downlines", testDownlines},
		{"CreditPurchase", testCreditPurchase},
		{"CreditCommission", testCreditCommission},
		{"Purchases", testPurchases},
		{"Transactions", testTransactions},
		{"PlatformStats", testPlatformStats},
		{"Settings", testSettings},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}
