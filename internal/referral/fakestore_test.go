package referral

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dhanki/token-platform/internal/domain"
	"github.com/dhanki/token-platform/internal/store"
	"github.com/dhanki/token-platform/internal/store/schema"
)

// memStore is an in-memory Store used to exercise the referral core without a
// database. Behavior mirrors the persistent implementation: dedup guards,
// (nil, nil) misses, the pending-only purchase transition.
type memStore struct {
	mu           sync.Mutex
	nextID       int64
	accounts     map[int64]*schema.Account
	downlines    []*schema.Downline
	purchases    map[int64]*schema.PurchaseOrder
	transactions map[int64]*schema.Transaction
	settings     *schema.Settings

	// failCommissionLevel forces CreditCommission to fail at one level,
	// simulating a mid-walk write error
	failCommissionLevel int
}

func newMemStore() *memStore {
	return &memStore{
		accounts:     make(map[int64]*schema.Account),
		purchases:    make(map[int64]*schema.PurchaseOrder),
		transactions: make(map[int64]*schema.Transaction),
	}
}

func (m *memStore) nextSeq() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) CreateAccount(_ context.Context, account *schema.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.accounts {
		if existing.Email == account.Email {
			return domain.ErrEmailTaken
		}
	}
	account.ID = m.nextSeq()
	m.accounts[account.ID] = account
	return nil
}

func (m *memStore) GetAccountByID(_ context.Context, id int64) (*schema.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[id], nil
}

func (m *memStore) GetAccountByEmail(_ context.Context, email string) (*schema.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetAccountByReferralCode(_ context.Context, code string) (*schema.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.accounts {
		if account.ReferralCode == strings.ToUpper(code) {
			return account, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListAccounts(_ context.Context, limit int, offset uint64) ([]*schema.Account, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.sortedAccounts()
	total := uint64(len(all))
	if offset >= total {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (m *memStore) ListAccountIDsWithSponsor(_ context.Context) ([]*schema.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sponsored []*schema.Account
	for _, account := range m.sortedAccounts() {
		if account.SponsorCode != nil {
			sponsored = append(sponsored, account)
		}
	}
	return sponsored, nil
}

func (m *memStore) UpdateAccount(_ context.Context, id int64, input store.UpdateAccountInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if input.Name != nil {
		account.Name = *input.Name
	}
	if input.Status != nil {
		account.Status = *input.Status
	}
	if input.TokenBalance != nil {
		account.TokenBalance = *input.TokenBalance
	}
	return nil
}

func (m *memStore) AppendDownline(_ context.Context, accountID, memberID int64, level int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, row := range m.downlines {
		if row.AccountID == accountID && row.MemberID == memberID && row.Level == level {
			return false, nil
		}
	}
	m.downlines = append(m.downlines, &schema.Downline{
		ID:        m.nextSeq(),
		AccountID: accountID,
		MemberID:  memberID,
		Level:     level,
	})
	return true, nil
}

func (m *memStore) ClearDownlines(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downlines = nil
	return nil
}

func (m *memStore) ListDownline(_ context.Context, accountID int64, level int) ([]*schema.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var members []*schema.Account
	for _, row := range m.downlines {
		if row.AccountID == accountID && row.Level == level {
			if member, ok := m.accounts[row.MemberID]; ok {
				members = append(members, member)
			}
		}
	}
	return members, nil
}

func (m *memStore) DownlineCounts(_ context.Context, accountID int64) (store.DownlineCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var counts store.DownlineCounts
	for _, row := range m.downlines {
		if row.AccountID != accountID {
			continue
		}
		switch row.Level {
		case 1:
			counts.Level1++
		case 2:
			counts.Level2++
		case 3:
			counts.Level3++
		}
	}
	return counts, nil
}

func (m *memStore) CreditPurchase(_ context.Context, accountID int64, tokens, usdtValue float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[accountID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	account.TokenBalance += tokens
	account.TotalInvestment += usdtValue
	return nil
}

func (m *memStore) CreditCommission(_ context.Context, input store.CreditCommissionInput) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if input.Level < 1 || input.Level > domain.MaxCommissionLevels {
		return false, fmt.Errorf("invalid commission level %d", input.Level)
	}
	if m.failCommissionLevel == input.Level {
		return false, fmt.Errorf("injected failure at level %d", input.Level)
	}

	for _, entry := range m.transactions {
		if entry.EntryType == schema.EntryTypeLevelIncome &&
			entry.PurchaseID != nil && *entry.PurchaseID == input.PurchaseID &&
			entry.AccountID == input.BeneficiaryID &&
			entry.Level != nil && *entry.Level == input.Level {
			return false, nil
		}
	}

	beneficiary, ok := m.accounts[input.BeneficiaryID]
	if !ok {
		return false, domain.ErrAccountNotFound
	}

	meta, err := json.Marshal(schema.CommissionMeta{
		BuyerCode:      input.BuyerCode,
		Rate:           input.Rate,
		PurchaseTokens: input.PurchaseTokens,
	})
	if err != nil {
		return false, err
	}

	level := input.Level
	purchaseID := input.PurchaseID
	buyerID := input.BuyerID
	id := m.nextSeq()
	m.transactions[id] = &schema.Transaction{
		ID:            id,
		AccountID:     input.BeneficiaryID,
		EntryType:     schema.EntryTypeLevelIncome,
		Amount:        input.Amount,
		TokenAmount:   input.Amount,
		Currency:      domain.CurrencyDHANKI,
		FromAccountID: &buyerID,
		Level:         &level,
		PurchaseID:    &purchaseID,
		Status:        schema.TransactionStatusCompleted,
		Meta:          meta,
	}

	beneficiary.TokenBalance += input.Amount
	switch level {
	case 1:
		beneficiary.IncomeLevel1 += input.Amount
	case 2:
		beneficiary.IncomeLevel2 += input.Amount
	case 3:
		beneficiary.IncomeLevel3 += input.Amount
	}
	beneficiary.IncomeTotal += input.Amount
	return true, nil
}

func (m *memStore) CreatePurchase(_ context.Context, input store.CreatePurchaseInput) (*schema.PurchaseOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order := &schema.PurchaseOrder{
		ID:            m.nextSeq(),
		AccountID:     input.AccountID,
		Amount:        input.Amount,
		Currency:      domain.Currency(input.Currency),
		TokenQuantity: input.TokenQuantity,
		ReferenceID:   input.ReferenceID,
		PaymentProof:  input.PaymentProof,
		Status:        schema.PurchaseStatusPending,
	}
	m.purchases[order.ID] = order

	meta, err := json.Marshal(schema.PurchaseMeta{
		USDTValue:  input.USDTValue,
		TokenPrice: input.TokenPrice,
	})
	if err != nil {
		return nil, err
	}

	purchaseID := order.ID
	id := m.nextSeq()
	m.transactions[id] = &schema.Transaction{
		ID:           id,
		AccountID:    input.AccountID,
		EntryType:    schema.EntryTypePurchase,
		Amount:       input.Amount,
		TokenAmount:  input.TokenQuantity,
		Currency:     domain.Currency(input.Currency),
		PurchaseID:   &purchaseID,
		Status:       schema.TransactionStatusPending,
		ReferenceID:  input.ReferenceID,
		PaymentProof: input.PaymentProof,
		Meta:         meta,
	}
	return order, nil
}

func (m *memStore) GetPurchaseByID(_ context.Context, id int64) (*schema.PurchaseOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.purchases[id], nil
}

func (m *memStore) TransitionPurchase(_ context.Context, purchaseID int64, to schema.PurchaseStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !to.Terminal() {
		return fmt.Errorf("%w: %q is not a terminal status", domain.ErrInvalidTransition, to)
	}
	order, ok := m.purchases[purchaseID]
	if !ok {
		return domain.ErrPurchaseNotFound
	}
	if order.Status != schema.PurchaseStatusPending {
		return fmt.Errorf("%w: purchase %d is already %s", domain.ErrInvalidTransition, purchaseID, order.Status)
	}
	order.Status = to

	for _, entry := range m.transactions {
		if entry.EntryType == schema.EntryTypePurchase && entry.PurchaseID != nil && *entry.PurchaseID == purchaseID {
			entry.Status = schema.TransactionStatus(to)
		}
	}
	return nil
}

func (m *memStore) GetTransactionByID(_ context.Context, id int64) (*schema.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transactions[id], nil
}

func (m *memStore) UpdateTransactionStatus(_ context.Context, id int64, status schema.TransactionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.transactions[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	entry.Status = status
	return nil
}

func (m *memStore) ListTransactions(_ context.Context, filter store.TransactionFilter) ([]*schema.Transaction, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*schema.Transaction
	for _, entry := range m.transactions {
		if filter.AccountID != nil && entry.AccountID != *filter.AccountID {
			continue
		}
		if filter.EntryType != nil && entry.EntryType != *filter.EntryType {
			continue
		}
		matched = append(matched, entry)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := uint64(len(matched))
	if filter.Offset >= total {
		return nil, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (m *memStore) GetPlatformStats(_ context.Context) (*store.PlatformStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &store.PlatformStats{TotalUsers: int64(len(m.accounts))}
	for _, entry := range m.transactions {
		if entry.EntryType == schema.EntryTypePurchase && entry.Status == schema.TransactionStatusCompleted {
			stats.Revenue += entry.Amount
			stats.TokensSold += entry.TokenAmount
		}
	}
	return stats, nil
}

func (m *memStore) GetSettings(_ context.Context) (*schema.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.settings == nil {
		m.settings = &schema.Settings{
			ID:            1,
			TokenPrice:    schema.DefaultTokenPrice,
			NetworkFee:    schema.DefaultNetworkFee,
			MinWithdrawal: schema.DefaultMinWithdrawal,
		}
	}
	return m.settings, nil
}

func (m *memStore) UpdateSettings(_ context.Context, input store.UpdateSettingsInput) (*schema.Settings, error) {
	if _, err := m.GetSettings(context.Background()); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if input.TokenPrice != nil {
		m.settings.TokenPrice = *input.TokenPrice
	}
	if input.NetworkFee != nil {
		m.settings.NetworkFee = *input.NetworkFee
	}
	if input.MinWithdrawal != nil {
		m.settings.MinWithdrawal = *input.MinWithdrawal
	}
	if input.MaintenanceMode != nil {
		m.settings.MaintenanceMode = *input.MaintenanceMode
	}
	return m.settings, nil
}

func (m *memStore) sortedAccounts() []*schema.Account {
	all := make([]*schema.Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		all = append(all, account)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

// addAccount registers an account directly in the fake store
func addAccount(t *testing.T, m *memStore, code string, sponsorCode *string) *schema.Account {
	account := &schema.Account{
		ReferralCode: code,
		Name:         "User " + code,
		Email:        strings.ToLower(code) + "@example.com",
		SponsorCode:  sponsorCode,
		Status:       schema.AccountStatusActive,
	}
	require.NoError(t, m.CreateAccount(context.Background(), account))
	return account
}

func ptr(s string) *string {
	return &s
}
