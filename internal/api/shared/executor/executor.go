package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dhanki/token-platform/internal/adapter"
	"github.com/dhanki/token-platform/internal/api/middleware"
	"github.com/dhanki/token-platform/internal/api/shared/constants"
	"github.com/dhanki/token-platform/internal/api/shared/dto"
	apierrors "github.com/dhanki/token-platform/internal/api/shared/errors"
	"github.com/dhanki/token-platform/internal/domain"
	"github.com/dhanki/token-platform/internal/logger"
	"github.com/dhanki/token-platform/internal/referral"
	"github.com/dhanki/token-platform/internal/store"
	"github.com/dhanki/token-platform/internal/store/schema"
)

const (
	settingsCacheKey = "dhanki:settings"
	statsCacheKey    = "dhanki:platform_stats"

	// referralCodeAttempts bounds collision retries during registration
	referralCodeAttempts = 10
)

// Executor is the interface for the API executor. It holds the business
// logic shared by every transport handler.
type Executor interface {
	// Register creates a new account, links it into its sponsor's downline
	// and returns a signed session token
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error)

	// Login authenticates an account by email and password
	Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error)

	// GetProfile retrieves the authenticated account
	GetProfile(ctx context.Context, accountID int64) (*dto.AccountResponse, error)

	// UpdateProfile applies self-service profile updates
	UpdateProfile(ctx context.Context, accountID int64, req dto.UpdateProfileRequest) (*dto.AccountResponse, error)

	// PurchaseTokens records a purchase at the current settings price and
	// runs the commission distribution
	PurchaseTokens(ctx context.Context, accountID int64, req dto.PurchaseRequest) (*dto.PurchaseResponse, error)

	// ListTransactions retrieves the account's ledger entries, optionally
	// narrowed to one entry type
	ListTransactions(ctx context.Context, accountID int64, entryType *schema.EntryType, limit int, offset uint64) (*dto.TransactionListResponse, error)

	// ReferralNetwork retrieves the account's 3-level downline view
	ReferralNetwork(ctx context.Context, accountID int64) (*dto.ReferralNetworkResponse, error)

	// Dashboard retrieves the account home screen aggregates
	Dashboard(ctx context.Context, accountID int64) (*dto.DashboardResponse, error)

	// GetSettings retrieves the platform settings (cache read-through)
	GetSettings(ctx context.Context) (*dto.SettingsResponse, error)

	// AdminListUsers retrieves accounts with their team sizes
	AdminListUsers(ctx context.Context, limit int, offset uint64) (*dto.AccountListResponse, error)

	// AdminUpdateUser applies admin account overrides
	AdminUpdateUser(ctx context.Context, accountID int64, req dto.AdminUpdateUserRequest) (*dto.AccountResponse, error)

	// AdminListTransactions retrieves ledger entries across all accounts
	AdminListTransactions(ctx context.Context, accountID *int64, entryType *schema.EntryType, limit int, offset uint64) (*dto.TransactionListResponse, error)

	// AdminUpdateTransactionStatus settles a ledger entry through the
	// purchase state machine
	AdminUpdateTransactionStatus(ctx context.Context, transactionID int64, status schema.TransactionStatus) (*dto.TransactionResponse, error)

	// AdminPlatformStats computes the admin dashboard aggregates
	AdminPlatformStats(ctx context.Context) (*dto.PlatformStatsResponse, error)

	// AdminUpdateSettings applies platform settings changes and invalidates
	// the settings cache
	AdminUpdateSettings(ctx context.Context, req dto.UpdateSettingsRequest) (*dto.SettingsResponse, error)
}

type executor struct {
	store      store.Store
	tree       *referral.Tree
	ledger     *referral.Ledger
	supervisor *referral.Supervisor
	cache      adapter.Cache
	cacheTTL   time.Duration
	auth       middleware.AuthConfig
}

// NewExecutor creates the shared API executor. The cache is optional; a nil
// cache degrades every cached read to a store read.
func NewExecutor(
	s store.Store,
	tree *referral.Tree,
	ledger *referral.Ledger,
	supervisor *referral.Supervisor,
	cache adapter.Cache,
	cacheTTL time.Duration,
	auth middleware.AuthConfig,
) Executor {
	return &executor{
		store:      s,
		tree:       tree,
		ledger:     ledger,
		supervisor: supervisor,
		cache:      cache,
		cacheTTL:   cacheTTL,
		auth:       auth,
	}
}

func (e *executor) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	// Resolve the sponsor up front. An unresolvable code is dropped
	// silently: registration never fails because of a bad referral code.
	var sponsorCode *string
	if req.SponsorCode != "" {
		code := domain.NormalizeReferralCode(req.SponsorCode).String()
		sponsor, err := e.store.GetAccountByReferralCode(ctx, code)
		if err != nil {
			return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to resolve sponsor: %v", err))
		}
		if sponsor != nil {
			sponsorCode = &code
		} else {
			logger.WarnCtx(ctx, "sponsor code did not resolve, registering without upline",
				zap.String("sponsor_code", code),
			)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apierrors.NewInternalError(fmt.Sprintf("Failed to hash password: %v", err))
	}

	code, err := e.uniqueReferralCode(ctx)
	if err != nil {
		return nil, err
	}

	account := &schema.Account{
		ReferralCode:  code,
		Name:          req.Name,
		Email:         req.Email,
		PasswordHash:  string(hash),
		SponsorCode:   sponsorCode,
		WalletAddress: req.WalletAddress,
		Status:        schema.AccountStatusActive,
		KYCStatus:     schema.KYCStatusNone,
	}
	if err := e.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, apierrors.NewConflictError("Email already registered")
		}
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to create account: %v", err))
	}

	// Index the new account into its upline's downline lists. A linking
	// failure is repairable by resync, so it never unwinds registration.
	if sponsorCode != nil {
		if err := e.tree.Link(ctx, account.ID, *sponsorCode); err != nil {
			logger.ErrorCtx(ctx, err,
				zap.Int64("account_id", account.ID),
				zap.String("sponsor_code", *sponsorCode),
			)
		}
	}

	logger.InfoCtx(ctx, "account registered",
		zap.Int64("account_id", account.ID),
		zap.String("referral_code", account.ReferralCode),
		zap.Bool("sponsored", sponsorCode != nil),
	)

	return e.authResponse(account)
}

func (e *executor) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	account, err := e.store.GetAccountByEmail(ctx, req.Email)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to load account: %v", err))
	}
	if account == nil {
		return nil, apierrors.NewUnauthorizedError("Invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apierrors.NewUnauthorizedError("Invalid email or password")
	}

	if account.Status == schema.AccountStatusBanned {
		return nil, apierrors.NewForbiddenError("Account is banned")
	}

	return e.authResponse(account)
}

func (e *executor) GetProfile(ctx context.Context, accountID int64) (*dto.AccountResponse, error) {
	account, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return dto.MapAccountToDTO(account), nil
}

func (e *executor) UpdateProfile(ctx context.Context, accountID int64, req dto.UpdateProfileRequest) (*dto.AccountResponse, error) {
	if _, err := e.loadAccount(ctx, accountID); err != nil {
		return nil, err
	}

	err := e.store.UpdateAccount(ctx, accountID, store.UpdateAccountInput{
		Name:          req.Name,
		WalletAddress: req.WalletAddress,
	})
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to update account: %v", err))
	}

	return e.GetProfile(ctx, accountID)
}

func (e *executor) PurchaseTokens(ctx context.Context, accountID int64, req dto.PurchaseRequest) (*dto.PurchaseResponse, error) {
	settings, err := e.loadSettings(ctx)
	if err != nil {
		return nil, err
	}
	if settings.MaintenanceMode {
		return nil, apierrors.NewForbiddenError("Purchases are temporarily disabled")
	}

	// The token quantity is fixed here, at the price in force at submission
	// time, and never recomputed afterwards.
	tokens, usdtValue, err := domain.TokenQuantity(req.Amount, domain.Currency(req.Currency), settings.TokenPrice)
	if err != nil {
		return nil, apierrors.NewValidationError(err.Error())
	}

	order, _, err := e.ledger.Record(ctx, referral.RecordInput{
		BuyerID:       accountID,
		Amount:        req.Amount,
		Currency:      domain.Currency(req.Currency),
		TokenQuantity: tokens,
		USDTValue:     usdtValue,
		TokenPrice:    settings.TokenPrice,
		ReferenceID:   req.ReferenceID,
		PaymentProof:  req.PaymentProof,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			return nil, apierrors.NewValidationError(err.Error())
		case errors.Is(err, domain.ErrAccountNotFound):
			return nil, apierrors.NewNotFoundError("Account not found")
		case order != nil:
			// The order and any credits applied before the failure stay
			// committed; the caller still gets a failure, with the order
			// reference for reconciliation.
			logger.ErrorCtx(ctx, err, zap.Int64("purchase_id", order.ID))
			return nil, apierrors.NewInternalError(
				"Purchase recorded but commission distribution failed",
				fmt.Sprintf("purchase reference: %s", order.ReferenceID),
			)
		default:
			return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to record purchase: %v", err))
		}
	}

	return dto.MapPurchaseToDTO(order), nil
}

func (e *executor) ListTransactions(ctx context.Context, accountID int64, entryType *schema.EntryType, limit int, offset uint64) (*dto.TransactionListResponse, error) {
	return e.listTransactions(ctx, store.TransactionFilter{
		AccountID: &accountID,
		EntryType: entryType,
		Limit:     limit,
		Offset:    offset,
	})
}

func (e *executor) ReferralNetwork(ctx context.Context, accountID int64) (*dto.ReferralNetworkResponse, error) {
	account, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	response := &dto.ReferralNetworkResponse{
		ReferralCode: account.ReferralCode,
		IncomeTotal:  account.IncomeTotal,
		Levels:       make([]dto.ReferralLevelResponse, 0, domain.MaxCommissionLevels),
	}

	levelIncome := []float64{account.IncomeLevel1, account.IncomeLevel2, account.IncomeLevel3}
	for level := 1; level <= domain.MaxCommissionLevels; level++ {
		members, err := e.store.ListDownline(ctx, accountID, level)
		if err != nil {
			return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to list level %d downline: %v", level, err))
		}

		levelResp := dto.ReferralLevelResponse{
			Level:   level,
			Count:   len(members),
			Income:  levelIncome[level-1],
			Members: make([]dto.ReferralMemberResponse, 0, len(members)),
		}
		for _, member := range members {
			levelResp.Business += member.TotalInvestment
			levelResp.Members = append(levelResp.Members, dto.ReferralMemberResponse{
				ID:              member.ID,
				Name:            member.Name,
				ReferralCode:    member.ReferralCode,
				TotalInvestment: member.TotalInvestment,
				JoinedAt:        member.CreatedAt,
			})
		}

		response.TeamTotal += len(members)
		response.Levels = append(response.Levels, levelResp)
	}

	return response, nil
}

func (e *executor) Dashboard(ctx context.Context, accountID int64) (*dto.DashboardResponse, error) {
	account, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	counts, err := e.store.DownlineCounts(ctx, accountID)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to count downlines: %v", err))
	}

	settings, err := e.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	return &dto.DashboardResponse{
		Account:        dto.MapAccountToDTO(account),
		TokenPrice:     settings.TokenPrice,
		PortfolioValue: (account.TokenBalance + account.StakedBalance) * settings.TokenPrice,
		TeamLevel1:     counts.Level1,
		TeamLevel2:     counts.Level2,
		TeamLevel3:     counts.Level3,
		TeamTotal:      counts.Total(),
	}, nil
}

func (e *executor) GetSettings(ctx context.Context) (*dto.SettingsResponse, error) {
	settings, err := e.loadSettings(ctx)
	if err != nil {
		return nil, err
	}
	return dto.MapSettingsToDTO(settings), nil
}

func (e *executor) AdminListUsers(ctx context.Context, limit int, offset uint64) (*dto.AccountListResponse, error) {
	accounts, total, err := e.store.ListAccounts(ctx, limit, offset)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to list accounts: %v", err))
	}

	items := make([]dto.AdminAccountResponse, 0, len(accounts))
	for _, account := range accounts {
		counts, err := e.store.DownlineCounts(ctx, account.ID)
		if err != nil {
			return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to count downlines: %v", err))
		}
		items = append(items, dto.AdminAccountResponse{
			AccountResponse: *dto.MapAccountToDTO(account),
			TeamLevel1:      counts.Level1,
			TeamLevel2:      counts.Level2,
			TeamLevel3:      counts.Level3,
			TeamTotal:       counts.Total(),
		})
	}

	return &dto.AccountListResponse{
		Accounts: items,
		Offset:   nextOffset(offset, len(accounts), total),
		Total:    total,
	}, nil
}

func (e *executor) AdminUpdateUser(ctx context.Context, accountID int64, req dto.AdminUpdateUserRequest) (*dto.AccountResponse, error) {
	if _, err := e.loadAccount(ctx, accountID); err != nil {
		return nil, err
	}

	var status *schema.AccountStatus
	if req.Status != nil {
		s := schema.AccountStatus(*req.Status)
		status = &s
	}
	var kycStatus *schema.KYCStatus
	if req.KYCStatus != nil {
		s := schema.KYCStatus(*req.KYCStatus)
		kycStatus = &s
	}

	err := e.store.UpdateAccount(ctx, accountID, store.UpdateAccountInput{
		Name:            req.Name,
		Email:           req.Email,
		WalletAddress:   req.WalletAddress,
		Status:          status,
		KYCStatus:       kycStatus,
		TokenBalance:    req.TokenBalance,
		StableBalance:   req.StableBalance,
		StakedBalance:   req.StakedBalance,
		TotalInvestment: req.TotalInvestment,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, apierrors.NewConflictError("Email already registered")
		}
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to update account: %v", err))
	}

	return e.GetProfile(ctx, accountID)
}

func (e *executor) AdminListTransactions(ctx context.Context, accountID *int64, entryType *schema.EntryType, limit int, offset uint64) (*dto.TransactionListResponse, error) {
	return e.listTransactions(ctx, store.TransactionFilter{
		AccountID: accountID,
		EntryType: entryType,
		Limit:     limit,
		Offset:    offset,
	})
}

func (e *executor) AdminUpdateTransactionStatus(ctx context.Context, transactionID int64, status schema.TransactionStatus) (*dto.TransactionResponse, error) {
	entry, err := e.supervisor.UpdateTransactionStatus(ctx, transactionID, status)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTransactionNotFound), errors.Is(err, domain.ErrPurchaseNotFound):
			return nil, apierrors.NewNotFoundError("Transaction not found")
		case errors.Is(err, domain.ErrInvalidTransition):
			return nil, apierrors.NewConflictError("Transaction already settled", err.Error())
		default:
			return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to update transaction: %v", err))
		}
	}

	// Settlements move the revenue aggregates, so drop the cached stats
	e.invalidate(ctx, statsCacheKey)

	return dto.MapTransactionToDTO(entry), nil
}

func (e *executor) AdminPlatformStats(ctx context.Context) (*dto.PlatformStatsResponse, error) {
	if e.cache != nil {
		var cached dto.PlatformStatsResponse
		if err := e.cache.GetJSON(ctx, statsCacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, adapter.ErrCacheMiss) {
			logger.WarnCtx(ctx, "stats cache read failed", zap.Error(err))
		}
	}

	stats, err := e.supervisor.PlatformStats(ctx)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to compute platform stats: %v", err))
	}

	response := dto.MapPlatformStatsToDTO(stats)
	if e.cache != nil {
		if err := e.cache.SetJSON(ctx, statsCacheKey, response, e.cacheTTL); err != nil {
			logger.WarnCtx(ctx, "stats cache write failed", zap.Error(err))
		}
	}
	return response, nil
}

func (e *executor) AdminUpdateSettings(ctx context.Context, req dto.UpdateSettingsRequest) (*dto.SettingsResponse, error) {
	settings, err := e.store.UpdateSettings(ctx, store.UpdateSettingsInput{
		TokenPrice:      req.TokenPrice,
		NetworkFee:      req.NetworkFee,
		MinWithdrawal:   req.MinWithdrawal,
		MaintenanceMode: req.MaintenanceMode,
	})
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to update settings: %v", err))
	}

	e.invalidate(ctx, settingsCacheKey)

	return dto.MapSettingsToDTO(settings), nil
}

// uniqueReferralCode generates a referral code, retrying on store collision
func (e *executor) uniqueReferralCode(ctx context.Context) (string, error) {
	for range referralCodeAttempts {
		code := domain.NewReferralCode().String()
		existing, err := e.store.GetAccountByReferralCode(ctx, code)
		if err != nil {
			return "", apierrors.NewDatabaseError(fmt.Sprintf("Failed to check referral code: %v", err))
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", apierrors.NewInternalError("Failed to allocate a referral code")
}

func (e *executor) authResponse(account *schema.Account) (*dto.AuthResponse, error) {
	token, expiresAt, err := middleware.IssueToken(e.auth, account.ID, account.Admin)
	if err != nil {
		return nil, apierrors.NewInternalError(fmt.Sprintf("Failed to issue token: %v", err))
	}
	return &dto.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Account:   dto.MapAccountToDTO(account),
	}, nil
}

func (e *executor) loadAccount(ctx context.Context, accountID int64) (*schema.Account, error) {
	account, err := e.store.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to load account: %v", err))
	}
	if account == nil {
		return nil, apierrors.NewNotFoundError("Account not found")
	}
	return account, nil
}

// loadSettings reads the settings row through the cache
func (e *executor) loadSettings(ctx context.Context) (*schema.Settings, error) {
	if e.cache != nil {
		var cached schema.Settings
		if err := e.cache.GetJSON(ctx, settingsCacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, adapter.ErrCacheMiss) {
			logger.WarnCtx(ctx, "settings cache read failed", zap.Error(err))
		}
	}

	settings, err := e.store.GetSettings(ctx)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to load settings: %v", err))
	}

	if e.cache != nil {
		if err := e.cache.SetJSON(ctx, settingsCacheKey, settings, e.cacheTTL); err != nil {
			logger.WarnCtx(ctx, "settings cache write failed", zap.Error(err))
		}
	}
	return settings, nil
}

func (e *executor) listTransactions(ctx context.Context, filter store.TransactionFilter) (*dto.TransactionListResponse, error) {
	if filter.Limit <= 0 {
		filter.Limit = constants.DEFAULT_PAGE_LIMIT
	}

	entries, total, err := e.store.ListTransactions(ctx, filter)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to list transactions: %v", err))
	}

	items := make([]dto.TransactionResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, *dto.MapTransactionToDTO(entry))
	}

	return &dto.TransactionListResponse{
		Transactions: items,
		Offset:       nextOffset(filter.Offset, len(entries), total),
		Total:        total,
	}, nil
}

func (e *executor) invalidate(ctx context.Context, key string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Delete(ctx, key); err != nil {
		logger.WarnCtx(ctx, "cache invalidation failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func nextOffset(offset uint64, returned int, total uint64) *uint64 {
	if offset+uint64(returned) >= total {
		return nil
	}
	next := offset + uint64(returned)
	return &next
}
