package referral

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dhanki/token-platform/internal/domain"
	"github.com/dhanki/token-platform/internal/logger"
	"github.com/dhanki/token-platform/internal/store"
	"github.com/dhanki/token-platform/internal/store/schema"
)

// Engine distributes referral commission for a purchase: up to 3 upline
// accounts are credited 5%, 2% and 1% of the purchased token quantity.
//
// The caller must invoke Distribute exactly once per purchase; the engine
// does not deduplicate whole purchases. Each individual level credit IS
// idempotent (keyed by purchase and level in the store), so replaying a
// partially failed distribution cannot double-pay a level that already went
// through.
type Engine struct {
	store store.Store
}

// NewEngine creates a new commission engine over the given store
func NewEngine(s store.Store) *Engine {
	return &Engine{store: s}
}

// DistributionInput describes one purchase to distribute commission for.
// TokenQuantity is the credited token amount T; commission is computed on it,
// not on the fiat amount, so payouts stay denominated in the reward asset.
type DistributionInput struct {
	PurchaseID int64
	Buyer      *schema.Account
	// TokenQuantity is T, fixed at purchase creation
	TokenQuantity float64
	// USDTValue is the stable-asset-equivalent purchase value added to the
	// buyer's cumulative investment
	USDTValue float64
}

// LevelPayout records one credited upline level
type LevelPayout struct {
	Level         int
	BeneficiaryID int64
	Code          string
	Amount        float64
}

// DistributionResult summarizes a completed (possibly short-circuited) walk
type DistributionResult struct {
	// Payouts holds one entry per level actually credited, in walk order
	Payouts []LevelPayout
	// TotalPaid is the summed commission across all credited levels;
	// at most 8% of the token quantity by construction
	TotalPaid float64
}

// Distribute credits the buyer's own balances, then walks the upline and pays
// commission level by level.
//
// The walk short-circuits: when a level's sponsor cannot be resolved, all
// deeper levels are skipped - commission never jumps past a missing link.
// There is no rollback path: credits applied before a mid-walk failure stay
// applied; the error is surfaced to the caller and logged, never compensated.
func (e *Engine) Distribute(ctx context.Context, input DistributionInput) (*DistributionResult, error) {
	if input.Buyer == nil {
		return nil, fmt.Errorf("%w: buyer is required", domain.ErrValidation)
	}
	if input.TokenQuantity <= 0 {
		return nil, fmt.Errorf("%w: token quantity must be positive", domain.ErrValidation)
	}

	// Step 1 always runs: the buyer's own token balance and cumulative
	// investment, independent of whether any upline exists.
	if err := e.store.CreditPurchase(ctx, input.Buyer.ID, input.TokenQuantity, input.USDTValue); err != nil {
		return nil, fmt.Errorf("failed to credit buyer: %w", err)
	}

	result := &DistributionResult{}

	code := sponsorCodeOf(input.Buyer)
	for level := 1; level <= domain.MaxCommissionLevels; level++ {
		if code == "" {
			break
		}

		sponsor, err := e.store.GetAccountByReferralCode(ctx, code)
		if err != nil {
			return result, fmt.Errorf("failed to resolve level %d sponsor: %w", level, err)
		}
		if sponsor == nil {
			// Broken chain caps the payout at the level reached
			break
		}

		amount := input.TokenQuantity * domain.CommissionRate(level)
		credited, err := e.store.CreditCommission(ctx, store.CreditCommissionInput{
			PurchaseID:     input.PurchaseID,
			BuyerID:        input.Buyer.ID,
			BuyerCode:      input.Buyer.ReferralCode,
			BeneficiaryID:  sponsor.ID,
			Level:          level,
			Amount:         amount,
			Rate:           domain.CommissionRate(level),
			PurchaseTokens: input.TokenQuantity,
		})
		if err != nil {
			logger.ErrorCtx(ctx, err,
				zap.Int64("purchase_id", input.PurchaseID),
				zap.Int64("beneficiary_id", sponsor.ID),
				zap.Int("level", level),
			)
			return result, fmt.Errorf("failed to credit level %d commission: %w", level, err)
		}

		if credited {
			result.Payouts = append(result.Payouts, LevelPayout{
				Level:         level,
				BeneficiaryID: sponsor.ID,
				Code:          sponsor.ReferralCode,
				Amount:        amount,
			})
			result.TotalPaid += amount
		} else {
			logger.WarnCtx(ctx, "commission level already paid, skipping",
				zap.Int64("purchase_id", input.PurchaseID),
				zap.Int64("beneficiary_id", sponsor.ID),
				zap.Int("level", level),
			)
		}

		code = sponsorCodeOf(sponsor)
	}

	return result, nil
}

func sponsorCodeOf(account *schema.Account) string {
	if account.SponsorCode == nil {
		return ""
	}
	return domain.NormalizeReferralCode(*account.SponsorCode).String()
}
