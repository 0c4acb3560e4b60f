// Package referral implements the multi-level commission core: referral-tree
// maintenance, the bounded commission walk, the purchase ledger and the admin
// settlement operations. It depends only on the store interface.
package referral

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dhanki/token-platform/internal/domain"
	"github.com/dhanki/token-platform/internal/logger"
	"github.com/dhanki/token-platform/internal/store"
)

// Tree keeps each account's 3-level downline index consistent with the
// sponsor-code chain
type Tree struct {
	store store.Store
}

// NewTree creates a new referral tree over the given store
func NewTree(s store.Store) *Tree {
	return &Tree{store: s}
}

// Link records a newly registered account in the downline lists of its
// sponsor chain, up to 3 levels.
//
// An empty or unresolvable sponsor code is a silent no-op: registration must
// never fail because of a bad referral code. Each append is an independent
// write to the affected upline account; duplicates are absorbed by the
// store's dedup guard. The walk is hard-capped at 3 levels, so a cycle in the
// sponsor chain cannot cause unbounded recursion.
func (t *Tree) Link(ctx context.Context, accountID int64, sponsorCode string) error {
	code := domain.NormalizeReferralCode(sponsorCode)
	if code == "" {
		return nil
	}

	for level := 1; level <= domain.MaxCommissionLevels; level++ {
		sponsor, err := t.store.GetAccountByReferralCode(ctx, code.String())
		if err != nil {
			return fmt.Errorf("failed to resolve sponsor at level %d: %w", level, err)
		}
		if sponsor == nil {
			// Broken chain: nothing to record at this level or deeper
			return nil
		}

		added, err := t.store.AppendDownline(ctx, sponsor.ID, accountID, level)
		if err != nil {
			return fmt.Errorf("failed to append level %d downline: %w", level, err)
		}
		if !added {
			logger.DebugCtx(ctx, "downline entry already present",
				zap.Int64("account_id", sponsor.ID),
				zap.Int64("member_id", accountID),
				zap.Int("level", level),
			)
		}

		if sponsor.SponsorCode == nil {
			return nil
		}
		code = domain.NormalizeReferralCode(*sponsor.SponsorCode)
		if code == "" {
			return nil
		}
	}

	return nil
}

// RebuildAll repairs the downline index from scratch: it clears every
// account's lists, then replays one Link per sponsored account in
// registration order. Because it clears before rebuilding, running it twice
// from the same sponsor-code data produces identical lists both times.
func (t *Tree) RebuildAll(ctx context.Context) error {
	if err := t.store.ClearDownlines(ctx); err != nil {
		return fmt.Errorf("failed to clear downline index: %w", err)
	}

	accounts, err := t.store.ListAccountIDsWithSponsor(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sponsored accounts: %w", err)
	}

	for _, account := range accounts {
		if account.SponsorCode == nil {
			continue
		}
		if err := t.Link(ctx, account.ID, *account.SponsorCode); err != nil {
			return fmt.Errorf("failed to relink account %d: %w", account.ID, err)
		}
	}

	logger.InfoCtx(ctx, "rebuilt referral downline index",
		zap.Int("accounts", len(accounts)),
	)
	return nil
}
