package referral

import (
	"context"
	"fmt"

	"github.com/dhanki/token-platform/internal/domain"
	"github.com/dhanki/token-platform/internal/store"
	"github.com/dhanki/token-platform/internal/store/schema"
)

// Supervisor exposes the admin settlement operations: listing the ledger,
// flipping transaction statuses and computing platform aggregates. No
// commission logic lives here.
type Supervisor struct {
	store  store.Store
	ledger *Ledger
}

// NewSupervisor creates a new settlement supervisor
func NewSupervisor(s store.Store, ledger *Ledger) *Supervisor {
	return &Supervisor{store: s, ledger: ledger}
}

// ListTransactions retrieves ledger entries most-recent-first
func (s *Supervisor) ListTransactions(ctx context.Context, filter store.TransactionFilter) ([]*schema.Transaction, uint64, error) {
	return s.store.ListTransactions(ctx, filter)
}

// UpdateTransactionStatus flips a ledger entry's status. For entries that
// mirror a purchase order the change runs through the purchase state machine,
// so terminal orders reject further updates; standalone entries
// (withdrawals) are flipped directly.
func (s *Supervisor) UpdateTransactionStatus(ctx context.Context, transactionID int64, status schema.TransactionStatus) (*schema.Transaction, error) {
	entry, err := s.store.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, domain.ErrTransactionNotFound
	}

	if entry.EntryType == schema.EntryTypePurchase && entry.PurchaseID != nil {
		var target schema.PurchaseStatus
		switch status {
		case schema.TransactionStatusCompleted:
			target = schema.PurchaseStatusCompleted
		case schema.TransactionStatusRejected:
			target = schema.PurchaseStatusRejected
		case schema.TransactionStatusFailed:
			target = schema.PurchaseStatusFailed
		default:
			return nil, fmt.Errorf("%w: cannot move a purchase back to %q", domain.ErrInvalidTransition, status)
		}

		if err := s.store.TransitionPurchase(ctx, *entry.PurchaseID, target); err != nil {
			return nil, err
		}
	} else {
		if err := s.store.UpdateTransactionStatus(ctx, transactionID, status); err != nil {
			return nil, err
		}
	}

	return s.store.GetTransactionByID(ctx, transactionID)
}

// PlatformStats computes the admin dashboard aggregates: total users,
// completed-purchase revenue and completed-purchase token volume
func (s *Supervisor) PlatformStats(ctx context.Context) (*store.PlatformStats, error) {
	return s.store.GetPlatformStats(ctx)
}
