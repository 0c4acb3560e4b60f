package referral

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/dhanki/token-platform/internal/domain"
	"github.com/dhanki/token-platform/internal/logger"
	"github.com/dhanki/token-platform/internal/store"
	"github.com/dhanki/token-platform/internal/store/schema"
)

// Ledger enforces the purchase state machine over the append-only
// transaction log and owns the single invocation of the commission engine
// per purchase.
type Ledger struct {
	store  store.Store
	engine *Engine
}

// NewLedger creates a new purchase ledger over the given store and engine
func NewLedger(s store.Store, engine *Engine) *Ledger {
	return &Ledger{store: s, engine: engine}
}

// RecordInput describes one purchase submission. Token quantity and USDT
// value are computed by the caller from the settings price before recording.
type RecordInput struct {
	BuyerID       int64
	Amount        float64
	Currency      domain.Currency
	TokenQuantity float64
	USDTValue     float64
	TokenPrice    float64
	ReferenceID   string
	PaymentProof  string
}

func (in *RecordInput) validate() error {
	if in.BuyerID <= 0 {
		return fmt.Errorf("%w: buyer is required", domain.ErrValidation)
	}
	if in.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if !domain.IsValidPurchaseCurrency(in.Currency) {
		return fmt.Errorf("%w: unsupported currency %q", domain.ErrValidation, in.Currency)
	}
	if in.TokenQuantity <= 0 {
		return fmt.Errorf("%w: token quantity must be positive", domain.ErrValidation)
	}
	return nil
}

// Record appends a pending purchase order with its history transaction, then
// runs the commission distribution exactly once.
//
// Commission and the buyer's own token credit happen here, at submission
// time, before any admin approval. A later rejection does not claw anything
// back. Validation failures reject the request before any ledger write.
func (l *Ledger) Record(ctx context.Context, input RecordInput) (*schema.PurchaseOrder, *DistributionResult, error) {
	if err := input.validate(); err != nil {
		return nil, nil, err
	}

	buyer, err := l.store.GetAccountByID(ctx, input.BuyerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load buyer: %w", err)
	}
	if buyer == nil {
		return nil, nil, domain.ErrAccountNotFound
	}

	reference := input.ReferenceID
	if reference == "" {
		reference = "INTERNAL_" + ulid.MustNew(ulid.Timestamp(time.Now().UTC()), ulid.DefaultEntropy()).String()
	}

	order, err := l.store.CreatePurchase(ctx, store.CreatePurchaseInput{
		AccountID:     input.BuyerID,
		Amount:        input.Amount,
		Currency:      string(input.Currency),
		TokenQuantity: input.TokenQuantity,
		USDTValue:     input.USDTValue,
		TokenPrice:    input.TokenPrice,
		ReferenceID:   reference,
		PaymentProof:  input.PaymentProof,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to record purchase: %w", err)
	}

	// The state-transition guard above us (one pending order per submission)
	// is what makes this single distribute call per purchase; the engine
	// trusts it and does not deduplicate whole purchases itself.
	dist, err := l.engine.Distribute(ctx, DistributionInput{
		PurchaseID:    order.ID,
		Buyer:         buyer,
		TokenQuantity: input.TokenQuantity,
		USDTValue:     input.USDTValue,
	})
	if err != nil {
		// Best effort forward: the order and any already-applied credits
		// stay committed; the failure is surfaced, not compensated.
		logger.ErrorCtx(ctx, err,
			zap.Int64("purchase_id", order.ID),
			zap.Int64("buyer_id", input.BuyerID),
		)
		return order, dist, fmt.Errorf("purchase %d recorded but distribution failed: %w", order.ID, err)
	}

	logger.InfoCtx(ctx, "purchase recorded",
		zap.Int64("purchase_id", order.ID),
		zap.Int64("buyer_id", input.BuyerID),
		zap.Float64("tokens", input.TokenQuantity),
		zap.Float64("commission_paid", dist.TotalPaid),
		zap.Int("levels_paid", len(dist.Payouts)),
	)
	return order, dist, nil
}

// Approve transitions a pending purchase to completed. It only flips the
// stored status: balances and commission were credited at record time, so
// settlement re-credits nothing.
func (l *Ledger) Approve(ctx context.Context, purchaseID int64) error {
	return l.store.TransitionPurchase(ctx, purchaseID, schema.PurchaseStatusCompleted)
}

// Reject transitions a pending purchase to rejected. Previously credited
// balances and commission are not clawed back.
func (l *Ledger) Reject(ctx context.Context, purchaseID int64) error {
	return l.store.TransitionPurchase(ctx, purchaseID, schema.PurchaseStatusRejected)
}

// Fail transitions a pending purchase to failed (malformed or abandoned requests)
func (l *Ledger) Fail(ctx context.Context, purchaseID int64) error {
	return l.store.TransitionPurchase(ctx, purchaseID, schema.PurchaseStatusFailed)
}
