package dto

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dhanki/token-platform/internal/api/shared/constants"
	apierrors "github.com/dhanki/token-platform/internal/api/shared/errors"
	"github.com/dhanki/token-platform/internal/domain"
	"github.com/dhanki/token-platform/internal/store/schema"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// RegisterRequest represents the request body for account registration
type RegisterRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	SponsorCode   string `json:"sponsor_code,omitempty"`
	WalletAddress string `json:"wallet_address,omitempty"`
}

// Validate validates the request body
func (r *RegisterRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.SponsorCode = strings.TrimSpace(r.SponsorCode)

	if r.Name == "" {
		return apierrors.NewValidationError("name is required")
	}
	if len(r.Name) > constants.MAX_NAME_LENGTH {
		return apierrors.NewValidationError(fmt.Sprintf("name must be at most %d characters", constants.MAX_NAME_LENGTH))
	}
	if r.Email == "" {
		return apierrors.NewValidationError("email is required")
	}
	if !emailPattern.MatchString(r.Email) {
		return apierrors.NewValidationError(fmt.Sprintf("invalid email: %s", r.Email))
	}
	if len(r.Password) < constants.MIN_PASSWORD_LENGTH {
		return apierrors.NewValidationError(fmt.Sprintf("password must be at least %d characters", constants.MIN_PASSWORD_LENGTH))
	}
	// A sponsor code is optional, but when present it must at least look
	// like one. Whether it resolves to an account is decided later and
	// never fails registration.
	if r.SponsorCode != "" && !domain.NormalizeReferralCode(r.SponsorCode).Valid() {
		return apierrors.NewValidationError(fmt.Sprintf("invalid sponsor code: %s", r.SponsorCode))
	}
	return nil
}

// LoginRequest represents the request body for authentication
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate validates the request body
func (r *LoginRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))

	if r.Email == "" {
		return apierrors.NewValidationError("email is required")
	}
	if r.Password == "" {
		return apierrors.NewValidationError("password is required")
	}
	return nil
}

// PurchaseRequest represents the request body for a token purchase submission
type PurchaseRequest struct {
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	ReferenceID  string  `json:"reference_id,omitempty"`
	PaymentProof string  `json:"payment_proof,omitempty"`
}

// Validate validates the request body
func (r *PurchaseRequest) Validate() error {
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	r.ReferenceID = strings.TrimSpace(r.ReferenceID)

	if r.Amount <= 0 {
		return apierrors.NewValidationError("amount must be positive")
	}
	if !domain.IsValidPurchaseCurrency(domain.Currency(r.Currency)) {
		return apierrors.NewValidationError(fmt.Sprintf("unsupported currency: %s", r.Currency))
	}
	if len(r.ReferenceID) > constants.MAX_REFERENCE_LENGTH {
		return apierrors.NewValidationError(fmt.Sprintf("reference_id must be at most %d characters", constants.MAX_REFERENCE_LENGTH))
	}
	if len(r.PaymentProof) > constants.MAX_PROOF_LENGTH {
		return apierrors.NewValidationError(fmt.Sprintf("payment_proof must be at most %d characters", constants.MAX_PROOF_LENGTH))
	}
	return nil
}

// UpdateProfileRequest represents the request body for self-service profile updates
type UpdateProfileRequest struct {
	Name          *string `json:"name,omitempty"`
	WalletAddress *string `json:"wallet_address,omitempty"`
}

// Validate validates the request body
func (r *UpdateProfileRequest) Validate() error {
	if r.Name == nil && r.WalletAddress == nil {
		return apierrors.NewValidationError("at least one field is required")
	}
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		if trimmed == "" {
			return apierrors.NewValidationError("name cannot be empty")
		}
		if len(trimmed) > constants.MAX_NAME_LENGTH {
			return apierrors.NewValidationError(fmt.Sprintf("name must be at most %d characters", constants.MAX_NAME_LENGTH))
		}
		r.Name = &trimmed
	}
	return nil
}

// AdminUpdateUserRequest represents the admin override request body. All
// fields are optional; set fields are applied verbatim, bypassing the
// commission engine.
type AdminUpdateUserRequest struct {
	Name            *string  `json:"name,omitempty"`
	Email           *string  `json:"email,omitempty"`
	WalletAddress   *string  `json:"wallet_address,omitempty"`
	Status          *string  `json:"status,omitempty"`
	KYCStatus       *string  `json:"kyc_status,omitempty"`
	TokenBalance    *float64 `json:"token_balance,omitempty"`
	StableBalance   *float64 `json:"stable_balance,omitempty"`
	StakedBalance   *float64 `json:"staked_balance,omitempty"`
	TotalInvestment *float64 `json:"total_investment,omitempty"`
}

// Validate validates the request body
func (r *AdminUpdateUserRequest) Validate() error {
	if r.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*r.Email))
		if !emailPattern.MatchString(email) {
			return apierrors.NewValidationError(fmt.Sprintf("invalid email: %s", *r.Email))
		}
		r.Email = &email
	}
	if r.Status != nil {
		switch schema.AccountStatus(*r.Status) {
		case schema.AccountStatusActive, schema.AccountStatusInactive, schema.AccountStatusBanned:
		default:
			return apierrors.NewValidationError(fmt.Sprintf("invalid status: %s", *r.Status))
		}
	}
	if r.KYCStatus != nil {
		switch schema.KYCStatus(*r.KYCStatus) {
		case schema.KYCStatusNone, schema.KYCStatusPending, schema.KYCStatusVerified, schema.KYCStatusRejected:
		default:
			return apierrors.NewValidationError(fmt.Sprintf("invalid kyc_status: %s", *r.KYCStatus))
		}
	}
	return nil
}

// UpdateTransactionStatusRequest represents the admin settlement request body
type UpdateTransactionStatusRequest struct {
	Status string `json:"status"`
}

// Validate validates the request body
func (r *UpdateTransactionStatusRequest) Validate() error {
	switch schema.TransactionStatus(r.Status) {
	case schema.TransactionStatusCompleted, schema.TransactionStatusRejected, schema.TransactionStatusFailed:
		return nil
	case schema.TransactionStatusPending:
		return apierrors.NewValidationError("cannot move a transaction back to pending")
	default:
		return apierrors.NewValidationError(fmt.Sprintf("invalid status: %s", r.Status))
	}
}

// UpdateSettingsRequest represents the admin platform settings request body
type UpdateSettingsRequest struct {
	TokenPrice      *float64 `json:"token_price,omitempty"`
	NetworkFee      *float64 `json:"network_fee,omitempty"`
	MinWithdrawal   *float64 `json:"min_withdrawal,omitempty"`
	MaintenanceMode *bool    `json:"maintenance_mode,omitempty"`
}

// Validate validates the request body
func (r *UpdateSettingsRequest) Validate() error {
	if r.TokenPrice == nil && r.NetworkFee == nil && r.MinWithdrawal == nil && r.MaintenanceMode == nil {
		return apierrors.NewValidationError("at least one field is required")
	}
	if r.TokenPrice != nil && *r.TokenPrice <= 0 {
		return apierrors.NewValidationError("token_price must be positive")
	}
	if r.NetworkFee != nil && *r.NetworkFee < 0 {
		return apierrors.NewValidationError("network_fee cannot be negative")
	}
	if r.MinWithdrawal != nil && *r.MinWithdrawal < 0 {
		return apierrors.NewValidationError("min_withdrawal cannot be negative")
	}
	return nil
}
