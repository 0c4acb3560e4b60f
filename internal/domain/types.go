package domain

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
)

// Currency represents the payment currency of a purchase
type Currency string

const (
	CurrencyUSDT Currency = "USDT"
	CurrencyINR  Currency = "INR"
	// CurrencyDHANKI denominates commission payouts and token credits
	CurrencyDHANKI Currency = "DHANKI"
)

// IsValidPurchaseCurrency checks if a currency is accepted for purchases
func IsValidPurchaseCurrency(c Currency) bool {
	return c == CurrencyUSDT || c == CurrencyINR
}

// INRPerUSDT is the fixed conversion rate applied to INR purchases
const INRPerUSDT = 90.0

// Commission rates as a fraction of the purchased token quantity.
// The three levels add up to the 8% total payout cap.
const (
	CommissionRateLevel1 = 0.05
	CommissionRateLevel2 = 0.02
	CommissionRateLevel3 = 0.01

	// MaxCommissionLevels bounds the upline walk
	MaxCommissionLevels = 3
)

// CommissionRate returns the payout rate for an upline level (1-based).
// Returns 0 for levels outside the bounded walk.
func CommissionRate(level int) float64 {
	switch level {
	case 1:
		return CommissionRateLevel1
	case 2:
		return CommissionRateLevel2
	case 3:
		return CommissionRateLevel3
	default:
		return 0
	}
}

// ReferralCodePrefix is the fixed prefix of externally visible account codes
const ReferralCodePrefix = "DHK"

var referralCodePattern = regexp.MustCompile(`^[A-Z]{3}[0-9]{4}$`)

// ReferralCode is the external-facing account identifier: a 3-letter prefix
// followed by 4 digits (e.g. "DHK4821")
type ReferralCode string

// String returns the string representation of the ReferralCode
func (c ReferralCode) String() string {
	return string(c)
}

// Valid checks if the code matches the prefix+digits format
func (c ReferralCode) Valid() bool {
	return referralCodePattern.MatchString(string(c))
}

// NormalizeReferralCode trims whitespace and upper-cases a user-supplied code
func NormalizeReferralCode(code string) ReferralCode {
	return ReferralCode(strings.ToUpper(strings.TrimSpace(code)))
}

// NewReferralCode generates a candidate referral code. Uniqueness is not
// guaranteed here; callers must check the store and retry on collision.
func NewReferralCode() ReferralCode {
	return ReferralCode(fmt.Sprintf("%s%04d", ReferralCodePrefix, 1000+rand.IntN(9000)))
}

// TokenQuantity computes the number of tokens credited for a purchase of
// `amount` in `currency` at the given USDT token price. The quantity is fixed
// at purchase creation and never recomputed afterwards.
func TokenQuantity(amount float64, currency Currency, tokenPrice float64) (tokens float64, usdtValue float64, err error) {
	if amount <= 0 {
		return 0, 0, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if tokenPrice <= 0 {
		return 0, 0, fmt.Errorf("%w: token price must be positive", ErrValidation)
	}

	switch currency {
	case CurrencyUSDT:
		usdtValue = amount
	case CurrencyINR:
		usdtValue = amount / INRPerUSDT
	default:
		return 0, 0, fmt.Errorf("%w: unsupported currency %q", ErrValidation, currency)
	}

	return usdtValue / tokenPrice, usdtValue, nil
}
