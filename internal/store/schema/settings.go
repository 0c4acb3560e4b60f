package schema

import (
	"time"
)

// Default platform settings applied when the singleton row is first created
const (
	DefaultTokenPrice    = 0.015
	DefaultNetworkFee    = 2.00
	DefaultMinWithdrawal = 10.0
)

// Settings represents the settings table - a singleton row of global platform
// parameters tuned from the admin console. The core only consumes TokenPrice;
// it never owns or mutates settings.
type Settings struct {
	// ID is always 1; the table holds exactly one row
	ID int64 `gorm:"column:id;primaryKey"`
	// TokenPrice is the USDT price of one DHANKI token
	TokenPrice float64 `gorm:"column:token_price;not null;default:0.015"`
	// NetworkFee is the flat USDT fee charged on withdrawals
	NetworkFee float64 `gorm:"column:network_fee;not null;default:2.00"`
	// MinWithdrawal is the minimum USDT withdrawal amount
	MinWithdrawal float64 `gorm:"column:min_withdrawal;not null;default:10"`
	// MaintenanceMode disables purchases platform-wide when set
	MaintenanceMode bool `gorm:"column:maintenance_mode;not null;default:false"`
	// UpdatedAt is the timestamp of the last admin change
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Settings model
func (Settings) TableName() string {
	return "settings"
}
