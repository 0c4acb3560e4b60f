package schema

import (
	"time"
)

// Downline represents the referral_downlines table - the 3-level downline
// index maintained by the referral tree. One row per (account, member, level);
// the composite unique index is the dedup guard, and the auto-incrementing id
// preserves insertion order within a level.
type Downline struct {
	// ID is the internal database primary key; ordering within a level follows it
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// AccountID is the upline account whose downline list this row belongs to
	AccountID int64 `gorm:"column:account_id;not null;uniqueIndex:idx_downlines_account_member_level,priority:1"`
	// MemberID is the recruited account appearing in the list
	MemberID int64 `gorm:"column:member_id;not null;uniqueIndex:idx_downlines_account_member_level,priority:2"`
	// Level is the depth of the member relative to the account (1..3)
	Level int `gorm:"column:level;not null;type:smallint;uniqueIndex:idx_downlines_account_member_level,priority:3"`
	// CreatedAt is the timestamp the link was recorded
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`

	// Associations
	Account Account `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
	Member  Account `gorm:"foreignKey:MemberID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Downline model
func (Downline) TableName() string {
	return "referral_downlines"
}
