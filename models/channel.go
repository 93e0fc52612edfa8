package models

// Channel is a named room. A nil Admin marks a default channel that every
// new account joins automatically.
type Channel struct {
	ID        uint    `gorm:"primaryKey"`
	ChannelID string  `gorm:"size:40;uniqueIndex;not null"`
	Admin     *string `gorm:"size:20;index"`
}

// IsDefault reports whether the channel has no admin.
func (c Channel) IsDefault() bool {
	return c.Admin == nil
}

// AdministeredBy reports whether userID is the channel's admin.
func (c Channel) AdministeredBy(userID string) bool {
	return c.Admin != nil && *c.Admin == userID
}

// Membership records that an account has joined a channel. The pair is
// unique; ID gives the order memberships were created in.
type Membership struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"size:20;not null;uniqueIndex:idx_membership_pair;index"`
	ChannelID string `gorm:"size:40;not null;uniqueIndex:idx_membership_pair;index"`
}
