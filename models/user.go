package models

// Account is a registered user. UserID is the login name and is unique.
// Password is stored as sent by the client.
type Account struct {
	ID       uint   `gorm:"primaryKey"`
	UserID   string `gorm:"size:20;uniqueIndex;not null"`
	Password string `gorm:"size:20;not null"`
}
