package domain

// User Model
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`            // Primary key
	Username string `gorm:"not null" json:"username"`        // Display name
	Email    string `gorm:"unique;not null" json:"email"`    // Unique email, login identity
	Password string `gorm:"not null" json:"-"`               // Hashed password, never serialized
	Wallet   Wallet `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"` // One-to-one relationship with Wallet
}
