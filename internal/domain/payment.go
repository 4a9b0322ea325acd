package domain

import (
	"errors" // Sentinel errors
	"time"   // Timestamps
)

// Payment statuses. Confirmed is terminal.
const (
	PaymentStatusPending   = "pending"   // Awaiting out-of-band admin verification
	PaymentStatusAuto      = "auto"      // Created under auto-credit, awaiting confirm
	PaymentStatusConfirmed = "confirmed" // Credited, terminal
)

// ErrPaymentAlreadyConfirmed is returned when a confirmed payment is
// confirmed again. The credit must be applied exactly once.
var ErrPaymentAlreadyConfirmed = errors.New("payment already confirmed")

// Payment Model
type Payment struct {
	ID          uint       `gorm:"primaryKey" json:"id"`                 // Primary key
	UserID      uint       `gorm:"index;not null" json:"userId"`         // User being credited
	Amount      int64      `gorm:"not null" json:"amount"`               // Top-up amount in INX
	Status      string     `gorm:"not null" json:"status"`               // pending, auto or confirmed
	ConfirmedAt *time.Time `json:"confirmedAt"`                          // Set once at confirmation
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"createdAt"`      // Record creation time
}

// Confirm transitions the payment to confirmed. It refuses to re-confirm
// a terminal payment so the wallet credit cannot be applied twice.
func (p *Payment) Confirm(now time.Time) error {
	if p.Status == PaymentStatusConfirmed {
		return ErrPaymentAlreadyConfirmed
	}
	p.Status = PaymentStatusConfirmed // Terminal transition
	p.ConfirmedAt = &now              // Set exactly once
	return nil
}
