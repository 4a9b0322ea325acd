package domain

import (
	"errors" // Sentinel errors
	"time"   // Timestamps
)

// MaxRecentRewards bounds the reward history kept on a wallet.
// The oldest entry is evicted first once the cap is exceeded.
const MaxRecentRewards = 10

// Reward kinds accepted by AddReward
const (
	RewardKindInx = "inx" // Credits the INX balance
	RewardKindXP  = "xp"  // Credits experience points
)

var (
	ErrInvalidRewardKind   = errors.New("reward type must be inx or xp") // Unknown reward type
	ErrInvalidRewardAmount = errors.New("reward amount must be positive") // Zero or negative amount
)

// Wallet Model
type Wallet struct {
	ID            uint          `gorm:"primaryKey" json:"id"`                       // Primary key
	UserID        uint          `gorm:"uniqueIndex" json:"userId"`                  // Foreign key to User, one wallet per user
	Inx           int64         `gorm:"not null;default:0" json:"inx"`              // INX virtual-currency balance
	XP            int64         `gorm:"not null;default:0" json:"xp"`               // Experience points
	Level         int           `gorm:"not null;default:1" json:"level"`            // Progression tier
	LastCheckIn   *time.Time    `json:"lastCheckIn"`                                // Last daily check-in, nil until first
	GamesPlayed   int           `gorm:"not null;default:0" json:"gamesPlayed"`      // Lifetime games counter
	RecentRewards []RewardEntry `gorm:"foreignKey:WalletID" json:"recentRewards"`   // Bounded reward history, oldest first
}

// RewardEntry Model. Immutable once appended; removed only by FIFO eviction.
type RewardEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`       // Primary key
	WalletID    uint      `gorm:"index" json:"-"`             // Foreign key to Wallet
	Type        string    `gorm:"not null" json:"type"`       // inx or xp
	Amount      int64     `gorm:"not null" json:"amount"`     // Credited amount
	Description string    `json:"description"`                // Human-readable reason
	Date        time.Time `gorm:"not null" json:"date"`       // When the reward was granted
}

// WalletPatch carries an explicit optional-field update for a wallet.
// Only non-nil fields overwrite the stored value.
type WalletPatch struct {
	Inx           *int64         `json:"inx"`           // New INX balance
	XP            *int64         `json:"xp"`            // New XP total
	Level         *int           `json:"level"`         // New level
	LastCheckIn   *time.Time     `json:"lastCheckIn"`   // New check-in timestamp
	GamesPlayed   *int           `json:"gamesPlayed"`   // New games counter
	RecentRewards *[]RewardEntry `json:"recentRewards"` // Full replacement of the history
}

// ApplyPatch overwrites each wallet field for which the patch supplies a
// value and leaves the rest untouched. Values are absolute, not deltas.
func (w *Wallet) ApplyPatch(p WalletPatch) {
	if p.Inx != nil {
		w.Inx = *p.Inx // Overwrite balance
	}
	if p.XP != nil {
		w.XP = *p.XP // Overwrite XP
	}
	if p.Level != nil {
		w.Level = *p.Level // Overwrite level
	}
	if p.LastCheckIn != nil {
		w.LastCheckIn = p.LastCheckIn // Overwrite check-in
	}
	if p.GamesPlayed != nil {
		w.GamesPlayed = *p.GamesPlayed // Overwrite games counter
	}
	if p.RecentRewards != nil {
		w.RecentRewards = *p.RecentRewards // Replace history wholesale
	}
}

// AddReward applies a reward delta to the wallet and appends it to the
// recent-reward history, evicting from the front once the cap is exceeded.
// It returns the appended entry and any evicted entries so callers can
// mirror the eviction in storage.
func (w *Wallet) AddReward(kind string, amount int64, description string, now time.Time) (RewardEntry, []RewardEntry, error) {
	if amount <= 0 {
		return RewardEntry{}, nil, ErrInvalidRewardAmount // Reject non-positive deltas
	}
	// Apply the delta to the matching balance
	switch kind {
	case RewardKindInx:
		w.Inx += amount
	case RewardKindXP:
		w.XP += amount
	default:
		return RewardEntry{}, nil, ErrInvalidRewardKind
	}
	entry := RewardEntry{
		WalletID:    w.ID,        // Owning wallet
		Type:        kind,        // Reward kind
		Amount:      amount,      // Credited amount
		Description: description, // Reason
		Date:        now,         // Grant timestamp
	}
	w.RecentRewards = append(w.RecentRewards, entry)
	var evicted []RewardEntry
	// Evict oldest entries until the history fits the cap
	if n := len(w.RecentRewards); n > MaxRecentRewards {
		evicted = w.RecentRewards[:n-MaxRecentRewards]
		w.RecentRewards = append([]RewardEntry(nil), w.RecentRewards[n-MaxRecentRewards:]...)
	}
	return entry, evicted, nil
}
