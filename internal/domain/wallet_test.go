package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPatchOnlyOverwritesSuppliedFields(t *testing.T) {
	wallet := Wallet{Inx: 10, XP: 0, Level: 1}
	xp := int64(5)

	wallet.ApplyPatch(WalletPatch{XP: &xp})

	assert.Equal(t, int64(10), wallet.Inx)
	assert.Equal(t, int64(5), wallet.XP)
	assert.Equal(t, 1, wallet.Level)
	assert.Nil(t, wallet.LastCheckIn)
	assert.Equal(t, 0, wallet.GamesPlayed)
}

func TestApplyPatchOverwritesEverySuppliedField(t *testing.T) {
	wallet := Wallet{Inx: 10, XP: 20, Level: 2, GamesPlayed: 3}
	inx := int64(100)
	level := 5
	games := 7
	checkIn := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	history := []RewardEntry{{Type: RewardKindInx, Amount: 1}}

	wallet.ApplyPatch(WalletPatch{
		Inx:           &inx,
		Level:         &level,
		GamesPlayed:   &games,
		LastCheckIn:   &checkIn,
		RecentRewards: &history,
	})

	assert.Equal(t, int64(100), wallet.Inx)
	assert.Equal(t, int64(20), wallet.XP) // not supplied, untouched
	assert.Equal(t, 5, wallet.Level)
	assert.Equal(t, 7, wallet.GamesPlayed)
	require.NotNil(t, wallet.LastCheckIn)
	assert.Equal(t, checkIn, *wallet.LastCheckIn)
	assert.Len(t, wallet.RecentRewards, 1)
}

func TestAddRewardAppliesDeltaPerKind(t *testing.T) {
	wallet := Wallet{Inx: 10, XP: 5}
	now := time.Now()

	_, _, err := wallet.AddReward(RewardKindInx, 15, "daily check-in", now)
	require.NoError(t, err)
	_, _, err = wallet.AddReward(RewardKindXP, 3, "game played", now)
	require.NoError(t, err)

	assert.Equal(t, int64(25), wallet.Inx)
	assert.Equal(t, int64(8), wallet.XP)
	assert.Len(t, wallet.RecentRewards, 2)
}

func TestAddRewardRejectsUnknownKind(t *testing.T) {
	wallet := Wallet{}

	_, _, err := wallet.AddReward("gold", 5, "", time.Now())

	assert.ErrorIs(t, err, ErrInvalidRewardKind)
	assert.Empty(t, wallet.RecentRewards)
}

func TestAddRewardRejectsNonPositiveAmounts(t *testing.T) {
	wallet := Wallet{Inx: 10}

	_, _, err := wallet.AddReward(RewardKindInx, 0, "", time.Now())
	assert.ErrorIs(t, err, ErrInvalidRewardAmount)

	_, _, err = wallet.AddReward(RewardKindInx, -5, "", time.Now())
	assert.ErrorIs(t, err, ErrInvalidRewardAmount)

	// Balance and history stay untouched on rejection
	assert.Equal(t, int64(10), wallet.Inx)
	assert.Empty(t, wallet.RecentRewards)
}

func TestAddRewardEvictsOldestBeyondCap(t *testing.T) {
	wallet := Wallet{}
	now := time.Now()
	// Fill the history to the cap
	for i := 1; i <= MaxRecentRewards; i++ {
		_, evicted, err := wallet.AddReward(RewardKindXP, int64(i), fmt.Sprintf("reward %d", i), now)
		require.NoError(t, err)
		assert.Empty(t, evicted)
	}
	require.Len(t, wallet.RecentRewards, MaxRecentRewards)

	// The 11th append evicts exactly the oldest entry
	_, evicted, err := wallet.AddReward(RewardKindXP, 11, "reward 11", now)
	require.NoError(t, err)
	require.Len(t, evicted, 1)
	assert.Equal(t, "reward 1", evicted[0].Description)

	// Remaining history keeps its order: 2..11
	require.Len(t, wallet.RecentRewards, MaxRecentRewards)
	for i, entry := range wallet.RecentRewards {
		assert.Equal(t, fmt.Sprintf("reward %d", i+2), entry.Description)
	}
}
