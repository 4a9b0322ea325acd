package api

import (
	"context"  // Context for Redis operations
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"inx_platform/internal/domain" // Importing domain models
	"inx_platform/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// walletCacheKey builds the Redis key for a user's wallet snapshot
func walletCacheKey(userID uint) string {
	return "wallet:user:" + strconv.Itoa(int(userID))
}

// getOrCreateWallet returns the user's wallet, creating a zero-valued one
// when none exists yet. Idempotent by the unique index on user_id.
func getOrCreateWallet(db *gorm.DB, userID uint) (domain.Wallet, error) {
	var wallet domain.Wallet
	err := db.Preload("RecentRewards", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id asc") // Oldest reward first
	}).Where("user_id = ?", userID).First(&wallet).Error
	if err == nil {
		return wallet, nil // Existing wallet
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return wallet, err // Unexpected persistence failure
	}
	wallet = defaultWallet(userID) // Fresh zero-valued wallet
	if err := db.Create(&wallet).Error; err != nil {
		return wallet, err
	}
	return wallet, nil
}

// GetWalletHandler returns the authenticated user's wallet, creating it
// on first access
func GetWalletHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ctx := context.Background()               // Context for Redis operations
		cacheKey := walletCacheKey(userID.(uint)) // Cache key for wallet
		var wallet domain.Wallet                  // Wallet struct to hold data
		// If found in cache, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &wallet); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"wallet": wallet, "cached": true})
			return
		}
		// Not cached: load or lazily create
		wallet, err := getOrCreateWallet(db, userID.(uint))
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // User ID
				"error":   err.Error(), // Error message
			}).Error("Failed to load wallet") // Log failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error fetching wallet"})
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, wallet, 60*time.Second) // Cache the wallet for 60 seconds
		c.JSON(http.StatusOK, gin.H{"wallet": wallet, "cached": false})
	}
}

// UpdateWalletHandler applies an explicit partial update to the wallet.
// Each supplied field overwrites the stored value outright; omitted fields
// are left untouched. Creates the wallet when absent.
func UpdateWalletHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var patch domain.WalletPatch // Bind JSON request to the patch struct
		if err := c.ShouldBindJSON(&patch); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet update"})
			return
		}
		var wallet domain.Wallet
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			wallet, err = getOrCreateWallet(tx, userID.(uint)) // Create-or-update semantics
			if err != nil {
				return err
			}
			wallet.ApplyPatch(patch) // Overwrite only the supplied fields
			// Persist scalar columns; Save would skip zero values under Updates
			if err := tx.Model(&domain.Wallet{}).Where("id = ?", wallet.ID).Updates(map[string]any{
				"inx":           wallet.Inx,         // Balance
				"xp":            wallet.XP,          // Experience
				"level":         wallet.Level,       // Tier
				"last_check_in": wallet.LastCheckIn, // Check-in timestamp
				"games_played":  wallet.GamesPlayed, // Games counter
			}).Error; err != nil {
				return err
			}
			// A supplied history replaces the stored one wholesale
			if patch.RecentRewards != nil {
				if err := tx.Where("wallet_id = ?", wallet.ID).Delete(&domain.RewardEntry{}).Error; err != nil {
					return err
				}
				for i := range wallet.RecentRewards {
					wallet.RecentRewards[i].ID = 0               // Fresh rows
					wallet.RecentRewards[i].WalletID = wallet.ID // Rebind to this wallet
				}
				if len(wallet.RecentRewards) > 0 {
					if err := tx.Create(&wallet.RecentRewards).Error; err != nil {
						return err
					}
				}
			}
			return nil // Commit transaction
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // User ID
				"error":   err.Error(), // Error message
			}).Error("Wallet update failed") // Log failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error updating wallet"})
			return
		}
		// Invalidate wallet and profile cache
		ctx := context.Background()
		_ = utils.DeleteCache(ctx, rdb, walletCacheKey(userID.(uint)))
		invalidateProfileCache(rdb, userID.(uint))
		c.JSON(http.StatusOK, gin.H{"wallet": wallet}) // Return updated wallet
	}
}
