package api

import (
	"context"  // Context for Redis operations
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"time"     // Timestamps

	"inx_platform/internal/domain" // Importing domain models
	"inx_platform/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// GetRewardsHandler returns the reward summary for the authenticated user.
// Unlike the wallet endpoints there is no lazy creation here: a missing
// wallet is a 404.
func GetRewardsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var wallet domain.Wallet // Fetch wallet with its history
		err := db.Preload("RecentRewards", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("id asc") // Oldest reward first
		}).Where("user_id = ?", userID).First(&wallet).Error
		if err != nil {
			// If wallet not found, return not found
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		// Return the reward summary
		c.JSON(http.StatusOK, gin.H{
			"inx":           wallet.Inx,           // Balance
			"xp":            wallet.XP,            // Experience
			"level":         wallet.Level,         // Tier
			"recentRewards": wallet.RecentRewards, // Bounded history
		})
	}
}

// AddRewardRequest carries a reward delta
type AddRewardRequest struct {
	Type        string `json:"type" binding:"required"`   // inx or xp
	Amount      int64  `json:"amount" binding:"required"` // Positive delta
	Description string `json:"description"`               // Optional reason
}

// AddRewardHandler credits a reward to the authenticated user's wallet and
// records it in the bounded history
func AddRewardHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req AddRewardRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Type and amount required"})
			return
		}
		var wallet domain.Wallet
		err := db.Transaction(func(tx *gorm.DB) error {
			// Load the wallet with its history, oldest first
			if err := tx.Preload("RecentRewards", func(tx *gorm.DB) *gorm.DB {
				return tx.Order("id asc")
			}).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
				return err // Missing wallet surfaces as 404 below
			}
			entry, evicted, err := wallet.AddReward(req.Type, req.Amount, req.Description, time.Now())
			if err != nil {
				return err // Invalid type or amount
			}
			// Apply the delta to the stored balances
			if err := tx.Model(&domain.Wallet{}).Where("id = ?", wallet.ID).Updates(map[string]any{
				"inx": wallet.Inx, // New balance
				"xp":  wallet.XP,  // New experience
			}).Error; err != nil {
				return err
			}
			// Append the new history entry
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
			// Mirror the FIFO eviction in storage
			for _, old := range evicted {
				if old.ID == 0 {
					continue // Never persisted
				}
				if err := tx.Delete(&domain.RewardEntry{}, old.ID).Error; err != nil {
					return err
				}
			}
			// Reflect the stored entry (with its ID) in the response
			wallet.RecentRewards[len(wallet.RecentRewards)-1] = entry
			return nil // Commit transaction
		})
		if err != nil {
			// Map domain failures to their status codes
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			case errors.Is(err, domain.ErrInvalidRewardKind), errors.Is(err, domain.ErrInvalidRewardAmount):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				logrus.WithFields(logrus.Fields{
					"user_id": userID,      // User ID
					"type":    req.Type,    // Reward kind
					"amount":  req.Amount,  // Reward amount
					"error":   err.Error(), // Error message
				}).Error("Add reward failed") // Log failure
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error adding reward"})
			}
			return
		}
		// Log the credited reward
		logrus.WithFields(logrus.Fields{
			"user_id": userID,     // User ID
			"type":    req.Type,   // Reward kind
			"amount":  req.Amount, // Reward amount
		}).Info("Reward added")
		// Invalidate wallet and profile cache
		ctx := context.Background()
		_ = utils.DeleteCache(ctx, rdb, walletCacheKey(userID.(uint)))
		invalidateProfileCache(rdb, userID.(uint))
		// Return the updated wallet
		c.JSON(http.StatusOK, gin.H{"message": "Reward added successfully", "wallet": wallet})
	}
}
