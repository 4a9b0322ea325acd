package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"inx_platform/internal/domain" // Importing domain models
	"inx_platform/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"golang.org/x/crypto/bcrypt"   // Password hashing
	"gorm.io/gorm"                 // GORM ORM library
)

// Request struct for signup
type SignupRequest struct {
	Username string `json:"username" binding:"required"`       // Display name must be provided
	Email    string `json:"email" binding:"required,email"`    // Valid email must be provided
	Password string `json:"password" binding:"required,min=8"` // Password must be provided
}

// Request struct for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`    // Email must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID       uint   `json:"id"`       // User ID
	Username string `json:"username"` // Display name
	Email    string `json:"email"`    // Email
}

// AuthResponse is returned by signup and login
type AuthResponse struct {
	Token  string        `json:"token"`  // JWT token
	User   UserResponse  `json:"user"`   // Public user info
	Wallet domain.Wallet `json:"wallet"` // Wallet snapshot
}

// defaultWallet is the snapshot served while a user has no wallet row yet
func defaultWallet(userID uint) domain.Wallet {
	return domain.Wallet{UserID: userID, Inx: 0, XP: 0, Level: 1}
}

// SignupHandler registers a user, creates their zero-valued wallet and
// returns a token for the new identity
func SignupHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignupRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username, email and password required"})
			return
		}
		// Reject duplicate emails before creating anything
		var existing domain.User
		if err := db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already exists"})
			return
		}
		// Hash the password and create the user
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			// If hashing fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		user := domain.User{Username: req.Username, Email: req.Email, Password: string(hash)}
		wallet := defaultWallet(0) // Zero-valued wallet, bound below
		// Create the user and its wallet together
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&user).Error; err != nil {
				return err // Return error to rollback (e.g. duplicate email race)
			}
			wallet.UserID = user.ID // Bind wallet to the new user
			return tx.Create(&wallet).Error
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"email": req.Email,   // Attempted email
				"error": err.Error(), // Error message
			}).Error("Signup failed") // Log signup failure
			c.JSON(http.StatusConflict, gin.H{"error": "Email already exists"})
			return
		}
		// Generate JWT token for the new user
		token, err := utils.GenerateJWT(user.ID, user.Email, jwtSecret)
		if err != nil {
			// If token generation fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,    // New user ID
			"email":   user.Email, // New email
		}).Info("User signed up") // Log signup
		// Return token, user and wallet snapshot
		c.JSON(http.StatusCreated, AuthResponse{
			Token:  token,                                          // JWT token
			User:   UserResponse{ID: user.ID, Username: user.Username, Email: user.Email}, // Public user
			Wallet: wallet,                                         // Fresh wallet
		})
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password required"})
			return
		}
		var user domain.User // Fetch user from database
		if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
			// If user not found, return the same message as a bad password
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials"})
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials"})
			return
		}
		// Generate JWT token
		token, err := utils.GenerateJWT(user.ID, user.Email, jwtSecret)
		if err != nil {
			// If token generation fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		// Attach the wallet snapshot, defaulting when none exists yet
		var wallet domain.Wallet
		if err := db.Preload("RecentRewards").Where("user_id = ?", user.ID).First(&wallet).Error; err != nil {
			wallet = defaultWallet(user.ID) // Lazy default, created for real on first wallet access
		}
		// Return the token with user and wallet info
		c.JSON(http.StatusOK, AuthResponse{
			Token:  token,
			User:   UserResponse{ID: user.ID, Username: user.Username, Email: user.Email},
			Wallet: wallet,
		})
	}
}

// ProfileHandler returns the authenticated user with their wallet
func ProfileHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ctx := context.Background()                                    // Context for Redis operations
		cacheKey := "profile:user:" + strconv.Itoa(int(userID.(uint))) // Cache key for profile
		var cached struct {
			User   UserResponse  `json:"user"`   // Public user info
			Wallet domain.Wallet `json:"wallet"` // Wallet snapshot
		}
		// If found in cache, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"user": cached.User, "wallet": cached.Wallet, "cached": true})
			return
		}
		var user domain.User // Fetch user from database
		if err := db.First(&user, userID).Error; err != nil {
			// If user not found, return not found
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		// Attach wallet, defaulting when none exists yet
		var wallet domain.Wallet
		if err := db.Preload("RecentRewards").Where("user_id = ?", user.ID).First(&wallet).Error; err != nil {
			wallet = defaultWallet(user.ID)
		}
		resp := gin.H{
			"user":   UserResponse{ID: user.ID, Username: user.Username, Email: user.Email}, // Public user
			"wallet": wallet,                                                                // Wallet snapshot
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second) // Cache the profile for 60 seconds
		resp["cached"] = false
		c.JSON(http.StatusOK, resp) // Return profile
	}
}

// UpdateUsernameRequest carries a new display name
type UpdateUsernameRequest struct {
	Username string `json:"username" binding:"required"` // New username must be provided
}

// UpdateUsernameHandler changes the authenticated user's display name
func UpdateUsernameHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req UpdateUsernameRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username required"})
			return
		}
		var user domain.User // Fetch user from database
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		user.Username = req.Username // Apply the new name
		if err := db.Save(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update username"})
			return
		}
		invalidateProfileCache(rdb, user.ID) // Drop the cached profile
		c.JSON(http.StatusOK, gin.H{"message": "Username updated successfully", "username": user.Username})
	}
}

// UpdateEmailRequest carries a new login email
type UpdateEmailRequest struct {
	Email string `json:"email" binding:"required,email"` // New email must be provided
}

// UpdateEmailHandler changes the authenticated user's email, enforcing
// uniqueness across users
func UpdateEmailHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req UpdateEmailRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email required"})
			return
		}
		// Reject the address when another user already owns it
		var other domain.User
		if err := db.Where("email = ?", req.Email).First(&other).Error; err == nil && other.ID != userID.(uint) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already in use"})
			return
		}
		var user domain.User // Fetch user from database
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		user.Email = req.Email // Apply the new email
		if err := db.Save(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update email"})
			return
		}
		invalidateProfileCache(rdb, user.ID) // Drop the cached profile
		c.JSON(http.StatusOK, gin.H{"message": "Email updated successfully", "email": user.Email})
	}
}

// UpdatePasswordRequest carries the old and new password
type UpdatePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`       // Current password must be provided
	NewPassword string `json:"newPassword" binding:"required,min=8"` // New password must be provided
}

// UpdatePasswordHandler changes the authenticated user's password after
// verifying the current one
func UpdatePasswordHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req UpdatePasswordRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Both old and new passwords required"})
			return
		}
		var user domain.User // Fetch user from database
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		// Verify the old password before replacing it
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Old password is incorrect"})
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		user.Password = string(hash) // Apply the new hash
		if err := db.Save(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
	}
}

// invalidateProfileCache drops the cached profile for a user after a mutation
func invalidateProfileCache(rdb *redis.Client, userID uint) {
	if rdb == nil {
		return
	}
	ctx := context.Background()                             // Context for Redis operations
	key := "profile:user:" + strconv.Itoa(int(userID))      // Profile cache key
	_ = utils.DeleteCache(ctx, rdb, key)                    // Invalidate profile cache
	_ = utils.DeleteCache(ctx, rdb, walletCacheKey(userID)) // Wallet snapshot is embedded too
}
