package api

import (
	"context"         // Context for Redis operations
	"crypto/hmac"     // Webhook signature verification
	"crypto/sha256"   // Webhook signature hash
	"encoding/hex"    // Hex-encoded signatures
	"encoding/json"   // Webhook payload decoding
	"errors"          // Error inspection
	"fmt"             // Payment page rendering
	"io"              // Raw body reads
	"net/http"        // HTTP status codes
	"strconv"         // String conversion
	"time"            // Timestamps

	"inx_platform/internal/config" // Application configuration
	"inx_platform/internal/domain" // Importing domain models
	"inx_platform/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// paymentPage is the static UPI checkout page served by the pay endpoint
const paymentPage = `<html>
  <body style="font-family:sans-serif;padding:20px;">
    <h2>Pay %d INX using UPI</h2>
    <img src="%s" alt="UPI QR" style="width:250px;height:250px;" />
    <form action="/api/payments/confirm" method="POST">
      <input type="hidden" name="paymentId" value="%d" />
      <input type="hidden" name="returnUrl" value="%s" />
      <button type="submit">I Have Paid</button>
    </form>
  </body>
</html>`

// PayHandler creates a payment record and serves the UPI checkout page.
// The record starts in auto status under auto-credit, otherwise pending.
func PayHandler(db *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err1 := strconv.Atoi(c.Query("userId"))   // Target user
		amount, err2 := strconv.Atoi(c.Query("amount"))   // Top-up amount
		returnURL := c.Query("returnUrl")                 // Optional redirect target
		// Both userId and amount are required and must be positive
		if err1 != nil || err2 != nil || userID <= 0 || amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing userId/amount"})
			return
		}
		// Initial status depends on the auto-credit flag
		status := domain.PaymentStatusPending
		if cfg.AutoCredit {
			status = domain.PaymentStatusAuto
		}
		payment := domain.Payment{
			UserID: uint(userID),  // User being credited
			Amount: int64(amount), // Top-up amount
			Status: status,        // pending or auto
		}
		// Create the payment record
		if err := db.Create(&payment).Error; err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // Target user
				"amount":  amount,      // Amount
				"error":   err.Error(), // Error message
			}).Error("Failed to create payment") // Log failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"payment_id": payment.ID,     // New payment
			"user_id":    userID,         // Target user
			"amount":     amount,         // Amount
			"status":     payment.Status, // Initial status
		}).Info("Payment initiated")
		// Serve the checkout page
		page := fmt.Sprintf(paymentPage, payment.Amount, cfg.PaymentQRURL, payment.ID, returnURL)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
	}
}

// creditPayment applies a confirmed payment to the target user's wallet.
// It must run inside a transaction and refuses already-confirmed payments,
// so the credit lands exactly once.
func creditPayment(tx *gorm.DB, payment *domain.Payment, now time.Time) error {
	if err := payment.Confirm(now); err != nil {
		return err // Already confirmed
	}
	// The user must exist; the wallet is created lazily like everywhere else
	var user domain.User
	if err := tx.First(&user, payment.UserID).Error; err != nil {
		return err
	}
	wallet, err := getOrCreateWallet(tx, payment.UserID)
	if err != nil {
		return err
	}
	// Credit the balance
	if err := tx.Model(&domain.Wallet{}).Where("id = ?", wallet.ID).
		Update("inx", gorm.Expr("inx + ?", payment.Amount)).Error; err != nil {
		return err
	}
	// Persist the terminal transition
	return tx.Save(payment).Error
}

// ConfirmRequest identifies the payment being confirmed. It binds from the
// checkout form post as well as JSON.
type ConfirmRequest struct {
	PaymentID uint   `json:"paymentId" form:"paymentId" binding:"required"` // Payment to confirm
	ReturnURL string `json:"returnUrl" form:"returnUrl"`                    // Optional redirect target
}

// ConfirmHandler handles the buyer-side confirmation. Under auto-credit the
// wallet is credited immediately; otherwise the payment stays pending for
// admin review. Confirming twice is rejected without a second credit.
func ConfirmHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConfirmRequest // Bind form or JSON request to struct
		if err := c.ShouldBind(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "paymentId required"})
			return
		}
		var payment domain.Payment // Fetch payment from database
		if err := db.First(&payment, req.PaymentID).Error; err != nil {
			// If payment not found, return not found
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		// Confirmed is terminal regardless of mode
		if payment.Status == domain.PaymentStatusConfirmed {
			c.JSON(http.StatusConflict, gin.H{"error": "Payment already confirmed"})
			return
		}
		// Without auto-credit the payment waits for an admin
		if !cfg.AutoCredit {
			payment.Status = domain.PaymentStatusPending
			if err := db.Save(&payment).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update payment"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Payment pending admin verification", "status": payment.Status})
			return
		}
		// Auto-credit: credit wallet and confirm atomically
		err := db.Transaction(func(tx *gorm.DB) error {
			return creditPayment(tx, &payment, time.Now())
		})
		if err != nil {
			confirmError(c, payment, err)
			return
		}
		logConfirmed(payment, "auto")
		invalidateWalletCaches(rdb, payment.UserID)
		// The checkout form carries a return URL for the frontend
		if req.ReturnURL != "" {
			c.Redirect(http.StatusFound, req.ReturnURL+"?payment=success")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Payment confirmed and INX credited", "status": payment.Status})
	}
}

// PaymentStatusHandler reports the status of a payment for frontend polling
func PaymentStatusHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id")) // Payment ID from path
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment id"})
			return
		}
		var payment domain.Payment // Fetch payment from database
		if err := db.First(&payment, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		// Return the poll-friendly status view
		c.JSON(http.StatusOK, gin.H{
			"id":          payment.ID,          // Payment ID
			"status":      payment.Status,      // Current status
			"amount":      payment.Amount,      // Amount
			"confirmedAt": payment.ConfirmedAt, // Nil until confirmed
		})
	}
}

// webhookPayload is the body the payment provider posts on completion
type webhookPayload struct {
	PaymentID uint `json:"paymentId"` // Payment completed by the provider
}

// WebhookHandler receives provider callbacks. The signature is a hex
// HMAC-SHA256 over the raw body, so the body is read before any decoding.
func WebhookHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body) // Raw body for signature verification
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable body"})
			return
		}
		// Compute the expected signature over the raw body
		mac := hmac.New(sha256.New, []byte(cfg.WebhookSecret))
		mac.Write(body)
		expected := hex.EncodeToString(mac.Sum(nil))
		supplied := c.GetHeader("X-Webhook-Signature") // Provider-supplied signature
		if cfg.WebhookSecret == "" || !hmac.Equal([]byte(expected), []byte(supplied)) {
			// Reject unsigned or mis-signed callbacks
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
			return
		}
		var payload webhookPayload // Decode the verified payload
		if err := json.Unmarshal(body, &payload); err != nil || payload.PaymentID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
			return
		}
		var payment domain.Payment // Fetch payment from database
		if err := db.First(&payment, payload.PaymentID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		// Credit wallet and confirm atomically, exactly once
		err = db.Transaction(func(tx *gorm.DB) error {
			return creditPayment(tx, &payment, time.Now())
		})
		if err != nil {
			confirmError(c, payment, err)
			return
		}
		logConfirmed(payment, "webhook")
		invalidateWalletCaches(rdb, payment.UserID)
		c.JSON(http.StatusOK, gin.H{"message": "Payment confirmed", "status": payment.Status})
	}
}

// BalanceHandler reports a user's INX balance for frontend sync
func BalanceHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.Atoi(c.Param("userId")) // User ID from path
		if err != nil || userID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		var wallet domain.Wallet // Fetch wallet from database
		if err := db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
			// No wallet yet means a zero balance
			c.JSON(http.StatusNotFound, gin.H{"balance": 0})
			return
		}
		c.JSON(http.StatusOK, gin.H{"balance": wallet.Inx}) // Return balance
	}
}

// AdminListPaymentsHandler returns all payments newest first, paginated
func AdminListPaymentsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background() // Use background context for Redis
		// Create a cache key based on pagination parameters
		cacheKey := "admin:payments:page=" + c.DefaultQuery("page", "1") + ":size=" + c.DefaultQuery("page_size", "20")
		var cached struct {
			Payments   []domain.Payment `json:"payments"`    // List of payments
			Page       int              `json:"page"`        // Current page
			PageSize   int              `json:"page_size"`   // Page size
			Total      int64            `json:"total"`       // Total number of payments
			TotalPages int              `json:"total_pages"` // Total pages
		}
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"payments":    cached.Payments,   // List of payments
				"page":        cached.Page,       // Current page
				"page_size":   cached.PageSize,   // Page size
				"total":       cached.Total,      // Total number of payments
				"total_pages": cached.TotalPages, // Total pages
				"cached":      true,              // Indicate response is from cache
			})
			return
		}
		page := 1      // Default page number
		pageSize := 20 // Default page size
		if p := c.Query("page"); p != "" {
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// Check and set page size within limits
		if ps := c.Query("page_size"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v // Set page size
			}
		}
		offset := (page - 1) * pageSize // Calculate offset for pagination
		var total int64                 // Total payment count
		if err := db.Model(&domain.Payment{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count payments"}) // Return on error
			return
		}
		var payments []domain.Payment // Slice to hold payments
		// Newest first, apply offset and limit for pagination
		if err := db.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&payments).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payments"}) // Return on error
			return
		}
		totalPages := (int(total) + pageSize - 1) / pageSize // Calculate total pages
		resp := gin.H{
			"payments":    payments,   // List of payments
			"page":        page,       // Current page
			"page_size":   pageSize,   // Page size
			"total":       total,      // Total number of payments
			"total_pages": totalPages, // Total pages
			"cached":      false,      // Not from cache
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second) // Cache the listing for 60 seconds
		c.JSON(http.StatusOK, resp)                                  // Return payment listing
	}
}

// AdminConfirmRequest identifies the payment an admin is confirming
type AdminConfirmRequest struct {
	PaymentID uint `json:"paymentId" binding:"required"` // Payment to confirm
}

// AdminConfirmHandler lets an admin confirm a pending payment, crediting
// the user's wallet exactly once
func AdminConfirmHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AdminConfirmRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "paymentId required"})
			return
		}
		var payment domain.Payment // Fetch payment from database
		if err := db.First(&payment, req.PaymentID).Error; err != nil {
			// If payment not found, return not found
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		// Credit wallet and confirm atomically, exactly once
		err := db.Transaction(func(tx *gorm.DB) error {
			return creditPayment(tx, &payment, time.Now())
		})
		if err != nil {
			confirmError(c, payment, err)
			return
		}
		logConfirmed(payment, "admin")
		invalidateWalletCaches(rdb, payment.UserID)
		// Return the post-credit balance for the admin view
		var wallet domain.Wallet
		if err := db.Where("user_id = ?", payment.UserID).First(&wallet).Error; err == nil {
			c.JSON(http.StatusOK, gin.H{"message": "Payment confirmed", "balance": wallet.Inx})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Payment confirmed"})
	}
}

// confirmError maps a failed confirmation to its response
func confirmError(c *gin.Context, payment domain.Payment, err error) {
	switch {
	case errors.Is(err, domain.ErrPaymentAlreadyConfirmed):
		// Terminal state, no second credit
		c.JSON(http.StatusConflict, gin.H{"error": "Payment already confirmed"})
	case errors.Is(err, gorm.ErrRecordNotFound):
		// The payment's user no longer exists
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	default:
		logrus.WithFields(logrus.Fields{
			"payment_id": payment.ID,  // Payment ID
			"user_id":    payment.UserID, // Target user
			"error":      err.Error(), // Error message
		}).Error("Payment confirmation failed") // Log failure
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm payment"})
	}
}

// logConfirmed records a successful confirmation with its source
func logConfirmed(payment domain.Payment, source string) {
	logrus.WithFields(logrus.Fields{
		"payment_id": payment.ID,     // Payment ID
		"user_id":    payment.UserID, // Credited user
		"amount":     payment.Amount, // Credited amount
		"source":     source,         // auto, webhook or admin
	}).Info("Payment confirmed")
}

// invalidateWalletCaches drops the wallet and profile cache after a credit
func invalidateWalletCaches(rdb *redis.Client, userID uint) {
	if rdb == nil {
		return
	}
	ctx := context.Background()                             // Context for Redis operations
	_ = utils.DeleteCache(ctx, rdb, walletCacheKey(userID)) // Invalidate wallet cache
	invalidateProfileCache(rdb, userID)                     // Invalidate profile cache
}
