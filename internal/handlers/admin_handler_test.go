package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"live-platform/internal/models"
	"live-platform/internal/services"
)

func setupHandlerDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.WalletBalance{},
		&models.Transaction{},
		&models.ReferralCode{},
		&models.Referral{},
		&models.Report{},
		&models.Suspension{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	for _, table := range []string{
		"wallet_balances", "transactions", "referral_codes", "referrals",
		"reports", "suspensions", "users",
	} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("failed to clear table %s: %v", table, err)
		}
	}
	return db
}

// authAs injects an authenticated user the way the token middleware does.
func authAs(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	}
}

// newAdminRouter mirrors the admin group wiring: auth, then the admin gate,
// then the reward endpoint.
func newAdminRouter(db *gorm.DB, userID uint) *gin.Engine {
	ledger := services.NewLedgerService(db)
	referralService := services.NewReferralService(db, ledger, 100, 50)
	vestingService := services.NewVestingService(db, ledger)
	referralHandler := NewReferralHandler(referralService, vestingService)
	adminHandler := NewAdminHandler(db, referralService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	admin := router.Group("/api/admin")
	admin.Use(authAs(userID))
	admin.Use(adminHandler.AdminMiddleware())
	admin.POST("/referrals/reward", referralHandler.GrantRewards)
	return router
}

func postReward(router *gin.Engine) *httptest.ResponseRecorder {
	body := []byte(`{"referrer_id": 1, "referred_id": 2}`)
	req, _ := http.NewRequest(http.MethodPost, "/api/admin/referrals/reward", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRewardEndpointRequiresAdmin(t *testing.T) {
	db := setupHandlerDB(t)

	referredID := uint(2)
	db.Create(&models.User{ID: 1, Nickname: "referrer"})
	db.Create(&models.User{ID: referredID, Nickname: "referred"})
	db.Create(&models.User{ID: 9, Nickname: "moderator", IsAdmin: true})
	db.Create(&models.Referral{
		ReferralCode:   "TESTCODE",
		ReferrerUserID: 1,
		ReferredUserID: &referredID,
		Status:         models.ReferralStatusActive,
	})

	// An ordinary authenticated user is stopped at the gate.
	w := postReward(newAdminRouter(db, 1))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d: %s", w.Code, w.Body.String())
	}

	// The blocked request minted nothing.
	var referral models.Referral
	db.Where("referred_user_id = ?", referredID).First(&referral)
	if referral.Status == models.ReferralStatusRewarded {
		t.Fatal("non-admin request must not reward the referral")
	}
	var txCount int64
	db.Model(&models.Transaction{}).Count(&txCount)
	if txCount != 0 {
		t.Fatalf("non-admin request must not touch the ledger, found %d transactions", txCount)
	}

	// An admin passes and the grant lands.
	w = postReward(newAdminRouter(db, 9))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d: %s", w.Code, w.Body.String())
	}
	db.Where("referred_user_id = ?", referredID).First(&referral)
	if referral.Status != models.ReferralStatusRewarded {
		t.Errorf("expected referral rewarded after admin grant, got %s", referral.Status)
	}
}
