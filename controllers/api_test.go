package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/flowvahq/rewards/config"
	"github.com/flowvahq/rewards/models"
	"github.com/flowvahq/rewards/routes"
	"github.com/flowvahq/rewards/utils"
)

var loggerOnce sync.Once

// newTestRouter boots the whole HTTP surface against an in-memory database.
func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	config.SetForTesting(config.AppConfig{
		JWTSecret:          "test-secret",
		GinMode:            "test",
		GinPath:            filepath.Join(t.TempDir(), "gin.log"),
		RateLimitPerMinute: 100000,
	})
	loggerOnce.Do(func() {
		if err := utils.InitLogger(config.Get()); err != nil {
			t.Fatalf("init logger: %v", err)
		}
	})

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(
		&models.User{},
		&models.PointEvent{},
		&models.ReferralLink{},
		&models.DailyClaim{},
		&models.ClaimedReward{},
		&models.DailyUsage{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	catalog, err := config.LoadCatalog("")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return routes.SetupRouter(db, catalog), db
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: bad response body %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, env
}

func register(t *testing.T, r *gin.Engine, username, referralCode string) (token, ownCode string) {
	t.Helper()
	status, env := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username":      username,
		"email":         username + "@example.com",
		"password":      "hunter22",
		"referral_code": referralCode,
	})
	if status != http.StatusOK {
		t.Fatalf("register %s: status %d message %q", username, status, env.Message)
	}
	var data struct {
		Token string `json:"token"`
		User  struct {
			ReferralCode string `json:"referral_code"`
		} `json:"user"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return data.Token, data.User.ReferralCode
}

func balanceOf(t *testing.T, r *gin.Engine, token string) int {
	t.Helper()
	status, env := doJSON(t, r, http.MethodGet, "/api/v1/points/balance", token, nil)
	if status != http.StatusOK {
		t.Fatalf("balance: status %d message %q", status, env.Message)
	}
	var data struct {
		Balance int `json:"balance"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("balance: %v", err)
	}
	return data.Balance
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	status, env := doJSON(t, r, http.MethodGet, "/health", "", nil)
	if status != http.StatusOK || env.Code != 0 {
		t.Fatalf("health: status %d code %d", status, env.Code)
	}
}

func TestAuthRequiredOnProtectedRoutes(t *testing.T) {
	r, _ := newTestRouter(t)
	status, env := doJSON(t, r, http.MethodGet, "/api/v1/points/balance", "", nil)
	if status != http.StatusUnauthorized || env.Code != 40101 {
		t.Fatalf("missing token: status %d code %d", status, env.Code)
	}
}

func TestCheckinFlow(t *testing.T) {
	r, _ := newTestRouter(t)
	token, _ := register(t, r, "alice", "")

	status, env := doJSON(t, r, http.MethodPost, "/api/v1/checkin/daily", token, nil)
	if status != http.StatusOK {
		t.Fatalf("check-in: status %d message %q", status, env.Message)
	}
	var result struct {
		Streak        int  `json:"streak"`
		PointsAwarded int  `json:"points_awarded"`
		SpinUnlocked  bool `json:"spin_unlocked"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if result.Streak != 1 || result.PointsAwarded != 5 || result.SpinUnlocked {
		t.Fatalf("unexpected check-in result: %+v", result)
	}

	status, env = doJSON(t, r, http.MethodPost, "/api/v1/checkin/daily", token, nil)
	if status != http.StatusConflict || env.Code != 40930 {
		t.Fatalf("repeat check-in: status %d code %d", status, env.Code)
	}

	if got := balanceOf(t, r, token); got != 5 {
		t.Fatalf("balance after check-in: got %d want 5", got)
	}

	status, env = doJSON(t, r, http.MethodGet, "/api/v1/checkin/status", token, nil)
	if status != http.StatusOK {
		t.Fatalf("status: %d message %q", status, env.Message)
	}
	var st struct {
		Streak        int  `json:"streak"`
		ClaimedToday  bool `json:"claimed_today"`
		SpinAvailable bool `json:"spin_available"`
	}
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Streak != 1 || !st.ClaimedToday || st.SpinAvailable {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestEarnActionFlow(t *testing.T) {
	r, _ := newTestRouter(t)
	token, _ := register(t, r, "alice", "")

	status, env := doJSON(t, r, http.MethodPost, "/api/v1/earn/try", token, nil)
	if status != http.StatusOK {
		t.Fatalf("earn try: status %d message %q", status, env.Message)
	}
	var result struct {
		PointsAwarded int `json:"points_awarded"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("earn try: %v", err)
	}
	if result.PointsAwarded != 10 {
		t.Fatalf("try points: got %d want 10", result.PointsAwarded)
	}

	status, env = doJSON(t, r, http.MethodPost, "/api/v1/earn/try", token, nil)
	if status != http.StatusConflict || env.Code != 40940 {
		t.Fatalf("repeat earn: status %d code %d", status, env.Code)
	}

	status, env = doJSON(t, r, http.MethodPost, "/api/v1/earn/gamble", token, nil)
	if status != http.StatusBadRequest || env.Code != 40040 {
		t.Fatalf("unknown action: status %d code %d", status, env.Code)
	}

	if got := balanceOf(t, r, token); got != 10 {
		t.Fatalf("balance: got %d want 10", got)
	}
}

func TestReferralCreditedAfterFirstCheckin(t *testing.T) {
	r, _ := newTestRouter(t)
	aliceToken, aliceCode := register(t, r, "alice", "")
	bobToken, _ := register(t, r, "bob", aliceCode)

	if got := balanceOf(t, r, aliceToken); got != 0 {
		t.Fatalf("referrer paid before qualifying action: %d", got)
	}

	if status, env := doJSON(t, r, http.MethodPost, "/api/v1/checkin/daily", bobToken, nil); status != http.StatusOK {
		t.Fatalf("bob check-in: status %d message %q", status, env.Message)
	}
	if got := balanceOf(t, r, aliceToken); got != 25 {
		t.Fatalf("referrer balance: got %d want 25", got)
	}

	status, env := doJSON(t, r, http.MethodGet, "/api/v1/referral", aliceToken, nil)
	if status != http.StatusOK {
		t.Fatalf("referral info: status %d message %q", status, env.Message)
	}
	var info struct {
		Referred int `json:"referred_count"`
		Credited int `json:"credited_count"`
	}
	if err := json.Unmarshal(env.Data, &info); err != nil {
		t.Fatalf("referral info: %v", err)
	}
	if info.Referred != 1 || info.Credited != 1 {
		t.Fatalf("unexpected referral info: %+v", info)
	}
}

func TestClaimRewardInsufficientBalance(t *testing.T) {
	r, _ := newTestRouter(t)
	token, _ := register(t, r, "alice", "")

	status, env := doJSON(t, r, http.MethodPost, "/api/v1/rewards/claim", token, gin.H{
		"reward_id": "amazon-gift-card-5",
		"email":     "alice@example.com",
		"name":      "Alice",
	})
	if status != http.StatusBadRequest || env.Code != 40042 {
		t.Fatalf("underfunded claim: status %d code %d message %q", status, env.Code, env.Message)
	}
	if got := balanceOf(t, r, token); got != 0 {
		t.Fatalf("balance changed on rejected claim: %d", got)
	}
}

func TestRewardCatalogIsPublic(t *testing.T) {
	r, _ := newTestRouter(t)
	status, env := doJSON(t, r, http.MethodGet, "/api/v1/rewards/catalog", "", nil)
	if status != http.StatusOK {
		t.Fatalf("catalog: status %d message %q", status, env.Message)
	}
	var rewards []struct {
		ID         string `json:"id"`
		CostPoints int    `json:"cost_points"`
	}
	if err := json.Unmarshal(env.Data, &rewards); err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if len(rewards) == 0 {
		t.Fatal("catalog is empty")
	}
}

func TestStatsIsPublic(t *testing.T) {
	r, _ := newTestRouter(t)
	token, _ := register(t, r, "alice", "")
	if status, env := doJSON(t, r, http.MethodPost, "/api/v1/earn/try", token, nil); status != http.StatusOK {
		t.Fatalf("earn try: status %d message %q", status, env.Message)
	}

	status, env := doJSON(t, r, http.MethodGet, "/api/v1/stats", "", nil)
	if status != http.StatusOK {
		t.Fatalf("stats: status %d message %q", status, env.Message)
	}
	// The payload may come from a shared cache when Redis is around, so only
	// assert floor values.
	var stats struct {
		UserCount    int64 `json:"user_count"`
		PointsIssued int64 `json:"points_issued"`
		ClaimsToday  int64 `json:"claims_today"`
	}
	if err := json.Unmarshal(env.Data, &stats); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.UserCount < 1 || stats.PointsIssued < 10 || stats.ClaimsToday < 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestLoginFlow(t *testing.T) {
	r, _ := newTestRouter(t)
	register(t, r, "alice", "")

	status, env := doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"username": "alice",
		"password": "hunter22",
	})
	if status != http.StatusOK {
		t.Fatalf("login: status %d message %q", status, env.Message)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("login: %v", err)
	}

	if status, _ := doJSON(t, r, http.MethodGet, "/api/v1/auth/me", data.Token, nil); status != http.StatusOK {
		t.Fatalf("me: status %d", status)
	}

	status, _ = doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"username": "alice",
		"password": "wrong-password",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("bad password: status %d", status)
	}
}
