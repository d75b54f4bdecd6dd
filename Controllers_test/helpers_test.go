package Controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/periodic-tables/config"
	"github.com/yeremiapane/periodic-tables/database"
	"github.com/yeremiapane/periodic-tables/floor"
	"github.com/yeremiapane/periodic-tables/models"
	"github.com/yeremiapane/periodic-tables/router"
	"github.com/yeremiapane/periodic-tables/utils"
)

const (
	adminEmail    = "admin@periodic.test"
	adminPassword = "admin-password"
)

// Monday 2030-06-03 09:00 UTC. The restaurant is closed on Tuesdays, so
// 2030-06-05 is the first open day in the future.
var testNow = time.Date(2030, 6, 3, 9, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
	utils.ConfigureTokens("controllers-test-secret", time.Hour)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Seed(db, adminEmail, adminPassword))
	return db
}

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)

	cfg := config.Default()
	cfg.Server.RateLimitPerSec = 0
	cfg.Cache.Backend = "none"

	rules, err := cfg.Restaurant.Rules()
	require.NoError(t, err)
	rules.Now = func() time.Time { return testNow }

	r := router.SetupRouter(db, router.Options{
		Config: cfg,
		Rules:  rules,
		Hub:    floor.NewHub(),
	})
	return r, db
}

func do(r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func data(payload map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"data": payload}
}

// decodeData unmarshals the "data" member of a response into out.
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, out), w.Body.String())
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	return envelope.Error
}

func reservationPayload() map[string]interface{} {
	return map[string]interface{}{
		"first_name":       "Rick",
		"last_name":        "Sanchez",
		"mobile_number":    "202-555-0164",
		"reservation_date": "2030-06-05",
		"reservation_time": "13:30",
		"people":           2,
	}
}

func createReservation(t *testing.T, r http.Handler, overrides map[string]interface{}) models.Reservation {
	t.Helper()
	payload := reservationPayload()
	for k, v := range overrides {
		payload[k] = v
	}
	w := do(r, http.MethodPost, "/reservations", data(payload), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res models.Reservation
	decodeData(t, w, &res)
	return res
}

func findTable(t *testing.T, db *gorm.DB, name string) models.Table {
	t.Helper()
	var table models.Table
	require.NoError(t, db.Where("table_name = ?", name).First(&table).Error)
	return table
}

func login(t *testing.T, r http.Handler, email, password string) string {
	t.Helper()
	w := do(r, http.MethodPost, "/auth/login", data(map[string]interface{}{
		"email":    email,
		"password": password,
	}), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Token    string `json:"token"`
		UserRole string `json:"user_role"`
	}
	decodeData(t, w, &body)
	require.NotEmpty(t, body.Token)
	return body.Token
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
