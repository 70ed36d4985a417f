package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"punchclock_backend/internal/middleware"
	"punchclock_backend/internal/models"
	"punchclock_backend/internal/punch"
	"punchclock_backend/internal/registry"
	"punchclock_backend/internal/storage"
	"punchclock_backend/internal/utils"
)

const (
	testJWTSecret = "handler-test-secret"
	testPassword  = "Str0ng!pass"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := storage.OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	return db
}

func seedEmployee(t *testing.T, db *gorm.DB, email string, role models.EmployeeRole, managerID *uint) models.Employee {
	t.Helper()
	hash, err := utils.HashPassword(testPassword)
	require.NoError(t, err)
	e := models.Employee{
		ManagerID:    managerID,
		Role:         role,
		Status:       models.StatusActive,
		FullName:     email,
		Email:        email,
		PasswordHash: hash,
	}
	require.NoError(t, db.Create(&e).Error)
	return e
}

func seedDevice(t *testing.T, db *gorm.DB, id string) *models.Device {
	t.Helper()
	dev, err := registry.New(db).Register(context.Background(), id, "lobby")
	require.NoError(t, err)
	return dev
}

func newService(db *gorm.DB, now time.Time) *punch.Service {
	svc := punch.NewService(db, registry.New(db), punch.DefaultSkew, punch.DefaultManualCodeTTL)
	svc.Now = func() time.Time { return now }
	return svc
}

// asEmployee stands in for AuthRequired.
func asEmployee(id uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.CtxEmployeeID, id)
		c.Next()
	}
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "handler-test")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func init() {
	gin.SetMode(gin.TestMode)
}
