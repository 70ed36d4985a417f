package punch

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"punchclock_backend/internal/models"
	"punchclock_backend/internal/registry"
	"punchclock_backend/internal/storage"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := storage.OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	return db
}

func addDevice(t *testing.T, db *gorm.DB, id, secret string, active bool) {
	t.Helper()
	dev := models.Device{ID: id, Kind: models.DevicePhysical, Secret: secret, IsActive: true}
	require.NoError(t, db.Create(&dev).Error)
	if !active {
		require.NoError(t, registry.New(db).SetActive(context.Background(), id, false))
	}
}

func signedJSON(deviceID, secret, nonce string, ts int64) string {
	return Payload{
		Version:   PayloadVersion,
		DeviceID:  deviceID,
		Timestamp: ts,
		Nonce:     nonce,
		Signature: Sign(deviceID, NormalizeTimestamp(ts), nonce, secret),
	}.Canonical()
}

// clock is a settable time source for Service.Now.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Set(t time.Time)         { c.t = t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T, db *gorm.DB, start time.Time) (*Service, *clock) {
	t.Helper()
	c := &clock{t: start}
	svc := NewService(db, registry.New(db), DefaultSkew, DefaultManualCodeTTL)
	svc.Now = c.Now
	return svc, c
}
