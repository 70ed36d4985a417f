package punch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"punchclock_backend/internal/models"
	"punchclock_backend/internal/registry"
)

type memoryDevices map[string]*models.Device

func (m memoryDevices) Lookup(_ context.Context, id string) (*models.Device, error) {
	dev, ok := m[id]
	if !ok {
		return nil, registry.ErrDeviceNotFound
	}
	return dev, nil
}

type failingDevices struct{}

func (failingDevices) Lookup(context.Context, string) (*models.Device, error) {
	return nil, errors.New("connection reset")
}

func testVerifier() *Verifier {
	return NewVerifier(memoryDevices{
		"D1":  {ID: "D1", Secret: "S", IsActive: true},
		"OFF": {ID: "OFF", Secret: "S", IsActive: false},
	}, 0)
}

func decode(t *testing.T, raw string) Payload {
	t.Helper()
	p, err := DecodePayload(raw)
	require.NoError(t, err)
	return p
}

func TestVerifySkewWindow(t *testing.T) {
	v := testVerifier()
	p := decode(t, signedJSON("D1", "S", "abc123", 1700000000))

	for _, tc := range []struct {
		name string
		now  int64
		err  error
	}{
		{"50s later", 1700000050, nil},
		{"exact edge", 1700000120, nil},
		{"device clock ahead", 1699999880, nil},
		{"one past edge", 1700000121, ErrExpired},
		{"200s later", 1700000200, ErrExpired},
		{"far ahead", 1699999000, ErrExpired},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := v.Verify(context.Background(), p, time.Unix(tc.now, 0))
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "D1", got.DeviceID)
			assert.Equal(t, "abc123", got.Nonce)
			assert.Equal(t, time.Unix(1700000000, 0).UTC(), got.DeviceTime)
		})
	}
}

func TestVerifyMillisecondTimestamp(t *testing.T) {
	p := decode(t, signedJSON("D1", "S", "n1", 1700000000500))
	got, err := testVerifier().Verify(context.Background(), p, time.Unix(1700000010, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), got.DeviceTime.Unix())
}

func TestVerifyRejections(t *testing.T) {
	now := time.Unix(1700000010, 0)
	ctx := context.Background()
	v := testVerifier()

	_, err := v.Verify(ctx, decode(t, signedJSON("D1", "wrong", "n", 1700000000)), now)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	tampered := decode(t, signedJSON("D1", "S", "n", 1700000000))
	tampered.Nonce = "other"
	_, err = v.Verify(ctx, tampered, now)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = v.Verify(ctx, decode(t, signedJSON("GHOST", "S", "n", 1700000000)), now)
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	_, err = v.Verify(ctx, decode(t, signedJSON("OFF", "S", "n", 1700000000)), now)
	assert.ErrorIs(t, err, ErrDeviceInactive)

	_, err = NewVerifier(failingDevices{}, 0).Verify(ctx, decode(t, signedJSON("D1", "S", "n", 1700000000)), now)
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestVerifyChecksSignatureBeforeFreshness(t *testing.T) {
	p := decode(t, signedJSON("D1", "wrong", "n", 1700000000))
	_, err := testVerifier().Verify(context.Background(), p, time.Unix(1700009999, 0))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
