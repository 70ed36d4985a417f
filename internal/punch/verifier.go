package punch

import (
	"context"
	"crypto/hmac"
	"errors"
	"fmt"
	"time"

	"punchclock_backend/internal/models"
	"punchclock_backend/internal/registry"
)

const DefaultSkew = 120 * time.Second

// DeviceLookup is the registry read path the verifier depends on.
type DeviceLookup interface {
	Lookup(ctx context.Context, deviceID string) (*models.Device, error)
}

// Verified carries the fields of an authenticated payload that the ledger
// records.
type Verified struct {
	DeviceID   string
	Nonce      string
	DeviceTime time.Time
	Canonical  string
}

type Verifier struct {
	Devices DeviceLookup
	Skew    time.Duration
}

func NewVerifier(devices DeviceLookup, skew time.Duration) *Verifier {
	if skew <= 0 {
		skew = DefaultSkew
	}
	return &Verifier{Devices: devices, Skew: skew}
}

// Verify authenticates p against its device secret and checks freshness.
// It cannot stop a replay inside the skew window; the ledger's
// (device_id, nonce) constraint does.
func (v *Verifier) Verify(ctx context.Context, p Payload, now time.Time) (Verified, error) {
	dev, err := v.Devices.Lookup(ctx, p.DeviceID)
	if errors.Is(err, registry.ErrDeviceNotFound) {
		return Verified{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, p.DeviceID)
	}
	if err != nil {
		return Verified{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if !dev.IsActive {
		return Verified{}, fmt.Errorf("%w: %s", ErrDeviceInactive, p.DeviceID)
	}

	ts := NormalizeTimestamp(p.Timestamp)
	expected := Sign(p.DeviceID, ts, p.Nonce, dev.Secret)
	if !hmac.Equal([]byte(expected), []byte(p.Signature)) {
		return Verified{}, ErrInvalidSignature
	}

	skew := int64(v.Skew / time.Second)
	if d := now.Unix() - ts; d > skew || d < -skew {
		return Verified{}, fmt.Errorf("%w: signed %ds from server time", ErrExpired, d)
	}

	return Verified{
		DeviceID:   p.DeviceID,
		Nonce:      p.Nonce,
		DeviceTime: time.Unix(ts, 0).UTC(),
		Canonical:  p.Canonical(),
	}, nil
}
