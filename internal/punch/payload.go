package punch

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	PayloadVersion = 1
	PayloadPrefix  = "PUNCH1:"
	NonceBytes     = 16

	// Field bounds match the punch_events columns.
	MaxDeviceIDLen = 64
	MaxNonceLen    = 128

	// Device timestamps above this are milliseconds.
	millisThreshold = 1_000_000_000_000
)

// Payload is the signed value carried by a QR code or a manual code.
type Payload struct {
	Version   int    `json:"v"`
	DeviceID  string `json:"device_id"`
	Timestamp int64  `json:"ts"`
	Nonce     string `json:"nonce"`
	Signature string `json:"sig"`
}

// Canonical is the stable JSON text of the payload as it is hashed into the
// ledger.
func (p Payload) Canonical() string {
	b, _ := json.Marshal(p)
	return string(b)
}

// EncodePayload mints a fresh payload for a device and returns it in the
// namespaced base64url form.
func EncodePayload(deviceID, secret string, now time.Time) (string, error) {
	nonce := make([]byte, NonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("punch: nonce: %w", err)
	}
	p := Payload{
		Version:   PayloadVersion,
		DeviceID:  deviceID,
		Timestamp: now.Unix(),
		Nonce:     hex.EncodeToString(nonce),
	}
	p.Signature = Sign(p.DeviceID, p.Timestamp, p.Nonce, secret)

	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("punch: encode: %w", err)
	}
	return PayloadPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodePayload accepts raw JSON, the namespaced envelope or a bare
// base64url blob, tried in that order.
func DecodePayload(raw string) (Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Payload{}, fmt.Errorf("%w: empty", ErrMalformedPayload)
	}

	p, ok := decodeJSON([]byte(raw))
	if !ok && strings.HasPrefix(raw, PayloadPrefix) {
		p, ok = decodeBase64JSON(strings.TrimPrefix(raw, PayloadPrefix))
	}
	if !ok {
		p, ok = decodeBase64JSON(raw)
	}
	if !ok {
		return Payload{}, fmt.Errorf("%w: unrecognized encoding", ErrMalformedPayload)
	}

	if p.Version != PayloadVersion {
		return Payload{}, fmt.Errorf("%w: unsupported version %d", ErrMalformedPayload, p.Version)
	}
	if p.DeviceID == "" || p.Nonce == "" || p.Signature == "" {
		return Payload{}, fmt.Errorf("%w: missing device_id, nonce or sig", ErrMalformedPayload)
	}
	if len(p.DeviceID) > MaxDeviceIDLen || len(p.Nonce) > MaxNonceLen {
		return Payload{}, fmt.Errorf("%w: device_id or nonce too long", ErrMalformedPayload)
	}
	return p, nil
}

// Sign computes base64url(HMAC-SHA256(secret, deviceID.ts.nonce)).
func Sign(deviceID string, ts int64, nonce, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(deviceID + "." + strconv.FormatInt(ts, 10) + "." + nonce))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// NormalizeTimestamp returns whole seconds for second or millisecond input.
func NormalizeTimestamp(ts int64) int64 {
	if ts > millisThreshold {
		return ts / 1000
	}
	return ts
}

func decodeJSON(b []byte) (Payload, bool) {
	var p Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return Payload{}, false
	}
	return p, true
}

func decodeBase64JSON(s string) (Payload, bool) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return Payload{}, false
	}
	return decodeJSON(b)
}
