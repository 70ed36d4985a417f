package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// DeviceSecretBytes is the entropy of a device HMAC key.
const DeviceSecretBytes = 32

// GenerateDeviceSecret returns a hex-encoded random key for a device.
func GenerateDeviceSecret() (string, error) {
	b := make([]byte, DeviceSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
