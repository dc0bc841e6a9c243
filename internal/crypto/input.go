package crypto

import (
	"fmt"
	"strings"
)

// ParseScannedKey validates a private key read from a QR code or typed in by hand
// and returns it in lower-case hex.
func ParseScannedKey(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if !privateKeyHexPattern.MatchString(value) {
		return "", fmt.Errorf("%w: scanned value is not a 64 character hex key", ErrFormat)
	}
	return strings.ToLower(value), nil
}
