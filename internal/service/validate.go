package service

import (
	"fmt"
	"strings"

	"github.com/keyrelay/keyrelay/internal/crypto"
)

const pinLength = 6

// ValidatePIN requires exactly six ASCII digits.
func ValidatePIN(pin string) error {
	if len(pin) != pinLength {
		return fmt.Errorf("%w: pin must be %d digits", crypto.ErrFormat, pinLength)
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return fmt.Errorf("%w: pin must be %d digits", crypto.ErrFormat, pinLength)
		}
	}
	return nil
}

// ValidateName trims name and rejects empty values.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: device name is required", crypto.ErrFormat)
	}
	return name, nil
}
