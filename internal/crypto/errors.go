package crypto

import "errors"

var (
	// ErrFormat reports malformed key material at an input boundary.
	ErrFormat = errors.New("malformed key material")
	// ErrInvalidScalar reports a private key of zero or not below the curve order.
	ErrInvalidScalar = errors.New("private key out of curve range")
	// ErrDecrypt reports any failure to open a vault blob.
	ErrDecrypt = errors.New("vault decrypt failed")
)
