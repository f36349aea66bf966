// Package armor converts ciphertext to and from URL-safe base64 text so it
// can be embedded in URLs, JSON, or form fields.
package armor

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var ErrMalformed = errors.New("armor: malformed base64 input")

// Encode returns data as URL-safe base64 without padding.
func Encode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// Decode reverses Encode. Trailing '=' padding is accepted so that text
// produced by padded encoders also decodes.
func Decode(s string) ([]byte, error) {
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return data, nil
}
