package utils

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyHash     = errors.New("empty hash")
	ErrHashNotHex    = errors.New("hash is not hexadecimal")
	ErrHashBadLength = errors.New("hash length must be 32, 40 or 64 hex characters")
)

// NormalizeHash lowercases a hex digest and checks it is an MD5, SHA-1 or
// SHA-256 length.
func NormalizeHash(raw string) (string, error) {
	h := strings.ToLower(strings.TrimSpace(raw))
	if h == "" {
		return "", ErrEmptyHash
	}
	if strings.Trim(h, "0123456789abcdef") != "" {
		return "", fmt.Errorf("%w: %q", ErrHashNotHex, raw)
	}
	if HashAlgorithm(h) == "" {
		return "", ErrHashBadLength
	}
	return h, nil
}

// HashAlgorithm guesses the digest family from its hex length.
func HashAlgorithm(hexDigest string) string {
	switch len(hexDigest) {
	case 32:
		return "md5"
	case 40:
		return "sha1"
	case 64:
		return "sha256"
	}
	return ""
}
