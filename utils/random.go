package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateCode returns the hex encoding of n cryptographically random bytes.
func GenerateCode(n int) (string, error) {
	byt := make([]byte, n)
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}
	return hex.EncodeToString(byt), nil
}

// GenerateValidationCode returns an unguessable ticket validation code.
// 16 random bytes give 128 bits of entropy, enough that collisions are
// negligible at any realistic ticket volume.
func GenerateValidationCode() (string, error) {
	return GenerateCode(16)
}
