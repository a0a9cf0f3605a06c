package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const digitCharset = "0123456789"

// RandomDigits returns length uniformly distributed decimal digits drawn from
// crypto/rand.
func RandomDigits(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	limit := big.NewInt(int64(len(digitCharset)))
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("read random digit: %w", err)
		}
		result[i] = digitCharset[n.Int64()]
	}
	return string(result), nil
}
