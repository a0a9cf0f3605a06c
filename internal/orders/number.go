package orders

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/security"
)

// NumberGenerator produces candidate order numbers. Uniqueness is enforced by
// the database; callers retry on collision.
type NumberGenerator interface {
	Next() (string, error)
}

// NumberGeneratorFunc adapts a function to NumberGenerator.
type NumberGeneratorFunc func() (string, error)

func (f NumberGeneratorFunc) Next() (string, error) { return f() }

type randomNumberGenerator struct {
	prefix string
	digits int
}

// NewNumberGenerator returns a generator of prefix followed by digits random
// decimal digits, e.g. ORD0123456789.
func NewNumberGenerator(prefix string, digits int) (NumberGenerator, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, fmt.Errorf("order number prefix required")
	}
	if digits <= 0 {
		return nil, fmt.Errorf("order number digits must be positive")
	}
	return &randomNumberGenerator{prefix: prefix, digits: digits}, nil
}

func (g *randomNumberGenerator) Next() (string, error) {
	digits, err := security.RandomDigits(g.digits)
	if err != nil {
		return "", fmt.Errorf("generate order number: %w", err)
	}
	return g.prefix + digits, nil
}
