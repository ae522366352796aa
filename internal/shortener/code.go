package shortener

import (
	"fmt"

	"github.com/jaevor/go-nanoid"
)

const (
	// DefaultCodeLength is the length of generated codes.
	DefaultCodeLength = 10

	// MaxCodeLength bounds caller-supplied codes.
	MaxCodeLength = 64
)

// ReservedCodes collide with paths served next to the redirect route and are
// never issued.
var ReservedCodes = map[Code]struct{}{
	"urls":    {},
	"health":  {},
	"docs":    {},
	"openapi": {},
	"schemas": {},
}

// CodeGenerator produces a new random code on each call.
type CodeGenerator func() string

// NewCodeGenerator returns a generator of URL-safe codes of the given length,
// drawn from crypto/rand.
func NewCodeGenerator(length int) (CodeGenerator, error) {
	gen, err := nanoid.Standard(length)
	if err != nil {
		return nil, fmt.Errorf("code generator: %w", err)
	}

	return gen, nil
}

// ValidateCode checks that a caller-supplied code only uses the URL-safe alphabet
// and is not reserved.
func ValidateCode(code Code) error {
	if len(code) == 0 || len(code) > MaxCodeLength {
		return fmt.Errorf("%w: code must be 1-%d characters", ErrBadRequest, MaxCodeLength)
	}

	for _, r := range code {
		if !isCodeRune(r) {
			return fmt.Errorf("%w: code contains %q", ErrBadRequest, r)
		}
	}

	if _, ok := ReservedCodes[code]; ok {
		return fmt.Errorf("%w: code %q is reserved", ErrBadRequest, code)
	}

	return nil
}

func isCodeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	}

	return false
}
