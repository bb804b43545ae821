package service

import (
	"fmt"

	nanoid "github.com/jaevor/go-nanoid"
)

const (
	codeAlphabet = "0123456789abcdef"
	codeLength   = 8
)

// newCodeGenerator выдаёт короткие коды комнат вида "3f9a0c1b".
func newCodeGenerator() (func() string, error) {
	gen, err := nanoid.CustomASCII(codeAlphabet, codeLength)
	if err != nil {
		return nil, fmt.Errorf("nanoid.CustomASCII: %w", err)
	}
	return gen, nil
}
