// Package idgen generates URL-safe email confirmation codes backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is URL-safe so codes can travel in a query string unescaped.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeLength is the number of characters in a confirmation code.
const CodeLength = 32

// ConfirmationCode returns a new random confirmation code.
func ConfirmationCode() (string, error) {
	code, err := nanoid.Generate(Alphabet, CodeLength)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return code, nil
}
