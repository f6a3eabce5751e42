// Package idgen generates short, URL-safe request IDs backed by nanoid.
package idgen

import (
	"fmt"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// RequestPrefix is prepended to prediction request IDs.
const RequestPrefix = "pr-"

// alphabet avoids look-alike characters so IDs can be read back from logs.
const alphabet = "23456789abcdefghjkmnpqrstuvwxyz"

// Length is the number of random characters generated (excluding the prefix).
const Length = 12

// RequestID returns a new prediction request ID.
func RequestID() (string, error) {
	return WithPrefix(RequestPrefix)
}

// WithPrefix returns a new ID with the given prefix.
func WithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// Valid reports whether id has the given prefix followed by Length
// characters from the ID alphabet.
func Valid(prefix, id string) bool {
	rest, ok := strings.CutPrefix(id, prefix)
	if !ok || len(rest) != Length {
		return false
	}
	for _, r := range rest {
		if !strings.ContainsRune(alphabet, r) {
			return false
		}
	}
	return true
}
