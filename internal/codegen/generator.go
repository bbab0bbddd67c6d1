// Package codegen produces human-typable voucher codes.
package codegen

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
)

// Alphabet excludes the confusable characters 0/O and 1/I. Its length of 32
// divides 256, so mapping random bytes onto it carries no modulo bias.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// DefaultLength is the length of the random part of a generated code.
const DefaultLength = 8

// Generator produces random voucher codes.
type Generator interface {
	// Generate returns prefix followed by length random characters.
	Generate(length int, prefix string) (string, error)
}

type randomGenerator struct {
	source io.Reader
}

// New returns a generator backed by crypto/rand.
func New() Generator {
	return &randomGenerator{source: rand.Reader}
}

// NewWithSource returns a generator reading randomness from source.
func NewWithSource(source io.Reader) Generator {
	return &randomGenerator{source: source}
}

// Generate returns prefix followed by length random characters.
func (g *randomGenerator) Generate(length int, prefix string) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("code length must be positive, got %d", length)
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(g.source, buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	var sb strings.Builder
	sb.Grow(len(prefix) + length)
	sb.WriteString(strings.ToUpper(prefix))
	for _, b := range buf {
		sb.WriteByte(Alphabet[int(b)%len(Alphabet)])
	}
	return sb.String(), nil
}

// Typable reports whether code consists only of upper-case ASCII letters and
// digits. Operator-chosen codes may use characters outside Alphabet.
func Typable(code string) bool {
	if code == "" {
		return false
	}
	for _, r := range code {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
