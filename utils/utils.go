package utils

import (
	"math/rand"
	"strings"
)

const letters = "abcdefghijklmnopqrstuvwxyz"

// ContainsAnyFold returns true iff text contains any of the needles,
// case-insensitively.
func ContainsAnyFold(text string, needles []string) bool {
	lowered := strings.ToLower(text)
	for _, needle := range needles {
		if strings.Contains(lowered, strings.ToLower(needle)) {
			return true
		}
	}
	return false
}

// RandomAlphabetString generates a random lowercase string of length n.
func RandomAlphabetString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
