// Package tokenaddr finds Solana-style base58 addresses in free text.
package tokenaddr

import "regexp"

const (
	MinLength = 32
	MaxLength = 44
)

var (
	// A word is a maximal run of Unicode letters, digits and underscores.
	// RE2's \b only knows ASCII word characters, so "é" + address would
	// otherwise count as a boundary.
	wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

	// base58 alphabet: no 0, O, I or l.
	addrPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
)

// Extract returns the last word that is entirely a base58 address. Signal
// posts usually put the contract address after the commentary, so the last
// match wins.
func Extract(text string) (string, bool) {
	words := wordPattern.FindAllString(text, -1)
	for i := len(words) - 1; i >= 0; i-- {
		if addrPattern.MatchString(words[i]) {
			return words[i], true
		}
	}
	return "", false
}

// ValidLength is the only receiver check applied before a transfer.
func ValidLength(addr string) bool {
	return len(addr) >= MinLength && len(addr) <= MaxLength
}

// Truncate renders addr as "first...last" with n characters on each side.
func Truncate(addr string, n int) string {
	if addr == "" {
		return "N/A"
	}
	if len(addr) <= 2*n {
		return addr
	}
	return addr[:n] + "..." + addr[len(addr)-n:]
}
