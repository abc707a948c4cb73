package service

import (
	"crypto/rand"
	"fmt"
)

const (
	shareIDLength     = 8
	shareIDAlphabet   = "0123456789abcdefghijklmnopqrstuvwxyz"
	maxShareIDRetries = 5
)

// NewShareID returns a random lowercase base36 token. Bytes that would bias
// the distribution are rejected and redrawn.
func NewShareID() (string, error) {
	const limit = 256 - 256%len(shareIDAlphabet)

	out := make([]byte, 0, shareIDLength)
	buf := make([]byte, shareIDLength*2)
	for len(out) < shareIDLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("reading random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, shareIDAlphabet[int(b)%len(shareIDAlphabet)])
			if len(out) == shareIDLength {
				break
			}
		}
	}
	return string(out), nil
}
