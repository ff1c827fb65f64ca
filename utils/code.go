package utils

import (
	"crypto/rand"
	"math/big"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateVerificationCode returns a human-readable document code like
// "TR-7KQ2M9". Ambiguous characters are excluded from the alphabet.
func GenerateVerificationCode() string {
	code := make([]byte, 6)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			code[i] = codeAlphabet[0]
			continue
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return "TR-" + string(code)
}
