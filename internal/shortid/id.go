package shortid

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Length is the size of generated short codes.
const Length = 6

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var alphabetSize = big.NewInt(int64(len(alphabet)))

// Generate returns a random alphanumeric code. Lengths <= 0 fall back to Length.
func Generate(length int) string {
	if length <= 0 {
		length = Length
	}
	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		n, _ := rand.Int(rand.Reader, alphabetSize)
		sb.WriteByte(alphabet[n.Int64()])
	}
	return sb.String()
}

// Valid reports whether code has the shape of a generated short code.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(alphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
