package loyalty

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	CodeLength   = 6
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// CodeGenerator returns a fresh loyalty card code.
type CodeGenerator func() (string, error)

var alphabetSize = big.NewInt(int64(len(codeAlphabet)))

// NewCode draws CodeLength characters uniformly from [A-Za-z0-9].
func NewCode() (string, error) {
	b := make([]byte, CodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("generate loyalty code: %w", err)
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}
