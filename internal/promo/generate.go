// Package promo produces random single-use promotion codes.
package promo

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	CodeLength = 7
	alphabet   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

type Code struct {
	Code     string
	Discount decimal.Decimal
}

// Generate returns n codes of CodeLength characters. Discounts are whole hundreds from 100
// to 1000.
func Generate(n int) ([]Code, error) {
	out := make([]Code, 0, n)
	seen := make(map[string]struct{}, n)
	for len(out) < n {
		code, err := RandomCode(CodeLength)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}

		step, err := randIntn(10)
		if err != nil {
			return nil, err
		}
		out = append(out, Code{
			Code:     code,
			Discount: decimal.NewFromInt(int64(step)*100 + 100),
		})
	}
	return out, nil
}

func RandomCode(length int) (string, error) {
	b := make([]byte, length)
	for i := range b {
		j, err := randIntn(len(alphabet))
		if err != nil {
			return "", err
		}
		b[i] = alphabet[j]
	}
	return string(b), nil
}

func randIntn(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("promo: read random: %w", err)
	}
	return int(v.Int64()), nil
}
