package pages

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	codeAlphabet      = "ABCDEFGHJKMNPQRSTVWXYZ23456789"
	defaultCodeLength = 8
	linkTokenBytes    = 16
)

type CodeGenerator interface {
	Code() (string, error)
	LinkToken() (string, error)
}

type RandomGenerator struct {
	length int
}

func NewRandomGenerator(length int) *RandomGenerator {
	if length <= 0 {
		length = defaultCodeLength
	}
	return &RandomGenerator{length: length}
}

func (g *RandomGenerator) Code() (string, error) {
	out := make([]byte, g.length)
	alphabetSize := big.NewInt(int64(len(codeAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		out[i] = codeAlphabet[n.Int64()]
	}
	return string(out), nil
}

func (g *RandomGenerator) LinkToken() (string, error) {
	b := make([]byte, linkTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(b), nil
}
