package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	refreshTokenBytes = 32
	sessionIDBytes    = 20
)

func NewOpaqueToken(byteLen int) (string, error) {
	if byteLen <= 0 {
		return "", fmt.Errorf("invalid token size")
	}

	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func NewRefreshToken() (string, error) {
	return NewOpaqueToken(refreshTokenBytes)
}

func NewSessionID() (string, error) {
	return NewOpaqueToken(sessionIDBytes)
}
