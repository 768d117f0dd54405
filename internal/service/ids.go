package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	spotIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	spotIDLength   = 14
)

var alphabetSize = big.NewInt(int64(len(spotIDAlphabet)))

// NewSpotID draws 14 characters uniformly from [A-Za-z0-9].
func NewSpotID() (string, error) {
	b := make([]byte, spotIDLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("spot id: %w", err)
		}
		b[i] = spotIDAlphabet[n.Int64()]
	}
	return string(b), nil
}

// NewSerialNumber returns TH<unix-millis><3-digit random>.
func NewSerialNumber(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		return "", fmt.Errorf("serial number: %w", err)
	}
	return fmt.Sprintf("TH%d%03d", now.UnixMilli(), n.Int64()), nil
}
