package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const orderSuffixAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var (
	otpSpan = big.NewInt(900000)
	otpBase = int64(100000)
)

// GenerateOTPCode returns a uniformly random six digit code in 100000-999999.
func GenerateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpan)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+otpBase), nil
}

// GenerateOrderID builds ORD-<unix millis>-<6 random chars>.
func GenerateOrderID(now time.Time) (string, error) {
	suffix, err := randomString(6, orderSuffixAlphabet)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix), nil
}

func randomString(n int, alphabet string) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
