package utils

import (
	"crypto/rand"
	"hash/fnv"
	"math/big"
	"time"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// MaxSafeInteger is the largest integer a JSON number carries exactly (2^53-1);
// the payment gateway rejects order codes above it.
const MaxSafeInteger int64 = 1<<53 - 1

// GenerateReservationCode returns an 8 character human-readable lookup code.
func GenerateReservationCode() (string, error) {
	b := make([]byte, 8)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// GenerateTransactionCode derives the gateway order code from the reservation
// code and the unix time: (seconds mod 1e9) * 1000 + (fnv32(code) mod 1000).
// The result is below 1e12, well inside MaxSafeInteger.
func GenerateTransactionCode(reservationCode string, now time.Time) int64 {
	h := fnv.New32a()
	h.Write([]byte(reservationCode))
	suffix := int64(h.Sum32() % 1000)
	return (now.Unix()%1_000_000_000)*1000 + suffix
}
