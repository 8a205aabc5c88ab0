package helpers

import (
	"crypto/rand"
	"math/big"
)

const (
	ReferenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	ReferenceLength   = 6
)

// NewReference returns a random attendee reference code. It does not check
// the code against existing rows.
func NewReference() (string, error) {
	limit := big.NewInt(int64(len(ReferenceAlphabet)))
	ref := make([]byte, ReferenceLength)
	for i := range ref {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		ref[i] = ReferenceAlphabet[n.Int64()]
	}
	return string(ref), nil
}
