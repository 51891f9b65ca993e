package reservations

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var pinSpace = big.NewInt(1000000)

// GeneratePIN returns a 6 digit access PIN drawn uniformly from
// 000000 through 999999.
func GeneratePIN() (string, error) {
	n, err := rand.Int(rand.Reader, pinSpace)
	if err != nil {
		return "", fmt.Errorf("generating access pin: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
