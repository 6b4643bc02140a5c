package crypto

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// inviteAlphabet drops 0/O and 1/I/L so codes survive being read aloud or retyped.
const inviteAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	inviteGroups    = 2
	inviteGroupSize = 5
)

// GenerateInviteCode returns a random code shaped like "K7QX2-MZ9PD".
func GenerateInviteCode() (string, error) {
	size := big.NewInt(int64(len(inviteAlphabet)))
	groups := make([]string, 0, inviteGroups)
	for g := 0; g < inviteGroups; g++ {
		var b strings.Builder
		for i := 0; i < inviteGroupSize; i++ {
			n, err := rand.Int(rand.Reader, size)
			if err != nil {
				return "", fmt.Errorf("failed to generate random index: %w", err)
			}
			b.WriteByte(inviteAlphabet[n.Int64()])
		}
		groups = append(groups, b.String())
	}
	return strings.Join(groups, "-"), nil
}
