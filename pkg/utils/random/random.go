package random

import (
	"crypto/rand"
	"math/big"
)

// RoomAlphabet skips characters that are easy to misread when a code is
// read aloud or typed from a screen (0/O, 1/I).
const RoomAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RoomCode returns a random code drawn from RoomAlphabet.
func RoomCode(length int) string {
	return FromSet(RoomAlphabet, length)
}

func FromSet(set string, length int) string {
	if length <= 0 || set == "" {
		return ""
	}
	max := big.NewInt(int64(len(set)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			out[i] = set[0]
			continue
		}
		out[i] = set[n.Int64()]
	}
	return string(out)
}
