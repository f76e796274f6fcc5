package crypto

import (
	"crypto/rand"
	"io"
)

var randReader io.Reader = rand.Reader

// SetRandReaderForTesting replaces the random source and returns a function
// restoring the previous one. It is not safe for concurrent use.
func SetRandReaderForTesting(r io.Reader) func() {
	prev := randReader
	randReader = r
	return func() { randReader = prev }
}

// RandomBytes returns n bytes from the random source.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return nil, err
	}
	return b, nil
}
