package memzero_test

import (
	"testing"

	"pairchat/internal/util/memzero"
)

func TestZeroAll(t *testing.T) {
	a := []byte{1, 2, 3}
	b := []byte{4, 5}
	memzero.ZeroAll(a, b, nil)
	for _, s := range [][]byte{a, b} {
		for i, v := range s {
			if v != 0 {
				t.Fatalf("byte %d not wiped", i)
			}
		}
	}
}
