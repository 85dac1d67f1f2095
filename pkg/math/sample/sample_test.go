// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package sample

import (
	"crypto/rand"
	"io"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/curve"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestModN(t *testing.T) {
	n := big.NewInt(3 * 11 * 65519)
	for i := 0; i < 100; i++ {
		x := ModN(rand.Reader, n)
		if x.Cmp(n) >= 0 || x.Sign() < 0 {
			t.Errorf("ModN generated a number outside [0, %v): %v", n, x)
		}
	}
}

func TestScalar(t *testing.T) {
	group, err := curve.ByName(curve.DefaultName)
	require.NoError(t, err)

	a := ScalarUnit(rand.Reader, group)
	b := ScalarUnit(rand.Reader, group)
	assert.False(t, a.Equals(b))
	assert.False(t, group.IsZero(a))

	x, X := ScalarPointPair(rand.Reader, group, group.GenG1)
	assert.True(t, group.GenG1.Mul(x).Equals(X))
}

func TestSeededReader(t *testing.T) {
	r1, err := MnemonicReader(testMnemonic, 1)
	require.NoError(t, err)
	r2, err := MnemonicReader(testMnemonic, 1)
	require.NoError(t, err)
	r3, err := MnemonicReader(testMnemonic, 2)
	require.NoError(t, err)

	b1, b2, b3 := make([]byte, 64), make([]byte, 64), make([]byte, 64)
	_, err = io.ReadFull(r1, b1)
	require.NoError(t, err)
	_, err = io.ReadFull(r2, b2)
	require.NoError(t, err)
	_, err = io.ReadFull(r3, b3)
	require.NoError(t, err)

	assert.Equal(t, b1, b2, "same seed and index must give the same stream")
	assert.NotEqual(t, b1, b3, "different indices must give different streams")
}

func TestSeedRejectsInvalidMnemonic(t *testing.T) {
	_, err := Seed("abandon abandon abandon", "")
	assert.ErrorIs(t, err, ErrInvalidMnemonic)

	m, err := NewMnemonic()
	require.NoError(t, err)
	_, err = Seed(m, "")
	assert.NoError(t, err)
}

// This exists to save the results of functions we want to benchmark, to avoid
// having them optimized away.
var resultBig *big.Int

func BenchmarkModN(b *testing.B) {
	group, _ := curve.ByName(curve.DefaultName)
	n := group.Order()
	for i := 0; i < b.N; i++ {
		resultBig = ModN(rand.Reader, n)
	}
}
