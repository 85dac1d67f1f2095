// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package curve

import (
	"math/big"
	"testing"

	math "github.com/IBM/mathlib"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	for name := range registry {
		c, err := ByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, c.Name())
		assert.Positive(t, c.Order().Sign())
	}
	_, err := ByName("P-256")
	assert.ErrorIs(t, err, ErrUnknownCurve)
}

func TestFromSecurityBits(t *testing.T) {
	c, err := FromSecurityBits(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultName, c.Name())

	c, err = FromSecurityBits(100)
	require.NoError(t, err)
	assert.Equal(t, "FP256BN", c.Name())

	c, err = FromSecurityBits(128)
	require.NoError(t, err)
	assert.Equal(t, "BN254", c.Name())

	_, err = FromSecurityBits(256)
	assert.ErrorIs(t, err, ErrUnknownCurve)
}

func TestScalarArithmetic(t *testing.T) {
	c, err := ByName(DefaultName)
	require.NoError(t, err)

	a := c.ScalarFromUint64(7)
	b := c.ScalarFromUint64(5)
	assert.True(t, c.Add(a, b).Equals(c.ScalarFromUint64(12)))
	assert.True(t, c.Mul(a, b).Equals(c.ScalarFromUint64(35)))
	assert.True(t, c.Add(c.Sub(b, a), a).Equals(b))
	assert.True(t, c.IsZero(c.Add(a, c.Neg(a))))
	assert.True(t, c.Mul(a, c.Inv(a)).Equals(c.One()))
	// Inv must not modify its argument
	assert.True(t, a.Equals(c.ScalarFromUint64(7)))
}

func TestResultsAreReduced(t *testing.T) {
	for _, name := range []string{"BN254", "FP256BN"} {
		c, err := ByName(name)
		require.NoError(t, err)
		require.Equal(t, 32, c.ScalarSize())

		pMinus1 := c.ScalarFromBig(new(big.Int).Sub(c.Order(), big.NewInt(1)))
		a := c.ScalarFromUint64(123456789)
		results := map[string]*math.Zr{
			"add": c.Add(pMinus1, pMinus1),
			"sub": c.Sub(c.Zero(), a),
			"mul": c.Mul(pMinus1, pMinus1),
			"neg": c.Neg(a),
			"inv": c.Inv(pMinus1),
			"one": c.Mul(a, c.Inv(a)),
		}
		for op, r := range results {
			v := new(big.Int).SetBytes(r.Bytes())
			assert.Equal(t, -1, v.Cmp(c.Order()), "%s %s", name, op)
			round, err := c.ScalarFromBytes(c.ScalarBytes(r))
			require.NoError(t, err, "%s %s", name, op)
			assert.True(t, round.Equals(r), "%s %s", name, op)
		}
		assert.True(t, results["one"].Equals(c.One()), name)
		// (p-1)² = 1
		assert.True(t, results["mul"].Equals(c.One()), name)
	}
}

func TestScalarEncoding(t *testing.T) {
	c, err := ByName(DefaultName)
	require.NoError(t, err)

	a := c.ScalarFromUint64(1)
	b := c.ScalarBytes(a)
	require.Len(t, b, c.ScalarSize())
	assert.Equal(t, byte(0), b[0], "leading zeros are kept")

	back, err := c.ScalarFromBytes(b)
	require.NoError(t, err)
	assert.True(t, back.Equals(a))

	_, err = c.ScalarFromBytes(b[1:])
	assert.ErrorIs(t, err, ErrScalarEncoding)

	over := c.pad(new(big.Int).Add(c.Order(), big.NewInt(1)).Bytes())
	_, err = c.ScalarFromBytes(over)
	assert.ErrorIs(t, err, ErrScalarEncoding)
}

func TestPointEncoding(t *testing.T) {
	c, err := ByName(DefaultName)
	require.NoError(t, err)

	p := c.GenG1.Mul(c.ScalarFromUint64(42))
	back, err := c.G1FromBytes(p.Bytes())
	require.NoError(t, err)
	assert.True(t, back.Equals(p))

	_, err = c.G1FromBytes(nil)
	assert.ErrorIs(t, err, ErrPointEncoding)

	q := c.GenG2.Mul(c.ScalarFromUint64(42))
	back2, err := c.G2FromBytes(q.Bytes())
	require.NoError(t, err)
	assert.True(t, back2.Equals(q))
}

func TestMultiExpAndPairing(t *testing.T) {
	c, err := ByName(DefaultName)
	require.NoError(t, err)

	gens := c.HashToG1s("test", 2)
	x, y := c.ScalarFromUint64(3), c.ScalarFromUint64(9)
	got := c.MultiExp(gens, []*math.Zr{x, y})
	want := gens[0].Mul(x)
	want.Add(gens[1].Mul(y))
	assert.True(t, got.Equals(want))

	// e(g^x, h) == e(g, h^x)
	assert.True(t, c.PairingEqual(c.GenG1.Mul(x), c.GenG2, c.GenG1, c.GenG2.Mul(x)))
	assert.False(t, c.PairingEqual(c.GenG1.Mul(x), c.GenG2, c.GenG1, c.GenG2.Mul(y)))
}
