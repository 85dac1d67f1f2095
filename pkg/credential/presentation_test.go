// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package credential

import (
	"crypto/rand"
	"testing"

	math "github.com/IBM/mathlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/sample"
)

func TestPresentation(t *testing.T) {
	gen := testGenerators(t)
	key := NewIssuerKey(gen.Group, rand.Reader)
	attrs := testAttrs.Scalars(gen.Group)
	x, _, cred := issue(t, gen, key, attrs)

	z := sample.ScalarUnit(rand.Reader, gen.Group)
	b := Binding{Pseudonym: gen.H.Mul(z), Context: []byte("nonce")}
	disclose := []int{0, 1}

	p, err := Present(gen, cred, attrs, disclose, b, Secrets{X: x, Z: z}, rand.Reader)
	require.NoError(t, err)

	parsed, err := ParsePresentation(gen.Group, p.Elements(gen.Group))
	require.NoError(t, err)

	disclosed := map[int]*math.Zr{0: attrs[0], 1: attrs[1]}
	require.NoError(t, parsed.Verify(gen, key.W, len(attrs), disclosed, b))

	t.Run("wrong disclosed value", func(t *testing.T) {
		lie := map[int]*math.Zr{0: gen.Group.ScalarFromUint64(99), 1: attrs[1]}
		assert.ErrorIs(t, parsed.Verify(gen, key.W, len(attrs), lie, b), ErrVerification)
	})
	t.Run("wrong context", func(t *testing.T) {
		other := b
		other.Context = []byte("replayed")
		assert.ErrorIs(t, parsed.Verify(gen, key.W, len(attrs), disclosed, other), ErrVerification)
	})
	t.Run("wrong pseudonym", func(t *testing.T) {
		other := b
		other.Pseudonym = gen.H.Mul(sample.ScalarUnit(rand.Reader, gen.Group))
		assert.ErrorIs(t, parsed.Verify(gen, key.W, len(attrs), disclosed, other), ErrVerification)
	})
	t.Run("wrong issuer", func(t *testing.T) {
		other := NewIssuerKey(gen.Group, rand.Reader)
		assert.ErrorIs(t, parsed.Verify(gen, other.W, len(attrs), disclosed, b), ErrVerification)
	})
	t.Run("unlinkable", func(t *testing.T) {
		again, err := Present(gen, cred, attrs, disclose, b, Secrets{X: x, Z: z}, rand.Reader)
		require.NoError(t, err)
		assert.False(t, again.APrime.Equals(p.APrime))
	})
}

func TestPresentationNothingDisclosed(t *testing.T) {
	gen := testGenerators(t)
	key := NewIssuerKey(gen.Group, rand.Reader)
	attrs := testAttrs.Scalars(gen.Group)
	x, _, cred := issue(t, gen, key, attrs)

	z := sample.ScalarUnit(rand.Reader, gen.Group)
	b := Binding{Pseudonym: gen.H.Mul(z)}
	p, err := Present(gen, cred, attrs, nil, b, Secrets{X: x, Z: z}, rand.Reader)
	require.NoError(t, err)
	assert.NoError(t, p.Verify(gen, key.W, len(attrs), nil, b))
}

func TestPresentationWithEscrow(t *testing.T) {
	gen := testGenerators(t)
	key := NewIssuerKey(gen.Group, rand.Reader)
	attrs := testAttrs.Scalars(gen.Group)
	x, Y, cred := issue(t, gen, key, attrs)

	police := sample.ScalarUnit(rand.Reader, gen.Group)
	policeKey := gen.H.Mul(police)
	k := sample.ScalarUnit(rand.Reader, gen.Group)
	C2 := policeKey.Mul(k)
	C2.Add(Y)
	escrow := &Escrow{C1: gen.H.Mul(k), C2: C2, Key: policeKey}

	z := sample.ScalarUnit(rand.Reader, gen.Group)
	b := Binding{Pseudonym: gen.H.Mul(z), Escrow: escrow, Context: []byte("offer")}
	p, err := Present(gen, cred, attrs, []int{0}, b, Secrets{X: x, Z: z, K: k}, rand.Reader)
	require.NoError(t, err)
	disclosed := map[int]*math.Zr{0: attrs[0]}
	require.NoError(t, p.Verify(gen, key.W, len(attrs), disclosed, b))

	// an escrow of somebody else's key is rejected
	forged := *escrow
	forged.C2 = policeKey.Mul(k)
	forged.C2.Add(gen.H.Mul(sample.ScalarUnit(rand.Reader, gen.Group)))
	bad := b
	bad.Escrow = &forged
	assert.Error(t, p.Verify(gen, key.W, len(attrs), disclosed, bad))

	_, err = Present(gen, cred, attrs, nil, b, Secrets{X: x, Z: z}, rand.Reader)
	assert.Error(t, err, "escrow randomness is required")
}
