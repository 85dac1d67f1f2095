// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package elgamal

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/curve"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/sample"
)

func TestEncryptDecrypt(t *testing.T) {
	group, err := curve.ByName(curve.DefaultName)
	require.NoError(t, err)
	base := group.HashToG1s("elgamal-test", 1)[0]

	x, key := sample.ScalarPointPair(rand.Reader, group, base)
	_, m := sample.ScalarPointPair(rand.Reader, group, base)

	ct, k := Encrypt(group, base, key, m, rand.Reader)
	require.True(t, ct.Valid())
	assert.True(t, ct.C1.Equals(base.Mul(k)))
	assert.True(t, Decrypt(group, x, ct).Equals(m))

	wrong := sample.Scalar(rand.Reader, group)
	assert.False(t, Decrypt(group, wrong, ct).Equals(m))

	var empty *Ciphertext
	assert.False(t, empty.Valid())
}
