// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package elgamal

import (
	"io"

	math "github.com/IBM/mathlib"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/curve"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/sample"
)

// Ciphertext is (C1, C2) = (base^k, M⋅Key^k).
type Ciphertext struct {
	C1, C2 *math.G1
}

// Encrypt encrypts the group element m under key = base^x and returns the nonce k
// so that the caller can prove knowledge of it.
func Encrypt(group *curve.Curve, base, key, m *math.G1, rand io.Reader) (*Ciphertext, *math.Zr) {
	k, C1 := sample.ScalarPointPair(rand, group, base)
	C2 := key.Mul(k)
	C2.Add(m)
	return &Ciphertext{C1: C1, C2: C2}, k
}

// Decrypt returns M = C2⋅C1^(-x).
func Decrypt(group *curve.Curve, x *math.Zr, ct *Ciphertext) *math.G1 {
	M := ct.C1.Mul(group.Neg(x))
	M.Add(ct.C2)
	return M
}

// Valid reports whether both components are present and not the identity.
func (ct *Ciphertext) Valid() bool {
	return ct != nil && ct.C1 != nil && ct.C2 != nil && !ct.C1.IsInfinity() && !ct.C2.IsInfinity()
}
