// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package sample

import (
	"fmt"
	"io"
	"math/big"

	math "github.com/IBM/mathlib"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/curve"
)

const maxIterations = 255

var ErrMaxIterations = fmt.Errorf("sample: failed to generate after %d iterations", maxIterations)

func mustReadBits(rand io.Reader, buf []byte) {
	for i := 0; i < maxIterations; i++ {
		if _, err := io.ReadFull(rand, buf); err == nil {
			return
		}
	}
	panic(ErrMaxIterations)
}

// ModN samples an element of [0, n) by rejection.
func ModN(rand io.Reader, n *big.Int) *big.Int {
	out := new(big.Int)
	bitLen := n.BitLen()
	buf := make([]byte, (bitLen+7)/8)
	// keep only the low bitLen bits of each draw
	mask := byte(0xff >> (uint(len(buf))*8 - uint(bitLen)))
	for i := 0; i < 4*maxIterations; i++ {
		mustReadBits(rand, buf)
		buf[0] &= mask
		out.SetBytes(buf)
		if out.Cmp(n) < 0 {
			return out
		}
	}
	panic(ErrMaxIterations)
}

// Scalar returns a uniform scalar of ℤₚ by reading bytes from rand.
func Scalar(rand io.Reader, group *curve.Curve) *math.Zr {
	return group.ScalarFromBig(ModN(rand, group.Order()))
}

// ScalarUnit returns a uniform non-zero scalar of ℤₚ.
func ScalarUnit(rand io.Reader, group *curve.Curve) *math.Zr {
	for i := 0; i < maxIterations; i++ {
		s := Scalar(rand, group)
		if !group.IsZero(s) {
			return s
		}
	}
	panic(ErrMaxIterations)
}

// ScalarPointPair returns a new (x, X) tuple with X = base^x.
func ScalarPointPair(rand io.Reader, group *curve.Curve, base *math.G1) (*math.Zr, *math.G1) {
	s := ScalarUnit(rand, group)
	return s, base.Mul(s)
}

// Bytes returns n fresh bytes from rand.
func Bytes(rand io.Reader, n int) []byte {
	buf := make([]byte, n)
	mustReadBits(rand, buf)
	return buf
}
