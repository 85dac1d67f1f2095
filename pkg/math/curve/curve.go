// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package curve

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	math "github.com/IBM/mathlib"
)

var (
	ErrUnknownCurve   = errors.New("curve: unknown curve")
	ErrScalarEncoding = errors.New("curve: invalid scalar encoding")
	ErrPointEncoding  = errors.New("curve: invalid point encoding")
	ErrIdentity       = errors.New("curve: point is the identity")
)

// Curve is a pairing friendly group (G1, G2, GT) of prime order p.
// All scalar arithmetic goes through Curve so results are reduced mod p.
type Curve struct {
	*math.Curve
	name  string
	bits  int
	order *big.Int
	size  int
}

type entry struct {
	id   math.CurveID
	bits int
}

var registry = map[string]entry{
	"BN254":   {id: math.BN254, bits: 128},
	"FP256BN": {id: math.FP256BN_AMCL, bits: 100},
}

// DefaultName is the curve used when no security level is configured.
const DefaultName = "BN254"

// ByName returns the curve registered under name.
func ByName(name string) (*Curve, error) {
	e, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCurve, name)
	}
	c := math.Curves[e.id]
	order := new(big.Int).SetBytes(c.GroupOrder.Bytes())
	return &Curve{Curve: c, name: name, bits: e.bits, order: order, size: (order.BitLen() + 7) / 8}, nil
}

// FromSecurityBits picks the smallest registered curve offering at least bits of security.
// bits == 0 selects DefaultName.
func FromSecurityBits(bits int) (*Curve, error) {
	if bits == 0 {
		return ByName(DefaultName)
	}
	best := ""
	for name, e := range registry {
		if e.bits < bits {
			continue
		}
		if best == "" || e.bits < registry[best].bits {
			best = name
		}
	}
	if best == "" {
		return nil, fmt.Errorf("%w: no curve offers %s bits", ErrUnknownCurve, strconv.Itoa(bits))
	}
	return ByName(best)
}

// Name returns the registry name of c.
func (c *Curve) Name() string { return c.name }

// SecurityBits returns the nominal security level of c.
func (c *Curve) SecurityBits() int { return c.bits }

// ScalarSize is the length of an encoded scalar.
func (c *Curve) ScalarSize() int { return c.size }

// Order returns a copy of the group order p.
func (c *Curve) Order() *big.Int { return new(big.Int).Set(c.order) }

// Add returns a+b mod p.
func (c *Curve) Add(a, b *math.Zr) *math.Zr { return c.reduce(c.ModAdd(a, b, c.GroupOrder)) }

// Sub returns a-b mod p.
func (c *Curve) Sub(a, b *math.Zr) *math.Zr { return c.reduce(c.ModSub(a, b, c.GroupOrder)) }

// Mul returns a⋅b mod p.
func (c *Curve) Mul(a, b *math.Zr) *math.Zr { return c.reduce(c.ModMul(a, b, c.GroupOrder)) }

// Neg returns -a mod p.
func (c *Curve) Neg(a *math.Zr) *math.Zr { return c.reduce(c.ModNeg(a, c.GroupOrder)) }

// Inv returns a⁻¹ mod p, leaving a untouched.
func (c *Curve) Inv(a *math.Zr) *math.Zr {
	out := c.reduce(a)
	out.InvModP(c.GroupOrder)
	return c.reduce(out)
}

// Zero returns the scalar 0.
func (c *Curve) Zero() *math.Zr { return c.NewZrFromInt(0) }

// One returns the scalar 1.
func (c *Curve) One() *math.Zr { return c.NewZrFromInt(1) }

// IsZero reports whether a ≡ 0 mod p.
func (c *Curve) IsZero(a *math.Zr) bool {
	v := new(big.Int).SetBytes(a.Bytes())
	return v.Mod(v, c.order).Sign() == 0
}

// ScalarFromUint64 maps v into ℤₚ.
func (c *Curve) ScalarFromUint64(v uint64) *math.Zr {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return c.ScalarFromBig(new(big.Int).SetBytes(buf[:]))
}

// ScalarFromBig reduces v mod p.
func (c *Curve) ScalarFromBig(v *big.Int) *math.Zr {
	r := new(big.Int).Mod(v, c.order)
	return c.NewZrFromBytes(c.pad(r.Bytes()))
}

// ScalarBytes is the fixed-width big-endian encoding of a.
func (c *Curve) ScalarBytes(a *math.Zr) []byte {
	return c.pad(new(big.Int).Mod(new(big.Int).SetBytes(a.Bytes()), c.order).Bytes())
}

// ScalarFromBytes decodes a fixed-width big-endian scalar and rejects values outside [0, p).
func (c *Curve) ScalarFromBytes(b []byte) (*math.Zr, error) {
	if len(b) != c.size {
		return nil, fmt.Errorf("%w: length %d, expected %d", ErrScalarEncoding, len(b), c.size)
	}
	if new(big.Int).SetBytes(b).Cmp(c.order) >= 0 {
		return nil, fmt.Errorf("%w: not reduced", ErrScalarEncoding)
	}
	return c.NewZrFromBytes(b), nil
}

// G1FromBytes decodes a G1 element received from an untrusted party.
// The identity is rejected.
func (c *Curve) G1FromBytes(b []byte) (*math.G1, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrPointEncoding)
	}
	p, err := c.NewG1FromBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPointEncoding, err)
	}
	if p.IsInfinity() {
		return nil, ErrIdentity
	}
	return p, nil
}

// G2FromBytes decodes a G2 element received from an untrusted party.
func (c *Curve) G2FromBytes(b []byte) (*math.G2, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrPointEncoding)
	}
	p, err := c.NewG2FromBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPointEncoding, err)
	}
	if p.Equals(c.GenG2.Mul(c.Zero())) {
		return nil, ErrIdentity
	}
	return p, nil
}

// G1Identity returns the neutral element of G1.
func (c *Curve) G1Identity() *math.G1 { return c.GenG1.Mul(c.Zero()) }

// MultiExp returns ∏ bases[i]^exps[i].
func (c *Curve) MultiExp(bases []*math.G1, exps []*math.Zr) *math.G1 {
	if len(bases) != len(exps) {
		panic("curve: MultiExp length mismatch")
	}
	acc := c.G1Identity()
	for i := range bases {
		acc.Add(bases[i].Mul(exps[i]))
	}
	return acc
}

// PairingEqual reports whether e(a1, a2) == e(b1, b2).
func (c *Curve) PairingEqual(a1 *math.G1, a2 *math.G2, b1 *math.G1, b2 *math.G2) bool {
	lhs := c.FExp(c.Pairing(a2, a1))
	rhs := c.FExp(c.Pairing(b2, b1))
	return lhs.Equals(rhs)
}

// HashToG1s derives count independent generators from label.
// Nobody knows a discrete log relation between them.
func (c *Curve) HashToG1s(label string, count int) []*math.G1 {
	out := make([]*math.G1, count)
	for i := 0; i < count; i++ {
		buf := make([]byte, len(label)+8)
		copy(buf, label)
		binary.BigEndian.PutUint64(buf[len(label):], uint64(i))
		out[i] = c.HashToG1(buf)
	}
	return out
}

func (c *Curve) reduce(a *math.Zr) *math.Zr {
	return c.ScalarFromBig(new(big.Int).SetBytes(a.Bytes()))
}

func (c *Curve) pad(b []byte) []byte {
	if len(b) >= c.size {
		return b
	}
	out := make([]byte, c.size)
	copy(out[c.size-len(b):], b)
	return out
}
