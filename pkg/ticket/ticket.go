// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package ticket implements tickets bound to a pseudonym P = H^z and a service offer.
//
// The seller with secret xₛ and W_S = g₂^xₛ signs
// T = (g₀⋅P⋅g₁^w⋅H_T^sᵤ)^(1/(xₛ+e)) where sᵤ = H(P‖time‖service‖price‖validity‖C1‖C2).
package ticket

import (
	"errors"
	"fmt"
	"io"
	"time"

	math "github.com/IBM/mathlib"
	"golang.org/x/crypto/sha3"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/credential"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/curve"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/sample"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/wire"
)

var (
	ErrVerification = errors.New("ticket: verification failed")
	ErrExpired      = errors.New("ticket: outside its validity window")
)

// Generators are the public bases used by tickets.
type Generators struct {
	Group *curve.Curve
	G0    *math.G1
	G1    *math.G1
	// H is the pseudonym base.
	H *math.G1
	// HT carries the binding scalar.
	HT *math.G1
}

// Offer is what a seller proposes to sell.
type Offer struct {
	Service string
	Price   uint64
	// Time is the issuing time in unix seconds.
	Time uint64
	// Validity is the lifetime in seconds, starting at Time.
	Validity uint64
	Policy   credential.Policy
}

// Valid reports whether now falls in [Time, Time+Validity).
func (o Offer) Valid(now time.Time) bool {
	t := now.Unix()
	if t < 0 {
		return false
	}
	return uint64(t) >= o.Time && uint64(t)-o.Time < o.Validity
}

// BindingScalar computes sᵤ = H(P‖time‖service‖price‖validity‖C1‖C2) reduced into ℤₚ.
// C1 and C2 may be nil.
func BindingScalar(group *curve.Curve, P *math.G1, o Offer, C1, C2 *math.G1) *math.Zr {
	h := sha3.New256()
	write := func(b []byte) {
		_, _ = h.Write(wire.Uint64(uint64(len(b))))
		_, _ = h.Write(b)
	}
	write(P.Bytes())
	write(wire.Uint64(o.Time))
	write([]byte(o.Service))
	write(wire.Uint64(o.Price))
	write(wire.Uint64(o.Validity))
	write(wire.OptionalG1(C1))
	write(wire.OptionalG1(C2))
	return group.HashToZr(h.Sum(nil))
}

// Signature is the seller signature (e, w, T) on a ticket.
type Signature struct {
	E *math.Zr
	W *math.Zr
	T *math.G1
}

func (g *Generators) base(P *math.G1, w, su *math.Zr) *math.G1 {
	B := g.G0.Mul(g.Group.One())
	B.Add(P)
	B.Add(g.G1.Mul(w))
	B.Add(g.HT.Mul(su))
	return B
}

// Sign signs the pseudonym P and binding scalar su with the seller key.
func Sign(gen *Generators, key *credential.IssuerKey, P *math.G1, su *math.Zr, rand io.Reader) (*Signature, error) {
	e := sample.ScalarUnit(rand, gen.Group)
	w := sample.Scalar(rand, gen.Group)
	denominator := gen.Group.Add(key.X, e)
	if gen.Group.IsZero(denominator) {
		return nil, fmt.Errorf("%w: degenerate exponent", ErrVerification)
	}
	sig := &Signature{E: e, W: w, T: gen.base(P, w, su).Mul(gen.Group.Inv(denominator))}
	if err := Verify(gen, key.W, P, su, sig); err != nil {
		return nil, err
	}
	return sig, nil
}

// Verify checks e(T, W_S⋅g₂^e) == e(g₀⋅P⋅g₁^w⋅H_T^sᵤ, g₂).
func Verify(gen *Generators, WS *math.G2, P *math.G1, su *math.Zr, sig *Signature) error {
	if sig == nil || sig.E == nil || sig.W == nil || sig.T == nil || P == nil || WS == nil {
		return fmt.Errorf("%w: incomplete input", ErrVerification)
	}
	if sig.T.IsInfinity() {
		return fmt.Errorf("%w: T is the identity", ErrVerification)
	}
	lhs := gen.Group.GenG2.Mul(sig.E)
	lhs.Add(WS)
	if !gen.Group.PairingEqual(sig.T, lhs, gen.base(P, sig.W, su), gen.Group.GenG2) {
		return ErrVerification
	}
	return nil
}

// Elements encodes the signature as [e, w, T].
func (s *Signature) Elements(group *curve.Curve) [][]byte {
	return [][]byte{group.ScalarBytes(s.E), group.ScalarBytes(s.W), s.T.Bytes()}
}

// ParseSignature decodes [e, w, T].
func ParseSignature(group *curve.Curve, elements [][]byte) (*Signature, error) {
	if len(elements) != 3 {
		return nil, &wire.DataError{Reason: fmt.Sprintf("signature needs 3 elements, got %d", len(elements))}
	}
	r := wire.NewReader(group, elements)
	s := &Signature{E: r.Scalar(0), W: r.Scalar(1), T: r.G1(2)}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// Ticket is the holder view of an issued ticket.
type Ticket struct {
	Pseudonym *math.G1
	// Z is the pseudonym secret, P = H^z.
	Z       *math.Zr
	Offer   Offer
	Binding *math.Zr
	// C1, C2 encrypt the holder key for the tracing authority, nil when untraceable.
	C1, C2    *math.G1
	Signature *Signature
}
