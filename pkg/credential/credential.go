// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package credential implements BBS+ anonymous credentials over a pairing group.
//
// An issuer with secret xₐ and public W = g₂^xₐ certifies a user key Y = H^x and
// attributes a₁…aₗ with σ = (g₀⋅Y⋅g₁^r⋅∏Hᵢ^aᵢ)^(1/(xₐ+e)). The user receives only a
// blinded commitment M = Y⋅g₁^d and never reveals x.
package credential

import (
	"errors"
	"fmt"
	"io"

	math "github.com/IBM/mathlib"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/hash"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/curve"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/sample"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/party"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/wire"
	zksch "github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/zk/sch"
)

var (
	ErrVerification = errors.New("credential: verification failed")
	ErrAttributes   = errors.New("credential: too many attributes")
)

// Generators are the public bases of the scheme.
type Generators struct {
	Group *curve.Curve
	// G0 is the constant base of the signed message.
	G0 *math.G1
	// G1 carries the blinding exponent r.
	G1 *math.G1
	// H carries the actor secret x.
	H *math.G1
	// HS[i] carries attribute i.
	HS []*math.G1
}

// IssuerKey is a signing keypair (x, W = g₂^x).
type IssuerKey struct {
	X *math.Zr
	W *math.G2
}

// NewIssuerKey samples an issuing keypair.
func NewIssuerKey(group *curve.Curve, rand io.Reader) *IssuerKey {
	x := sample.ScalarUnit(rand, group)
	return &IssuerKey{X: x, W: group.GenG2.Mul(x)}
}

// Credential is a BBS+ signature (e, r, σ).
type Credential struct {
	E     *math.Zr
	R     *math.Zr
	Sigma *math.G1
}

// Elements encodes the credential as [e, r, σ].
func (c *Credential) Elements(group *curve.Curve) [][]byte {
	return [][]byte{group.ScalarBytes(c.E), group.ScalarBytes(c.R), c.Sigma.Bytes()}
}

// ParseCredential decodes [e, r, σ].
func ParseCredential(group *curve.Curve, elements [][]byte) (*Credential, error) {
	if len(elements) != 3 {
		return nil, &wire.DataError{Reason: fmt.Sprintf("credential needs 3 elements, got %d", len(elements))}
	}
	r := wire.NewReader(group, elements)
	c := &Credential{E: r.Scalar(0), R: r.Scalar(1), Sigma: r.G1(2)}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// base computes g₀⋅Y⋅g₁^r⋅∏Hᵢ^aᵢ.
func (g *Generators) base(Y *math.G1, r *math.Zr, attrs []*math.Zr) (*math.G1, error) {
	if len(attrs) > len(g.HS) {
		return nil, fmt.Errorf("%w: %d > %d", ErrAttributes, len(attrs), len(g.HS))
	}
	B := g.G0.Mul(g.Group.One())
	B.Add(Y)
	B.Add(g.G1.Mul(r))
	for i, a := range attrs {
		B.Add(g.HS[i].Mul(a))
	}
	return B, nil
}

// check tests e(σ, W⋅g₂^e) == e(B, g₂).
func (g *Generators) check(W *math.G2, B *math.G1, e *math.Zr, sigma *math.G1) bool {
	if sigma == nil || sigma.IsInfinity() {
		return false
	}
	lhs := g.Group.GenG2.Mul(e)
	lhs.Add(W)
	return g.Group.PairingEqual(sigma, lhs, B, g.Group.GenG2)
}

// Sign issues a credential on the commitment M and attrs.
//
// The returned R is the issuer share r' of the blinding exponent; the holder
// completes it with Unblind. The signature is checked before it is returned.
func Sign(gen *Generators, key *IssuerKey, M *math.G1, attrs []*math.Zr, rand io.Reader) (*Credential, error) {
	e := sample.ScalarUnit(rand, gen.Group)
	rPrime := sample.Scalar(rand, gen.Group)
	B, err := gen.base(M, rPrime, attrs)
	if err != nil {
		return nil, err
	}
	denominator := gen.Group.Add(key.X, e)
	if gen.Group.IsZero(denominator) {
		return nil, fmt.Errorf("%w: degenerate exponent", ErrVerification)
	}
	sigma := B.Mul(gen.Group.Inv(denominator))
	if !gen.check(key.W, B, e, sigma) {
		return nil, fmt.Errorf("%w: issued signature", ErrVerification)
	}
	return &Credential{E: e, R: rPrime, Sigma: sigma}, nil
}

// Unblind turns the issuer share r' into r = d + r'.
func (c *Credential) Unblind(group *curve.Curve, d *math.Zr) *Credential {
	return &Credential{E: c.E, R: group.Add(d, c.R), Sigma: c.Sigma}
}

// Verify checks e(σ, W⋅g₂^e) == e(g₀⋅Y⋅g₁^r⋅∏Hᵢ^aᵢ, g₂).
func Verify(gen *Generators, W *math.G2, Y *math.G1, cred *Credential, attrs []*math.Zr) error {
	if cred == nil || cred.E == nil || cred.R == nil || Y == nil || W == nil {
		return fmt.Errorf("%w: incomplete input", ErrVerification)
	}
	B, err := gen.base(Y, cred.R, attrs)
	if err != nil {
		return err
	}
	if !gen.check(W, B, cred.E, cred.Sigma) {
		return ErrVerification
	}
	return nil
}

// Request is the registration message of an actor: the commitment M = Y⋅g₁^d, its
// key Y = H^x and a proof of knowledge of (x, d).
type Request struct {
	ID         party.ID
	Attributes []byte
	M, Y       *math.G1
	Proof      *zksch.Proof
}

func requestStatement(gen *Generators, M, Y *math.G1) zksch.Statement {
	return zksch.Statement{
		Group:     gen.Group,
		Witnesses: 2,
		Equations: []zksch.Equation{
			// Y = H^x
			{Target: Y, Terms: []zksch.Term{{Base: gen.H, Witness: 0}}},
			// M = H^x⋅g₁^d
			{Target: M, Terms: []zksch.Term{{Base: gen.H, Witness: 0}, {Base: gen.G1, Witness: 1}}},
		},
	}
}

func requestHash(id party.ID, attributes []byte) *hash.Hash {
	return hash.New(hash.BytesWithDomain{TheDomain: "Registration", Bytes: attributes}, id)
}

// NewRequest builds the registration request for secret x and returns the blinding d.
func NewRequest(gen *Generators, id party.ID, attributes []byte, x *math.Zr, rand io.Reader) (*Request, *math.Zr, error) {
	d := sample.ScalarUnit(rand, gen.Group)
	Y := gen.H.Mul(x)
	M := gen.H.Mul(x)
	M.Add(gen.G1.Mul(d))
	proof, err := zksch.NewProof(requestHash(id, attributes), requestStatement(gen, M, Y), []*math.Zr{x, d}, rand)
	if err != nil {
		return nil, nil, err
	}
	return &Request{ID: id, Attributes: attributes, M: M, Y: Y, Proof: proof}, d, nil
}

// Verify checks the proof of knowledge of the request.
func (r *Request) Verify(gen *Generators) bool {
	return r.Proof.Verify(requestHash(r.ID, r.Attributes), requestStatement(gen, r.M, r.Y))
}

// Elements encodes the request as [id, attributes, M, Y, c, sₓ, s_d].
func (r *Request) Elements(group *curve.Curve) [][]byte {
	out := [][]byte{[]byte(r.ID), r.Attributes, r.M.Bytes(), r.Y.Bytes()}
	return append(out, r.Proof.Elements(group)...)
}

// RequestElements is the element count of an encoded Request.
const RequestElements = 7

// ParseRequest decodes the output of Request.Elements.
func ParseRequest(group *curve.Curve, elements [][]byte) (*Request, error) {
	if len(elements) != RequestElements {
		return nil, &wire.DataError{Reason: fmt.Sprintf("request needs %d elements, got %d", RequestElements, len(elements))}
	}
	rd := wire.NewReader(group, elements)
	req := &Request{
		ID:         party.ID(rd.String(0)),
		Attributes: rd.Bytes(1),
		M:          rd.G1(2),
		Y:          rd.G1(3),
	}
	if err := rd.Err(); err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, &wire.DataError{Reason: "empty identity"}
	}
	proof, err := zksch.FromElements(group, elements[4:])
	if err != nil {
		return nil, &wire.DataError{Reason: "proof", Err: err}
	}
	req.Proof = proof
	return req, nil
}
