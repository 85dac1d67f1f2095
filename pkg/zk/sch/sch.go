// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package zksch implements non interactive Schnorr proofs of knowledge for
// systems of linear relations between discrete logarithms in G1:
//
//	Targetⱼ = ∏ᵢ Baseⱼᵢ^(±wᵢ)
//
// The proof is (c, s₁…sₙ) with c the Fiat-Shamir challenge and sᵢ = kᵢ - c⋅wᵢ.
package zksch

import (
	"errors"
	"fmt"
	"io"

	math "github.com/IBM/mathlib"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/hash"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/curve"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/sample"
)

var (
	ErrStatement = errors.New("zksch: malformed statement")
	ErrProof     = errors.New("zksch: malformed proof")
)

// Term is Base^(±w[Witness]).
type Term struct {
	Base    *math.G1
	Witness int
	Negate  bool
}

// Equation states Target = ∏ Terms.
type Equation struct {
	Target *math.G1
	Terms  []Term
}

// Statement is a system of equations over Witnesses secret scalars.
type Statement struct {
	Group     *curve.Curve
	Witnesses int
	Equations []Equation
}

// Proof is a Fiat-Shamir transformed Schnorr proof.
type Proof struct {
	// C = H(statement, commitments)
	C *math.Zr
	// S[i] = k[i] - c⋅w[i] (mod p)
	S []*math.Zr
}

func (st Statement) check() error {
	if st.Group == nil || st.Witnesses <= 0 || len(st.Equations) == 0 {
		return ErrStatement
	}
	for j, eq := range st.Equations {
		if eq.Target == nil || len(eq.Terms) == 0 {
			return fmt.Errorf("%w: equation %d is empty", ErrStatement, j)
		}
		for _, term := range eq.Terms {
			if term.Base == nil || term.Witness < 0 || term.Witness >= st.Witnesses {
				return fmt.Errorf("%w: equation %d references witness %d", ErrStatement, j, term.Witness)
			}
		}
	}
	return nil
}

// commitments computes Rⱼ = ∏ Baseⱼᵢ^(±vᵢ) ⋅ Targetⱼ^c. A nil c omits the target.
func (st Statement) commitments(v []*math.Zr, c *math.Zr) []*math.G1 {
	out := make([]*math.G1, len(st.Equations))
	for j, eq := range st.Equations {
		acc := st.Group.G1Identity()
		for _, term := range eq.Terms {
			e := v[term.Witness]
			if term.Negate {
				e = st.Group.Neg(e)
			}
			acc.Add(term.Base.Mul(e))
		}
		if c != nil {
			acc.Add(eq.Target.Mul(c))
		}
		out[j] = acc
	}
	return out
}

func (st Statement) challenge(h *hash.Hash, commitments []*math.G1) (*math.Zr, error) {
	if err := h.WriteAny(uint64(st.Witnesses), uint64(len(st.Equations))); err != nil {
		return nil, err
	}
	for j, eq := range st.Equations {
		if err := h.WriteAny(eq.Target, uint64(len(eq.Terms))); err != nil {
			return nil, err
		}
		for _, term := range eq.Terms {
			neg := uint64(0)
			if term.Negate {
				neg = 1
			}
			if err := h.WriteAny(term.Base, uint64(term.Witness), neg); err != nil {
				return nil, err
			}
		}
		if err := h.WriteAny(commitments[j]); err != nil {
			return nil, err
		}
	}
	return st.Group.HashToZr(h.Sum()), nil
}

// NewProof proves knowledge of witness for st.
//
// h carries the context (nonces, identities, bound values) written by the caller.
// The verifier must start from a hash in the same state.
func NewProof(h *hash.Hash, st Statement, witness []*math.Zr, rand io.Reader) (*Proof, error) {
	if err := st.check(); err != nil {
		return nil, err
	}
	if len(witness) != st.Witnesses {
		return nil, fmt.Errorf("%w: %d witnesses, expected %d", ErrStatement, len(witness), st.Witnesses)
	}
	blinds := make([]*math.Zr, st.Witnesses)
	for i := range blinds {
		blinds[i] = sample.Scalar(rand, st.Group)
	}
	c, err := st.challenge(h, st.commitments(blinds, nil))
	if err != nil {
		return nil, err
	}
	s := make([]*math.Zr, st.Witnesses)
	for i := range s {
		s[i] = st.Group.Sub(blinds[i], st.Group.Mul(c, witness[i]))
	}
	return &Proof{C: c, S: s}, nil
}

// Verify recomputes the commitments from the responses and checks the challenge.
func (p *Proof) Verify(h *hash.Hash, st Statement) bool {
	if p == nil || p.C == nil || len(p.S) != st.Witnesses {
		return false
	}
	for _, s := range p.S {
		if s == nil {
			return false
		}
	}
	if st.check() != nil {
		return false
	}
	c, err := st.challenge(h, st.commitments(p.S, p.C))
	if err != nil {
		return false
	}
	return c.Equals(p.C)
}

// Elements returns c followed by the responses, each as a fixed width scalar.
func (p *Proof) Elements(group *curve.Curve) [][]byte {
	out := make([][]byte, 0, 1+len(p.S))
	out = append(out, group.ScalarBytes(p.C))
	for _, s := range p.S {
		out = append(out, group.ScalarBytes(s))
	}
	return out
}

// FromElements parses the output of Elements.
func FromElements(group *curve.Curve, elements [][]byte) (*Proof, error) {
	if len(elements) < 2 {
		return nil, fmt.Errorf("%w: %d elements", ErrProof, len(elements))
	}
	c, err := group.ScalarFromBytes(elements[0])
	if err != nil {
		return nil, fmt.Errorf("%w: challenge: %v", ErrProof, err)
	}
	s := make([]*math.Zr, len(elements)-1)
	for i := range s {
		if s[i], err = group.ScalarFromBytes(elements[i+1]); err != nil {
			return nil, fmt.Errorf("%w: response %d: %v", ErrProof, i, err)
		}
	}
	return &Proof{C: c, S: s}, nil
}
