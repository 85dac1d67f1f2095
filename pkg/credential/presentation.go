// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package credential

import (
	"fmt"
	"io"
	"sort"

	math "github.com/IBM/mathlib"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/hash"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/curve"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/sample"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/wire"
	zksch "github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/zk/sch"
)

// Escrow is an ElGamal encryption of the holder key Y = H^x under Key:
// C1 = H^k, C2 = Y⋅Key^k.
type Escrow struct {
	C1, C2 *math.G1
	Key    *math.G1
}

// Binding ties a presentation to a fresh pseudonym P = H^z, an optional escrow
// and a context (nonce, ticket binding scalar, ...).
type Binding struct {
	Pseudonym *math.G1
	Escrow    *Escrow
	Context   []byte
}

// Secrets are the holder values behind a Binding.
type Secrets struct {
	// X is the holder secret, Y = H^x.
	X *math.Zr
	// Z is the pseudonym secret.
	Z *math.Zr
	// K is the escrow randomness, only with an Escrow.
	K *math.Zr
}

// Presentation is a randomized proof of possession of a credential
// revealing only the disclosed attributes.
type Presentation struct {
	// APrime = σ^r₁
	APrime *math.G1
	// ABar = A'^(-e)⋅B^r₁
	ABar *math.G1
	// D = B^r₁⋅g₁^(-r₂)
	D     *math.G1
	Proof *zksch.Proof
}

// witness layout of the presentation statement
const (
	wE = iota
	wR2
	wR3
	wSPrime
	wX
	wZ
	wFixed
)

type layout struct {
	k      int // escrow randomness, -1 without escrow
	hidden map[int]int
	total  int
}

func newLayout(nAttrs int, disclosed map[int]*math.Zr, escrow bool) layout {
	l := layout{k: -1, hidden: map[int]int{}}
	next := wFixed
	if escrow {
		l.k = next
		next++
	}
	for i := 0; i < nAttrs; i++ {
		if _, ok := disclosed[i]; !ok {
			l.hidden[i] = next
			next++
		}
	}
	l.total = next
	return l
}

func (g *Generators) presentationStatement(p *Presentation, disclosed map[int]*math.Zr, b Binding, l layout) zksch.Statement {
	// Ā/D = A'^(-e)⋅g₁^r₂
	t1 := p.ABar.Mul(g.Group.One())
	t1.Add(p.D.Mul(g.Group.Neg(g.Group.One())))

	// g₀⋅∏_disclosed Hᵢ^aᵢ = D^r₃⋅g₁^(-s')⋅H^(-x)⋅∏_hidden Hᵢ^(-aᵢ)
	t2 := g.G0.Mul(g.Group.One())
	for _, i := range sortedKeys(disclosed) {
		t2.Add(g.HS[i].Mul(disclosed[i]))
	}
	terms2 := []zksch.Term{
		{Base: p.D, Witness: wR3},
		{Base: g.G1, Witness: wSPrime, Negate: true},
		{Base: g.H, Witness: wX, Negate: true},
	}
	for _, i := range sortedKeys(l.hidden) {
		terms2 = append(terms2, zksch.Term{Base: g.HS[i], Witness: l.hidden[i], Negate: true})
	}

	eqs := []zksch.Equation{
		{Target: t1, Terms: []zksch.Term{{Base: p.APrime, Witness: wE, Negate: true}, {Base: g.G1, Witness: wR2}}},
		{Target: t2, Terms: terms2},
		// P = H^z
		{Target: b.Pseudonym, Terms: []zksch.Term{{Base: g.H, Witness: wZ}}},
	}
	if b.Escrow != nil {
		eqs = append(eqs,
			// C1 = H^k
			zksch.Equation{Target: b.Escrow.C1, Terms: []zksch.Term{{Base: g.H, Witness: l.k}}},
			// C2 = H^x⋅Key^k
			zksch.Equation{Target: b.Escrow.C2, Terms: []zksch.Term{{Base: g.H, Witness: wX}, {Base: b.Escrow.Key, Witness: l.k}}},
		)
	}
	return zksch.Statement{Group: g.Group, Witnesses: l.total, Equations: eqs}
}

func presentationHash(p *Presentation, disclosed map[int]*math.Zr, b Binding) *hash.Hash {
	h := hash.New(hash.BytesWithDomain{TheDomain: "Presentation", Bytes: b.Context})
	for _, i := range sortedKeys(disclosed) {
		_ = h.WriteAny(uint64(i), disclosed[i])
	}
	_ = h.WriteAny(p.APrime, p.ABar, p.D)
	return h
}

// Present proves possession of cred over attrs, revealing the attributes listed in disclose.
func Present(gen *Generators, cred *Credential, attrs []*math.Zr, disclose []int, b Binding, s Secrets, rand io.Reader) (*Presentation, error) {
	group := gen.Group
	if len(attrs) > len(gen.HS) {
		return nil, fmt.Errorf("%w: %d > %d", ErrAttributes, len(attrs), len(gen.HS))
	}
	if b.Pseudonym == nil || s.X == nil || s.Z == nil || (b.Escrow != nil && s.K == nil) {
		return nil, fmt.Errorf("credential: incomplete binding")
	}
	disclosed := make(map[int]*math.Zr, len(disclose))
	for _, i := range disclose {
		if i < 0 || i >= len(attrs) {
			return nil, fmt.Errorf("%w: disclosed index %d", ErrSchema, i)
		}
		disclosed[i] = attrs[i]
	}

	Y := gen.H.Mul(s.X)
	B, err := gen.base(Y, cred.R, attrs)
	if err != nil {
		return nil, err
	}
	r1 := sample.ScalarUnit(rand, group)
	r2 := sample.Scalar(rand, group)
	r3 := group.Inv(r1)

	p := &Presentation{}
	p.APrime = cred.Sigma.Mul(r1)
	Br1 := B.Mul(r1)
	p.ABar = p.APrime.Mul(group.Neg(cred.E))
	p.ABar.Add(Br1)
	p.D = Br1.Mul(group.One())
	p.D.Add(gen.G1.Mul(group.Neg(r2)))
	sPrime := group.Sub(cred.R, group.Mul(r2, r3))

	l := newLayout(len(attrs), disclosed, b.Escrow != nil)
	witness := make([]*math.Zr, l.total)
	witness[wE] = cred.E
	witness[wR2] = r2
	witness[wR3] = r3
	witness[wSPrime] = sPrime
	witness[wX] = s.X
	witness[wZ] = s.Z
	if l.k >= 0 {
		witness[l.k] = s.K
	}
	for i, w := range l.hidden {
		witness[w] = attrs[i]
	}

	st := gen.presentationStatement(p, disclosed, b, l)
	p.Proof, err = zksch.NewProof(presentationHash(p, disclosed, b), st, witness, rand)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Verify checks p against the issuer key W, the disclosed attributes (by absolute
// index) and the binding. nAttrs is the length of the certified attribute vector.
func (p *Presentation) Verify(gen *Generators, W *math.G2, nAttrs int, disclosed map[int]*math.Zr, b Binding) error {
	if p == nil || p.APrime == nil || p.ABar == nil || p.D == nil || p.Proof == nil || b.Pseudonym == nil {
		return fmt.Errorf("%w: incomplete presentation", ErrVerification)
	}
	if nAttrs > len(gen.HS) {
		return fmt.Errorf("%w: %d > %d", ErrAttributes, nAttrs, len(gen.HS))
	}
	for i := range disclosed {
		if i < 0 || i >= nAttrs {
			return fmt.Errorf("%w: disclosed index %d", ErrSchema, i)
		}
	}
	if p.APrime.IsInfinity() {
		return fmt.Errorf("%w: A' is the identity", ErrVerification)
	}
	// e(A', W) == e(Ā, g₂)
	if !gen.Group.PairingEqual(p.APrime, W, p.ABar, gen.Group.GenG2) {
		return fmt.Errorf("%w: pairing", ErrVerification)
	}
	l := newLayout(nAttrs, disclosed, b.Escrow != nil)
	if !p.Proof.Verify(presentationHash(p, disclosed, b), gen.presentationStatement(p, disclosed, b, l)) {
		return fmt.Errorf("%w: proof of knowledge", ErrVerification)
	}
	return nil
}

// Elements encodes p as [A', Ā, D, c, s...].
func (p *Presentation) Elements(group *curve.Curve) [][]byte {
	out := [][]byte{p.APrime.Bytes(), p.ABar.Bytes(), p.D.Bytes()}
	return append(out, p.Proof.Elements(group)...)
}

// ParsePresentation decodes the output of Elements.
func ParsePresentation(group *curve.Curve, elements [][]byte) (*Presentation, error) {
	if len(elements) < 5 {
		return nil, &wire.DataError{Reason: fmt.Sprintf("presentation needs at least 5 elements, got %d", len(elements))}
	}
	r := wire.NewReader(group, elements)
	p := &Presentation{APrime: r.G1(0), ABar: r.G1(1), D: r.G1(2)}
	if err := r.Err(); err != nil {
		return nil, err
	}
	proof, err := zksch.FromElements(group, elements[3:])
	if err != nil {
		return nil, &wire.DataError{Reason: "proof", Err: err}
	}
	p.Proof = proof
	return p, nil
}

func sortedKeys[V any](m map[int]V) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
