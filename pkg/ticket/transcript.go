// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package ticket

import (
	"fmt"
	"io"
	"time"

	math "github.com/IBM/mathlib"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/hash"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/curve"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/wire"
	zksch "github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/zk/sch"
)

// TranscriptElements is the element count of an encoded Transcript.
const TranscriptElements = 12

// Transcript is what a holder shows to a validator:
// the ticket and a proof of knowledge of z bound to the validator nonce.
type Transcript struct {
	Pseudonym *math.G1
	Offer     Offer
	Signature *Signature
	C1, C2    *math.G1
	Proof     *zksch.Proof
}

func transcriptStatement(gen *Generators, P *math.G1) zksch.Statement {
	return zksch.Statement{
		Group:     gen.Group,
		Witnesses: 1,
		Equations: []zksch.Equation{{Target: P, Terms: []zksch.Term{{Base: gen.H, Witness: 0}}}},
	}
}

// c = H(R, P, sᵤ, nonce)
func transcriptHash(su *math.Zr, nonce []byte) *hash.Hash {
	return hash.New(hash.BytesWithDomain{TheDomain: "Validation", Bytes: nonce}, su)
}

// Present builds the transcript of t for the validator nonce.
func (t *Ticket) Present(gen *Generators, nonce []byte, rand io.Reader) (*Transcript, error) {
	proof, err := zksch.NewProof(transcriptHash(t.Binding, nonce), transcriptStatement(gen, t.Pseudonym), []*math.Zr{t.Z}, rand)
	if err != nil {
		return nil, err
	}
	return &Transcript{
		Pseudonym: t.Pseudonym,
		Offer:     t.Offer,
		Signature: t.Signature,
		C1:        t.C1,
		C2:        t.C2,
		Proof:     proof,
	}, nil
}

// Verify checks, in order, the proof of knowledge bound to nonce, the seller
// signature over the recomputed binding scalar and the validity window.
func (tr *Transcript) Verify(gen *Generators, WS *math.G2, nonce []byte, now time.Time) error {
	su := BindingScalar(gen.Group, tr.Pseudonym, tr.Offer, tr.C1, tr.C2)
	if !tr.Proof.Verify(transcriptHash(su, nonce), transcriptStatement(gen, tr.Pseudonym)) {
		return fmt.Errorf("%w: challenge mismatch", ErrVerification)
	}
	if err := Verify(gen, WS, tr.Pseudonym, su, tr.Signature); err != nil {
		return err
	}
	if !tr.Offer.Valid(now) {
		return ErrExpired
	}
	return nil
}

// Elements encodes the transcript as
// [P, service, price, time, validity, e, w, T, C1, C2, c, s_z].
func (tr *Transcript) Elements(group *curve.Curve) [][]byte {
	out := [][]byte{
		tr.Pseudonym.Bytes(),
		[]byte(tr.Offer.Service),
		wire.Uint64(tr.Offer.Price),
		wire.Uint64(tr.Offer.Time),
		wire.Uint64(tr.Offer.Validity),
	}
	out = append(out, tr.Signature.Elements(group)...)
	out = append(out, wire.OptionalG1(tr.C1), wire.OptionalG1(tr.C2))
	return append(out, tr.Proof.Elements(group)...)
}

// ParseTranscript decodes the output of Elements.
func ParseTranscript(group *curve.Curve, elements [][]byte) (*Transcript, error) {
	if len(elements) != TranscriptElements {
		return nil, &wire.DataError{Reason: fmt.Sprintf("transcript needs %d elements, got %d", TranscriptElements, len(elements))}
	}
	r := wire.NewReader(group, elements)
	tr := &Transcript{
		Pseudonym: r.G1(0),
		Offer: Offer{
			Service:  r.String(1),
			Price:    r.Uint64(2),
			Time:     r.Uint64(3),
			Validity: r.Uint64(4),
		},
		Signature: &Signature{E: r.Scalar(5), W: r.Scalar(6), T: r.G1(7)},
		C1:        r.OptionalG1(8),
		C2:        r.OptionalG1(9),
		Proof:     &zksch.Proof{C: r.Scalar(10), S: []*math.Zr{r.Scalar(11)}},
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if (tr.C1 == nil) != (tr.C2 == nil) {
		return nil, &wire.DataError{Reason: "incomplete trace ciphertext"}
	}
	return tr, nil
}

// Detector flags a pseudonym presented twice in a row.
type Detector struct {
	last *math.G1
}

// Observe records P and reports whether it equals the previously observed pseudonym.
func (d *Detector) Observe(P *math.G1) bool {
	spent := d.last != nil && d.last.Equals(P)
	d.last = P
	return spent
}

// Last returns the previously observed pseudonym, or nil.
func (d *Detector) Last() *math.G1 {
	return d.last
}
