// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package pp holds the public parameters of a deployment and their signed bundle encoding.
package pp

import (
	"errors"
	"fmt"

	math "github.com/IBM/mathlib"
	"github.com/decred/dcrd/dcrec/secp256k1/v3"
	"github.com/decred/dcrd/dcrec/secp256k1/v3/ecdsa"
	"github.com/fxamacker/cbor/v2"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/credential"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/hash"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/curve"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/ticket"
)

const (
	generatorLabel = "ppets/generators/"
	bundleDomain   = "ppets/setup-bundle"
	// fixed generators: g0, g1, H, H_T
	fixedGenerators = 4
)

var (
	ErrBundle    = errors.New("pp: malformed bundle")
	ErrSignature = errors.New("pp: bundle signature rejected")
)

// Params are the public parameters every actor agrees on after Setup.
type Params struct {
	Group *curve.Curve
	G0    *math.G1
	G1    *math.G1
	H     *math.G1
	HT    *math.G1
	// HS[i] carries attribute i of Schema.
	HS     []*math.G1
	Schema credential.Schema
	// WCA and WS are the issuing keys of the central authority and the seller.
	WCA *math.G2
	WS  *math.G2
	// YP is the tracing key, nil when no police is deployed.
	YP *math.G1
}

// New derives the generators for group and schema. Issuing keys are left empty.
func New(group *curve.Curve, schema credential.Schema) *Params {
	g := group.HashToG1s(generatorLabel+group.Name(), fixedGenerators+schema.Len())
	return &Params{
		Group:  group,
		G0:     g[0],
		G1:     g[1],
		H:      g[2],
		HT:     g[3],
		HS:     g[fixedGenerators:],
		Schema: schema,
	}
}

// Credential returns the bases used for credentials.
func (p *Params) Credential() *credential.Generators {
	return &credential.Generators{Group: p.Group, G0: p.G0, G1: p.G1, H: p.H, HS: p.HS}
}

// Ticket returns the bases used for tickets.
func (p *Params) Ticket() *ticket.Generators {
	return &ticket.Generators{Group: p.Group, G0: p.G0, G1: p.G1, H: p.H, HT: p.HT}
}

type bundle struct {
	Curve      string            `cbor:"1,keyasint"`
	Bits       int               `cbor:"2,keyasint"`
	Generators [][]byte          `cbor:"3,keyasint"`
	Schema     credential.Schema `cbor:"4,keyasint"`
	WCA        []byte            `cbor:"5,keyasint"`
	WS         []byte            `cbor:"6,keyasint"`
	YP         []byte            `cbor:"7,keyasint,omitempty"`
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p *Params) MarshalBinary() ([]byte, error) {
	if p.WCA == nil || p.WS == nil {
		return nil, fmt.Errorf("%w: issuing keys missing", ErrBundle)
	}
	b := bundle{
		Curve:      p.Group.Name(),
		Bits:       p.Group.SecurityBits(),
		Generators: [][]byte{p.G0.Bytes(), p.G1.Bytes(), p.H.Bytes(), p.HT.Bytes()},
		Schema:     p.Schema,
		WCA:        p.WCA.Bytes(),
		WS:         p.WS.Bytes(),
	}
	for _, h := range p.HS {
		b.Generators = append(b.Generators, h.Bytes())
	}
	if p.YP != nil {
		b.YP = p.YP.Bytes()
	}
	return cbor.Marshal(b)
}

// UnmarshalBinary decodes a bundle and validates every element.
// The generators must be the ones New derives for the announced curve and schema.
func (p *Params) UnmarshalBinary(data []byte) error {
	var b bundle
	if err := cbor.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("%w: %v", ErrBundle, err)
	}
	group, err := curve.ByName(b.Curve)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBundle, err)
	}
	if b.Bits != group.SecurityBits() {
		return fmt.Errorf("%w: %s does not offer %d bits", ErrBundle, b.Curve, b.Bits)
	}
	fresh := New(group, b.Schema)
	want := append([]*math.G1{fresh.G0, fresh.G1, fresh.H, fresh.HT}, fresh.HS...)
	if len(b.Generators) != len(want) {
		return fmt.Errorf("%w: %d generators, expected %d", ErrBundle, len(b.Generators), len(want))
	}
	for i, raw := range b.Generators {
		g, err := group.G1FromBytes(raw)
		if err != nil {
			return fmt.Errorf("%w: generator %d: %v", ErrBundle, i, err)
		}
		if !g.Equals(want[i]) {
			return fmt.Errorf("%w: generator %d is not derived from the label", ErrBundle, i)
		}
	}
	if fresh.WCA, err = group.G2FromBytes(b.WCA); err != nil {
		return fmt.Errorf("%w: authority key: %v", ErrBundle, err)
	}
	if fresh.WS, err = group.G2FromBytes(b.WS); err != nil {
		return fmt.Errorf("%w: seller key: %v", ErrBundle, err)
	}
	if len(b.YP) > 0 {
		if fresh.YP, err = group.G1FromBytes(b.YP); err != nil {
			return fmt.Errorf("%w: tracing key: %v", ErrBundle, err)
		}
	}
	*p = *fresh
	return nil
}

// Sign encodes p and signs the bundle digest with the authority key.
func (p *Params) Sign(key *secp256k1.PrivateKey) (data, sig []byte, err error) {
	data, err = p.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}
	digest := hash.Sum256(bundleDomain, data)
	return data, ecdsa.Sign(key, digest[:]).Serialize(), nil
}

// Open authenticates data against the trusted authority key and decodes it.
func Open(data, sig []byte, trust *secp256k1.PublicKey) (*Params, error) {
	if trust == nil {
		return nil, fmt.Errorf("%w: no trusted key", ErrSignature)
	}
	s, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	digest := hash.Sum256(bundleDomain, data)
	if !s.Verify(digest[:], trust) {
		return nil, ErrSignature
	}
	p := new(Params)
	if err = p.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return p, nil
}
