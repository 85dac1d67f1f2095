// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package issuing sells a ticket bound to a fresh pseudonym.
package issuing

import (
	"errors"
	"fmt"
	"slices"
	"time"

	math "github.com/IBM/mathlib"
	log "github.com/sirupsen/logrus"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/elgamal"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/memory"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/round"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/credential"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/curve"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/sample"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/party"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/ticket"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/wire"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols/config"
)

const (
	StepOffer   = "issuing/offer"
	StepRequest = "issuing/request"
	StepSign    = "issuing/sign"
	StepStore   = "issuing/store"

	offerElements   = 6
	requestElements = 5
)

var ErrNoTracingKey = errors.New("issuing: traceable tickets need a tracing key")

// Options describe what the seller sells.
type Options struct {
	Service  string
	Price    uint64
	Validity time.Duration
	Policy   credential.Policy
	// Traceable tickets carry the holder key encrypted for the police.
	Traceable bool
}

// Steps returns the ticket issuing phase.
func Steps(opts Options) []round.Step {
	return []round.Step{
		{Name: StepOffer, Role: party.Seller, Handle: opts.offer},
		{Name: StepRequest, Role: party.User, Receive: offerElements, Handle: opts.request},
		{Name: StepSign, Role: party.Seller, Receive: requestElements, Handle: opts.sign},
		{Name: StepStore, Role: party.User, Receive: 3, Handle: store},
	}
}

// context binds a presentation to the seller nonce and the ticket binding scalar.
func context(group *curve.Curve, nonce []byte, su *math.Zr) []byte {
	return append(append([]byte{}, nonce...), group.ScalarBytes(su)...)
}

// offer sends [service, price, time, validity, policy, nonce].
func (o Options) offer(mem *memory.Shared, self *memory.Actor, _ [][]byte) ([][]byte, error) {
	policy, err := o.Policy.MarshalBinary()
	if err != nil {
		return nil, err
	}
	self.Offer = &ticket.Offer{
		Service:  o.Service,
		Price:    o.Price,
		Time:     uint64(mem.Now().Unix()),
		Validity: uint64(o.Validity / time.Second),
		Policy:   o.Policy,
	}
	self.Nonce = sample.Bytes(self.Rand, config.NonceBytes)
	return [][]byte{
		[]byte(self.Offer.Service),
		wire.Uint64(self.Offer.Price),
		wire.Uint64(self.Offer.Time),
		wire.Uint64(self.Offer.Validity),
		policy,
		self.Nonce,
	}, nil
}

// request picks the pseudonym and sends [P, disclosure, presentation, C1, C2].
func (o Options) request(mem *memory.Shared, self *memory.Actor, in [][]byte) ([][]byte, error) {
	params := mem.Params
	group := params.Group

	//decode the offer
	r := wire.NewReader(group, in)
	offer := ticket.Offer{Service: r.String(0), Price: r.Uint64(1), Time: r.Uint64(2), Validity: r.Uint64(3)}
	nonce := r.Bytes(5)
	if err := r.Err(); err != nil {
		return nil, err
	}
	if len(nonce) == 0 {
		return nil, &wire.DataError{Reason: "empty nonce"}
	}
	if err := offer.Policy.UnmarshalBinary(in[4]); err != nil {
		return nil, &wire.DataError{Reason: "policy", Err: err}
	}
	if err := offer.Policy.Validate(params.Schema); err != nil {
		return nil, err
	}

	//the holder refuses to buy when its attributes do not satisfy the policy
	disclosure := offer.Policy.Disclose(self.Attributes)
	if err := offer.Policy.Satisfied(disclosure); err != nil {
		return nil, err
	}
	if self.Credential == nil {
		return nil, fmt.Errorf("issuing: %s holds no credential", self.ID)
	}

	z, P := sample.ScalarPointPair(self.Rand, group, params.H)
	secrets := credential.Secrets{X: self.X, Z: z}
	binding := credential.Binding{Pseudonym: P}
	var ct *elgamal.Ciphertext
	if o.Traceable {
		if params.YP == nil {
			return nil, ErrNoTracingKey
		}
		ct, secrets.K = elgamal.Encrypt(group, params.H, params.YP, self.Y, self.Rand)
		binding.Escrow = &credential.Escrow{C1: ct.C1, C2: ct.C2, Key: params.YP}
	}
	tk := &ticket.Ticket{Pseudonym: P, Z: z, Offer: offer}
	if ct != nil {
		tk.C1, tk.C2 = ct.C1, ct.C2
	}
	tk.Binding = ticket.BindingScalar(group, P, offer, tk.C1, tk.C2)
	binding.Context = context(group, nonce, tk.Binding)

	presentation, err := credential.Present(params.Credential(), self.Credential, self.Attributes.Scalars(group),
		disclosure.Indexes(params.Schema), binding, secrets, self.Rand)
	if err != nil {
		return nil, err
	}
	encoded, err := wire.Encode(presentation.Elements(group))
	if err != nil {
		return nil, err
	}
	disclosed, err := disclosure.MarshalBinary()
	if err != nil {
		return nil, err
	}
	self.Ticket = tk
	return [][]byte{P.Bytes(), disclosed, encoded, wire.OptionalG1(tk.C1), wire.OptionalG1(tk.C2)}, nil
}

// sign verifies the presentation against the policy and returns [e, w, T].
func (o Options) sign(mem *memory.Shared, self *memory.Actor, in [][]byte) ([][]byte, error) {
	params := mem.Params
	group := params.Group
	if self.Offer == nil {
		return nil, errors.New("issuing: no pending offer")
	}

	r := wire.NewReader(group, in)
	P := r.G1(0)
	C1, C2 := r.OptionalG1(3), r.OptionalG1(4)
	if err := r.Err(); err != nil {
		return nil, err
	}
	var disclosure credential.Disclosure
	if err := disclosure.UnmarshalBinary(in[1]); err != nil {
		return nil, &wire.DataError{Reason: "disclosure", Err: err}
	}
	elements, err := wire.Decode(in[2])
	if err != nil {
		return nil, err
	}
	presentation, err := credential.ParsePresentation(group, elements)
	if err != nil {
		return nil, err
	}
	if (C1 == nil) != (C2 == nil) {
		return nil, &wire.DataError{Reason: "incomplete trace ciphertext"}
	}
	disclosed, err := disclosure.Scalars(group, params.Schema)
	if err != nil {
		return nil, err
	}

	su := ticket.BindingScalar(group, P, *self.Offer, C1, C2)
	binding := credential.Binding{Pseudonym: P, Context: context(group, self.Nonce, su)}
	if C1 != nil {
		if params.YP == nil {
			return nil, ErrNoTracingKey
		}
		binding.Escrow = &credential.Escrow{C1: C1, C2: C2, Key: params.YP}
	}

	var fault error
	switch {
	case o.Traceable && C1 == nil:
		fault = round.Fault(party.User, errors.New("issuing: missing trace ciphertext"))
	case !slices.Equal(disclosure.Indexes(params.Schema), self.Offer.Policy.Indexes(params.Schema)):
		fault = round.Fault(party.User, errors.New("issuing: disclosure does not match the policy"))
	}
	if fault == nil {
		if err = self.Offer.Policy.Satisfied(disclosure); err != nil {
			fault = round.Fault(party.User, err)
		}
	}
	if fault == nil {
		if err = presentation.Verify(params.Credential(), params.WCA, params.Schema.Len(), disclosed, binding); err != nil {
			fault = round.Fault(party.User, err)
		}
	}

	sig, err := ticket.Sign(params.Ticket(), self.Issuing, P, su, self.Rand)
	if err != nil {
		return nil, err
	}
	log.Infof("issuing: sold %s for %d", self.Offer.Service, self.Offer.Price)
	self.Offer, self.Nonce = nil, nil
	return sig.Elements(group), fault
}

// store verifies the seller signature and keeps the ticket.
func store(mem *memory.Shared, self *memory.Actor, in [][]byte) ([][]byte, error) {
	params := mem.Params
	sig, err := ticket.ParseSignature(params.Group, in)
	if err != nil {
		return nil, err
	}
	tk := self.Ticket
	if tk == nil {
		return nil, errors.New("issuing: no pending ticket")
	}
	tk.Signature = sig
	if err = ticket.Verify(params.Ticket(), params.WS, tk.Pseudonym, tk.Binding, sig); err != nil {
		return nil, round.Fault(party.Seller, err)
	}
	return nil, nil
}
