// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package registration issues a BBS+ credential to an actor.
//
// The actor commits to its key and a blinding d in M = Y⋅g₁^d and proves
// knowledge of (x, d). The central authority signs M and the attributes; the
// actor completes the blinding exponent with d and verifies the credential.
package registration

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/memory"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/round"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/credential"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/party"
)

// StepName returns the name of a registration step of role.
func StepName(role party.Role, step string) string {
	return fmt.Sprintf("registration/%s/%s", role, step)
}

// Steps returns the registration of every role, in order.
func Steps(roles ...party.Role) []round.Step {
	var steps []round.Step
	for _, role := range roles {
		role := role
		steps = append(steps,
			round.Step{Name: StepName(role, "request"), Role: role, Handle: request},
			round.Step{Name: StepName(role, "issue"), Role: party.CentralAuthority, Receive: credential.RequestElements,
				Handle: func(mem *memory.Shared, self *memory.Actor, in [][]byte) ([][]byte, error) {
					return issue(mem, self, role, in)
				}},
			round.Step{Name: StepName(role, "store"), Role: role, Receive: 3, Handle: store},
		)
	}
	return steps
}

// request sends [id, attributes, M, Y, c, sₓ, s_d].
func request(mem *memory.Shared, self *memory.Actor, _ [][]byte) ([][]byte, error) {
	if err := mem.Params.Schema.Check(self.Attributes); err != nil {
		return nil, err
	}
	attributes, err := self.Attributes.MarshalBinary()
	if err != nil {
		return nil, err
	}
	self.GenerateKeys(mem.Params)
	req, d, err := credential.NewRequest(mem.Params.Credential(), self.ID, attributes, self.X, self.Rand)
	if err != nil {
		return nil, err
	}
	self.Blinding = d
	return req.Elements(mem.Params.Group), nil
}

// issue checks the request of the actor playing role and returns [e, r', σ].
func issue(mem *memory.Shared, self *memory.Actor, role party.Role, in [][]byte) ([][]byte, error) {
	group := mem.Params.Group
	gen := mem.Params.Credential()
	req, err := credential.ParseRequest(group, in)
	if err != nil {
		return nil, err
	}
	var attrs credential.Attributes
	if err = attrs.UnmarshalBinary(req.Attributes); err != nil {
		return nil, fmt.Errorf("registration: attributes of %s: %w", req.ID, err)
	}
	if err = mem.Params.Schema.Check(attrs); err != nil {
		return nil, err
	}

	//the proof binds the identity and the attributes to the commitment
	var fault error
	if !req.Verify(gen) {
		fault = round.Fault(role, fmt.Errorf("registration: proof of knowledge of %s", req.ID))
	}

	cred, err := credential.Sign(gen, self.Issuing, req.M, attrs.Scalars(group), self.Rand)
	if err != nil {
		return nil, err
	}
	if fault == nil || mem.Config.PassOverride {
		mem.Register(req.Y, req.ID)
	}
	log.Infof("registration: issued a credential to %s (%v)", req.ID, role)
	return cred.Elements(group), fault
}

// store unblinds and verifies the credential.
func store(mem *memory.Shared, self *memory.Actor, in [][]byte) ([][]byte, error) {
	group := mem.Params.Group
	cred, err := credential.ParseCredential(group, in)
	if err != nil {
		return nil, err
	}
	if self.Blinding == nil {
		return nil, fmt.Errorf("registration: no pending request for %s", self.ID)
	}
	cred = cred.Unblind(group, self.Blinding)
	self.Blinding = nil
	self.Credential = cred
	if err = credential.Verify(mem.Params.Credential(), mem.Params.WCA, self.Y, cred, self.Attributes.Scalars(group)); err != nil {
		return nil, round.Fault(party.CentralAuthority, err)
	}
	return nil, nil
}
