// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package setup distributes the signed public parameters to the holder device.
package setup

import (
	"bytes"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/memory"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/round"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/hash"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/party"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/pp"
)

const (
	StepBundle  = "setup/bundle"
	StepInstall = "setup/install"
	StepAck     = "setup/ack"

	ackDomain = "ppets/setup-ack"
)

var ErrAck = errors.New("setup: acknowledgement does not match the bundle")

// Steps returns the Setup phase.
func Steps() []round.Step {
	return []round.Step{
		{Name: StepBundle, Role: party.CentralAuthority, Handle: bundle},
		{Name: StepInstall, Role: party.User, Receive: 2, Handle: install},
		{Name: StepAck, Role: party.CentralAuthority, Receive: 1, Handle: ack},
	}
}

// bundle sends [bundle, signature].
func bundle(mem *memory.Shared, _ *memory.Actor, _ [][]byte) ([][]byte, error) {
	if mem.Params == nil || mem.AuthorityKey == nil {
		return nil, errors.New("setup: authority is not initialised")
	}
	data, sig, err := mem.Params.Sign(mem.AuthorityKey)
	if err != nil {
		return nil, err
	}
	return [][]byte{data, sig}, nil
}

// install authenticates the bundle against the pinned authority key, installs
// the parameters and generates the holder keys. An invalid bundle is always fatal.
func install(mem *memory.Shared, self *memory.Actor, in [][]byte) ([][]byte, error) {
	params, err := pp.Open(in[0], in[1], mem.TrustKey)
	if err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}
	mem.Params = params
	self.GenerateKeys(params)
	log.Infof("setup: installed parameters on %s (%d attributes)", params.Group.Name(), params.Schema.Len())
	digest := hash.Sum256(ackDomain, in[0])
	return [][]byte{digest[:]}, nil
}

// ack checks that the holder installed the bundle that was sent.
func ack(mem *memory.Shared, _ *memory.Actor, in [][]byte) ([][]byte, error) {
	data, err := mem.Params.MarshalBinary()
	if err != nil {
		return nil, err
	}
	want := hash.Sum256(ackDomain, data)
	if !bytes.Equal(in[0], want[:]) {
		return nil, ErrAck
	}
	return nil, nil
}
