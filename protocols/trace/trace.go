// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package trace lets the police reveal the holder of the last validated ticket.
package trace

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/elgamal"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/memory"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/round"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/party"
)

const StepReveal = "trace/reveal"

var (
	ErrNothingToTrace = errors.New("trace: no traceable transcript")
	ErrUnknownHolder  = errors.New("trace: decrypted key is not registered")
)

// Steps returns the tracing step. It runs where the police and the validator
// share a memory and exchanges nothing with the holder.
func Steps() []round.Step {
	return []round.Step{{Name: StepReveal, Role: party.Police, Handle: reveal}}
}

func reveal(mem *memory.Shared, self *memory.Actor, _ [][]byte) ([][]byte, error) {
	validator, err := mem.Actor(party.Validator)
	if err != nil {
		return nil, err
	}
	tr := validator.Last
	if tr == nil || tr.C1 == nil || tr.C2 == nil {
		return nil, ErrNothingToTrace
	}
	Y := elgamal.Decrypt(mem.Params.Group, self.X, &elgamal.Ciphertext{C1: tr.C1, C2: tr.C2})
	id, ok := mem.Lookup(Y)
	if !ok {
		return nil, round.Fault(party.User, ErrUnknownHolder)
	}
	mem.Traced = id
	log.Infof("trace: ticket %x was shown by %s", tr.Pseudonym.Bytes()[:8], id)
	return nil, nil
}
