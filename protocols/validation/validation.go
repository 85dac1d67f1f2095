// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package validation checks tickets at the gate and flags double spending.
package validation

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/memory"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/round"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/sample"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/party"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/ticket"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/wire"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols/config"
)

const (
	StepNonce      = "validation/nonce"
	StepTranscript = "validation/transcript"
	StepVerify     = "validation/verify"
	StepResult     = "validation/result"
	StepRoundEnd   = "validation/round-end"
)

var (
	ErrNoTicket = errors.New("validation: no ticket to show")
	ErrRejected = errors.New("validation: ticket rejected")
)

// Steps returns one validation round followed by the loop control jumping
// back to loopTo while rounds remain.
func Steps(loopTo string) []round.Step {
	return []round.Step{
		{Name: StepNonce, Role: party.Validator, Handle: nonce},
		{Name: StepTranscript, Role: party.User, Receive: 1, Handle: transcript},
		{Name: StepVerify, Role: party.Validator, Receive: ticket.TranscriptElements, Handle: verify, Notify: true},
		{Name: StepResult, Role: party.User, Receive: 2, Handle: result},
		{Name: StepRoundEnd, Role: party.Any, Loop: loopTo},
	}
}

// nonce sends [nonce].
func nonce(_ *memory.Shared, self *memory.Actor, _ [][]byte) ([][]byte, error) {
	self.Nonce = sample.Bytes(self.Rand, config.NonceBytes)
	return [][]byte{self.Nonce}, nil
}

// transcript sends the 12 element transcript of the held ticket.
func transcript(mem *memory.Shared, self *memory.Actor, in [][]byte) ([][]byte, error) {
	if len(in[0]) == 0 {
		return nil, &wire.DataError{Reason: "empty nonce"}
	}
	if self.Ticket == nil || self.Ticket.Signature == nil {
		return nil, ErrNoTicket
	}
	tr, err := self.Ticket.Present(mem.Params.Ticket(), in[0], self.Rand)
	if err != nil {
		return nil, err
	}
	return tr.Elements(mem.Params.Group), nil
}

// verify checks the transcript, compares the pseudonym with the previous one
// and sends [verdict, doubleSpend].
func verify(mem *memory.Shared, self *memory.Actor, in [][]byte) ([][]byte, error) {
	tr, err := ticket.ParseTranscript(mem.Params.Group, in)
	if err != nil {
		return nil, err
	}
	checkErr := tr.Verify(mem.Params.Ticket(), mem.Params.WS, self.Nonce, mem.Now())
	self.Nonce = nil
	doubleSpend := self.Detector.Observe(tr.Pseudonym)
	self.Last = tr

	mem.Validations++
	mem.Reports = append(mem.Reports, memory.RoundReport{
		Round:       mem.Validations,
		Valid:       checkErr == nil,
		DoubleSpend: doubleSpend,
		Pseudonym:   tr.Pseudonym.Bytes(),
	})
	if doubleSpend {
		log.Warnf("validation: round %d: pseudonym already shown", mem.Validations)
	}

	out := [][]byte{wire.Bool(checkErr == nil), wire.Bool(doubleSpend)}
	if checkErr != nil {
		return out, round.Fault(party.User, checkErr)
	}
	return out, nil
}

// result reads [verdict, doubleSpend].
func result(_ *memory.Shared, _ *memory.Actor, in [][]byte) ([][]byte, error) {
	r := wire.NewReader(nil, in)
	valid, doubleSpend := r.Bool(0), r.Bool(1)
	if err := r.Err(); err != nil {
		return nil, err
	}
	if doubleSpend {
		log.Infof("validation: the validator flagged the ticket as already shown")
	}
	if !valid {
		return nil, round.Fault(party.Validator, ErrRejected)
	}
	return nil, nil
}

// Summary counts the valid and double spent rounds of reports.
func Summary(reports []memory.RoundReport) (valid, doubleSpent int) {
	for _, r := range reports {
		if r.Valid {
			valid++
		}
		if r.DoubleSpend {
			doubleSpent++
		}
	}
	return valid, doubleSpent
}

// String renders a report for logs.
func String(r memory.RoundReport) string {
	return fmt.Sprintf("round %d: valid=%t doubleSpend=%t", r.Round, r.Valid, r.DoubleSpend)
}
