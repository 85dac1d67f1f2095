// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package protocol

import (
	"fmt"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/party"
)

// Error is a custom error for protocols which contains information about the step in which it occurred,
// and the role responsible.
type Error struct {
	// Step is the name of the failing step.
	Step string
	// Culprit is Any if the misbehaving role cannot be known.
	Culprit party.Role
	// Err is the underlying error.
	Err error
}

// Error implement error.
func (e Error) Error() string {
	if e.Culprit == party.Any {
		return fmt.Sprintf("%s: %s", e.Step, e.Err)
	}
	return fmt.Sprintf("%s: culprit %v: %s", e.Step, e.Culprit, e.Err)
}

// Unwrap implement errors.Wrapper.
func (e Error) Unwrap() error {
	return e.Err
}
