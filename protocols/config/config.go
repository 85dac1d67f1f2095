// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package config holds the protocol parameters of a run.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultRounds is the number of validations when none is configured.
	DefaultRounds = 1
	// MaxRounds bounds the validation loop.
	MaxRounds = 1 << 16
	// NonceBytes is the length of seller and validator nonces.
	NonceBytes = 32
	// DefaultValidity is the lifetime of an issued ticket.
	DefaultValidity = 24 * time.Hour
)

// AID is the application identifier selected on the holder device.
var AID = []byte{0xF0, 0x50, 0x50, 0x45, 0x54, 0x53}

var ErrParam = errors.New("config: invalid parameter")

// Config is the ordered parameter list [passOverride, rounds, securityBits, freshTicketPerRound].
type Config struct {
	// PassOverride logs failed verifications and carries on. Debug only.
	PassOverride bool
	// Rounds is the number of validations after the ticket is issued.
	Rounds int
	// SecurityBits selects the pairing group, 0 for the default curve.
	SecurityBits int
	// FreshTicketPerRound loops back to ticket issuing instead of re-validating the same ticket.
	FreshTicketPerRound bool
}

// Default returns the configuration used when no parameter is given.
func Default() Config {
	return Config{Rounds: DefaultRounds}
}

// FromParams parses the ordered parameter list. Missing trailing values keep their defaults.
func FromParams(params []string) (Config, error) {
	c := Default()
	if len(params) > 4 {
		return c, fmt.Errorf("%w: %d parameters, at most 4 expected", ErrParam, len(params))
	}
	var err error
	for i, p := range params {
		p = strings.TrimSpace(p)
		switch i {
		case 0:
			c.PassOverride, err = strconv.ParseBool(p)
		case 1:
			c.Rounds, err = strconv.Atoi(p)
		case 2:
			c.SecurityBits, err = strconv.Atoi(p)
		case 3:
			c.FreshTicketPerRound, err = strconv.ParseBool(p)
		}
		if err != nil {
			return c, fmt.Errorf("%w: parameter %d %q: %v", ErrParam, i, p, err)
		}
	}
	return c, c.Validate()
}

// Validate checks the ranges of c.
func (c Config) Validate() error {
	if c.Rounds < 1 || c.Rounds > MaxRounds {
		return fmt.Errorf("%w: rounds %d not in [1, %d]", ErrParam, c.Rounds, MaxRounds)
	}
	if c.SecurityBits < 0 {
		return fmt.Errorf("%w: security bits %d", ErrParam, c.SecurityBits)
	}
	return nil
}

// Params renders c back into its ordered form.
func (c Config) Params() []string {
	return []string{
		strconv.FormatBool(c.PassOverride),
		strconv.Itoa(c.Rounds),
		strconv.Itoa(c.SecurityBits),
		strconv.FormatBool(c.FreshTicketPerRound),
	}
}
