// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package test holds helpers shared by the protocol tests.
package test

import (
	"time"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/memory"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols/config"
)

// Mnemonic seeds reproducible runs.
const Mnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// Epoch is the time of every test run unless a test moves its clock.
var Epoch = time.Unix(1_700_000_000, 0)

// Clock is a settable clock for a run.
type Clock struct {
	Now time.Time
}

// NewClock returns a clock stopped at Epoch.
func NewClock() *Clock {
	return &Clock{Now: Epoch}
}

// Read returns the current time of c.
func (c *Clock) Read() time.Time { return c.Now }

// Advance moves c forward by d.
func (c *Clock) Advance(d time.Duration) { c.Now = c.Now.Add(d) }

// Config returns a configuration of rounds validations.
func Config(rounds int, override bool) config.Config {
	cfg := config.Default()
	cfg.Rounds = rounds
	cfg.PassOverride = override
	return cfg
}

// Memory initialises one seeded side of a run of variant and panics on failure.
func Memory(variant string, cfg config.Config, side protocols.Side, clock *Clock) *memory.Shared {
	v, err := protocols.LookupVariant(variant)
	if err != nil {
		panic(err)
	}
	opts := protocols.Options{Side: side, Mnemonic: Mnemonic}
	if clock != nil {
		opts.Clock = clock.Read
	} else {
		opts.Clock = func() time.Time { return Epoch }
	}
	mem, err := protocols.Initialise(v, cfg, opts)
	if err != nil {
		panic(err)
	}
	return mem
}
