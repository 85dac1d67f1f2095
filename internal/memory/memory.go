// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package memory holds the state shared by the steps of a run.
package memory

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"

	math "github.com/IBM/mathlib"
	"github.com/decred/dcrd/dcrec/secp256k1/v3"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/metrics"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/credential"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/sample"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/party"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/pp"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/ticket"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols/config"
)

// Actor is the local record of one participant.
type Actor struct {
	ID   party.ID
	Role party.Role
	// Rand is the randomness source of the actor.
	Rand io.Reader

	// X is the secret key, Y = H^x.
	X *math.Zr
	Y *math.G1
	// Issuing is set for the central authority and the seller.
	Issuing *credential.IssuerKey

	Attributes credential.Attributes
	Credential *credential.Credential

	// Blinding is d while a registration is pending.
	Blinding *math.Zr
	// Offer and Nonce are the pending sale of a seller.
	Offer *ticket.Offer
	Nonce []byte
	// Ticket is the ticket held by a user.
	Ticket *ticket.Ticket
	// Detector and Last are kept by a validator across rounds.
	Detector ticket.Detector
	Last     *ticket.Transcript
}

// NewActor creates the record of the actor playing role.
func NewActor(role party.Role, rand io.Reader) *Actor {
	return &Actor{ID: role.DefaultID(), Role: role, Rand: rand}
}

// GenerateKeys samples (x, Y = H^x) unless the actor already has a key.
func (a *Actor) GenerateKeys(p *pp.Params) {
	if a.X != nil {
		return
	}
	a.X, a.Y = sample.ScalarPointPair(a.Rand, p.Group, p.H)
}

// PublicKeys returns [Y], or [Y, W] for actors holding an issuing key.
func (a *Actor) PublicKeys() [][]byte {
	if a.Y == nil {
		return nil
	}
	out := [][]byte{a.Y.Bytes()}
	if a.Issuing != nil {
		out = append(out, a.Issuing.W.Bytes())
	}
	return out
}

// RoundReport is the outcome of one validation.
type RoundReport struct {
	Round       int    `json:"round" cbor:"1,keyasint"`
	Valid       bool   `json:"valid" cbor:"2,keyasint"`
	DoubleSpend bool   `json:"doubleSpend" cbor:"3,keyasint"`
	Pseudonym   []byte `json:"pseudonym" cbor:"4,keyasint"`
}

// Shared is the memory threaded through every state of a machine.
type Shared struct {
	Config config.Config
	// Params is nil on a holder device until Setup completes.
	Params *pp.Params
	Actors map[party.Role]*Actor

	// AuthorityKey signs the setup bundle, TrustKey authenticates it.
	AuthorityKey *secp256k1.PrivateKey
	TrustKey     *secp256k1.PublicKey

	// Registry maps a registered key Y to its identity.
	Registry map[string]party.ID

	// RoundsLeft counts the validations still to run on this side.
	RoundsLeft int
	// Validations counts the transcripts checked by the local validator.
	Validations int
	Reports     []RoundReport
	// Traced is the identity revealed by the police.
	Traced party.ID

	// Err is the error which ended the run, if any.
	Err error

	Clock  func() time.Time
	Timers *metrics.Timers
	Rand   io.Reader
}

// New creates an empty memory for cfg. A nil rand uses crypto/rand.
func New(cfg config.Config, rand io.Reader) *Shared {
	if rand == nil {
		rand = defaultRand
	}
	return &Shared{
		Config:     cfg,
		Actors:     make(map[party.Role]*Actor),
		Registry:   make(map[string]party.ID),
		RoundsLeft: cfg.Rounds,
		Clock:      time.Now,
		Timers:     metrics.New(),
		Rand:       rand,
	}
}

var defaultRand io.Reader = rand.Reader

// Add stores a, replacing any actor with the same role.
func (m *Shared) Add(a *Actor) {
	m.Actors[a.Role] = a
}

// Actor returns the local actor playing role.
func (m *Shared) Actor(role party.Role) (*Actor, error) {
	a, ok := m.Actors[role]
	if !ok {
		return nil, fmt.Errorf("memory: no local actor plays %v", role)
	}
	return a, nil
}

// Roles returns the roles played locally.
func (m *Shared) Roles() party.RoleSet {
	s := party.NewRoleSet()
	for r := range m.Actors {
		s[r] = true
	}
	return s
}

// Now reads the clock of the run.
func (m *Shared) Now() time.Time {
	return m.Clock()
}

// Register records the identity behind Y.
func (m *Shared) Register(Y *math.G1, id party.ID) {
	m.Registry[string(Y.Bytes())] = id
}

// Lookup resolves a registered key.
func (m *Shared) Lookup(Y *math.G1) (party.ID, bool) {
	id, ok := m.Registry[string(Y.Bytes())]
	return id, ok
}

// Source returns the randomness of actor index: crypto/rand, or a reproducible
// stream derived from mnemonic when it is set.
func Source(mnemonic string, index uint32) (io.Reader, error) {
	if mnemonic == "" {
		return defaultRand, nil
	}
	return sample.MnemonicReader(mnemonic, index)
}
