// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package protocols

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v3"
	log "github.com/sirupsen/logrus"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/memory"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/round"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/credential"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/curve"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/sample"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/party"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/pp"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/transport"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols/config"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols/issuing"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols/registration"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols/setup"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols/trace"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols/validation"
)

// authorityIndex is the child index of the bundle signing key in a seeded run.
const authorityIndex = 1 << 16

var (
	ErrUnknownVariant = errors.New("protocols: unknown variant")
	ErrUnknownSide    = errors.New("protocols: unknown side")
	ErrUnknownStage   = errors.New("protocols: unknown stage")
	ErrNoTrust        = errors.New("protocols: a device needs the authority key or the run mnemonic")
	// ErrRunFailed is returned when a run ends unsuccessfully without a recorded cause.
	ErrRunFailed = errors.New("protocols: run failed")
)

// Variant selects the behaviour of a PPETS run.
type Variant struct {
	Name   string
	Policy credential.Policy
	// Traceable tickets carry the holder key encrypted for the police, who
	// reveals the holder of the last validated ticket.
	Traceable bool
	// FreshTicketPerRound buys a new ticket before every validation.
	FreshTicketPerRound bool
	Service             string
	Price               uint64
}

var variants = map[string]Variant{
	"ppets-abc": {
		Name: "ppets-abc",
		Policy: credential.Policy{
			Ranges: []credential.RangeRule{{Index: 0, Min: 18, Max: 120}},
			Sets:   []credential.SetRule{{Index: 0, Allowed: []string{"zone-1", "zone-2"}}},
		},
		Service: "day-pass",
		Price:   350,
	},
	"ppets-apt": {
		Name:    "ppets-apt",
		Service: "single-trip",
		Price:   180,
	},
	"ppets-asso": {
		Name:                "ppets-asso",
		FreshTicketPerRound: true,
		Service:             "single-trip",
		Price:               180,
	},
	"ppets-fgp": {
		Name:      "ppets-fgp",
		Traceable: true,
		Service:   "day-pass",
		Price:     350,
	},
}

// DefaultVariant is used when no variant is configured.
const DefaultVariant = "ppets-abc"

// LookupVariant returns the variant called name.
func LookupVariant(name string) (Variant, error) {
	v, ok := variants[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Variant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	return v, nil
}

// Variants lists the known variant names.
func Variants() []string {
	out := make([]string, 0, len(variants))
	for name := range variants {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DefaultSchema is the attribute schema certified by the central authority.
var DefaultSchema = credential.Schema{Range: []string{"age"}, Set: []string{"zone", "tariff"}}

// DefaultAttributes are the attributes of the simulated holder.
var DefaultAttributes = credential.Attributes{Range: []uint64{27}, Set: []string{"zone-1", "adult"}}

// Side is the half of a run executed by one process.
type Side uint8

const (
	// Both plays every role on a single machine.
	Both Side = iota
	// Device plays the ticket holder.
	Device
	// Reader plays the authority, the seller, the validator and the police.
	Reader
)

func (s Side) String() string {
	switch s {
	case Both:
		return "both"
	case Device:
		return "device"
	case Reader:
		return "reader"
	}
	return "unknown"
}

// ParseSide reads a side name as written by String.
func ParseSide(name string) (Side, error) {
	for _, s := range []Side{Both, Device, Reader} {
		if strings.EqualFold(name, s.String()) {
			return s, nil
		}
	}
	return Both, fmt.Errorf("%w: %q", ErrUnknownSide, name)
}

// Roles returns the roles played on side s for variant v.
func (s Side) Roles(v Variant) []party.Role {
	var roles []party.Role
	if s != Reader {
		roles = append(roles, party.User)
	}
	if s != Device {
		roles = append(roles, party.CentralAuthority, party.Seller, party.Validator)
		if v.Traceable {
			roles = append(roles, party.Police)
		}
	}
	return roles
}

// Stage is the last phase included in a run.
type Stage uint8

const (
	StageSetup Stage = iota + 1
	StageRegister
	StageIssue
	StageValidate
)

var stageNames = map[Stage]string{
	StageSetup:    "setup",
	StageRegister: "register",
	StageIssue:    "issue",
	StageValidate: "validate",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseStage reads a stage name. "all" is StageValidate.
func ParseStage(name string) (Stage, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "all" {
		return StageValidate, nil
	}
	for s, n := range stageNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStage, name)
}

// Options complete the description of one side of a run.
type Options struct {
	Side Side
	// Mnemonic makes every key and nonce of the run reproducible. Tests and benchmarks only.
	Mnemonic string
	// TrustKey pins the authority on a device initialised without a mnemonic.
	TrustKey *secp256k1.PublicKey
	// Attributes of the holder, DefaultAttributes when empty.
	Attributes credential.Attributes
	// Clock replaces time.Now.
	Clock func() time.Time
}

func source(mnemonic string, index uint32) (io.Reader, error) {
	r, err := memory.Source(mnemonic, index)
	if err != nil {
		return nil, fmt.Errorf("protocols: randomness %d: %w", index, err)
	}
	return r, nil
}

// AuthorityKey returns the bundle signing key of a run, derived from mnemonic
// when it is set.
func AuthorityKey(mnemonic string) (*secp256k1.PrivateKey, error) {
	if mnemonic == "" {
		return secp256k1.GeneratePrivateKey()
	}
	r, err := source(mnemonic, authorityIndex)
	if err != nil {
		return nil, err
	}
	return secp256k1.PrivKeyFromBytes(sample.Bytes(r, 32)), nil
}

// Initialise creates the memory of one side of a run of v.
//
// The reader side generates the public parameters, the issuing keys and the
// tracing key; the device side only knows the authority key and waits for Setup.
func Initialise(v Variant, cfg config.Config, opts Options) (*memory.Shared, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rand, err := source(opts.Mnemonic, 0)
	if err != nil {
		return nil, err
	}
	mem := memory.New(cfg, rand)
	if opts.Clock != nil {
		mem.Clock = opts.Clock
	}

	for _, role := range opts.Side.Roles(v) {
		r, err := source(opts.Mnemonic, uint32(role))
		if err != nil {
			return nil, err
		}
		mem.Add(memory.NewActor(role, r))
	}
	if user, ok := mem.Actors[party.User]; ok {
		user.Attributes = opts.Attributes
		if user.Attributes.Empty() {
			user.Attributes = DefaultAttributes
		}
	}

	switch {
	case opts.Side != Device:
		if mem.AuthorityKey, err = AuthorityKey(opts.Mnemonic); err != nil {
			return nil, err
		}
		mem.TrustKey = mem.AuthorityKey.PubKey()
	case opts.TrustKey != nil:
		mem.TrustKey = opts.TrustKey
	case opts.Mnemonic != "":
		key, err := AuthorityKey(opts.Mnemonic)
		if err != nil {
			return nil, err
		}
		mem.TrustKey = key.PubKey()
	default:
		return nil, ErrNoTrust
	}
	if opts.Side == Device {
		return mem, nil
	}

	group, err := curve.FromSecurityBits(cfg.SecurityBits)
	if err != nil {
		return nil, err
	}
	params := pp.New(group, DefaultSchema)
	ca := mem.Actors[party.CentralAuthority]
	ca.Issuing = credential.NewIssuerKey(group, ca.Rand)
	ca.GenerateKeys(params)
	params.WCA = ca.Issuing.W
	seller := mem.Actors[party.Seller]
	seller.Issuing = credential.NewIssuerKey(group, seller.Rand)
	params.WS = seller.Issuing.W
	if police, ok := mem.Actors[party.Police]; ok {
		police.GenerateKeys(params)
		params.YP = police.Y
	}
	mem.Params = params
	log.Infof("%s: initialised the %s side on %s", v.Name, opts.Side, group.Name())
	return mem, nil
}

// LoopTarget is the step the validation loop returns to.
func LoopTarget(v Variant, cfg config.Config) string {
	if v.FreshTicketPerRound || cfg.FreshTicketPerRound {
		return issuing.StepOffer
	}
	return validation.StepNonce
}

// registered lists the actors registered during the run itself. A reader
// registers its own actors beforehand with Prepare.
func registered(side Side) []party.Role {
	if side == Both {
		return []party.Role{party.Seller, party.Validator, party.User}
	}
	return []party.Role{party.User}
}

// Build assembles the steps of a run of v up to stage.
func Build(v Variant, cfg config.Config, side Side, stage Stage) []round.Step {
	steps := setup.Steps()
	if stage >= StageRegister {
		steps = append(steps, registration.Steps(registered(side)...)...)
	}
	if stage >= StageIssue {
		steps = append(steps, issuing.Steps(issuing.Options{
			Service:   v.Service,
			Price:     v.Price,
			Validity:  config.DefaultValidity,
			Policy:    v.Policy,
			Traceable: v.Traceable,
		})...)
	}
	if stage >= StageValidate {
		steps = append(steps, validation.Steps(LoopTarget(v, cfg))...)
		if v.Traceable {
			steps = append(steps, trace.Steps()...)
		}
	}
	return steps
}

// Prepare registers the seller and the validator of a reader with its own
// central authority over a local loopback.
func Prepare(v Variant, mem *memory.Shared) error {
	steps := registration.Steps(party.Seller, party.Validator)
	return Run(v.Name+"/prepare", steps, mem, transport.NewLoopback(), round.Options{})
}

// Run executes steps for the local roles of mem over conn.
func Run(name string, steps []round.Step, mem *memory.Shared, conn transport.Transport, opts round.Options) error {
	m, err := round.NewMachine(name, steps, mem, conn, opts)
	if err != nil {
		return err
	}
	ok, err := m.Run()
	if err != nil {
		return err
	}
	if !ok {
		if mem.Err != nil {
			return mem.Err
		}
		return ErrRunFailed
	}
	return nil
}

// RunVariant builds and runs one side of v up to stage.
func RunVariant(v Variant, stage Stage, mem *memory.Shared, side Side, conn transport.Transport) error {
	if side == Reader && stage >= StageRegister {
		if err := Prepare(v, mem); err != nil {
			return fmt.Errorf("%s: preparing the reader: %w", v.Name, err)
		}
	}
	return Run(v.Name, Build(v, mem.Config, side, stage), mem, conn, round.Options{Select: config.AID})
}
