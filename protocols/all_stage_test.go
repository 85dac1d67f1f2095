// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package protocols_test

import (
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/memory"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/round"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/test"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/party"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/pp"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/protocol"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/ticket"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/transport"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols/config"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols/validation"
)

const pipeTimeout = 5 * time.Second

func variant(t *testing.T, name string) protocols.Variant {
	v, err := protocols.LookupVariant(name)
	require.NoError(t, err)
	return v
}

func TestEcho(t *testing.T) {
	mem := memory.New(config.Default(), nil)
	ok, err := protocols.RunEcho("echo", protocols.Echo(), mem, transport.NewLoopback())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, mem.Timers.Snapshot(), "transport/PUT")
}

func TestEchoSplit(t *testing.T) {
	var okDevice, okReader bool
	deviceErr, readerErr := test.Pair(pipeTimeout,
		func(conn transport.Transport) (err error) {
			okDevice, err = protocols.RunEcho("device", protocols.Echo(), memory.New(config.Default(), nil), conn)
			return err
		},
		func(conn transport.Transport) (err error) {
			okReader, err = protocols.RunEcho("reader", protocols.EchoPeer(), memory.New(config.Default(), nil), conn)
			return err
		})
	require.NoError(t, deviceErr)
	require.NoError(t, readerErr)
	assert.True(t, okDevice)
	assert.True(t, okReader)
}

func TestVariants(t *testing.T) {
	for _, name := range protocols.Variants() {
		name := name
		t.Run(name, func(t *testing.T) {
			v := variant(t, name)
			mem := test.Memory(name, test.Config(3, false), protocols.Both, nil)
			require.NoError(t, protocols.RunVariant(v, protocols.StageValidate, mem, protocols.Both, transport.NewLoopback()))

			require.Len(t, mem.Reports, 3)
			valid, doubleSpent := validation.Summary(mem.Reports)
			assert.Equal(t, 3, valid)
			if v.FreshTicketPerRound {
				assert.Zero(t, doubleSpent)
			} else {
				assert.Equal(t, 2, doubleSpent)
			}
			if v.Traceable {
				assert.Equal(t, party.User.DefaultID(), mem.Traced)
			} else {
				assert.Empty(t, mem.Traced)
			}
			assert.Equal(t, 0, mem.RoundsLeft)
			assert.NoError(t, mem.Err)
		})
	}
}

func TestFreshTicketPerRoundConfig(t *testing.T) {
	v := variant(t, "ppets-apt")
	cfg := test.Config(2, false)
	cfg.FreshTicketPerRound = true
	assert.Equal(t, "issuing/offer", protocols.LoopTarget(v, cfg))
	assert.Equal(t, validation.StepNonce, protocols.LoopTarget(v, test.Config(2, false)))

	mem := test.Memory(v.Name, cfg, protocols.Both, nil)
	require.NoError(t, protocols.RunVariant(v, protocols.StageValidate, mem, protocols.Both, transport.NewLoopback()))
	_, doubleSpent := validation.Summary(mem.Reports)
	assert.Zero(t, doubleSpent)
	assert.NotEqual(t, mem.Reports[0].Pseudonym, mem.Reports[1].Pseudonym)
}

func TestSplit(t *testing.T) {
	for _, name := range []string{"ppets-abc", "ppets-fgp"} {
		name := name
		t.Run(name, func(t *testing.T) {
			v := variant(t, name)
			cfg := test.Config(2, false)
			device := test.Memory(name, cfg, protocols.Device, nil)
			reader := test.Memory(name, cfg, protocols.Reader, nil)
			require.Nil(t, device.Params)

			deviceErr, readerErr := test.Pair(pipeTimeout,
				func(conn transport.Transport) error {
					return protocols.RunVariant(v, protocols.StageValidate, device, protocols.Device, conn)
				},
				func(conn transport.Transport) error {
					return protocols.RunVariant(v, protocols.StageValidate, reader, protocols.Reader, conn)
				})
			require.NoError(t, deviceErr)
			require.NoError(t, readerErr)

			require.NotNil(t, device.Params)
			user, err := device.Actor(party.User)
			require.NoError(t, err)
			require.NotNil(t, user.Ticket)
			assert.Len(t, reader.Reports, 2)
			assert.Empty(t, device.Reports)
			assert.Len(t, reader.Registry, 3)
			if v.Traceable {
				assert.Equal(t, party.User.DefaultID(), reader.Traced)
			}
		})
	}
}

func TestStages(t *testing.T) {
	v := variant(t, "ppets-abc")
	for _, stage := range []protocols.Stage{protocols.StageSetup, protocols.StageRegister, protocols.StageIssue} {
		stage := stage
		t.Run(stage.String(), func(t *testing.T) {
			mem := test.Memory(v.Name, test.Config(1, false), protocols.Both, nil)
			require.NoError(t, protocols.RunVariant(v, stage, mem, protocols.Both, transport.NewLoopback()))
			user, err := mem.Actor(party.User)
			require.NoError(t, err)
			assert.Equal(t, stage >= protocols.StageRegister, user.Credential != nil)
			assert.Equal(t, stage >= protocols.StageIssue, user.Ticket != nil)
			assert.Empty(t, mem.Reports)
		})
	}

	stage, err := protocols.ParseStage("all")
	require.NoError(t, err)
	assert.Equal(t, protocols.StageValidate, stage)
	_, err = protocols.ParseStage("refund")
	assert.ErrorIs(t, err, protocols.ErrUnknownStage)
}

func TestForeignAuthority(t *testing.T) {
	v := variant(t, "ppets-apt")
	other, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	device, err := protocols.Initialise(v, test.Config(1, false), protocols.Options{Side: protocols.Device, TrustKey: other.PubKey()})
	require.NoError(t, err)
	reader := test.Memory(v.Name, test.Config(1, false), protocols.Reader, nil)

	deviceErr, readerErr := test.Pair(time.Second,
		func(conn transport.Transport) error {
			return protocols.RunVariant(v, protocols.StageSetup, device, protocols.Device, conn)
		},
		func(conn transport.Transport) error {
			return protocols.RunVariant(v, protocols.StageSetup, reader, protocols.Reader, conn)
		})
	require.ErrorIs(t, deviceErr, pp.ErrSignature)
	assert.Nil(t, device.Params)
	require.Error(t, readerErr)
	assert.Equal(t, transport.CodeTimeout, transport.CodeOf(readerErr))
}

func TestDeviceNeedsTrust(t *testing.T) {
	_, err := protocols.Initialise(variant(t, "ppets-abc"), config.Default(), protocols.Options{Side: protocols.Device})
	assert.ErrorIs(t, err, protocols.ErrNoTrust)
}

func TestBundleTamperingIsFatal(t *testing.T) {
	v := variant(t, "ppets-abc")
	// even with the override a forged bundle stops the run
	mem := test.Memory(v.Name, test.Config(1, true), protocols.Both, nil)
	conn := test.NewTamper(transport.NewLoopback(), test.FlipByte(func(e [][]byte) bool {
		return len(e) == 2 && len(e[0]) > 64
	}, 0))

	err := protocols.RunVariant(v, protocols.StageValidate, mem, protocols.Both, conn)
	require.ErrorIs(t, err, pp.ErrSignature)
	var pErr protocol.Error
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "setup/install", pErr.Step)
	assert.Equal(t, 1, conn.Hits())
}

// forgedTranscript swaps the challenge and the response of the validation proof.
func forgedTranscript() test.Rule {
	return test.Swap(test.Count(ticket.TranscriptElements), 10, 11)
}

func TestForgedTranscript(t *testing.T) {
	v := variant(t, "ppets-apt")
	mem := test.Memory(v.Name, test.Config(2, false), protocols.Both, nil)
	conn := test.NewTamper(transport.NewLoopback(), forgedTranscript())

	err := protocols.RunVariant(v, protocols.StageValidate, mem, protocols.Both, conn)
	require.ErrorIs(t, err, round.ErrVerification)
	require.ErrorIs(t, err, ticket.ErrVerification)
	var pErr protocol.Error
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, validation.StepVerify, pErr.Step)
	assert.Equal(t, party.User, pErr.Culprit)
	require.Len(t, mem.Reports, 1)
	assert.False(t, mem.Reports[0].Valid)
}

func TestSplitDeviceLearnsRejection(t *testing.T) {
	v := variant(t, "ppets-apt")
	cfg := test.Config(1, false)
	device := test.Memory(v.Name, cfg, protocols.Device, nil)
	reader := test.Memory(v.Name, cfg, protocols.Reader, nil)

	deviceErr, readerErr := test.Pair(pipeTimeout,
		func(conn transport.Transport) error {
			return protocols.RunVariant(v, protocols.StageValidate, device, protocols.Device, test.NewTamper(conn, forgedTranscript()))
		},
		func(conn transport.Transport) error {
			return protocols.RunVariant(v, protocols.StageValidate, reader, protocols.Reader, conn)
		})
	require.ErrorIs(t, readerErr, ticket.ErrVerification)
	require.ErrorIs(t, deviceErr, validation.ErrRejected)
	assert.NotEqual(t, transport.CodeTimeout, transport.CodeOf(deviceErr))
	var pErr protocol.Error
	require.ErrorAs(t, deviceErr, &pErr)
	assert.Equal(t, validation.StepResult, pErr.Step)
	assert.Equal(t, party.Validator, pErr.Culprit)
}

func TestPassOverride(t *testing.T) {
	v := variant(t, "ppets-apt")
	mem := test.Memory(v.Name, test.Config(2, true), protocols.Both, nil)
	conn := test.NewTamper(transport.NewLoopback(), forgedTranscript())

	require.NoError(t, protocols.RunVariant(v, protocols.StageValidate, mem, protocols.Both, conn))
	assert.Equal(t, 2, conn.Hits())
	require.Len(t, mem.Reports, 2)
	valid, _ := validation.Summary(mem.Reports)
	assert.Zero(t, valid)
}

func TestSeededRunsAreReproducible(t *testing.T) {
	v := variant(t, "ppets-abc")
	run := func() *memory.Shared {
		mem := test.Memory(v.Name, test.Config(1, false), protocols.Both, nil)
		require.NoError(t, protocols.RunVariant(v, protocols.StageValidate, mem, protocols.Both, transport.NewLoopback()))
		return mem
	}
	a, b := run(), run()
	assert.Equal(t, a.Reports, b.Reports)
	ua, _ := a.Actor(party.User)
	ub, _ := b.Actor(party.User)
	assert.True(t, ua.Credential.Sigma.Equals(ub.Credential.Sigma))
}

func TestSides(t *testing.T) {
	v := variant(t, "ppets-fgp")
	assert.Equal(t, []party.Role{party.User}, protocols.Device.Roles(v))
	assert.Equal(t, []party.Role{party.CentralAuthority, party.Seller, party.Validator, party.Police}, protocols.Reader.Roles(v))
	assert.Len(t, protocols.Both.Roles(variant(t, "ppets-abc")), 4)

	for _, s := range []protocols.Side{protocols.Both, protocols.Device, protocols.Reader} {
		got, err := protocols.ParseSide(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := protocols.ParseSide("tablet")
	assert.ErrorIs(t, err, protocols.ErrUnknownSide)
	_, err = protocols.LookupVariant("ppets-xyz")
	assert.ErrorIs(t, err, protocols.ErrUnknownVariant)
}
