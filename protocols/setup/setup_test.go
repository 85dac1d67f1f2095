// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package setup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/round"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/test"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/party"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/protocol"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/transport"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols/setup"
)

func TestSetup(t *testing.T) {
	mem := test.Memory("ppets-fgp", test.Config(1, false), protocols.Both, nil)
	before := mem.Params
	require.NoError(t, protocols.Run("setup", setup.Steps(), mem, transport.NewLoopback(), round.Options{}))

	require.NotSame(t, before, mem.Params)
	assert.True(t, before.WCA.Equals(mem.Params.WCA))
	assert.True(t, before.WS.Equals(mem.Params.WS))
	require.NotNil(t, mem.Params.YP)
	assert.True(t, before.YP.Equals(mem.Params.YP))
	assert.Equal(t, protocols.DefaultSchema, mem.Params.Schema)

	user, err := mem.Actor(party.User)
	require.NoError(t, err)
	require.NotNil(t, user.X)
	assert.True(t, mem.Params.H.Mul(user.X).Equals(user.Y))
}

func TestAckMismatch(t *testing.T) {
	mem := test.Memory("ppets-abc", test.Config(1, true), protocols.Both, nil)
	conn := test.NewTamper(transport.NewLoopback(), test.FlipByte(test.Count(1), 0))

	err := protocols.Run("setup", setup.Steps(), mem, conn, round.Options{})
	require.ErrorIs(t, err, setup.ErrAck)
	var pErr protocol.Error
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, setup.StepAck, pErr.Step)
}

func TestMalformedBundle(t *testing.T) {
	mem := test.Memory("ppets-abc", test.Config(1, false), protocols.Both, nil)
	conn := test.NewTamper(transport.NewLoopback(), test.Replace(test.Count(2), 1, []byte{0x30, 0x00}))

	err := protocols.Run("setup", setup.Steps(), mem, conn, round.Options{})
	require.Error(t, err)
	var pErr protocol.Error
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, setup.StepInstall, pErr.Step)
}
