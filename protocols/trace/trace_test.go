// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package trace_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/memory"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/round"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/test"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/party"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/transport"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols/trace"
)

func run(t *testing.T, stage protocols.Stage) *memory.Shared {
	v, err := protocols.LookupVariant("ppets-fgp")
	require.NoError(t, err)
	mem := test.Memory(v.Name, test.Config(1, false), protocols.Both, nil)
	require.NoError(t, protocols.RunVariant(v, stage, mem, protocols.Both, transport.NewLoopback()))
	return mem
}

func reveal(mem *memory.Shared) error {
	return protocols.Run("trace", trace.Steps(), mem, transport.NewLoopback(), round.Options{})
}

func TestReveal(t *testing.T) {
	mem := run(t, protocols.StageValidate)
	assert.Equal(t, party.User.DefaultID(), mem.Traced)

	mem.Traced = ""
	require.NoError(t, reveal(mem))
	assert.Equal(t, party.User.DefaultID(), mem.Traced)
}

func TestUnknownHolder(t *testing.T) {
	mem := run(t, protocols.StageValidate)
	mem.Traced = ""
	delete(mem.Registry, string(mem.Actors[party.User].Y.Bytes()))

	err := reveal(mem)
	require.ErrorIs(t, err, trace.ErrUnknownHolder)
	require.ErrorIs(t, err, round.ErrVerification)
	assert.Empty(t, mem.Traced)
}

func TestNothingToTrace(t *testing.T) {
	mem := run(t, protocols.StageIssue)
	assert.ErrorIs(t, reveal(mem), trace.ErrNothingToTrace)
}
