// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package registration_test

import (
	"testing"

	math "github.com/IBM/mathlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/memory"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/round"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/test"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/credential"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/party"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/protocol"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/transport"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols/registration"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols/setup"
)

func register(t *testing.T, override bool, conn transport.Transport, roles ...party.Role) (*memory.Shared, error) {
	mem := test.Memory("ppets-abc", test.Config(1, override), protocols.Both, nil)
	steps := append(setup.Steps(), registration.Steps(roles...)...)
	return mem, protocols.Run("registration", steps, mem, conn, round.Options{})
}

func TestSeededUser(t *testing.T) {
	mem, err := register(t, false, transport.NewLoopback(), party.User)
	require.NoError(t, err)

	user, err := mem.Actor(party.User)
	require.NoError(t, err)
	require.NotNil(t, user.Credential)
	assert.Nil(t, user.Blinding)
	id, ok := mem.Lookup(user.Y)
	require.True(t, ok)
	assert.Equal(t, user.ID, id)

	group := mem.Params.Group
	gen := mem.Params.Credential()
	attrs := user.Attributes.Scalars(group)
	require.NoError(t, credential.Verify(gen, mem.Params.WCA, user.Y, user.Credential, attrs))

	for i := range attrs {
		tampered := append([]*math.Zr(nil), attrs...)
		tampered[i] = group.Add(attrs[i], group.One())
		assert.ErrorIs(t, credential.Verify(gen, mem.Params.WCA, user.Y, user.Credential, tampered), credential.ErrVerification, "attribute %d", i)
	}

	again, err := register(t, false, transport.NewLoopback(), party.User)
	require.NoError(t, err)
	other, _ := again.Actor(party.User)
	assert.True(t, user.Credential.Sigma.Equals(other.Credential.Sigma))
	assert.True(t, user.Y.Equals(other.Y))
}

func TestEveryRole(t *testing.T) {
	mem, err := register(t, false, transport.NewLoopback(), party.Seller, party.Validator, party.User)
	require.NoError(t, err)
	assert.Len(t, mem.Registry, 3)
	for _, role := range []party.Role{party.Seller, party.Validator} {
		a, err := mem.Actor(role)
		require.NoError(t, err)
		require.NotNil(t, a.Credential, role.String())
		assert.NoError(t, credential.Verify(mem.Params.Credential(), mem.Params.WCA, a.Y, a.Credential, nil))
	}
}

func TestFaults(t *testing.T) {
	otherAttributes, err := credential.Attributes{Range: []uint64{15}, Set: []string{"zone-1", "adult"}}.MarshalBinary()
	require.NoError(t, err)

	tests := []struct {
		name       string
		rule       test.Rule
		step       string
		culprit    party.Role
		registered bool
	}{
		{"swapped proof responses", test.Swap(test.Count(credential.RequestElements), 5, 6),
			registration.StepName(party.User, "issue"), party.User, false},
		{"replaced attributes", test.Replace(test.Count(credential.RequestElements), 1, otherAttributes),
			registration.StepName(party.User, "issue"), party.User, false},
		{"swapped credential scalars", test.Swap(test.Count(3), 0, 1),
			registration.StepName(party.User, "store"), party.CentralAuthority, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			conn := test.NewTamper(transport.NewLoopback(), tt.rule)
			mem, err := register(t, false, conn, party.User)
			require.ErrorIs(t, err, round.ErrVerification)
			var pErr protocol.Error
			require.ErrorAs(t, err, &pErr)
			assert.Equal(t, tt.step, pErr.Step)
			assert.Equal(t, tt.culprit, pErr.Culprit)
			// a rejected request never reaches the tracing registry
			if tt.registered {
				assert.Len(t, mem.Registry, 1)
			} else {
				assert.Empty(t, mem.Registry)
			}
		})
	}
}

func TestOverrideKeepsGoing(t *testing.T) {
	conn := test.NewTamper(transport.NewLoopback(), test.Swap(test.Count(credential.RequestElements), 5, 6))
	mem, err := register(t, true, conn, party.User)
	require.NoError(t, err)
	assert.Equal(t, 1, conn.Hits())
	user, _ := mem.Actor(party.User)
	assert.NotNil(t, user.Credential)
	assert.Len(t, mem.Registry, 1)
}
