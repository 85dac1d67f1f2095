// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromParams(t *testing.T) {
	tests := []struct {
		name   string
		params []string
		want   Config
	}{
		{"empty", nil, Config{Rounds: 1}},
		{"override only", []string{"true"}, Config{PassOverride: true, Rounds: 1}},
		{"all", []string{"false", "5", "100", "true"}, Config{Rounds: 5, SecurityBits: 100, FreshTicketPerRound: true}},
		{"spaces", []string{" 1 ", " 3"}, Config{PassOverride: true, Rounds: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromParams(tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromParamsRejects(t *testing.T) {
	for _, params := range [][]string{
		{"maybe"},
		{"false", "zero"},
		{"false", "0"},
		{"false", "1", "-1"},
		{"false", "1", "128", "x"},
		{"false", "1", "128", "true", "extra"},
	} {
		_, err := FromParams(params)
		assert.ErrorIs(t, err, ErrParam, params)
	}
}

func TestParamsRoundTrip(t *testing.T) {
	c := Config{PassOverride: true, Rounds: 7, SecurityBits: 128, FreshTicketPerRound: true}
	got, err := FromParams(c.Params())
	require.NoError(t, err)
	assert.Equal(t, c, got)
}
