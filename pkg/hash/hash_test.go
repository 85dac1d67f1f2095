// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package hash

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/curve"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/math/sample"
)

func TestHash_WriteAny(t *testing.T) {
	var err error

	testFunc := func(vs ...interface{}) error {
		h := New()
		for _, v := range vs {
			err = h.WriteAny(v)
			if err != nil {
				return err
			}
		}
		return nil
	}
	group, err := curve.ByName(curve.DefaultName)
	require.NoError(t, err)

	assert.NoError(t, testFunc(big.NewInt(35), uint64(35), "35"))
	assert.NoError(t, testFunc(sample.Scalar(rand.Reader, group)))
	assert.NoError(t, testFunc(group.GenG1.Mul(sample.Scalar(rand.Reader, group))))
	assert.NoError(t, testFunc(group.GenG2))
	assert.NoError(t, testFunc([]byte{1, 4, 6}))
	assert.Error(t, testFunc(3.5))
}

func TestHash_Determinism(t *testing.T) {
	a := New([]byte("nonce"), "service")
	b := New([]byte("nonce"), "service")
	assert.Equal(t, a.Sum(), b.Sum())

	c := New([]byte("nonce"), "servicf")
	assert.NotEqual(t, a.Sum(), c.Sum())

	// boundaries between values matter
	d := New([]byte("ab"), []byte("c"))
	e := New([]byte("a"), []byte("bc"))
	assert.NotEqual(t, d.Sum(), e.Sum())
}

func TestHash_Fork(t *testing.T) {
	base := New("ctx")
	forked := base.Fork(uint64(1))
	assert.NotEqual(t, base.Sum(), forked.Sum())
	assert.Equal(t, base.Sum(), New("ctx").Sum(), "Fork leaves the original untouched")
}

func TestSum256(t *testing.T) {
	assert.Equal(t, Sum256("a", []byte("x")), Sum256("a", []byte("x")))
	assert.NotEqual(t, Sum256("a", []byte("x")), Sum256("b", []byte("x")))
}
