// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func TestTimers(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	timers := NewWithClock(clock.now)

	timers.Start("a")
	timers.Stop("a", 10)
	timers.Start("a")
	timers.Stop("a", 5)
	timers.Stop("never-started", 1)

	snap := timers.Snapshot()
	require.Len(t, snap, 1)
	e := snap["a"]
	assert.Equal(t, 2, e.Count)
	assert.Equal(t, 15, e.Bytes)
	assert.Equal(t, 2*time.Millisecond, e.Total)
	assert.Equal(t, time.Millisecond, e.Mean())
	assert.Equal(t, time.Duration(0), Entry{}.Mean())

	timers.Merge(map[string]Entry{"a": {Total: time.Second, Count: 1}, "b": {Count: 3}})
	snap = timers.Snapshot()
	assert.Equal(t, 3, snap["a"].Count)
	assert.Equal(t, []string{"a", "b"}, Names(snap))
}

func TestExport(t *testing.T) {
	snap := map[string]Entry{"issuing/sign": {Total: 3 * time.Millisecond, Count: 3, Bytes: 96}}

	s, err := Struct(snap)
	require.NoError(t, err)
	entry := s.Fields["issuing/sign"].GetStructValue()
	require.NotNil(t, entry)
	assert.Equal(t, float64(3), entry.Fields["count"].GetNumberValue())
	assert.Equal(t, float64(96), entry.Fields["bytes"].GetNumberValue())

	var buf bytes.Buffer
	require.NoError(t, Chart(&buf, "ppets-run", snap))
	assert.Contains(t, buf.String(), "ppets-run")
}
