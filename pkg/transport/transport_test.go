// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var _ Transport = (*Loopback)(nil)
var _ Transport = (*PipeEnd)(nil)

func TestLoopback(t *testing.T) {
	l := NewLoopback()
	assert.Equal(t, CodeNotOpen, CodeOf(l.Put([]byte("x"))))

	require.NoError(t, l.Open())
	require.NoError(t, l.Select([]byte{0xF0, 0x01}))
	require.NoError(t, l.Put([]byte("Hello")))
	require.NoError(t, l.Put([]byte("World")))
	assert.Equal(t, 2, l.Pending())

	_, err := l.Get(3)
	assert.Equal(t, CodeWrongLength, CodeOf(err))

	got, err := l.Get(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("Hello"), got)
	got, err = l.Get(5)
	require.NoError(t, err)
	assert.Equal(t, []byte("World"), got)

	_, err = l.Get(0)
	assert.Equal(t, CodeNoData, CodeOf(err))
	require.NoError(t, l.Close())
	assert.Equal(t, CodeNotOpen, CodeOf(l.Close()))
}

func TestPipe(t *testing.T) {
	device, reader := NewPipe(time.Second)
	require.NoError(t, device.Open())
	require.NoError(t, reader.Open())

	var errGroup errgroup.Group
	errGroup.Go(func() error {
		data, err := reader.Get(0)
		if err != nil {
			return err
		}
		return reader.Put(append(data, '!'))
	})
	require.NoError(t, device.Put([]byte("ping")))
	got, err := device.Get(0)
	require.NoError(t, err)
	require.NoError(t, errGroup.Wait())
	assert.Equal(t, []byte("ping!"), got)
}

func TestPipeTimeout(t *testing.T) {
	device, _ := NewPipe(10 * time.Millisecond)
	require.NoError(t, device.Open())
	_, err := device.Get(0)
	assert.Equal(t, CodeTimeout, CodeOf(err))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeOK, CodeOf(nil))
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("boom")))
	wrapped := errors.Join(errors.New("context"), NewError("get", CodeNoData, nil))
	assert.Equal(t, CodeNoData, CodeOf(wrapped))
}
