// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package transport

import (
	"fmt"
	"sync"
	"time"
)

// DefaultPipeTimeout bounds how long a Get waits for the peer.
const DefaultPipeTimeout = 30 * time.Second

// PipeEnd is one end of an in memory connection between two machines.
type PipeEnd struct {
	mtx     sync.Mutex
	open    bool
	aid     []byte
	in      <-chan []byte
	out     chan<- []byte
	timeout time.Duration
}

// NewPipe creates two connected ends. A Put on one end is returned by a Get on the other.
func NewPipe(timeout time.Duration) (*PipeEnd, *PipeEnd) {
	if timeout <= 0 {
		timeout = DefaultPipeTimeout
	}
	ab := make(chan []byte, 16)
	ba := make(chan []byte, 16)
	a := &PipeEnd{in: ba, out: ab, timeout: timeout}
	b := &PipeEnd{in: ab, out: ba, timeout: timeout}
	return a, b
}

func (p *PipeEnd) isOpen() bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.open
}

// Open implements Transport.
func (p *PipeEnd) Open() error {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.open = true
	return nil
}

// Close implements Transport. The peer is not affected.
func (p *PipeEnd) Close() error {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if !p.open {
		return NewError("close", CodeNotOpen, nil)
	}
	p.open = false
	return nil
}

// Select implements Transport.
func (p *PipeEnd) Select(aid []byte) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if !p.open {
		return NewError("select", CodeNotOpen, nil)
	}
	if len(aid) == 0 {
		return NewError("select", CodeNotFound, nil)
	}
	p.aid = append([]byte(nil), aid...)
	return nil
}

// Put implements Transport.
func (p *PipeEnd) Put(data []byte) error {
	if !p.isOpen() {
		return NewError("put", CodeNotOpen, nil)
	}
	select {
	case p.out <- append([]byte(nil), data...):
		return nil
	case <-time.After(p.timeout):
		return NewError("put", CodeTimeout, fmt.Errorf("peer did not read within %v", p.timeout))
	}
}

// Get implements Transport.
func (p *PipeEnd) Get(maxLength int) ([]byte, error) {
	if !p.isOpen() {
		return nil, NewError("get", CodeNotOpen, nil)
	}
	select {
	case data := <-p.in:
		if maxLength > 0 && len(data) > maxLength {
			return nil, NewError("get", CodeWrongLength, fmt.Errorf("payload of %d bytes exceeds %d", len(data), maxLength))
		}
		return data, nil
	case <-time.After(p.timeout):
		return nil, NewError("get", CodeTimeout, fmt.Errorf("no payload within %v", p.timeout))
	}
}
