// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package transport

import (
	"fmt"
	"sync"
)

// Loopback is a single FIFO queue: every Put is returned by a later Get.
// It lets one machine play both ends of a protocol.
type Loopback struct {
	mtx   sync.Mutex
	open  bool
	aid   []byte
	queue [][]byte
}

// NewLoopback creates a closed Loopback.
func NewLoopback() *Loopback {
	return &Loopback{}
}

// Open implements Transport.
func (l *Loopback) Open() error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.open = true
	return nil
}

// Close implements Transport. Pending payloads are dropped.
func (l *Loopback) Close() error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if !l.open {
		return NewError("close", CodeNotOpen, nil)
	}
	l.open = false
	l.queue = nil
	return nil
}

// Select implements Transport by recording the application identifier.
func (l *Loopback) Select(aid []byte) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if !l.open {
		return NewError("select", CodeNotOpen, nil)
	}
	if len(aid) == 0 {
		return NewError("select", CodeNotFound, nil)
	}
	l.aid = append([]byte(nil), aid...)
	return nil
}

// Put implements Transport.
func (l *Loopback) Put(data []byte) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if !l.open {
		return NewError("put", CodeNotOpen, nil)
	}
	l.queue = append(l.queue, append([]byte(nil), data...))
	return nil
}

// Get implements Transport. An empty queue fails with CodeNoData.
func (l *Loopback) Get(maxLength int) ([]byte, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if !l.open {
		return nil, NewError("get", CodeNotOpen, nil)
	}
	if len(l.queue) == 0 {
		return nil, NewError("get", CodeNoData, nil)
	}
	data := l.queue[0]
	if maxLength > 0 && len(data) > maxLength {
		return nil, NewError("get", CodeWrongLength, fmt.Errorf("payload of %d bytes exceeds %d", len(data), maxLength))
	}
	l.queue = l.queue[1:]
	return data, nil
}

// Pending returns the number of queued payloads.
func (l *Loopback) Pending() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return len(l.queue)
}

// Selected returns the application identifier of the last Select.
func (l *Loopback) Selected() []byte {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.aid
}
