// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package test

import (
	"sync"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/transport"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/wire"
)

// Tamper is a transport which rewrites the envelopes it sends according to a Rule.
type Tamper struct {
	transport.Transport
	rule Rule

	mtx  sync.Mutex
	hits int
}

// NewTamper wraps conn.
func NewTamper(conn transport.Transport, rule Rule) *Tamper {
	return &Tamper{Transport: conn, rule: rule}
}

// Put applies the rule to data before sending it. Payloads which are not
// envelopes are sent unchanged.
func (t *Tamper) Put(data []byte) error {
	elements, err := wire.Decode(data)
	if err == nil && t.rule.Match(elements) {
		t.mtx.Lock()
		t.hits++
		t.mtx.Unlock()
		if data, err = wire.Encode(t.rule.Modify(elements)); err != nil {
			return transport.NewError("put", transport.CodeUnknown, err)
		}
	}
	return t.Transport.Put(data)
}

// Hits counts the envelopes rewritten so far.
func (t *Tamper) Hits() int {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.hits
}
