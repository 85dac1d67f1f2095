// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package test

import (
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/transport"
)

// Side is one half of a split run.
type Side func(conn transport.Transport) error

// Pair runs device and reader concurrently on the two ends of a pipe and
// returns the error of each side.
func Pair(timeout time.Duration, device, reader Side) (deviceErr, readerErr error) {
	a, b := transport.NewPipe(timeout)
	var g errgroup.Group
	g.Go(func() error {
		deviceErr = device(a)
		return nil
	})
	g.Go(func() error {
		readerErr = reader(b)
		return nil
	})
	_ = g.Wait()
	return deviceErr, readerErr
}
