// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package protocol

import (
	"fmt"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/transport"
)

// MessageType classifies the input of a state.
type MessageType uint8

const (
	// Start is fed to state 0 when a run begins.
	Start MessageType = iota
	// Data carries the payload returned by a Get.
	Data
	// Success reports a command without payload, or a state without command.
	Success
	// Failure reports a failed transport command, Code holds its status word.
	Failure
)

func (t MessageType) String() string {
	switch t {
	case Start:
		return "START"
	case Data:
		return "DATA"
	case Success:
		return "SUCCESS"
	case Failure:
		return "FAILURE"
	}
	return fmt.Sprintf("MessageType(%d)", uint8(t))
}

// Message is the input of a state.
type Message struct {
	Type MessageType
	Data []byte
	Code transport.Code
}

// Command is a transport operation requested by a state.
type Command uint8

const (
	None Command = iota
	Open
	Close
	Put
	Get
	Select
)

func (c Command) String() string {
	switch c {
	case None:
		return "NONE"
	case Open:
		return "OPEN"
	case Close:
		return "CLOSE"
	case Put:
		return "PUT"
	case Get:
		return "GET"
	case Select:
		return "SELECT"
	}
	return fmt.Sprintf("Command(%d)", uint8(c))
}

// Status tells the machine whether the run goes on.
type Status uint8

const (
	Continue Status = iota
	EndSuccess
	EndFailure
)

// NoChange keeps the current state.
const NoChange = -1

// Action is the output of a state.
//
// The machine first moves to Next (unless NoChange), then executes Command
// (unless None) and finally inspects Status.
type Action struct {
	Command Command
	Data    []byte
	// Length is the maximum payload size accepted by a Get, 0 for no limit.
	Length int
	Next   int
	Status Status
}

// Transmit requests cmd with data and moves to next.
func Transmit(cmd Command, data []byte, next int) Action {
	return Action{Command: cmd, Data: data, Next: next, Status: Continue}
}

// Receive requests a Get of at most length bytes and stays in the current state.
func Receive(length int) Action {
	return Action{Command: Get, Length: length, Next: NoChange, Status: Continue}
}

// Goto moves to next without touching the transport.
func Goto(next int) Action {
	return Action{Command: None, Next: next, Status: Continue}
}

// Finish ends the run once cmd completed. cmd may be None.
func Finish(cmd Command, ok bool) Action {
	status := EndFailure
	if ok {
		status = EndSuccess
	}
	return Action{Command: cmd, Next: NoChange, Status: status}
}

// Fail ends the run unsuccessfully.
func Fail() Action {
	return Finish(None, false)
}
