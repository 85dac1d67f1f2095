// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package protocol

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/transport"
)

// ErrStateOutOfRange is returned by Run when a state points outside the machine.
var ErrStateOutOfRange = errors.New("protocol: state index out of range")

// State is one step of a protocol. It may mutate mem, which is the only channel
// between states.
type State[M any] interface {
	Name() string
	Action(mem M, msg Message) Action
}

// StateFunc adapts a function to State.
type StateFunc[M any] struct {
	Label string
	Fn    func(mem M, msg Message) Action
}

// Name implements State.
func (s StateFunc[M]) Name() string { return s.Label }

// Action implements State.
func (s StateFunc[M]) Action(mem M, msg Message) Action { return s.Fn(mem, msg) }

// Timer receives named start/stop events around every state and transport command.
type Timer interface {
	Start(name string)
	Stop(name string, bytes int)
}

type nopTimer struct{}

func (nopTimer) Start(string)     {}
func (nopTimer) Stop(string, int) {}

// Machine executes a list of states against a transport.
type Machine[M any] struct {
	name    string
	states  []State[M]
	current int
	mem     M
	conn    transport.Transport
	timer   Timer
	steps   int
}

// NewMachine creates a machine positioned at state 0.
func NewMachine[M any](name string, states []State[M], mem M, conn transport.Transport) *Machine[M] {
	return &Machine[M]{
		name:   name,
		states: states,
		mem:    mem,
		conn:   conn,
		timer:  nopTimer{},
	}
}

// WithTimer installs t. A nil t disables timing.
func (m *Machine[M]) WithTimer(t Timer) *Machine[M] {
	if t == nil {
		m.timer = nopTimer{}
	} else {
		m.timer = t
	}
	return m
}

// Memory returns the memory threaded through the states.
func (m *Machine[M]) Memory() M { return m.mem }

// Current returns the index of the current state.
func (m *Machine[M]) Current() int { return m.current }

// Steps returns how many state actions were executed so far.
func (m *Machine[M]) Steps() int { return m.steps }

// Run feeds START to state 0 and loops until a state ends the run.
//
// It returns true for END_SUCCESS and false for END_FAILURE. A state index outside
// the machine is a defect: it is logged and reported as ErrStateOutOfRange.
func (m *Machine[M]) Run() (bool, error) {
	msg := Message{Type: Start}
	for {
		if m.current < 0 || m.current >= len(m.states) {
			log.Errorf("%s: state %d out of range [0,%d)", m.name, m.current, len(m.states))
			return false, fmt.Errorf("%w: %s state %d", ErrStateOutOfRange, m.name, m.current)
		}
		state := m.states[m.current]
		log.Debugf("%s: state %d %s <- %s", m.name, m.current, state.Name(), msg.Type)

		m.timer.Start(state.Name())
		action := state.Action(m.mem, msg)
		m.timer.Stop(state.Name(), len(msg.Data))
		m.steps++

		if action.Next != NoChange {
			m.current = action.Next
		}
		if action.Command != None {
			msg = m.execute(action)
		} else {
			msg = Message{Type: Success}
		}

		switch action.Status {
		case EndSuccess:
			log.Infof("%s: finished successfully after %d steps", m.name, m.steps)
			return true, nil
		case EndFailure:
			log.Infof("%s: failed in state %s", m.name, state.Name())
			return false, nil
		}
	}
}

func (m *Machine[M]) execute(action Action) Message {
	name := "transport/" + action.Command.String()
	m.timer.Start(name)
	var (
		data []byte
		err  error
	)
	switch action.Command {
	case Open:
		err = m.conn.Open()
	case Close:
		err = m.conn.Close()
	case Put:
		err = m.conn.Put(action.Data)
	case Get:
		data, err = m.conn.Get(action.Length)
	case Select:
		err = m.conn.Select(action.Data)
	default:
		err = transport.NewError(action.Command.String(), transport.CodeInvalidCommand, nil)
	}
	m.timer.Stop(name, len(action.Data)+len(data))

	if err != nil {
		log.Errorf("%s: %s failed: %v", m.name, action.Command, err)
		return Message{Type: Failure, Code: transport.CodeOf(err)}
	}
	if action.Command == Get {
		return Message{Type: Data, Data: data}
	}
	return Message{Type: Success, Code: transport.CodeOK}
}
