// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package round compiles role tagged protocol steps into machine states.
//
// A phase is a list of Steps in protocol order. Each side of a run keeps the
// steps played by its local actors; a step with Receive > 0 first reads one
// envelope from the peer, then its handler runs and its output, if any, is sent.
package round

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/memory"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/party"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/protocol"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/transport"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/wire"
)

// ErrVerification marks a failed cryptographic or policy check.
// Only these failures are skipped when PassOverride is set.
var ErrVerification = errors.New("verification failed")

// ErrCompile is returned for step lists which cannot be turned into a machine.
var ErrCompile = errors.New("round: invalid step list")

// Fault reports a failed check blamed on culprit.
func Fault(culprit party.Role, err error) error {
	return protocol.Error{Culprit: culprit, Err: fmt.Errorf("%w: %w", ErrVerification, err)}
}

// Handler runs a step for the local actor self. in holds the decoded elements
// received from the peer, nil for steps without input. A nil output sends nothing.
//
// On a failed check a handler returns Fault together with the output it would
// send when the failure is overridden.
type Handler func(mem *memory.Shared, self *memory.Actor, in [][]byte) ([][]byte, error)

// Step is one move of a protocol.
type Step struct {
	Name string
	Role party.Role
	// Receive is the exact number of elements read from the peer, 0 for none.
	Receive int
	Handle  Handler
	// Loop turns the step into a loop control: while rounds remain it jumps
	// back to the step named Loop, or the first local step after it.
	Loop string
	// Notify sends the output of a failed check to the peer before the run ends.
	Notify bool
}

// Options tune the states added around the steps.
type Options struct {
	// Select is sent after Open when not empty.
	Select []byte
}

type compiler struct {
	name   string
	steps  []Step
	roles  party.RoleSet
	opts   Options
	index  map[int]int // position in steps -> state index
	states []protocol.State[*memory.Shared]
}

// Compile returns the states played by roles: OPEN, optional SELECT, the local
// steps and CLOSE.
func Compile(name string, steps []Step, roles party.RoleSet, opts Options) ([]protocol.State[*memory.Shared], error) {
	c := &compiler{name: name, steps: steps, roles: roles, opts: opts, index: map[int]int{}}

	prefix := 1
	if len(opts.Select) > 0 {
		prefix = 2
	}
	next := prefix
	seen := map[string]bool{}
	for i, s := range steps {
		if s.Name == "" || seen[s.Name] {
			return nil, fmt.Errorf("%w: empty or duplicate step name %q", ErrCompile, s.Name)
		}
		seen[s.Name] = true
		if s.Loop == "" && s.Handle == nil {
			return nil, fmt.Errorf("%w: step %s has no handler", ErrCompile, s.Name)
		}
		if roles.Contains(s.Role) {
			c.index[i] = next
			next++
		}
	}
	closeIndex := next

	c.states = append(c.states, protocol.StateFunc[*memory.Shared]{Label: "open", Fn: c.open(1)})
	if prefix == 2 {
		c.states = append(c.states, protocol.StateFunc[*memory.Shared]{Label: "select", Fn: c.selectApp(2)})
	}
	for i, s := range steps {
		idx, ok := c.index[i]
		if !ok {
			continue
		}
		fn, err := c.state(i, s, idx+1)
		if err != nil {
			return nil, err
		}
		c.states = append(c.states, protocol.StateFunc[*memory.Shared]{Label: s.Name, Fn: fn})
	}
	c.states = append(c.states, protocol.StateFunc[*memory.Shared]{Label: "close", Fn: closeState})

	if len(c.states) != closeIndex+1 {
		return nil, fmt.Errorf("%w: %d states, expected %d", ErrCompile, len(c.states), closeIndex+1)
	}
	return c.states, nil
}

// NewMachine compiles steps for the roles of mem and wires the machine to conn and the timers of mem.
func NewMachine(name string, steps []Step, mem *memory.Shared, conn transport.Transport, opts Options) (*protocol.Machine[*memory.Shared], error) {
	states, err := Compile(name, steps, mem.Roles(), opts)
	if err != nil {
		return nil, err
	}
	return protocol.NewMachine(name, states, mem, conn).WithTimer(mem.Timers), nil
}

func (c *compiler) open(next int) func(*memory.Shared, protocol.Message) protocol.Action {
	return func(_ *memory.Shared, _ protocol.Message) protocol.Action {
		return protocol.Transmit(protocol.Open, nil, next)
	}
}

func (c *compiler) selectApp(next int) func(*memory.Shared, protocol.Message) protocol.Action {
	return func(mem *memory.Shared, msg protocol.Message) protocol.Action {
		if msg.Type != protocol.Success {
			return failTransport(mem, "open", msg)
		}
		return protocol.Transmit(protocol.Select, c.opts.Select, next)
	}
}

func closeState(mem *memory.Shared, msg protocol.Message) protocol.Action {
	if msg.Type == protocol.Failure {
		return failTransport(mem, "close", msg)
	}
	return protocol.Finish(protocol.Close, true)
}

// target resolves the loop destination of step i.
func (c *compiler) target(i int, label string) (int, error) {
	pos := -1
	for j, s := range c.steps {
		if s.Name == label {
			pos = j
			break
		}
	}
	if pos < 0 || pos >= i {
		return 0, fmt.Errorf("%w: loop %s targets unknown or later step %q", ErrCompile, c.steps[i].Name, label)
	}
	for j := pos; j < i; j++ {
		if idx, ok := c.index[j]; ok {
			return idx, nil
		}
	}
	return 0, fmt.Errorf("%w: loop %s has no local step after %q", ErrCompile, c.steps[i].Name, label)
}

func (c *compiler) state(i int, s Step, next int) (func(*memory.Shared, protocol.Message) protocol.Action, error) {
	if s.Loop != "" {
		target, err := c.target(i, s.Loop)
		if err != nil {
			return nil, err
		}
		return loop(s, target, next), nil
	}
	return func(mem *memory.Shared, msg protocol.Message) protocol.Action {
		switch msg.Type {
		case protocol.Start, protocol.Success:
			if s.Receive > 0 {
				return protocol.Receive(wire.MaxEnvelopeSize)
			}
			return run(mem, s, nil, next)
		case protocol.Data:
			if s.Receive == 0 {
				return fail(mem, s, fmt.Errorf("unexpected payload"))
			}
			in, err := wire.DecodeN(msg.Data, s.Receive)
			if err != nil {
				return fail(mem, s, err)
			}
			return run(mem, s, in, next)
		default:
			return failTransport(mem, s.Name, msg)
		}
	}, nil
}

func loop(s Step, target, next int) func(*memory.Shared, protocol.Message) protocol.Action {
	return func(mem *memory.Shared, msg protocol.Message) protocol.Action {
		if msg.Type == protocol.Failure {
			return failTransport(mem, s.Name, msg)
		}
		mem.RoundsLeft--
		if mem.RoundsLeft > 0 {
			log.Debugf("%s: %d rounds left", s.Name, mem.RoundsLeft)
			return protocol.Goto(target)
		}
		return protocol.Goto(next)
	}
}

func run(mem *memory.Shared, s Step, in [][]byte, next int) protocol.Action {
	var self *memory.Actor
	if s.Role != party.Any {
		var err error
		if self, err = mem.Actor(s.Role); err != nil {
			return fail(mem, s, err)
		}
	}
	out, err := s.Handle(mem, self, in)
	if err != nil {
		if !errors.Is(err, ErrVerification) || !mem.Config.PassOverride {
			action := fail(mem, s, err)
			if s.Notify && out != nil && errors.Is(err, ErrVerification) {
				if data, encErr := wire.Encode(out); encErr == nil {
					action.Command, action.Data = protocol.Put, data
				}
			}
			return action
		}
		log.Warnf("%s: %v, continuing on override", s.Name, err)
	}
	if out == nil {
		return protocol.Goto(next)
	}
	data, err := wire.Encode(out)
	if err != nil {
		return fail(mem, s, err)
	}
	return protocol.Transmit(protocol.Put, data, next)
}

func fail(mem *memory.Shared, s Step, err error) protocol.Action {
	var pErr protocol.Error
	if errors.As(err, &pErr) {
		pErr.Step = s.Name
	} else {
		pErr = protocol.Error{Step: s.Name, Culprit: party.Any, Err: err}
	}
	log.Errorln(pErr)
	mem.Err = pErr
	return protocol.Fail()
}

func failTransport(mem *memory.Shared, step string, msg protocol.Message) protocol.Action {
	err := protocol.Error{Step: step, Culprit: party.Any, Err: transport.NewError(msg.Type.String(), msg.Code, nil)}
	log.Errorln(err)
	mem.Err = err
	return protocol.Fail()
}
