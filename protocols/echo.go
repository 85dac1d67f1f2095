// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package protocols

import (
	"bytes"

	log "github.com/sirupsen/logrus"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/memory"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/protocol"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/transport"
)

// EchoPayload is the message sent by Echo.
var EchoPayload = []byte("Hello World")

func echoState(label string, fn func(*memory.Shared, protocol.Message) protocol.Action) protocol.State[*memory.Shared] {
	return protocol.StateFunc[*memory.Shared]{Label: label, Fn: fn}
}

// Echo opens the channel, sends EchoPayload, expects it back and closes.
func Echo() []protocol.State[*memory.Shared] {
	return []protocol.State[*memory.Shared]{
		echoState("echo/open", func(_ *memory.Shared, _ protocol.Message) protocol.Action {
			return protocol.Transmit(protocol.Open, nil, 1)
		}),
		echoState("echo/put", func(_ *memory.Shared, msg protocol.Message) protocol.Action {
			if msg.Type != protocol.Success {
				return protocol.Fail()
			}
			return protocol.Transmit(protocol.Put, EchoPayload, 2)
		}),
		echoState("echo/get", func(_ *memory.Shared, msg protocol.Message) protocol.Action {
			switch msg.Type {
			case protocol.Success:
				return protocol.Receive(len(EchoPayload))
			case protocol.Data:
				if !bytes.Equal(msg.Data, EchoPayload) {
					log.Errorf("echo: got %q", msg.Data)
					return protocol.Fail()
				}
				return protocol.Finish(protocol.Close, true)
			default:
				return protocol.Fail()
			}
		}),
	}
}

// EchoPeer answers one Echo on the other end of a split channel.
func EchoPeer() []protocol.State[*memory.Shared] {
	return []protocol.State[*memory.Shared]{
		echoState("echo/open", func(_ *memory.Shared, _ protocol.Message) protocol.Action {
			return protocol.Transmit(protocol.Open, nil, 1)
		}),
		echoState("echo/reply", func(_ *memory.Shared, msg protocol.Message) protocol.Action {
			switch msg.Type {
			case protocol.Success:
				return protocol.Receive(len(EchoPayload))
			case protocol.Data:
				return protocol.Transmit(protocol.Put, msg.Data, 2)
			default:
				return protocol.Fail()
			}
		}),
		echoState("echo/close", func(_ *memory.Shared, msg protocol.Message) protocol.Action {
			return protocol.Finish(protocol.Close, msg.Type == protocol.Success)
		}),
	}
}

// RunEcho executes states over conn with a fresh memory.
func RunEcho(name string, states []protocol.State[*memory.Shared], mem *memory.Shared, conn transport.Transport) (bool, error) {
	return protocol.NewMachine(name, states, mem, conn).WithTimer(mem.Timers).Run()
}
